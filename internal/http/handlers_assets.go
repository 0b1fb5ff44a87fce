package http

import "net/http"

func (s *Server) handleAssets(w http.ResponseWriter, r *http.Request) {
	sum, err := s.reports.Assets(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "assets.html", "Assets", "assets", sum)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	a, err := parseAssetForm(r.PostForm)
	if err == nil {
		_, err = s.ledger.AddAsset(r.Context(), a)
	}
	if err != nil {
		s.fail(w, r, err, "/assets")
		return
	}
	s.assetsChanged(w, r, "Asset added.", true)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err == nil {
		err = s.ledger.DeleteAsset(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err, "/assets")
		return
	}
	s.assetsChanged(w, r, "Asset deleted.", false)
}

func (s *Server) assetsChanged(w http.ResponseWriter, r *http.Request, msg string, resetForm bool) {
	s.done(w, r, msg, "/assets", func() {
		sum, err := s.reports.Assets(r.Context())
		if err != nil {
			s.fail(w, r, err, "/assets")
			return
		}
		resp := NewHTMXResponse().TriggerSuccessNotification(msg)
		if resetForm {
			resp.TriggerFormReset()
		}
		s.renderFragments(w, r, resp, fragment{"asset_list", sum})
	})
}
