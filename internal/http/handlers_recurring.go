package http

import (
	"net/http"

	"budget/internal/core"
)

type recurringView struct {
	Items    []core.RecurringTransaction
	Projects []core.Project
}

func (s *Server) loadRecurring(r *http.Request) (recurringView, error) {
	items, projects, err := s.reports.Recurring(r.Context())
	return recurringView{Items: items, Projects: projects}, err
}

func (s *Server) handleRecurring(w http.ResponseWriter, r *http.Request) {
	v, err := s.loadRecurring(r)
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "recurring.html", "Recurring", "recurring", v)
}

func (s *Server) handleCreateRecurring(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	rt, kind, err := parseRecurringForm(r.PostForm)
	if err == nil {
		_, err = s.ledger.CreateRecurring(r.Context(), rt, kind)
	}
	if err != nil {
		s.fail(w, r, err, "/recurring")
		return
	}
	s.recurringChanged(w, r, "Recurring item added.", true)
}

func (s *Server) handleUpdateRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		s.fail(w, r, err, "/recurring")
		return
	}
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	rt, kind, err := parseRecurringForm(r.PostForm)
	if err == nil {
		rt.ID = id
		err = s.ledger.UpdateRecurring(r.Context(), rt, kind)
	}
	if err != nil {
		s.fail(w, r, err, "/recurring")
		return
	}
	s.recurringChanged(w, r, "Recurring item updated.", false)
}

func (s *Server) handleDeleteRecurring(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err == nil {
		err = s.ledger.DeleteRecurring(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err, "/recurring")
		return
	}
	s.recurringChanged(w, r, "Recurring item deleted.", false)
}

func (s *Server) recurringChanged(w http.ResponseWriter, r *http.Request, msg string, resetForm bool) {
	s.done(w, r, msg, "/recurring", func() {
		v, err := s.loadRecurring(r)
		if err != nil {
			s.fail(w, r, err, "/recurring")
			return
		}
		// recurring items feed the forecast
		resp := NewHTMXResponse().TriggerLedgerChanged().TriggerSuccessNotification(msg)
		if resetForm {
			resp.TriggerFormReset()
		}
		s.renderFragments(w, r, resp, fragment{"recurring_list", v})
	})
}
