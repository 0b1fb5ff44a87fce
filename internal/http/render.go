package http

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/services"
)

const flashCookie = "budget_flash"

// pageData wraps every full-page render.
type pageData struct {
	Title string
	Nav   string
	Flash string
	Today core.Date
	Data  any
}

// execute renders a named template into memory so a failure never leaves a
// half-written response.
func (s *Server) execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, name, title, nav string, data any) {
	s.renderStatus(w, r, http.StatusOK, name, pageData{
		Title: title,
		Nav:   nav,
		Flash: popFlash(w, r),
		Today: s.reports.Today(),
		Data:  data,
	})
}

func (s *Server) renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.execute(name, data)
	if err != nil {
		s.templateFailed(w, r, name, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

// renderFragments concatenates fragments into one htmx response. Out-of-band
// fragments carry their own hx-swap-oob attribute.
func (s *Server) renderFragments(w http.ResponseWriter, r *http.Request, resp *HTMXResponseBuilder, fragments ...fragment) {
	var body []byte
	for _, f := range fragments {
		b, err := s.execute(f.name, f.data)
		if err != nil {
			s.templateFailed(w, r, f.name, err)
			return
		}
		body = append(body, b...)
	}
	resp.HTML(body).Write(w)
}

type errorView struct {
	Status  int
	Message string
}

type fragment struct {
	name string
	data any
}

func (s *Server) templateFailed(w http.ResponseWriter, r *http.Request, name string, err error) {
	log.FromContext(r.Context()).LogError(r.Context(), "Template execution failed", err, log.OpRender,
		log.NewFields().With("template", name))
	InternalServerError("Something went wrong. Please try again.").Write(w)
}

// done finishes a successful write. htmx requests get fragments; plain form
// posts get a flash message and a redirect.
func (s *Server) done(w http.ResponseWriter, r *http.Request, flash, back string, htmx func()) {
	if isHTMX(r) {
		htmx()
		return
	}
	setFlash(w, flash)
	http.Redirect(w, r, back, http.StatusSeeOther)
}

// fail maps err onto a response. Validation errors are 422 for htmx and a
// flash plus redirect otherwise; missing entities are 404; everything else is
// a logged 500 with a generic message.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error, back string) {
	ctx := r.Context()
	status, msg := classify(err)

	logger := log.FromContext(ctx)
	if status == http.StatusInternalServerError {
		logger.LogError(ctx, "Request failed", err, r.Method+" "+r.URL.Path, nil)
	} else {
		logger.InfoContext(ctx, "Request rejected",
			log.FieldStatusCode, status,
			log.FieldError, err.Error())
	}

	if isHTMX(r) {
		ErrorResponse(status, msg).Write(w)
		return
	}
	if status == http.StatusUnprocessableEntity {
		setFlash(w, msg)
		http.Redirect(w, r, back, http.StatusSeeOther)
		return
	}
	s.renderStatus(w, r, status, "error.html", pageData{
		Title: http.StatusText(status),
		Today: s.reports.Today(),
		Data:  errorView{Status: status, Message: msg},
	})
}

func classify(err error) (int, string) {
	switch {
	case services.IsValidation(err):
		return http.StatusUnprocessableEntity, userMessage(err)
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound, "Not found."
	}
	return http.StatusInternalServerError, "Something went wrong. Please try again."
}

func userMessage(err error) string {
	switch {
	case errors.Is(err, core.ErrInvalidAmount):
		return "Invalid amount."
	case errors.Is(err, core.ErrInvalidDate):
		return "Invalid date, use YYYY-MM-DD."
	case errors.Is(err, core.ErrInvalidHours):
		return "Hours must be a positive number."
	case errors.Is(err, core.ErrInvalidFrequency):
		return "Frequency must be weekly, monthly or annual."
	case errors.Is(err, core.ErrInvalidStatus):
		return "Unknown project status."
	case errors.Is(err, core.ErrEmptyDescription):
		return "Description is required."
	case errors.Is(err, core.ErrEmptyName):
		return "Name is required."
	case errors.Is(err, core.ErrTextTooLong):
		return "Text is too long (max 200 characters)."
	}
	return "Invalid input."
}

func setFlash(w http.ResponseWriter, msg string) {
	if msg == "" {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    url.QueryEscape(msg),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending flash message and clears it.
func popFlash(w http.ResponseWriter, r *http.Request) string {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return ""
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	msg, err := url.QueryUnescape(c.Value)
	if err != nil {
		return ""
	}
	return msg
}
