package http

import (
	"encoding/json"
	"html/template"
	"net/http"
)

// Events the pages listen for. app.js refreshes the forecast chart on
// ledger:changed, clears forms marked data-reset on form:reset and shows a
// toast on show-notification.
const (
	EventLedgerChanged = "ledger:changed"
	EventFormReset     = "form:reset"
	EventNotify        = "show-notification"
)

// errorsSlot is the element every page reserves for error fragments.
const errorsSlot = "#errors"

type NotificationType string

const (
	NotificationSuccess NotificationType = "success"
	NotificationError   NotificationType = "error"
)

// notice is the show-notification payload.
type notice struct {
	Type     NotificationType `json:"type"`
	Message  string           `json:"message"`
	Duration int              `json:"duration"`
}

var noticeDuration = map[NotificationType]int{
	NotificationSuccess: 3000,
	NotificationError:   6000,
}

// HTMXResponseBuilder assembles an htmx answer: status, HX-* headers, the
// HX-Trigger event map and an HTML body.
type HTMXResponseBuilder struct {
	status  int
	events  map[string]any
	headers http.Header
	body    []byte
}

// NewHTMXResponse starts a 200 response.
func NewHTMXResponse() *HTMXResponseBuilder {
	return &HTMXResponseBuilder{
		status:  http.StatusOK,
		events:  make(map[string]any),
		headers: make(http.Header),
	}
}

func (b *HTMXResponseBuilder) Status(code int) *HTMXResponseBuilder {
	b.status = code
	return b
}

// Trigger fires event on the client with detail as its payload. A repeated
// event keeps the last detail.
func (b *HTMXResponseBuilder) Trigger(event string, detail any) *HTMXResponseBuilder {
	b.events[event] = detail
	return b
}

func (b *HTMXResponseBuilder) TriggerLedgerChanged() *HTMXResponseBuilder {
	return b.Trigger(EventLedgerChanged, struct{}{})
}

func (b *HTMXResponseBuilder) TriggerFormReset() *HTMXResponseBuilder {
	return b.Trigger(EventFormReset, struct{}{})
}

// Notify queues a toast.
func (b *HTMXResponseBuilder) Notify(kind NotificationType, message string) *HTMXResponseBuilder {
	return b.Trigger(EventNotify, notice{Type: kind, Message: message, Duration: noticeDuration[kind]})
}

func (b *HTMXResponseBuilder) TriggerSuccessNotification(message string) *HTMXResponseBuilder {
	return b.Notify(NotificationSuccess, message)
}

// Retarget swaps the body into selector instead of the requesting element's
// target.
func (b *HTMXResponseBuilder) Retarget(selector string) *HTMXResponseBuilder {
	b.headers.Set("HX-Retarget", selector)
	b.headers.Set("HX-Reswap", "innerHTML")
	return b
}

// Redirect makes htmx do a full page navigation to path.
func (b *HTMXResponseBuilder) Redirect(path string) *HTMXResponseBuilder {
	b.headers.Set("HX-Redirect", path)
	return b
}

// HTML sets an already rendered fragment as the body.
func (b *HTMXResponseBuilder) HTML(body []byte) *HTMXResponseBuilder {
	b.headers.Set("Content-Type", "text/html; charset=utf-8")
	b.body = body
	return b
}

func (b *HTMXResponseBuilder) Write(w http.ResponseWriter) {
	for name, values := range b.headers {
		w.Header()[name] = values
	}
	if len(b.events) > 0 {
		if events, err := json.Marshal(b.events); err == nil {
			w.Header().Set("HX-Trigger", string(events))
		}
	}
	w.WriteHeader(b.status)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

// ErrorResponse puts an escaped alert into the page's #errors slot and raises
// an error toast with the same message.
func ErrorResponse(status int, message string) *HTMXResponseBuilder {
	alert := `<div class="alert alert-danger" role="alert">` + template.HTMLEscapeString(message) + `</div>`
	return NewHTMXResponse().
		Status(status).
		Retarget(errorsSlot).
		Notify(NotificationError, message).
		HTML([]byte(alert))
}

func BadRequestError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func UnprocessableEntityError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusUnprocessableEntity, message)
}

func InternalServerError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func TooManyRequestsError(message string) *HTMXResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, message)
}
