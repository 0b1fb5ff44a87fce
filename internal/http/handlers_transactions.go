package http

import (
	"net/http"

	"budget/internal/log"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	tx, kind, err := parseTransactionForm(r.PostForm)
	if err == nil {
		tx, err = s.ledger.AddTransaction(r.Context(), tx, kind)
	}
	if err != nil {
		s.appMetrics.inc(&s.appMetrics.transactionsFails)
		s.fail(w, r, err, "/")
		return
	}
	s.appMetrics.inc(&s.appMetrics.transactions)
	s.ledgerChanged(w, r, "Transaction added.", true)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err == nil {
		err = s.ledger.DeleteTransaction(r.Context(), id)
	}
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	log.FromContext(r.Context()).InfoContext(r.Context(), "Transaction deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldEntityID, id)
	s.ledgerChanged(w, r, "Transaction deleted.", false)
}

// ledgerChanged answers a ledger write. htmx callers get the refreshed
// transaction list plus the AGI gauge swapped out of band.
func (s *Server) ledgerChanged(w http.ResponseWriter, r *http.Request, msg string, resetForm bool) {
	s.done(w, r, msg, "/", func() {
		l, err := s.reports.Ledger(r.Context())
		if err != nil {
			s.fail(w, r, err, "/")
			return
		}
		resp := NewHTMXResponse().TriggerLedgerChanged().TriggerSuccessNotification(msg)
		if resetForm {
			resp.TriggerFormReset()
		}
		s.renderFragments(w, r, resp,
			fragment{"transaction_list", l},
			fragment{"agi_gauge", l})
	})
}
