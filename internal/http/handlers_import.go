package http

import (
	"errors"
	"net/http"
	"strings"

	"budget/internal/core"
	"budget/internal/importer"
	"budget/internal/log"
)

const maxUploadBytes = 10 << 20

type importView struct {
	Category string
	Rows     []importer.Candidate
}

func (s *Server) handleImportForm(w http.ResponseWriter, r *http.Request) {
	s.renderPage(w, r, "import.html", "Import", "import", importView{Category: importer.DefaultCategory})
}

// handleImportUpload scans the uploaded file and renders the staged rows for
// review. Nothing is written yet.
func (s *Server) handleImportUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		s.importRejected(w, r, "Upload a CSV file of at most 10 MB.")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		s.importRejected(w, r, "Choose a CSV file to import.")
		return
	}
	defer file.Close()

	rows, err := importer.Scan(file)
	if err != nil {
		log.FromContext(ctx).InfoContext(ctx, "CSV scan failed",
			log.FieldComponent, log.ComponentImport,
			log.FieldError, err.Error(),
			"filename", header.Filename)
		msg := "Could not read the CSV file."
		if errors.Is(err, importer.ErrNoHeader) {
			msg = "The CSV file has no header row."
		}
		s.importRejected(w, r, msg)
		return
	}
	if len(rows) == 0 {
		s.importRejected(w, r, "No rows with a date, description and amount were found.")
		return
	}

	category := strings.TrimSpace(r.FormValue("category"))
	if category == "" {
		category = importer.DefaultCategory
	}
	log.FromContext(ctx).InfoContext(ctx, "CSV staged for review",
		log.FieldComponent, log.ComponentImport,
		log.FieldCount, len(rows),
		"filename", header.Filename)
	s.renderPage(w, r, "import_review.html", "Review import", "import", importView{Category: category, Rows: rows})
}

func (s *Server) importRejected(w http.ResponseWriter, r *http.Request, msg string) {
	if isHTMX(r) {
		UnprocessableEntityError(msg).Write(w)
		return
	}
	setFlash(w, msg)
	http.Redirect(w, r, "/import", http.StatusSeeOther)
}

func (s *Server) handleImportCommit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		BadRequestError("Invalid request.").Write(w)
		return
	}
	rows := parseStagedRows(r.PostForm)
	if len(rows) == 0 {
		s.importRejected(w, r, "Nothing to import.")
		return
	}
	result, err := s.ledger.ImportTransactions(r.Context(), rows, sanitizeInput(r.PostForm.Get("category")))
	if err != nil {
		s.fail(w, r, err, "/import")
		return
	}
	if len(result.Imported) > 0 {
		s.appMetrics.inc(&s.appMetrics.imports)
	}
	s.renderPage(w, r, "import_result.html", "Import complete", "import", importResultView{
		Imported: result.Imported,
		Failed:   result.Failed,
		Total:    sumAmounts(result.Imported),
	})
}

type importResultView struct {
	Imported []core.Transaction
	Failed   []importer.RowError
	Total    core.Money
}

func sumAmounts(txs []core.Transaction) core.Money {
	var total core.Money
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}
