// Package importer turns bank and card CSV exports into staged ledger rows.
//
// Import is two-phase. Scan only locates the date, description and amount
// columns and keeps rows that have all three, untouched. Resolve runs later,
// when the reviewed rows are committed, and is where parsing can fail.
package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"budget/internal/core"
)

// Candidate is a staged row awaiting review. Fields hold the raw cell text.
type Candidate struct {
	Date        string
	Description string
	Amount      string
}

// ErrNoHeader is returned when the input has no readable header row.
var ErrNoHeader = errors.New("csv: missing header row")

// DefaultCategory is applied to imported rows when the review form leaves the
// category blank.
const DefaultCategory = "Imported"

var columnAliases = map[string][]string{
	"date":        {"date"},
	"description": {"description", "desc"},
	"amount":      {"amount"},
}

// DateLayouts are tried in order when resolving a candidate's date.
var DateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"01/02/06",
	"2006/01/02",
	"Jan 2, 2006",
	"02-Jan-2006",
}

// Scan reads a CSV stream with a header row and stages every row that carries
// a date, a description and an amount. Malformed rows are skipped.
func Scan(r io.Reader) ([]Candidate, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, ErrNoHeader
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	cols := locateColumns(header)

	var out []Candidate
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				continue
			}
			return out, fmt.Errorf("read csv: %w", err)
		}
		c := Candidate{
			Date:        cell(record, cols["date"]),
			Description: cell(record, cols["description"]),
			Amount:      cell(record, cols["amount"]),
		}
		if strings.TrimSpace(c.Date) == "" || strings.TrimSpace(c.Description) == "" || strings.TrimSpace(c.Amount) == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func locateColumns(header []string) map[string]int {
	cols := map[string]int{"date": -1, "description": -1, "amount": -1}
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		for field, aliases := range columnAliases {
			if cols[field] >= 0 {
				continue
			}
			for _, a := range aliases {
				if name == a {
					cols[field] = i
				}
			}
		}
	}
	return cols
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return record[idx]
}

// ParseDate tries each of DateLayouts and falls back to today.
func ParseDate(s string, today time.Time) core.Date {
	s = strings.TrimSpace(s)
	for _, layout := range DateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	return core.DateOf(today)
}

// Resolve parses the staged row into a transaction. Only the amount can fail;
// an unreadable date becomes today.
func (c Candidate) Resolve(today time.Time, category string) (core.Transaction, error) {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("amount %q: %w", c.Amount, err)
	}
	tx := core.Transaction{
		Date:        ParseDate(c.Date, today),
		Description: strings.TrimSpace(c.Description),
		Amount:      amount,
		Category:    category,
	}
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// RowError describes a staged row that could not be committed.
type RowError struct {
	Row       int // 1-based position in the reviewed list
	Candidate Candidate
	Err       error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d (%s): %v", e.Row, e.Candidate.Description, e.Err)
}

func (e RowError) Unwrap() error { return e.Err }

// ResolveAll resolves every candidate, collecting the failures instead of
// stopping at the first one.
func ResolveAll(cands []Candidate, today time.Time, category string) ([]core.Transaction, []RowError) {
	if strings.TrimSpace(category) == "" {
		category = DefaultCategory
	}
	category = strings.TrimSpace(category)
	var (
		txs  []core.Transaction
		errs []RowError
	)
	for i, c := range cands {
		tx, err := c.Resolve(today, category)
		if err != nil {
			errs = append(errs, RowError{Row: i + 1, Candidate: c, Err: err})
			continue
		}
		txs = append(txs, tx)
	}
	return txs, errs
}
