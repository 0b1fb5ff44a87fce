// Package http provides HTTP server and handler implementations.
//
// This file turns form submissions into domain values. Every parse failure is
// reported with the matching core sentinel so handlers can map it to a
// status code.

package http

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"budget/internal/core"
	"budget/internal/importer"
)

// isHTMX reports whether the request was issued by htmx.
func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// sanitizeInput removes control characters (except tab, newline and carriage
// return) and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// parseID reads the {id} route parameter. Anything but a positive integer is
// treated as an unknown entity.
func parseID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, core.ErrNotFound
	}
	return id, nil
}

// parseOptionalMoney parses a money field where blank means zero.
func parseOptionalMoney(s string) (core.Money, error) {
	if strings.TrimSpace(s) == "" {
		return core.Money{}, nil
	}
	return core.ParseAmount(s)
}

func parseHours(s string, required bool) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" && !required {
		return decimal.Zero, nil
	}
	h, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, core.ErrInvalidHours
	}
	return h.Round(2), nil
}

// parseProjectIDs reads the repeated project_ids field.
func parseProjectIDs(form url.Values) ([]int64, error) {
	var ids []int64
	for _, v := range form["project_ids"] {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return nil, core.ErrNotFound
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func checkbox(form url.Values, name string) bool {
	_, ok := form[name]
	return ok && form.Get(name) != "false"
}

// parseTransactionForm reads the add-transaction form. The kind comes from
// the kind field, or from the category when the field is absent.
func parseTransactionForm(form url.Values) (core.Transaction, core.Kind, error) {
	category := sanitizeInput(form.Get("category"))
	kind := core.ParseKind(form.Get("kind"), category)

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.Transaction{}, kind, err
	}
	date, err := core.ParseDate(form.Get("date"))
	if err != nil {
		return core.Transaction{}, kind, err
	}
	projectIDs, err := parseProjectIDs(form)
	if err != nil {
		return core.Transaction{}, kind, err
	}
	return core.Transaction{
		Date:        date,
		Description: sanitizeInput(form.Get("description")),
		Amount:      amount,
		Category:    category,
		PassThrough: checkbox(form, "is_pass_through"),
		ProjectIDs:  projectIDs,
	}, kind, nil
}

func parseRecurringForm(form url.Values) (core.RecurringTransaction, core.Kind, error) {
	category := sanitizeInput(form.Get("category"))
	kind := core.ParseKind(form.Get("kind"), category)

	amount, err := core.ParseAmount(form.Get("amount"))
	if err != nil {
		return core.RecurringTransaction{}, kind, err
	}
	freq, err := core.ParseFrequency(form.Get("frequency"))
	if err != nil {
		return core.RecurringTransaction{}, kind, err
	}
	next, err := core.ParseDate(form.Get("next_date"))
	if err != nil {
		return core.RecurringTransaction{}, kind, err
	}
	projectIDs, err := parseProjectIDs(form)
	if err != nil {
		return core.RecurringTransaction{}, kind, err
	}
	return core.RecurringTransaction{
		Description: sanitizeInput(form.Get("description")),
		Amount:      amount,
		Category:    category,
		Frequency:   freq,
		NextDate:    next,
		PassThrough: checkbox(form, "is_pass_through"),
		ProjectIDs:  projectIDs,
	}, kind, nil
}

func parseProjectForm(form url.Values) (core.Project, error) {
	retainer, err := parseOptionalMoney(form.Get("monthly_retainer"))
	if err != nil {
		return core.Project{}, err
	}
	costRate, err := parseOptionalMoney(form.Get("cost_rate"))
	if err != nil {
		return core.Project{}, err
	}
	status, err := core.ParseProjectStatus(form.Get("status"))
	if err != nil {
		return core.Project{}, err
	}
	planned, err := parseHours(form.Get("planned_hours"), false)
	if err != nil {
		return core.Project{}, err
	}
	return core.Project{
		Name:            sanitizeInput(form.Get("name")),
		MonthlyRetainer: retainer,
		CostRate:        costRate,
		Status:          status,
		PlannedHours:    planned,
	}, nil
}

func parseTimeEntryForm(form url.Values, projectID int64) (core.TimeEntry, error) {
	date, err := core.ParseDate(form.Get("date"))
	if err != nil {
		return core.TimeEntry{}, err
	}
	hours, err := parseHours(form.Get("hours"), true)
	if err != nil {
		return core.TimeEntry{}, err
	}
	return core.TimeEntry{
		ProjectID:   projectID,
		Date:        date,
		Hours:       hours,
		Description: sanitizeInput(form.Get("description")),
	}, nil
}

func parseAssetForm(form url.Values) (core.Asset, error) {
	value, err := core.ParseAmount(form.Get("value"))
	if err != nil {
		return core.Asset{}, err
	}
	date, err := core.ParseDate(form.Get("purchase_date"))
	if err != nil {
		return core.Asset{}, err
	}
	return core.Asset{
		Name:         sanitizeInput(form.Get("name")),
		Value:        value,
		PurchaseDate: date,
	}, nil
}

// parseStagedRows rebuilds the staged import rows from the review form's
// parallel hidden inputs. Values are passed through untouched.
func parseStagedRows(form url.Values) []importer.Candidate {
	dates, descs, amounts := form["date"], form["description"], form["amount"]
	n := min(len(dates), len(descs), len(amounts))
	out := make([]importer.Candidate, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, importer.Candidate{Date: dates[i], Description: descs[i], Amount: amounts[i]})
	}
	return out
}
