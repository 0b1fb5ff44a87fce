package http

import (
	"encoding/json"
	"net/http"

	"budget/internal/core"
	"budget/internal/finance"
	"budget/internal/log"
)

func (s *Server) handleForecast(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.reports.Forecast(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "forecast.html", "Forecast", "forecast", weeks)
}

// forecastSeries is the chart payload served at /forecast.json.
type forecastSeries struct {
	Labels  []string  `json:"labels"`
	Income  []float64 `json:"income"`
	Expense []float64 `json:"expense"`
	Net     []float64 `json:"net"`
}

func newForecastSeries(weeks []finance.WeekBucket) forecastSeries {
	out := forecastSeries{
		Labels:  make([]string, 0, len(weeks)),
		Income:  make([]float64, 0, len(weeks)),
		Expense: make([]float64, 0, len(weeks)),
		Net:     make([]float64, 0, len(weeks)),
	}
	units := func(m core.Money) float64 { return m.Decimal().InexactFloat64() }
	for _, b := range weeks {
		out.Labels = append(out.Labels, b.Label)
		out.Income = append(out.Income, units(b.Income))
		out.Expense = append(out.Expense, units(b.Expense))
		out.Net = append(out.Net, units(b.Net()))
	}
	return out
}

func (s *Server) handleForecastJSON(w http.ResponseWriter, r *http.Request) {
	weeks, err := s.reports.Forecast(r.Context())
	if err != nil {
		log.FromContext(r.Context()).LogError(r.Context(), "Forecast failed", err, log.OpRead, nil)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "forecast unavailable"})
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	_ = json.NewEncoder(w).Encode(newForecastSeries(weeks))
}

func (s *Server) handleROI(w http.ResponseWriter, r *http.Request) {
	rows, err := s.reports.SoftwareROI(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "roi.html", "Software ROI", "roi", rows)
}
