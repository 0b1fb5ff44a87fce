package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"budget/internal/log"
)

// handleHealth performs basic liveness check
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    "ok",
		"timestamp": time.Now().Format(time.RFC3339),
		"uptime":    time.Since(s.appMetrics.started).String(),
	})
}

// handleReady verifies the templates and the database.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status := "ready"
	httpStatus := http.StatusOK
	checks := make(map[string]any)

	if s.templates == nil {
		checks["templates"] = "failed: templates not loaded"
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["templates"] = "ok"
	}

	if err := s.store.Ping(ctx); err != nil {
		checks["database"] = fmt.Sprintf("failed: %v", err)
		status, httpStatus = "not_ready", http.StatusServiceUnavailable
	} else {
		checks["database"] = map[string]any{"status": "ok", "dialect": s.store.Dialect()}
	}

	checks["rate_limiter"] = map[string]any{
		"active_clients": s.rateLimiter.GetMetrics().ClientCount,
		"status":         "ok",
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"timestamp": time.Now().Format(time.RFC3339),
		"checks":    checks,
	})
}

// handleMetrics writes counters in the Prometheus text format.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	securityMetrics := s.securityDetector.GetMetrics()
	rateLimitMetrics := s.rateLimiter.GetMetrics()
	traceMetrics := s.traceMiddleware.GetMetrics()

	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	metric := func(name, kind, help string, value any) {
		fmt.Fprintf(w, "# HELP %s %s\n", name, help)
		fmt.Fprintf(w, "# TYPE %s %s\n", name, kind)
		fmt.Fprintf(w, "%s %v\n\n", name, value)
	}
	metric("http_requests_total", "counter", "Total number of HTTP requests", traceMetrics.TotalRequests)
	metric("http_request_duration_avg_ms", "gauge", "Average response time in milliseconds", traceMetrics.AverageResponseTime().Milliseconds())
	metric("transactions_created_total", "counter", "Transactions created through the UI", atomic.LoadInt64(&s.appMetrics.transactions))
	metric("transactions_rejected_total", "counter", "Transaction submissions that failed", atomic.LoadInt64(&s.appMetrics.transactionsFails))
	metric("imports_total", "counter", "CSV imports committed", atomic.LoadInt64(&s.appMetrics.imports))
	metric("logins_total", "counter", "Successful logins", atomic.LoadInt64(&s.appMetrics.logins))
	metric("login_failures_total", "counter", "Rejected login attempts", atomic.LoadInt64(&s.appMetrics.loginFailures))
	metric("rate_limit_hits_total", "counter", "Total rate limit hits", rateLimitMetrics.TotalHits)
	metric("active_rate_limit_clients", "gauge", "Currently tracked rate limit clients", rateLimitMetrics.ClientCount)
	metric("suspicious_requests_total", "counter", "Total suspicious requests detected", securityMetrics.SuspiciousRequests)
	metric("invalid_ip_attempts_total", "counter", "Requests with an unparsable client address", securityMetrics.InvalidIPAttempts)
	metric("login_lockouts_total", "counter", "Clients locked out of sign-in after repeated failures", securityMetrics.LoginLockouts)
	metric("locked_out_clients", "gauge", "Clients currently locked out of sign-in", securityMetrics.LockedClients)
	metric("uptime_seconds", "gauge", "Application uptime in seconds", fmt.Sprintf("%.0f", time.Since(s.appMetrics.started).Seconds()))
}

type loginView struct {
	Error string
}

func (s *Server) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.sessions.Current(r); ok {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	s.renderPage(w, r, "login.html", "Sign in", "", loginView{})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.FromContext(ctx)

	if err := r.ParseForm(); err != nil {
		s.renderStatus(w, r, http.StatusBadRequest, "login.html", pageData{Title: "Sign in", Data: loginView{Error: "Invalid request."}})
		return
	}
	ip := s.securityDetector.ExtractClientIP(r)
	if !s.verifier.Verify(r.PostForm.Get("password")) {
		s.appMetrics.inc(&s.appMetrics.loginFailures)
		locked := s.securityDetector.RecordLoginFailure(ip)
		logger.WarnContext(ctx, "Login failed",
			log.FieldComponent, log.ComponentAuth,
			log.FieldClientIP, ip,
			"locked_out", locked)
		s.renderStatus(w, r, http.StatusUnauthorized, "login.html", pageData{Title: "Sign in", Data: loginView{Error: "Incorrect password."}})
		return
	}
	s.securityDetector.ClearLoginFailures(ip)

	if _, err := s.sessions.Login(ctx, w); err != nil {
		s.fail(w, r, err, "/login")
		return
	}
	s.appMetrics.inc(&s.appMetrics.logins)
	logger.InfoContext(ctx, "Login succeeded",
		log.FieldComponent, log.ComponentAuth,
		log.FieldOperation, log.OpLogin)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Logout(w, r)
	if isHTMX(r) {
		NewHTMXResponse().Redirect("/login").Status(http.StatusNoContent).Write(w)
		return
	}
	http.Redirect(w, r, "/login", http.StatusSeeOther)
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := s.reports.Dashboard(r.Context())
	if err != nil {
		s.fail(w, r, err, "/")
		return
	}
	s.renderPage(w, r, "dashboard.html", "Dashboard", "dashboard", d)
}
