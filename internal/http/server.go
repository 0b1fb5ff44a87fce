package http

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/shopspring/decimal"

	"budget/internal/auth"
	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/middleware/ratelimit"
	"budget/internal/middleware/security"
	"budget/internal/middleware/trace"
	"budget/internal/services"
	"budget/internal/storage"
	appweb "budget/web"
)

const staticMaxAge = 86400

// Options configures a Server. Verifier and Sessions are required.
type Options struct {
	Addr               string
	Currency           string
	RateLimitPerMinute int
	Verifier           auth.CredentialVerifier
	Sessions           *auth.Manager
	Logger             *log.Logger
}

type Server struct {
	http.Server
	templates *template.Template
	store     *storage.Store
	ledger    *services.LedgerService
	reports   *services.ReportService
	verifier  auth.CredentialVerifier
	sessions  *auth.Manager
	logger    *log.Logger
	currency  string

	traceMiddleware  *trace.Middleware
	securityDetector *security.Detector
	rateLimiter      *ratelimit.Limiter
	appMetrics       *appMetrics

	shutdownOnce sync.Once
}

// appMetrics tracks application-level counters exposed on /metrics.
type appMetrics struct {
	started           time.Time
	transactions      int64
	transactionsFails int64
	imports           int64
	logins            int64
	loginFailures     int64
}

func (m *appMetrics) inc(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// NewServer parses the templates and wires the router.
func NewServer(opts Options, store *storage.Store, ledger *services.LedgerService, reports *services.ReportService) (*Server, error) {
	if opts.Verifier == nil || opts.Sessions == nil {
		return nil, errors.New("http: verifier and session manager are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	currency := opts.Currency
	if currency == "" {
		currency = core.DefaultCurrency
	}

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       15 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       60 * time.Second,
		},
		store:            store,
		ledger:           ledger,
		reports:          reports,
		verifier:         opts.Verifier,
		sessions:         opts.Sessions,
		logger:           logger.WithComponent(log.ComponentHTTP),
		currency:         currency,
		securityDetector: security.NewDetector(security.DetectorConfig{ImportPath: "/import", MaxImportBytes: maxUploadBytes, LoginPath: "/login"}),
		rateLimiter:      ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		appMetrics:       &appMetrics{started: time.Now()},
	}
	s.traceMiddleware = trace.NewMiddleware(s.logger, s.securityDetector.ExtractClientIP)

	t, err := template.New("").Funcs(s.funcMap()).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		s.rateLimiter.Stop()
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	s.templates = t

	static, err := fs.Sub(appweb.StaticFS, "static")
	if err != nil {
		s.rateLimiter.Stop()
		return nil, fmt.Errorf("static assets: %w", err)
	}

	s.Handler = s.routes(http.FS(static))
	return s, nil
}

func (s *Server) routes(static http.FileSystem) http.Handler {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.securityDetector.Middleware(s.handleBlocked))
	r.Use(s.rateLimiter.Middleware(s.securityDetector.ExtractClientIP, s.handleRateLimited))
	r.Use(middleware.Compress(5))

	r.With(security.StaticAssetMiddleware(staticMaxAge)).
		Handle("/static/*", http.StripPrefix("/static/", http.FileServer(static)))

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/login", s.handleLoginForm)
	r.Post("/login", s.handleLogin)
	r.Get("/logout", s.handleLogout)
	r.Post("/logout", s.handleLogout)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.Middleware)

		r.Get("/", s.handleDashboard)
		r.Get("/metrics", s.handleMetrics)

		r.Post("/transactions", s.handleCreateTransaction)
		r.Delete("/transactions/{id}", s.handleDeleteTransaction)
		r.Post("/transactions/{id}/delete", s.handleDeleteTransaction)

		r.Get("/recurring", s.handleRecurring)
		r.Post("/recurring", s.handleCreateRecurring)
		r.Post("/recurring/{id}", s.handleUpdateRecurring)
		r.Delete("/recurring/{id}", s.handleDeleteRecurring)
		r.Post("/recurring/{id}/delete", s.handleDeleteRecurring)

		r.Get("/projects", s.handleProjects)
		r.Post("/projects", s.handleCreateProject)
		r.Get("/projects/{id}", s.handleProjectDetail)
		r.Post("/projects/{id}", s.handleUpdateProject)
		r.Delete("/projects/{id}", s.handleDeleteProject)
		r.Post("/projects/{id}/delete", s.handleDeleteProject)
		r.Post("/projects/{id}/time", s.handleCreateTimeEntry)
		r.Delete("/time/{id}", s.handleDeleteTimeEntry)
		r.Post("/time/{id}/delete", s.handleDeleteTimeEntry)

		r.Get("/assets", s.handleAssets)
		r.Post("/assets", s.handleCreateAsset)
		r.Delete("/assets/{id}", s.handleDeleteAsset)
		r.Post("/assets/{id}/delete", s.handleDeleteAsset)

		r.Get("/forecast", s.handleForecast)
		r.Get("/forecast.json", s.handleForecastJSON)
		r.Get("/roi", s.handleROI)

		r.Get("/import", s.handleImportForm)
		r.Post("/import", s.handleImportUpload)
		r.Post("/import/commit", s.handleImportCommit)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.fail(w, r, core.ErrNotFound, "/")
	})
	return r
}

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	log.FromContext(r.Context()).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldComponent, log.ComponentRateLimit,
		log.FieldClientIP, s.securityDetector.ExtractClientIP(r),
		log.FieldPath, r.URL.Path)
	if isHTMX(r) {
		TooManyRequestsError("Too many requests. Please wait a minute and try again.").Write(w)
		return
	}
	http.Error(w, "Rate limit exceeded. Please try again later.", http.StatusTooManyRequests)
}

func (s *Server) handleBlocked(w http.ResponseWriter, r *http.Request, threat security.Threat) {
	switch threat {
	case security.ThreatLoginLockout:
		msg := "Too many failed sign-ins. Try again in a few minutes."
		if isHTMX(r) {
			TooManyRequestsError(msg).Write(w)
			return
		}
		s.renderStatus(w, r, http.StatusTooManyRequests, "login.html", pageData{Title: "Sign in", Data: loginView{Error: msg}})
	case security.ThreatOversizedImport:
		msg := "Upload a CSV file of at most 10 MB."
		if isHTMX(r) {
			ErrorResponse(http.StatusRequestEntityTooLarge, msg).Write(w)
			return
		}
		setFlash(w, msg)
		http.Redirect(w, r, "/import", http.StatusSeeOther)
	default:
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
	}
}

// Shutdown stops the rate limiter's cleanup loop and then the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.shutdownOnce.Do(s.rateLimiter.Stop)
	return s.Server.Shutdown(ctx)
}

func (s *Server) funcMap() template.FuncMap {
	return template.FuncMap{
		"money": func(m core.Money) string { return m.Format(s.currency) },
		"plain": func(m core.Money) string { return m.String() },
		"date": func(d core.Date) string {
			if d.IsZero() {
				return ""
			}
			return d.Format("Jan 2, 2006")
		},
		"iso":   func(d core.Date) string { return d.String() },
		"pct":   func(d decimal.Decimal) string { return d.StringFixed(2) + "%" },
		"hours": func(d decimal.Decimal) string { return d.StringFixed(2) },
		"amountClass": func(m core.Money) string {
			if m.IsNegative() {
				return "expense"
			}
			return "income"
		},
		"hasID": func(ids []int64, id int64) bool {
			for _, v := range ids {
				if v == id {
					return true
				}
			}
			return false
		},
		"frequencies":       core.Frequencies,
		"statuses":          core.Statuses,
		"incomeCategories":  func() []string { return core.IncomeCategories },
		"expenseCategories": func() []string { return core.ExpenseCategories },
		"add":               func(a, b int) int { return a + b },
	}
}
