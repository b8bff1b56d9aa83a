package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"financeflow/internal/auth"
	"financeflow/internal/ledger"
	"financeflow/internal/log"
	"financeflow/internal/metrics"
	"financeflow/internal/middleware/ratelimit"
	"financeflow/internal/middleware/security"
	"financeflow/internal/middleware/trace"
	"financeflow/internal/session"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether an optional dependency is usable.
type HealthChecker interface {
	Healthy() bool
}

// Deps are the collaborators the server routes requests to. Broker and
// Metrics may be nil.
type Deps struct {
	Auth           *auth.Service
	Sessions       *session.Registry
	Backend        Pinger
	Broker         HealthChecker
	Metrics        *metrics.Metrics
	Logger         *log.Logger
	RateLimit      ratelimit.Config
	TrustedProxies []string
}

type Server struct {
	http.Server

	auth      *auth.Service
	sessions  *session.Registry
	anonymous *ledger.Manager
	backend   Pinger
	broker    HealthChecker
	metrics   *metrics.Metrics
	logger    *log.Logger
	limiter   *ratelimit.Limiter
	detector  *security.Detector
	now       func() time.Time

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.Discard()
	}

	s := &Server{
		auth:      deps.Auth,
		sessions:  deps.Sessions,
		anonymous: ledger.NewEphemeral(ledger.WithLogger(logger)),
		backend:   deps.Backend,
		broker:    deps.Broker,
		metrics:   deps.Metrics,
		logger:    logger.WithComponent(log.ComponentHTTP),
		limiter:   ratelimit.NewLimiter(deps.RateLimit),
		detector:  security.NewDetector(),
		now:       time.Now,
	}
	for _, cidr := range deps.TrustedProxies {
		if err := s.detector.AddTrustedProxy(cidr); err != nil {
			s.logger.Warn("Ignoring trusted proxy", log.FieldError, err)
		}
	}

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(logger),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

func (s *Server) routes(logger *log.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(trace.Middleware)
	r.Use(log.Middleware(logger))
	r.Use(log.RequestIDMiddleware(trace.FromRequest))
	r.Use(middleware.Recoverer)
	r.Use(log.AccessLog(s.detector.ExtractClientIP))
	r.Use(s.detector.Middleware)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	if s.metrics != nil {
		r.Use(s.metrics.Middleware)
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusNotFound).Error(log.ErrorTypeNotFound, "route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		NewJSONResponse().Status(http.StatusMethodNotAllowed).Error(log.ErrorTypeValidation, "method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, func(w http.ResponseWriter, r *http.Request) {
			log.FromContext(r.Context()).WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
				log.FieldClientIP, s.detector.ExtractClientIP(r), log.FieldPath, r.URL.Path)
			NewJSONResponse().Status(http.StatusTooManyRequests).
				Error("rate_limited", "rate limit exceeded, please try again later").Write(w)
		}))
		r.Use(s.identify)

		r.Post("/auth/signup", s.handleSignUp)
		r.Post("/auth/signin", s.handleSignIn)

		r.Get("/snapshot", s.handleSnapshot)
		r.Route("/views", func(r chi.Router) {
			r.Get("/dashboard", s.handleDashboard)
			r.Get("/budget", s.handleBudget)
			r.Get("/transactions", s.handleTransactionsView)
			r.Get("/cashflow", s.handleCashFlow)
			r.Get("/wallet", s.handleWallet)
			r.Get("/annual", s.handleAnnual)
			r.Get("/categories/{category}", s.handleCategory)
		})
		r.Get("/export.json", s.handleExportJSON)
		r.Get("/export.xlsx", s.handleExportXLSX)
		r.Get("/export.csv", s.handleExportCSV)

		r.Group(func(r chi.Router) {
			r.Use(requireIdentity)

			r.Post("/auth/signout", s.handleSignOut)

			r.Post("/transactions", s.handleCreateTransaction)
			r.Patch("/transactions/{id}", s.handleEditTransaction)
			r.Delete("/transactions/{id}", s.handleDeleteTransaction)

			r.Post("/cards", s.handleCreateCard)
			r.Patch("/cards/{id}", s.handleUpdateCard)
			r.Delete("/cards/{id}", s.handleDeleteCard)
			r.Post("/cards/{id}/reconcile", s.handleReconcileCard)
			r.Post("/reconcile", s.handleReconcileDrifted)

			r.Patch("/settings", s.handleUpdateSettings)
			r.Post("/reset", s.handleReset)
			r.Post("/import", s.handleImport)
		})
	})

	return r
}

// Shutdown stops background routines and drains the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady fails when the store is unreachable. A broken broker only
// degrades: events are best effort.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	status := map[string]string{"store": "ok"}
	code := http.StatusOK

	if s.backend != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.backend.Ping(ctx); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			status["store"] = "unavailable"
			code = http.StatusServiceUnavailable
		}
	}
	if s.broker != nil {
		status["broker"] = "ok"
		if !s.broker.Healthy() {
			status["broker"] = "degraded"
		}
	}
	writeJSON(w, code, status)
}
