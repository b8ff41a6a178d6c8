// Package server provides the HTTP server setup and wiring.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/zktrails/zktrails/internal/auth"
	"github.com/zktrails/zktrails/internal/chains/stellar"
	"github.com/zktrails/zktrails/internal/config"
	"github.com/zktrails/zktrails/internal/middleware/logging"
	"github.com/zktrails/zktrails/internal/middleware/ratelimit"
	"github.com/zktrails/zktrails/internal/middleware/realip"
	"github.com/zktrails/zktrails/internal/middleware/security"
	"github.com/zktrails/zktrails/internal/observability/metrics"
	playersDomain "github.com/zktrails/zktrails/internal/players/domain"
	playersTransport "github.com/zktrails/zktrails/internal/players/transport"
	proofsDomain "github.com/zktrails/zktrails/internal/proofs/domain"
	proofsTransport "github.com/zktrails/zktrails/internal/proofs/transport"
	sessionsDomain "github.com/zktrails/zktrails/internal/sessions/domain"
	sessionsTransport "github.com/zktrails/zktrails/internal/sessions/transport"
	settlementDomain "github.com/zktrails/zktrails/internal/settlement/domain"
	settlementTransport "github.com/zktrails/zktrails/internal/settlement/transport"
	verificationDomain "github.com/zktrails/zktrails/internal/verification/domain"
	verificationTransport "github.com/zktrails/zktrails/internal/verification/transport"
)

// costlyPaths drive the ledger or the prover and get their own rate budget.
var costlyPaths = []string{"/complete-mission", "/proofs/location", "/start"}

// Server is the HTTP server
type Server struct {
	cfg     *config.Config
	deps    Deps
	logger  *slog.Logger
	router  *chi.Mux
	sweeper *sessionsDomain.Sweeper
	limiter *ratelimit.RateLimiter

	// Services typed via transport interfaces
	verificationSvc verificationTransport.Service
	sessionsSvc     sessionsTransport.Service
	settlementSvc   settlementTransport.Service
	playersSvc      playersTransport.Service
	proofsSvc       proofsTransport.Service
}

// New wires the domain services and routes.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logger,
		router: chi.NewRouter(),
	}

	players := playersDomain.NewService(deps.Store, deps.Clock)
	credit := settlementDomain.CreditFunc(func(ctx context.Context, address, missionID string, points int) error {
		_, err := players.Credit(ctx, address, missionID, points)
		return err
	})
	settlement := settlementDomain.NewService(
		stellar.NewMissionManager(deps.Invoker, cfg.GameHub.MissionManagerContractID),
		deps.Store,
		credit,
		deps.Clock,
		logger,
	)

	var sessionStore sessionsDomain.Store = sessionsDomain.NewMemoryStore()
	if cfg.Sessions.Store == "database" {
		sessionStore = sessionsDomain.NewDatabaseStore(deps.Store)
	}
	sessions := sessionsDomain.NewService(
		sessionStore,
		stellar.NewGameHub(deps.Invoker, cfg.GameHub.ContractID),
		deps.Catalog,
		deps.Clock,
		sessionsDomain.Config{
			Player2Placeholder: cfg.GameHub.Player2Placeholder,
			TTL:                cfg.Sessions.TTL,
		},
		logger,
	)
	if cfg.Sessions.SweeperEnabled && cfg.Sessions.TTL > 0 {
		sweeper, err := sessionsDomain.NewSweeper(sessions, cfg.Sessions.SweepInterval, deps.Clock, logger)
		if err != nil {
			return nil, fmt.Errorf("creating session sweeper: %w", err)
		}
		s.sweeper = sweeper
	}

	verifyImpl := verificationDomain.NewService(
		deps.Catalog,
		verificationDomain.NewQuizScorer(deps.Catalog),
		verificationDomain.NewGeofenceVerifier(deps.Catalog, deps.Clock),
		verificationDomain.NewLedgerVerifier(deps.Explorer, logger),
		sessions,
		settlement,
		verificationDomain.Config{SingleCompletion: cfg.Missions.SingleCompletion},
		logger,
	)

	// Wrap verification service with logging middleware
	s.verificationSvc = verificationDomain.LoggingMiddleware(logger)(verifyImpl)
	s.sessionsSvc = sessions
	s.settlementSvc = settlement
	s.playersSvc = players
	s.proofsSvc = proofsDomain.NewService(deps.Prover, deps.Store, deps.Catalog, deps.Clock, logger)

	if err := s.setupMiddleware(); err != nil {
		return nil, err
	}
	s.setupRoutes()

	return s, nil
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// MetricsHandler returns the metrics HTTP handler for separate metrics server
func (s *Server) MetricsHandler() http.Handler {
	return metrics.Handler()
}

// Start launches background jobs.
func (s *Server) Start() {
	if s.sweeper != nil {
		s.sweeper.Start()
	}
}

// Close stops background jobs.
func (s *Server) Close() error {
	if s.limiter != nil {
		s.limiter.Stop()
	}
	if s.sweeper != nil {
		return s.sweeper.Stop()
	}
	return nil
}

func (s *Server) setupMiddleware() error {
	// Order matters! Security middleware runs first to block malicious requests early.

	// 1. Real IP extraction (must be first to set client IP for other middleware)
	rip, err := realip.Middleware(realip.Config{
		TrustProxy:     s.cfg.Proxy.TrustProxy,
		TrustedProxies: s.cfg.Proxy.TrustedProxies,
	})
	if err != nil {
		return fmt.Errorf("configuring proxy trust: %w", err)
	}
	s.router.Use(rip)

	// 2. Security filter (blocks malicious patterns, bypasses health checks)
	s.router.Use(security.FilterMiddleware(s.cfg.Security.FilterEnabled))

	// 3. Body size limit
	s.router.Use(security.MaxBodySizeMiddleware(s.cfg.Security.MaxBodySizeMB))

	// 4. Rate limiting (bypasses health checks)
	if s.cfg.RateLimit.Enabled {
		s.limiter = ratelimit.New(ratelimit.Config{
			Enabled:        true,
			RequestsPerMin: s.cfg.RateLimit.RequestsPerMin,
			BurstSize:      s.cfg.RateLimit.BurstSize,
			CleanupMinutes: s.cfg.RateLimit.CleanupMinutes,
			CostlyPerMin:   s.cfg.RateLimit.CostlyPerMin,
			CostlyPaths:    costlyPaths,
		}, s.deps.Clock)
		s.router.Use(s.limiter.Middleware())
	}

	// 5. Standard middleware
	s.router.Use(middleware.RequestID)
	s.router.Use(logging.Middleware(s.logger))
	s.router.Use(metrics.Middleware)
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.Compress(5))

	// 6. CORS
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Accept, Authorization, Content-Type, X-API-Key")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})
	return nil
}

func (s *Server) setupRoutes() {
	// Health checks
	s.router.Get("/health", s.handleHealth)
	s.router.Get("/healthz", s.handleLive)
	s.router.Get("/readyz", s.handleReady)

	missionsHandler := verificationTransport.NewHandler(s.verificationSvc, s.deps.Catalog)
	sessionsHandler := sessionsTransport.NewHandler(s.sessionsSvc)
	completionsHandler := settlementTransport.NewHandler(s.settlementSvc)
	playersHandler := playersTransport.NewHandler(s.playersSvc)
	proofsHandler := proofsTransport.NewHandler(s.proofsSvc)

	// Auth middleware for operator routes
	requireAuth := func(r chi.Router) {
		if s.cfg.Auth.Type == "api-key" {
			r.Use(auth.Middleware(s.deps.Store, writeError))
			r.Use(auth.AuditLog(s.logger))
		}
	}
	timeout := time.Duration(s.cfg.Server.RequestTimeout) * time.Second

	s.router.Route("/api/v1", func(r chi.Router) {
		r.Use(security.RequireJSON)

		// Missions: catalogue, verdicts and session start
		r.Route("/missions", func(r chi.Router) {
			missionsHandler.RegisterMissionRoutes(r)
			sessionsHandler.RegisterRoutes(r)
		})
		missionsHandler.RegisterCompleteRoute(r)

		// Proofs run the external toolchain and are not bounded by the request timeout
		r.Route("/proofs", proofsHandler.RegisterRoutes)

		// Store-backed reads
		r.Group(func(r chi.Router) {
			if timeout > 0 {
				r.Use(middleware.Timeout(timeout))
			}
			proofsHandler.RegisterStatusRoute(r)
			r.Route("/players", playersHandler.RegisterRoutes)
			playersHandler.RegisterLeaderboardRoute(r)

			// Operator routes
			r.Route("/admin", func(r chi.Router) {
				requireAuth(r)
				r.Route("/sessions", sessionsHandler.RegisterAdminRoutes)
				r.Route("/completions", completionsHandler.RegisterAdminRoutes)
			})
		})
	})
}

// handleHealth reports the service and its configured contracts.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"timestamp": s.deps.Clock.Now().UTC().Format(time.RFC3339),
		"network":   s.cfg.Ledger.NetworkPassphrase,
		"missions":  s.deps.Catalog.Len(),
		"contracts": map[string]string{
			"gameHub":        s.cfg.GameHub.ContractID,
			"missionManager": s.cfg.GameHub.MissionManagerContractID,
		},
		"ledgerWrites": s.ledgerWrites(),
		"prover":       s.deps.Prover != nil,
	})
}

func (s *Server) ledgerWrites() bool {
	_, disabled := s.deps.Invoker.(stellar.Disabled)
	return !disabled
}

func (s *Server) handleLive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady fails while storage is unreachable. The ledger check is
// reported only: completions degrade to local references without it.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := s.deps.Store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		writeError(w, http.StatusServiceUnavailable, "NOT_READY", "Storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
		"checks": map[string]string{
			"storage": "ok",
			"ledger":  s.ledgerStatus(ctx),
		},
	})
}

func (s *Server) ledgerStatus(ctx context.Context) string {
	if s.deps.Ledger == nil {
		return "skipped"
	}
	h, err := s.deps.Ledger.GetHealth(ctx)
	switch {
	case err != nil:
		s.logger.Warn("ledger rpc health check failed", "error", err)
		return "unavailable"
	case h.Status != "healthy":
		s.logger.Warn("ledger rpc not healthy", "status", h.Status, "latest_ledger", h.LatestLedger)
		return "unavailable"
	}
	return "ok"
}

// Helper functions

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}
