package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/chorecal/internal/chore"
	"github.com/dukerupert/chorecal/internal/config"
	"github.com/dukerupert/chorecal/internal/database"
	"github.com/dukerupert/chorecal/internal/handler"
	"github.com/dukerupert/chorecal/internal/metrics"
	"github.com/dukerupert/chorecal/internal/middleware"
	"github.com/dukerupert/chorecal/internal/recurrence"
	"github.com/dukerupert/chorecal/internal/scheduler"
	"github.com/dukerupert/chorecal/internal/store"
	ws "github.com/dukerupert/chorecal/internal/websocket"
)

type Server struct {
	db          *sql.DB
	hub         *ws.Hub
	metrics     *metrics.Metrics
	choreH      *handler.ChoreHandler
	memberH     *handler.MemberHandler
	completionH *handler.CompletionHandler
	icalH       *handler.ICalHandler
	digest      *scheduler.Digest
	auth        middleware.BasicAuthConfig
	rateLimit   int
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))
	m := metrics.New()

	choreStore := store.NewChoreStore(db)
	memberStore := store.NewMemberStore(db)
	completionStore := store.NewCompletionStore(db)

	expander := recurrence.Expander{MaxOccurrences: cfg.MaxOccurrences}
	materializer := chore.NewMaterializer(completionStore, expander, m, logger.With("component", "materializer"))

	return &Server{
		db:          db,
		hub:         hub,
		metrics:     m,
		choreH:      handler.NewChoreHandler(choreStore, memberStore, materializer, hub, cfg.MaxQueryDays, logger.With("component", "chore")),
		memberH:     handler.NewMemberHandler(memberStore, hub, logger.With("component", "member")),
		completionH: handler.NewCompletionHandler(completionStore, choreStore, expander, hub, m, logger.With("component", "completion")),
		icalH:       handler.NewICalHandler(choreStore, memberStore, materializer, cfg.MaxQueryDays, logger.With("component", "ical")),
		digest:      scheduler.NewDigest(choreStore, memberStore, materializer, hub, logger.With("component", "digest")),
		auth: middleware.BasicAuthConfig{
			Username:     cfg.AuthUsername,
			PasswordHash: cfg.AuthPasswordHash,
			Skip:         []string{"/api/health"},
		},
		rateLimit:   cfg.RateLimit,
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
}

// Hub returns the websocket hub.
func (s *Server) Hub() *ws.Hub {
	return s.hub
}

// Digest returns the daily digest job.
func (s *Server) Digest() *scheduler.Digest {
	return s.digest
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()
	outerMux.HandleFunc("GET /api/health", s.healthHandler)
	outerMux.Handle("GET /metrics", s.metrics.Handler())
	outerMux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub))

	apiMux := http.NewServeMux()
	s.registerAPIRoutes(apiMux)
	outerMux.Handle("/api/", s.rateLimited(apiMux))

	authed := middleware.BasicAuth(s.auth, s.rateLimiter)(outerMux)
	return middleware.RequestLogger(s.logger.With("component", "http"), s.metrics)(authed)
}

func (s *Server) registerAPIRoutes(mux *http.ServeMux) {
	// Chores
	mux.HandleFunc("GET /api/chores", s.choreH.Events)
	mux.HandleFunc("POST /api/chores", s.choreH.Create)
	mux.HandleFunc("GET /api/chores/{id}", s.choreH.Get)
	mux.HandleFunc("PUT /api/chores/{id}", s.choreH.Update)
	mux.HandleFunc("DELETE /api/chores/{id}", s.choreH.Delete)

	// Members
	mux.HandleFunc("GET /api/members", s.memberH.List)
	mux.HandleFunc("POST /api/members", s.memberH.Create)
	mux.HandleFunc("DELETE /api/members/{id}", s.memberH.Delete)

	// Completions
	mux.HandleFunc("POST /api/completions", s.completionH.Create)
	mux.HandleFunc("DELETE /api/completions", s.completionH.Delete)
	mux.HandleFunc("GET /api/completions/history", s.completionH.History)

	mux.HandleFunc("GET /api/calendar.ics", s.icalH.Feed)
}

// rateLimited applies the per-IP request budget. A zero budget disables it.
func (s *Server) rateLimited(h http.Handler) http.Handler {
	if s.rateLimit <= 0 {
		return h
	}
	keyFunc := func(r *http.Request) string {
		return "api:" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, s.rateLimit, time.Minute)(h)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	code := http.StatusOK
	v, err := database.SchemaVersion(r.Context(), s.db)
	if err != nil {
		s.logger.Error("health check", "error", err)
		resp["status"] = "unavailable"
		code = http.StatusServiceUnavailable
	} else {
		resp["schemaVersion"] = v
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(resp)
}
