package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/kbchat/internal/chat"
	"github.com/MikeSquared-Agency/kbchat/internal/store"
)

// Answerer produces a reply for a chat history.
type Answerer interface {
	Answer(ctx context.Context, history []chat.Message) (*chat.Reply, error)
}

// Stats counts served answer requests.
type Stats interface {
	TrackRequest(ctx context.Context) (int64, error)
	RequestCount(ctx context.Context) (int64, error)
}

// Limiter decides whether a client may make another request.
type Limiter interface {
	Allow(ctx context.Context, client string, limit int, window time.Duration) (bool, error)
}

// AnswerLog reads persisted answers.
type AnswerLog interface {
	RecentAnswers(ctx context.Context, limit int) ([]store.AnswerRecord, error)
	GetAnswerByID(ctx context.Context, id uuid.UUID) (*store.AnswerRecord, error)
}

type Server struct {
	router   *chi.Mux
	port     int
	version  string
	answerer Answerer
	logger   *slog.Logger

	stats   Stats
	answers AnswerLog

	limiter    Limiter
	rateLimit  int
	rateWindow time.Duration

	httpServer *http.Server
}

type Option func(*Server)

func WithStats(st Stats) Option {
	return func(s *Server) { s.stats = st }
}

func WithAnswerLog(log AnswerLog) Option {
	return func(s *Server) { s.answers = log }
}

// WithRateLimit caps answer requests per client IP. A limit of zero or less
// disables it.
func WithRateLimit(l Limiter, limit int, window time.Duration) Option {
	return func(s *Server) {
		s.limiter = l
		s.rateLimit = limit
		s.rateWindow = window
	}
}

func NewServer(port int, version string, answerer Answerer, logger *slog.Logger, opts ...Option) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:   router,
		port:     port,
		version:  version,
		answerer: answerer,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	router.Get("/health", s.health)
	router.Get("/version", s.versionInfo)

	router.Route("/api/v1", func(r chi.Router) {
		r.With(s.rateLimitMiddleware).Post("/get_answer/", s.getAnswer)
		r.Get("/stats", s.statsInfo)
		r.Get("/answers", s.recentAnswers)
		r.Get("/answers/{id}", s.answerByID)
	})

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) versionInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"version": s.version})
}

func (s *Server) statsInfo(w http.ResponseWriter, r *http.Request) {
	if s.stats == nil {
		writeError(w, http.StatusServiceUnavailable, "stats not configured")
		return
	}
	n, err := s.stats.RequestCount(r.Context())
	if err != nil {
		s.logger.Error("failed to read request count", "error", err)
		writeError(w, http.StatusInternalServerError, "stats unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"request_count": n})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
