// Package handlers serves the stridelake HTTP API.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"github.com/stridelake/stridelake/agent/pkg/chat"
	"github.com/stridelake/stridelake/api/metrics"
	"github.com/stridelake/stridelake/pkg/store"
	"github.com/stridelake/stridelake/pkg/strava"
)

type Syncer interface {
	UpdateAll(ctx context.Context, opts strava.UpdateOptions) ([]strava.AthleteUpdate, error)
}

type Authenticator interface {
	AuthorizationURL() string
	ExchangeCode(ctx context.Context, code string) (*strava.Token, error)
	GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error)
}

type AthleteStore interface {
	UpsertAthlete(ctx context.Context, a store.Athlete) error
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Config struct {
	Logger *slog.Logger
	Chat   chat.Retriever

	// Sync and Auth are optional; their routes answer 503 when unset.
	Sync     Syncer
	Auth     Authenticator
	Athletes AthleteStore
	DB       Pinger

	AuthResultURL      string
	CORSAllowedOrigins []string
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		return errors.New("logger is required")
	}
	if c.Chat == nil {
		return errors.New("chat retriever is required")
	}
	if c.Auth != nil && c.Athletes == nil {
		return errors.New("athlete store is required when auth is configured")
	}
	return nil
}

type Handlers struct {
	log *slog.Logger
	cfg Config
}

// NewRouter builds the chi router with middleware and every API route mounted.
func NewRouter(cfg Config) (http.Handler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	h := &Handlers{log: cfg.Logger, cfg: cfg}

	r := chi.NewRouter()
	r.Use(requestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(cfg.Logger.Handler(), slog.LevelInfo),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/chat", h.Chat)
		r.Post("/activities/sync", h.SyncActivities)
		r.Get("/auth/strava", h.AuthRedirect)
		r.Get("/auth/strava/callback", h.AuthCallback)
	})
	return r, nil
}

// requestID propagates X-Request-ID, generating a UUID when the client sent none.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(middleware.RequestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(middleware.RequestIDHeader, id)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *Handlers) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error("api: failed to write response", "error", err)
	}
}

func (h *Handlers) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, errorResponse{Error: msg})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte("ok\n")); err != nil {
		h.log.Error("api: failed to write healthz response", "error", err)
	}
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	if h.cfg.DB != nil {
		if err := h.cfg.DB.Ping(r.Context()); err != nil {
			h.log.Debug("api: readyz database ping failed", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("database not ready\n"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}
