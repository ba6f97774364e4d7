package handler

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"moviefilter-bot/internal/logger"
	"moviefilter-bot/internal/metrics"
	"moviefilter-bot/internal/version"
)

const (
	maxUpdateBytes = 1 << 20
	secretHeader   = "X-Telegram-Bot-Api-Secret-Token"

	defaultUpdateTimeout = 30 * time.Second
)

type UpdateHandler interface {
	HandleUpdate(ctx context.Context, upd tgbotapi.Update)
}

type Pinger interface {
	Ping(ctx context.Context) error
}

type Deps struct {
	Updates     UpdateHandler
	Store       Pinger // nil reports ready unconditionally
	Logger      logger.Logger
	WebhookPath string
	// WebhookSecret must match the secret token header Telegram sends.
	// The webhook route is not mounted without one.
	WebhookSecret string
	UpdateTimeout time.Duration
	StartTime     time.Time
}

// NewRouter serves the Telegram webhook next to the health and metrics endpoints.
func NewRouter(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = logger.NewNop()
	}
	if d.WebhookPath == "" {
		d.WebhookPath = "/api/webhook"
	}
	if d.StartTime.IsZero() {
		d.StartTime = time.Now()
	}
	if d.UpdateTimeout <= 0 {
		d.UpdateTimeout = defaultUpdateTimeout
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(metrics.Middleware)
	r.Use(accessLog(d.Logger))

	r.Get("/", IndexHandler)
	r.Get("/healthz", healthz(d.StartTime))
	r.Get("/readyz", readyz(d.Store, d.Logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	if d.Updates != nil && d.WebhookSecret != "" {
		r.Post(d.WebhookPath, webhook(d.Updates, d.WebhookSecret, d.UpdateTimeout, d.Logger))
	}
	return r
}

func IndexHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, "moviefilter-bot "+version.Version+"\n")
}

// webhook handles the update before answering. Telegram redelivers on any
// non-2xx status, so only foreign or undecodable requests are rejected.
func webhook(h UpdateHandler, secret string, timeout time.Duration, log logger.Logger) http.HandlerFunc {
	want := []byte(secret)
	return func(w http.ResponseWriter, r *http.Request) {
		if subtle.ConstantTimeCompare([]byte(r.Header.Get(secretHeader)), want) != 1 {
			log.Warn("webhook secret mismatch",
				logger.String("request_id", middleware.GetReqID(r.Context())),
				logger.String("remote_ip", r.RemoteAddr),
			)
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(io.LimitReader(r.Body, maxUpdateBytes))
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		var upd tgbotapi.Update
		if err := json.Unmarshal(body, &upd); err != nil {
			log.Warn("decode update", logger.String("request_id", middleware.GetReqID(r.Context())), logger.Error(err))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		// The update outlives a dropped connection but not the timeout.
		ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), timeout)
		defer cancel()
		h.HandleUpdate(ctx, upd)
		w.WriteHeader(http.StatusOK)
	}
}

type healthzResponse struct {
	Status        string  `json:"status"`
	UptimeSeconds float64 `json:"uptime_seconds"`
	Version       string  `json:"version"`
	Commit        string  `json:"commit"`
	GoVersion     string  `json:"go_version"`
}

func healthz(start time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, healthzResponse{
			Status:        "ok",
			UptimeSeconds: time.Since(start).Seconds(),
			Version:       version.Version,
			Commit:        version.Commit,
			GoVersion:     version.GoVersion,
		})
	}
}

type readyzResponse struct {
	Ready bool   `json:"ready"`
	Error string `json:"error,omitempty"`
}

func readyz(store Pinger, log logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if store == nil {
			writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := store.Ping(ctx); err != nil {
			log.Warn("readiness check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, readyzResponse{Ready: false, Error: "store unavailable"})
			return
		}
		writeJSON(w, http.StatusOK, readyzResponse{Ready: true})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
