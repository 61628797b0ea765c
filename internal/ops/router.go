// Package ops exposes the worker's health and status HTTP surface.
package ops

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/climafeed/climafeed/internal/provider/resilience"
	"github.com/climafeed/climafeed/internal/scheduler"
)

// StatusSource reports the most recent pipeline run.
type StatusSource interface {
	LastRun() (scheduler.RunStatus, bool)
}

// RouterConfig holds dependencies for the ops router.
type RouterConfig struct {
	// Version is the build version reported by /health.
	Version string

	// Status reports the last pipeline run (optional).
	Status StatusSource

	// Registry reports external provider circuit health (optional).
	Registry *resilience.Registry

	// Logger for request failures.
	Logger zerolog.Logger
}

// NewRouter builds the ops HTTP handler.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, cfg.Logger, http.StatusOK, map[string]string{
			"status":  "healthy",
			"version": cfg.Version,
		})
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		body := statusResponse{Version: cfg.Version}

		if cfg.Status != nil {
			if last, ok := cfg.Status.LastRun(); ok {
				body.LastRun = &last
			}
		}
		if cfg.Registry != nil {
			body.Providers = cfg.Registry.Health()
		}

		writeJSON(w, cfg.Logger, http.StatusOK, body)
	})

	return r
}

type statusResponse struct {
	Version   string                      `json:"version"`
	LastRun   *scheduler.RunStatus        `json:"last_run,omitempty"`
	Providers []resilience.ProviderHealth `json:"providers,omitempty"`
}

func writeJSON(w http.ResponseWriter, logger zerolog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error().Err(err).Msg("failed to encode ops response")
	}
}
