package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/offerpay-backend/api/responses"
	"github.com/angelmondragon/offerpay-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/offerpay-backend/pkg/errors"
	"github.com/angelmondragon/offerpay-backend/pkg/logger"
)

const (
	envHeader    = "X-OfferPay-Env"
	readyTimeout = 2 * time.Second
)

// Pinger is satisfied by the db and redis clients.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady reports ready only when every named dependency answers a ping.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		checks := make(map[string]string, len(deps))
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			if err := dep.Ping(ctx); err != nil {
				checks[name] = "down"
				continue
			}
			checks[name] = "up"
		}
		for name, state := range checks {
			if state != "up" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "dependency not ready").
					WithDetails(map[string]any{"checks": checks, "first_down": name}))
				return
			}
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
