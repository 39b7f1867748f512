package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/angelmondragon/fashionplace-backend/api/responses"
	"github.com/angelmondragon/fashionplace-backend/pkg/config"
	"github.com/angelmondragon/fashionplace-backend/pkg/db"
	"github.com/angelmondragon/fashionplace-backend/pkg/logger"
)

const readinessTimeout = 2 * time.Second

type pinger interface {
	Ping(ctx context.Context) error
}

// HealthLive reports process liveness without touching dependencies.
func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FashionPlace-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the datastore and cache before reporting ready.
func HealthReady(cfg *config.Config, logg *logger.Logger, database db.Pinger, cache pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-FashionPlace-Env", cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		checks := map[string]string{}
		healthy := true

		if database != nil {
			if err := database.Ping(ctx); err != nil {
				checks["database"] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness database ping failed", err)
				}
			} else {
				checks["database"] = "ok"
			}
		}
		if cache != nil {
			if err := cache.Ping(ctx); err != nil {
				checks["redis"] = "unreachable"
				healthy = false
				if logg != nil {
					logg.Error(ctx, "readiness redis ping failed", err)
				}
			} else {
				checks["redis"] = "ok"
			}
		}

		if !healthy {
			responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, checks)
			return
		}
		responses.WriteSuccess(w, checks)
	}
}
