package controllers

import (
	"context"
	"net/http"

	"github.com/toolshop/storefront/api/responses"
	"github.com/toolshop/storefront/pkg/config"
	pkgerrors "github.com/toolshop/storefront/pkg/errors"
	"github.com/toolshop/storefront/pkg/logger"
)

const envHeader = "X-Storefront-Env"

// Pinger is a dependency the readiness check pings.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ReadinessCheck names a dependency for the readiness report.
type ReadinessCheck struct {
	Name   string
	Pinger Pinger
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, logg *logger.Logger, checks ...ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		status := map[string]string{}
		for _, check := range checks {
			if check.Pinger == nil {
				continue
			}
			if err := check.Pinger.Ping(r.Context()); err != nil {
				status[check.Name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, check.Name+" unavailable").
						WithDetails(map[string]any{"dependency": check.Name}))
				return
			}
			status[check.Name] = "up"
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": status})
	}
}
