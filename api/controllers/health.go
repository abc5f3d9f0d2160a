package controllers

import (
	"context"
	"net/http"
	"time"

	"github.com/gigflowhq/gigflow-backend/api/responses"
	"github.com/gigflowhq/gigflow-backend/pkg/config"
	pkgerrors "github.com/gigflowhq/gigflow-backend/pkg/errors"
	"github.com/gigflowhq/gigflow-backend/pkg/logger"
)

// Pinger is the health probe surface the readiness check accepts.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gigflow-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady checks the round trips the API depends on. Each probe gets
// a short deadline so a hung dependency cannot hang the check.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Gigflow-Env", cfg.App.Env)

		statuses := map[string]string{}
		for name, dep := range deps {
			if dep == nil {
				continue
			}
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			err := dep.Ping(ctx)
			cancel()
			if err != nil {
				statuses[name] = "down"
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.Wrap(pkgerrors.CodeDependency, err, name+" unavailable").WithDetails(statuses))
				return
			}
			statuses[name] = "up"
		}
		statuses["status"] = "ready"
		responses.WriteSuccess(w, statuses)
	}
}
