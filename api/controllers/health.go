package controllers

import (
	"context"
	"net/http"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/personacast-backend/api/responses"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/personacast-backend/pkg/errors"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

const (
	envHeader    = "X-Personacast-Env"
	readyTimeout = 3 * time.Second
)

// Pinger is any dependency that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

// HealthReady pings every configured dependency concurrently. Nil entries are
// reported as disabled and do not fail readiness.
func HealthReady(cfg *config.Config, logg *logger.Logger, deps map[string]Pinger) http.HandlerFunc {
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(envHeader, cfg.App.Env)

		ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
		defer cancel()

		results := make([]string, len(names))
		g, gctx := errgroup.WithContext(ctx)
		for i, name := range names {
			dep := deps[name]
			if dep == nil {
				results[i] = "disabled"
				continue
			}
			g.Go(func() error {
				if err := dep.Ping(gctx); err != nil {
					results[i] = "down"
					if logg != nil {
						logg.Warn(logg.WithFields(r.Context(), map[string]any{"dependency": name, "error": err.Error()}), "health.ready.dependency_down")
					}
					return nil
				}
				results[i] = "up"
				return nil
			})
		}
		_ = g.Wait()

		checks := make(map[string]string, len(names))
		ready := true
		for i, name := range names {
			checks[name] = results[i]
			if results[i] == "down" {
				ready = false
			}
		}

		if !ready {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeDependency, "dependencies unavailable").WithDetails(map[string]any{"checks": checks}))
			return
		}
		responses.WriteSuccess(w, map[string]any{"status": "ready", "checks": checks})
	}
}
