package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/personacast-backend/api/controllers"
	"github.com/angelmondragon/personacast-backend/api/routes"
	"github.com/angelmondragon/personacast-backend/internal/app"
	"github.com/angelmondragon/personacast-backend/pkg/config"
	"github.com/angelmondragon/personacast-backend/pkg/logger"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})

	components, err := app.Build(context.Background(), cfg, logg, prometheus.DefaultRegisterer)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap api", err)
		os.Exit(1)
	}
	defer func() {
		if err := components.Close(); err != nil {
			logg.Error(context.Background(), "error closing resources", err)
		}
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        addr,
		"serviceKind": cfg.Service.Kind,
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(routerDeps(cfg, logg, components)),
		ReadHeaderTimeout: 10 * time.Second,
	}

	components.Limiter.StartSweeper(ctx)
	defer components.Limiter.Stop()

	if cfg.Scheduler.Enabled {
		// Stop ends the loop; a signal must not cut a sweep off mid-item.
		components.Scheduler.Start(context.WithoutCancel(ctx))
		defer components.Scheduler.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
		defer cancel()
		logg.Info(ctx, "api server shutting down")
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "api server stopped")
}

func routerDeps(cfg *config.Config, logg *logger.Logger, c *app.Components) routes.Deps {
	deps := routes.Deps{
		Config:     cfg,
		Logger:     logg,
		Gatherer:   prometheus.DefaultGatherer,
		Limiter:    c.Limiter,
		Generation: c.Generation,
		Content:    c.Content,
		Avatars:    c.Avatars,
		Personas:   c.Personas,
		Readiness:  map[string]controllers.Pinger{"db": c.DB},
	}
	// nil clients must stay untyped nil inside the interfaces
	if c.Redis != nil {
		deps.Idempotency = c.Redis
		deps.Readiness["redis"] = c.Redis
	}
	if c.GCS != nil {
		deps.Readiness["gcs"] = c.GCS
	}
	if c.PubSub != nil {
		deps.Readiness["pubsub"] = c.PubSub
	}
	if c.BigQuery != nil {
		deps.Readiness["bigquery"] = c.BigQuery
	}
	return deps
}
