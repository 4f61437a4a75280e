package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"signup/internal/bootstrap"
	"signup/internal/platform/config"
	"signup/internal/platform/httpserver"
	"signup/internal/platform/logger"
	"signup/internal/platform/metrics"
	"signup/internal/registration/handler"
)

const shutdownGrace = 10 * time.Second

// main wires dependencies, exposes the HTTP router and keeps the server
// lifecycle small. Business logic lives in internal packages.
func main() {
	if err := run(); err != nil {
		slog.Error("signup server stopped", "error", err.Error())
		os.Exit(1)
	}
}

func run() error {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	httpMetrics := metrics.New(reg)

	app, err := bootstrap.Build(ctx, cfg, log, reg)
	if err != nil {
		return err
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warn("closing backends", "error", err.Error())
		}
	}()

	router := newRouter(app, cfg, log, httpMetrics)
	srv := httpserver.New(cfg.Server.Addr, router, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.InfoContext(gctx, "starting signup server", "addr", cfg.Server.Addr)
		return httpserver.Serve(gctx, srv, shutdownGrace)
	})
	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("signup server stopped")
	return nil
}

// newRouter mounts /metrics and the registration routes.
func newRouter(app *bootstrap.App, cfg config.Config, log *slog.Logger, httpMetrics *metrics.Metrics) chi.Router {
	opts := make([]handler.Option, 0, len(app.Health))
	for name, check := range app.Health {
		opts = append(opts, handler.WithHealthCheck(name, check))
	}
	h := handler.New(app.Service, log, httpMetrics, cfg.App.LoginURL, opts...)

	router := chi.NewRouter()
	router.Handle("/metrics", httpMetrics.Handler())
	h.Register(router)
	return router
}
