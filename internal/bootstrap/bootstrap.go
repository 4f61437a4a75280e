// Package bootstrap turns a Config into a wired registration Service. Both
// binaries use it so the HTTP server and the terminal form share one setup.
package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/twmb/franz-go/pkg/kgo"
	"go.opentelemetry.io/otel"

	"signup/internal/guard"
	"signup/internal/identity"
	"signup/internal/platform/config"
	"signup/internal/platform/redis"
	"signup/internal/profile"
	regmetrics "signup/internal/registration/metrics"
	"signup/internal/registration/service"
	audit "signup/pkg/platform/audit"
	"signup/pkg/platform/audit/publisher"
	kafkastore "signup/pkg/platform/audit/store/kafka"
	"signup/pkg/platform/audit/store/memory"
)

const (
	auditBuffer          = 256
	auditTopicPartitions = 3
	auditTopicReplicas   = 1
	tracerName           = "signup/registration"
)

// App is the wired registration stack plus what the binaries need to
// report health and shut down.
type App struct {
	Service *service.Service
	Metrics *regmetrics.Metrics
	Audit   *publisher.Publisher
	// Health maps dependency names to checks for GET /healthz.
	Health map[string]func(ctx context.Context) error

	closers []func() error
}

// Close releases every backend opened by Build, last opened first.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

func (a *App) onClose(fn func() error) {
	a.closers = append(a.closers, fn)
}

// Build connects the backends selected by cfg. On error everything opened
// so far is closed.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}
	app := &App{Health: map[string]func(context.Context) error{}}
	if err := start(ctx, app, cfg, logger, reg); err != nil {
		return nil, err
	}
	return app, nil
}

// start wires app and, when wiring fails, closes whatever was already
// opened.
func start(ctx context.Context, app *App, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) error {
	err := app.wire(ctx, cfg, logger, reg)
	if err == nil {
		return nil
	}
	if closeErr := app.Close(); closeErr != nil {
		logger.WarnContext(ctx, "closing backends after failed startup", "error", closeErr.Error())
	}
	return err
}

func (app *App) wire(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) error {
	if reg != nil {
		app.Metrics = regmetrics.New(reg)
	}

	identitySvc, remover := buildIdentity(cfg, logger)

	profiles, err := buildProfileStore(ctx, cfg, app)
	if err != nil {
		return err
	}

	submissionGuard, err := buildGuard(ctx, cfg, logger, app)
	if err != nil {
		return err
	}

	auditStore, err := buildAuditStore(ctx, cfg, logger, app)
	if err != nil {
		return err
	}
	app.Audit = publisher.NewPublisher(auditStore,
		publisher.WithAsyncBuffer(auditBuffer),
		publisher.WithLogger(logger),
	)
	app.onClose(func() error {
		app.Audit.Close()
		return nil
	})

	opts := []service.Option{
		service.WithLogger(logger),
		service.WithAuditPublisher(app.Audit),
		service.WithTracer(otel.Tracer(tracerName)),
		service.WithGuard(submissionGuard),
		service.WithProfileTable(cfg.Profile.Table),
	}
	if app.Metrics != nil {
		opts = append(opts, service.WithMetrics(app.Metrics))
	}
	if cfg.SubmitTimeout > 0 {
		opts = append(opts, service.WithTimeout(cfg.SubmitTimeout))
	}
	if cfg.CompensateOrphans {
		if remover == nil {
			logger.WarnContext(ctx, "orphan compensation requested without an admin-capable identity client")
		} else {
			opts = append(opts, service.WithCompensation(remover))
		}
	}

	app.Service = service.New(identitySvc, profiles, cfg.RedirectTarget(), opts...)
	logger.InfoContext(ctx, "registration service ready",
		"identity", identityBackend(cfg),
		"profile_store", cfg.Profile.Store,
		"profile_table", cfg.Profile.Table,
		"guard", guardBackend(cfg),
		"audit", auditBackend(cfg),
		"compensate_orphans", cfg.CompensateOrphans,
	)
	return nil
}

func buildIdentity(cfg config.Config, logger *slog.Logger) (service.IdentityService, service.AccountRemover) {
	if cfg.UsesMemoryIdentity() {
		mem := identity.NewMemoryService()
		return mem, mem
	}
	opts := []identity.Option{
		identity.WithLogger(logger),
		identity.WithTimeout(cfg.Identity.Timeout),
	}
	if cfg.Identity.ServiceKey == "" {
		return identity.NewClient(cfg.Identity.URL, cfg.Identity.APIKey, opts...), nil
	}
	opts = append(opts, identity.WithServiceKey(cfg.Identity.ServiceKey))
	client := identity.NewClient(cfg.Identity.URL, cfg.Identity.APIKey, opts...)
	return client, client
}

func buildProfileStore(ctx context.Context, cfg config.Config, app *App) (service.ProfileStore, error) {
	switch cfg.Profile.Store {
	case config.ProfileStorePostgres:
		db, err := sql.Open("postgres", cfg.Profile.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open profile database: %w", err)
		}
		app.onClose(db.Close)
		if err := db.PingContext(ctx); err != nil {
			return nil, fmt.Errorf("ping profile database: %w", err)
		}
		app.Health["postgres"] = db.PingContext
		return profile.NewPostgresStore(db), nil
	case config.ProfileStoreREST:
		key := cfg.Identity.APIKey
		return profile.NewRESTStore(cfg.Profile.URL, key, profile.WithTimeout(cfg.Identity.Timeout)), nil
	default:
		return profile.NewInMemoryStore(), nil
	}
}

func buildGuard(ctx context.Context, cfg config.Config, logger *slog.Logger, app *App) (service.SubmissionGuard, error) {
	client, err := redis.New(ctx, cfg.Redis)
	if err != nil {
		return nil, fmt.Errorf("connect submission guard: %w", err)
	}
	if client == nil {
		return guard.NewMemoryGuard(cfg.GuardTTL), nil
	}
	app.onClose(client.Close)
	app.Health["redis"] = client.Health
	logger.InfoContext(ctx, "submission guard uses redis")
	return guard.NewRedisGuard(client.Client, cfg.GuardTTL), nil
}

func buildAuditStore(ctx context.Context, cfg config.Config, logger *slog.Logger, app *App) (audit.Store, error) {
	if len(cfg.Audit.KafkaBrokers) == 0 {
		return memory.NewInMemoryStore(), nil
	}
	client, err := kafkastore.NewClient(cfg.Audit.KafkaBrokers, cfg.Audit.KafkaTopic)
	if err != nil {
		return nil, fmt.Errorf("create audit kafka client: %w", err)
	}
	app.onClose(func() error {
		client.Close()
		return nil
	})
	if err := kafkastore.EnsureTopic(ctx, client, cfg.Audit.KafkaTopic, auditTopicPartitions, auditTopicReplicas); err != nil {
		// Producing still works if the topic already exists.
		logger.WarnContext(ctx, "could not ensure audit topic",
			"topic", cfg.Audit.KafkaTopic,
			"error", err.Error(),
		)
	}
	app.Health["kafka"] = func(ctx context.Context) error { return pingKafka(ctx, client) }
	return kafkastore.New(client, cfg.Audit.KafkaTopic), nil
}

func pingKafka(ctx context.Context, client *kgo.Client) error {
	return client.Ping(ctx)
}

func identityBackend(cfg config.Config) string {
	if cfg.UsesMemoryIdentity() {
		return "memory"
	}
	return "remote"
}

func guardBackend(cfg config.Config) string {
	if cfg.Redis.URL != "" {
		return "redis"
	}
	return "memory"
}

func auditBackend(cfg config.Config) string {
	if len(cfg.Audit.KafkaBrokers) > 0 {
		return "kafka"
	}
	return "memory"
}
