package bootstrap

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"signup/internal/platform/config"
	"signup/internal/registration/models"
	audit "signup/pkg/platform/audit"
)

func memoryConfig() config.Config {
	return config.Config{
		Profile:  config.Profile{Store: config.ProfileStoreMemory, Table: "profiles"},
		App:      config.App{Origin: "http://localhost:3000", LoginURL: "/login"},
		GuardTTL: time.Second,
	}
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestBuild_MemoryBackends(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, memoryConfig(), discard(), prometheus.NewRegistry())
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	account, err := app.Service.Submit(ctx, models.RegistrationInput{
		Name:            "Ana",
		Email:           "ana@example.com",
		Password:        "secret1",
		ConfirmPassword: "secret1",
	})
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", account.Email)
	assert.False(t, account.UserID.IsNil())
	assert.Empty(t, app.Health)

	assert.Equal(t, float64(1), promtest.ToFloat64(app.Metrics.SubmissionsTotal.WithLabelValues("success")))

	require.Eventually(t, func() bool {
		events, err := app.Audit.List(ctx, account.UserID)
		return err == nil && len(events) == 1 && events[0].Action == string(audit.EventRegistrationSucceeded)
	}, time.Second, 10*time.Millisecond)
}

func TestBuild_DuplicateEmailAgainstMemoryIdentity(t *testing.T) {
	ctx := context.Background()
	app, err := Build(ctx, memoryConfig(), discard(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = app.Close() })

	in := models.RegistrationInput{Name: "Ana", Email: "ana@example.com", Password: "secret1", ConfirmPassword: "secret1"}
	_, err = app.Service.Submit(ctx, in)
	require.NoError(t, err)

	_, err = app.Service.Submit(ctx, in)
	var authErr *models.AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, models.AuthDuplicate, authErr.Kind)
	assert.Nil(t, app.Metrics)
}

func TestBuild_BadRedisURLFails(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.URL = "not a url"

	var (
		app *App
		err error
	)
	require.NotPanics(t, func() {
		app, err = Build(context.Background(), cfg, discard(), nil)
	})

	assert.Nil(t, app)
	assert.ErrorContains(t, err, "submission guard")
}

func TestBuild_UnreachablePostgresReturnsError(t *testing.T) {
	cfg := memoryConfig()
	cfg.Profile.Store = config.ProfileStorePostgres
	cfg.Profile.DatabaseURL = "postgres://u:p@127.0.0.1:1/db?sslmode=disable&connect_timeout=1"

	var (
		app *App
		err error
	)
	require.NotPanics(t, func() {
		app, err = Build(context.Background(), cfg, nil, nil)
	})

	assert.Nil(t, app)
	assert.ErrorContains(t, err, "ping profile database")
}

func TestStart_FailureClosesEarlierBackends(t *testing.T) {
	cfg := memoryConfig()
	cfg.Redis.URL = "not a url"

	closed := false
	app := &App{Health: map[string]func(context.Context) error{}}
	app.onClose(func() error {
		closed = true
		return nil
	})

	err := start(context.Background(), app, cfg, discard(), nil)

	assert.ErrorContains(t, err, "submission guard")
	assert.True(t, closed)
	assert.Empty(t, app.closers)
}

func TestApp_CloseRunsInReverseOrder(t *testing.T) {
	var order []string
	app := &App{}
	app.onClose(func() error { order = append(order, "first"); return nil })
	app.onClose(func() error { order = append(order, "second"); return nil })

	require.NoError(t, app.Close())
	require.NoError(t, app.Close())

	assert.Equal(t, []string{"second", "first"}, order)
}
