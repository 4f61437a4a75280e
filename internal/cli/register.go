package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"signup/internal/bootstrap"
	"signup/internal/platform/config"
	"signup/internal/platform/logger"
	"signup/internal/registration"
	"signup/internal/registration/models"
)

// AppFactory builds the Submitter behind the terminal form. The returned
// func releases its backends.
type AppFactory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (registration.Submitter, func() error, error)

func buildApp(ctx context.Context, cfg config.Config, logger *slog.Logger) (registration.Submitter, func() error, error) {
	app, err := bootstrap.Build(ctx, cfg, logger, nil)
	if err != nil {
		return nil, nil, err
	}
	return app.Service, app.Close, nil
}

var fieldPrompts = map[models.Field]string{
	models.FieldName:            "Full name",
	models.FieldEmail:           "Email",
	models.FieldPassword:        "Password",
	models.FieldConfirmPassword: "Confirm password",
}

func newRegisterCmd(env *environment) *cobra.Command {
	var logLevel string
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account from the terminal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			log := logger.NewWithWriter(cmd.ErrOrStderr(), logLevel, "text")

			submitter, closeApp, err := env.newApp(ctx, cfg, log)
			if err != nil {
				return err
			}
			defer func() {
				if err := closeApp(); err != nil {
					log.Warn("closing backends", "error", err.Error())
				}
			}()

			form := registration.NewForm(submitter, registration.WithLoginTarget(cfg.App.LoginURL))
			return runForm(ctx, cmd.OutOrStdout(), env.driver, form)
		},
	}
	cmd.Flags().StringVar(&logLevel, "log-level", "warn", "log level for backend diagnostics (debug, info, warn, error)")
	return cmd
}

// runForm prompts for every field, submits, and offers a retry until the
// registration succeeds or the user gives up.
func runForm(ctx context.Context, out io.Writer, driver PromptDriver, form *registration.Form) error {
	fmt.Fprintln(out, renderTitle())
	for {
		if err := promptFields(ctx, out, driver, form); err != nil {
			return err
		}

		fmt.Fprintln(out, renderButton(submittingView(form)))
		if _, err := form.Submit(ctx); err != nil {
			return err
		}

		v := form.View()
		fmt.Fprint(out, renderView(v, form.LoginTarget()))
		if v.Phase == models.PhaseSucceeded {
			return nil
		}

		again, err := driver.Confirm(ctx, ConfirmConfig{Message: "Try again?", Default: true})
		if err != nil {
			return err
		}
		if !again {
			return ErrAborted
		}
	}
}

// submittingView previews the disabled button shown while the remote calls
// run.
func submittingView(form *registration.Form) registration.View {
	v := form.View()
	v.SubmitDisabled = true
	v.SubmitLabel = registration.SubmittingLabel
	return v
}

func promptFields(ctx context.Context, out io.Writer, driver PromptDriver, form *registration.Form) error {
	for _, f := range models.Fields {
		current := form.View().Input.Value(f)
		cfg := InputConfig{Message: fieldPrompts[f]}

		var (
			value string
			err   error
		)
		if f == models.FieldPassword || f == models.FieldConfirmPassword {
			if current != "" {
				cfg.Help = "leave empty to keep the previous value"
			}
			value, err = driver.Password(ctx, cfg)
			if err == nil && value == "" {
				value = current
			}
		} else {
			cfg.Default = current
			value, err = driver.Input(ctx, cfg)
		}
		if err != nil {
			return err
		}

		form.Change(f, value)
		form.Blur(f)
		if line := renderInline(form.View().FieldErrors[f]); line != "" {
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
