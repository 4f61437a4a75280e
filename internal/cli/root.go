package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
)

type environment struct {
	driver PromptDriver
	newApp AppFactory
}

func newRootCmd(env *environment) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "signup",
		Short:         "Register an account against the configured identity service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newRegisterCmd(env))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show signup version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintf(cmd.OutOrStdout(), "signup %s (%s)\n", version, commit)
			return nil
		},
	}
}

// NewRootCmdForTest returns the root command with a scripted terminal and a
// custom backend factory.
func NewRootCmdForTest(driver PromptDriver, newApp AppFactory) *cobra.Command {
	return newRootCmd(&environment{driver: driver, newApp: newApp})
}

func Execute() error {
	return newRootCmd(&environment{driver: NewSurveyDriver(), newApp: buildApp}).Execute()
}
