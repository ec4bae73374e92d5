// Package cli is the terminal client of the school records.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/trezcool/alama/apps/shared"
	"github.com/trezcool/alama/core"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Email  string
	Format string // "text" | "json"
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// Env is what the commands run against.
type Env struct {
	Conf   *core.Config
	Logger core.Logger
	// Open sets up the services. Deps are closed when the command is done.
	Open func(ctx context.Context) (*shared.Deps, error)
	// ReadPassword prompts for a password without echoing it.
	ReadPassword func(prompt string) (string, error)
}

// NewRootCommand creates the root command of the client.
func NewRootCommand(env *Env) *cobra.Command {
	opts := &RootOptions{}

	v := viper.New()
	v.SetEnvPrefix("alama")
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "alama",
		Short: "Alama - academic records",
		Long:  "Look up and manage marks, subjects and reports of the school.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.Email == "" {
				opts.Email = v.GetString("email")
			}
			opts.Email = core.CleanString(opts.Email, true /* lower */)
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&opts.Email, "email", "e", "", "account email (default $ALAMA_EMAIL)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")

	cmd.AddCommand(newSignupCommand(env, opts))
	cmd.AddCommand(newWhoamiCommand(env, opts))
	cmd.AddCommand(newMarksCommand(env, opts))
	cmd.AddCommand(newStudentsCommand(env, opts))
	cmd.AddCommand(newEnterMarkCommand(env, opts))
	cmd.AddCommand(newSubjectsCommand(env, opts))
	cmd.AddCommand(newReportCommand(env, opts))
	cmd.AddCommand(newStatsCommand(env, opts))

	return cmd
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
