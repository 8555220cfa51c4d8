// Package cli содержит команды marksix: init, update и serve.
package cli

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/mmeshcher/marksix/internal/config"
)

// RootOptions содержит общие для всех команд параметры.
type RootOptions struct {
	Config *config.Config
	Logger *zap.Logger
}

// NewRootCommand создаёт корневую команду marksix.
func NewRootCommand(logger *zap.Logger) *cobra.Command {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := &RootOptions{
		Config: config.Default(),
		Logger: logger,
	}
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "marksix",
		Short: "Mark Six draw archive sync",
		Long: `Keeps a local CSV archive of Mark Six draw results in sync with the HKJC API
and serves it as JSON.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return cfg.ApplyEnv()
		},
	}

	cmd.PersistentFlags().StringVarP(&cfg.Output, "output", "o", cfg.Output, "path to the CSV archive")
	cmd.PersistentFlags().StringVar(&cfg.APIURL, "api-url", cfg.APIURL, "HKJC GraphQL endpoint")
	cmd.PersistentFlags().DurationVar(&cfg.Timeout, "timeout", cfg.Timeout, "timeout of a single API request")
	cmd.PersistentFlags().IntVar(&cfg.Retries, "retries", cfg.Retries, "retries of a failed API request")
	cmd.PersistentFlags().StringVar(&cfg.DatabaseURI, "database-uri", cfg.DatabaseURI, "optional PostgreSQL mirror of the archive")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewUpdateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}
