package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// NewInitCommand создаёт команду полной загрузки архива.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Download all draws into the CSV archive",
		Long: `Fetch every draw year by year and rewrite the archive from scratch.
Nothing is written if any request fails.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), cfg, opts.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.FullBackfill(cmd.Context(), cfg.StartYear, cfg.EndYear)
			if err != nil {
				return fmt.Errorf("init archive: %w", err)
			}

			opts.Logger.Info("archive initialised", zap.String("output", cfg.Output), zap.Int("rows", n))
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d rows to %s.\n", n, cfg.Output)
			return nil
		},
	}

	cmd.Flags().IntVar(&cfg.StartYear, "start-year", cfg.StartYear, "first year to download")
	cmd.Flags().IntVar(&cfg.EndYear, "end-year", cfg.EndYear, "last year to download")

	return cmd
}
