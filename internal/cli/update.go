package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewUpdateCommand создаёт команду догрузки новых тиражей.
func NewUpdateCommand(opts *RootOptions) *cobra.Command {
	cfg := opts.Config

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Append new draws to the CSV archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, cleanup, err := newService(cmd.Context(), cfg, opts.Logger)
			if err != nil {
				return err
			}
			defer cleanup()

			n, err := svc.IncrementalUpdate(cmd.Context())
			if err != nil {
				return fmt.Errorf("update archive: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Appended %d rows.\n", n)
			return nil
		},
	}

	return cmd
}
