package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chancore/chancore/internal/config"
)

func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Show the last active channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			active, err := config.DefaultContextStore().Load()
			if err != nil {
				return fmt.Errorf("load context: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), active.String())
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Forget the last active channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := config.DefaultContextStore().Clear(); err != nil {
				return fmt.Errorf("clear context: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "context cleared")
			return nil
		},
	})

	return cmd
}
