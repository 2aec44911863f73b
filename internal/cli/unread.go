package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newUnreadCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unread",
		Short: "Show unread counts for every channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, cleanup, err := restClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			channels, err := client.ListChannels(cmd.Context())
			if err != nil {
				return fmt.Errorf("list channels: %w", err)
			}

			rows := make([][]string, 0, len(channels))
			for _, ch := range channels {
				count, err := client.FetchUnreadCount(cmd.Context(), ch.ID)
				unreadCell := strconv.Itoa(count)
				if err != nil {
					unreadCell = "-"
				}
				rows = append(rows, []string{ch.Name, unreadCell})
			}
			return writeTable(cmd.OutOrStdout(), []string{"CHANNEL", "UNREAD"}, rows)
		},
	}
}
