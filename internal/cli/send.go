package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chancore/chancore/internal/models"
)

func newSendCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "send <channel-id> <message...>",
		Short: "Send a message without opening the shell",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			content := strings.Join(args[1:], " ")
			if !models.ValidateContent(content) {
				return fmt.Errorf("message content is empty")
			}

			client, _, cleanup, err := restClient(cmd)
			if err != nil {
				return err
			}
			defer cleanup()

			sent, err := client.SendMessage(cmd.Context(), args[0], content, models.MessageTypeChat)
			if err != nil {
				return fmt.Errorf("send message: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "sent %s\n", sent.ID)
			return nil
		},
	}
}
