package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chancore/chancore/internal/api"
	"github.com/chancore/chancore/internal/identity"
	"github.com/chancore/chancore/internal/store"
)

func newChannelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List channels on the server",
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
				rows = append(rows, []string{ch.ID, ch.Name, string(ch.Type)})
			}
			return writeTable(cmd.OutOrStdout(), []string{"ID", "NAME", "TYPE"}, rows)
		},
	}
}

// restClient builds an API client backed by the persistent client identity.
// The returned cleanup closes the session store.
func restClient(cmd *cobra.Command) (*api.Client, string, func(), error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, "", nil, err
	}

	st, err := store.Open(cfg.Database.Path, cfg.Database.BusyTimeoutMs)
	if err != nil {
		return nil, "", nil, fmt.Errorf("open session store: %w", err)
	}

	clientID, err := identity.NewStoreProvider(st).GetOrCreate(cmd.Context())
	if err != nil {
		_ = st.Close()
		return nil, "", nil, fmt.Errorf("resolve client identity: %w", err)
	}

	client := api.NewClient(cfg.Server.BaseURL, clientID, cfg.Server.RequestTimeout)
	return client, clientID, func() { _ = st.Close() }, nil
}
