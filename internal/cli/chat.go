package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chancore/chancore/internal/api"
	"github.com/chancore/chancore/internal/cache"
	"github.com/chancore/chancore/internal/config"
	"github.com/chancore/chancore/internal/conn"
	"github.com/chancore/chancore/internal/events"
	"github.com/chancore/chancore/internal/identity"
	"github.com/chancore/chancore/internal/models"
	"github.com/chancore/chancore/internal/store"
	"github.com/chancore/chancore/internal/tui"
	"github.com/chancore/chancore/internal/unread"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Open the interactive chat shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd)
		},
	}
}

// runChat wires the full client stack and hands it to the shell.
func runChat(cmd *cobra.Command) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.Open(cfg.Database.Path, cfg.Database.BusyTimeoutMs)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	defer func() { _ = st.Close() }()

	clientID, err := identity.NewStoreProvider(st).GetOrCreate(cmd.Context())
	if err != nil {
		return fmt.Errorf("resolve client identity: %w", err)
	}

	pub := events.NewInMemoryPublisher()
	defer pub.Close()

	client := api.NewClient(cfg.Server.BaseURL, clientID, cfg.Server.RequestTimeout)
	reconciler := cache.NewReconciler(client, client, pub, clientID, cfg.Cache.PageSize)

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	if err := reconciler.Start(ctx); err != nil {
		return fmt.Errorf("start reconciler: %w", err)
	}
	defer reconciler.Stop()

	manager := conn.NewManager(conn.Options{
		WebSocketURL: cfg.ResolveWebSocketURL(),
		ClientID:     clientID,
		Schedule:     models.RetrySchedule(cfg.Connection.RetrySchedule),
		DialTimeout:  cfg.Connection.DialTimeout,
		WriteTimeout: cfg.Connection.WriteTimeout,
		Publisher:    pub,
	})
	defer manager.Close()

	tracker := unread.NewTracker(client, pub, cfg.Unread.PollInterval)
	if err := tracker.Start(ctx); err != nil {
		return fmt.Errorf("start unread tracker: %w", err)
	}
	defer func() { _ = tracker.Stop() }()

	return tui.Run(tui.Core{
		API:       client,
		Cache:     reconciler,
		Conn:      manager,
		Unread:    tracker,
		Publisher: pub,
		Store:     st,
		Contexts:  config.DefaultContextStore(),
		ClientID:  clientID,
	}, tui.Options{
		ShowTimestamps: cfg.TUI.ShowTimestamps,
	})
}
