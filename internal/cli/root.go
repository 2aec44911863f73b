package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chancore/chancore/internal/config"
	"github.com/chancore/chancore/internal/logging"
)

// Execute runs the chancore command tree.
func Execute(version string) error {
	return newRootCmd(version).Execute()
}

func newRootCmd(version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "chancore",
		Short:         "Terminal client for channel-based agent chat",
		Long:          "chancore connects to a channel server and provides a live chat shell\nwith optimistic local echo, @-mention completion, and unread tracking.",
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Default entrypoint: launch the chat shell.
			return runChat(cmd)
		},
	}

	cmd.PersistentFlags().String("config", "", "config file (default is $HOME/.config/chancore/config.yaml)")
	cmd.PersistentFlags().String("base-url", "", "override server base URL")
	cmd.PersistentFlags().String("log-level", "", "override logging level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "override logging format (json, console)")

	cmd.AddCommand(
		newChatCmd(),
		newChannelsCmd(),
		newSendCmd(),
		newUnreadCmd(),
		newContextCmd(),
	)

	return cmd
}

// loadConfig resolves the effective config from file, environment, and flags,
// and initializes logging.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	loader := config.NewLoader()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loader.SetConfigFile(path)
	}
	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if baseURL, _ := cmd.Flags().GetString("base-url"); baseURL != "" {
		cfg.Server.BaseURL = baseURL
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Logging.Level = level
	}
	if format, _ := cmd.Flags().GetString("log-format"); format != "" {
		cfg.Logging.Format = format
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logging.Init(logging.Config{
		Level:        cfg.Logging.Level,
		Format:       cfg.Logging.Format,
		EnableCaller: cfg.Logging.EnableCaller,
	})

	if err := cfg.EnsureDirectories(); err != nil {
		cliLogger := logging.Component("cli")
		cliLogger.Warn().Err(err).Msg("failed to create directories")
	}

	return cfg, nil
}
