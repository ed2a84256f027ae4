// twitchctl is a small CLI around the twitch-go client, mainly useful for
// poking at the API with app or user credentials from the environment.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	twitch "github.com/VioletFlare/twitch-go"
	"github.com/VioletFlare/twitch-go/internal/config"
	"github.com/VioletFlare/twitch-go/internal/logging"
)

const setupTimeout = 30 * time.Second

func main() {
	if err := rootCommand().Execute(); err != nil {
		slog.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "twitchctl",
		Short:         "Query the Twitch Helix API from the command line",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(
		usersCommand(),
		streamsCommand(),
		followsCommand(),
		subscriptionsCommand(),
		bitsCommand(),
		clipCommand(),
		validateCommand(),
		authURLCommand(),
	)
	return root
}

// newClient loads the environment configuration and constructs a ready
// client. Token refreshes are logged so long-lived shells can see them.
func newClient(ctx context.Context) (*twitch.Client, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)

	setupCtx, cancel := context.WithTimeout(ctx, setupTimeout)
	defer cancel()

	client, err := twitch.New(setupCtx, twitch.Options{
		ClientID:          cfg.TwitchClientID,
		ClientSecret:      cfg.TwitchClientSecret,
		AccessToken:       cfg.TwitchAccessToken,
		RefreshToken:      cfg.TwitchRefreshToken,
		RedirectURI:       cfg.TwitchRedirectURI,
		AppMode:           cfg.AppMode,
		RequestsPerMinute: cfg.RequestsPerMinute,
	})
	if err != nil {
		return nil, err
	}

	client.OnTokenRefresh(func(tok twitch.Token) {
		slog.Info("Access token refreshed", "expires_in", tok.ExpiresIn)
	})
	return client, nil
}

// commandContext returns a context cancelled by SIGINT/SIGTERM.
func commandContext(cmd *cobra.Command) context.Context {
	ctx, _ := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	return ctx
}

// printJSON writes v to stdout, indented.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
