package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	twitch "github.com/VioletFlare/twitch-go"
)

func usersCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users <id-or-login>...",
		Short: "Look up user profiles by id or login",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			resp, err := client.GetUsers(ctx, args...)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	return cmd
}

func streamsCommand() *cobra.Command {
	var (
		gameIDs  []string
		language string
		first    int
		after    string
	)
	cmd := &cobra.Command{
		Use:   "streams [channel]...",
		Short: "List live streams, optionally filtered by channel or game",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			resp, err := client.GetStreams(ctx, twitch.StreamsParams{
				Channels: args,
				GameIDs:  gameIDs,
				Language: language,
				First:    first,
				After:    after,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringSliceVar(&gameIDs, "game-id", nil, "filter by game id")
	cmd.Flags().StringVar(&language, "language", "", "filter by language")
	cmd.Flags().IntVar(&first, "first", 0, "page size")
	cmd.Flags().StringVar(&after, "after", "", "pagination cursor")
	return cmd
}

func followsCommand() *cobra.Command {
	var (
		fromID string
		toID   string
		first  int
		after  string
	)
	cmd := &cobra.Command{
		Use:   "follows",
		Short: "List follow relationships (--from-id and/or --to-id)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			resp, err := client.GetFollows(ctx, twitch.FollowsParams{
				FromID: fromID,
				ToID:   toID,
				First:  first,
				After:  after,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringVar(&fromID, "from-id", "", "user id whose follows to list")
	cmd.Flags().StringVar(&toID, "to-id", "", "user id whose followers to list")
	cmd.Flags().IntVar(&first, "first", 0, "page size")
	cmd.Flags().StringVar(&after, "after", "", "pagination cursor")
	return cmd
}

func subscriptionsCommand() *cobra.Command {
	var (
		userIDs []string
		first   int
		after   string
	)
	cmd := &cobra.Command{
		Use:   "subscriptions <broadcaster-id>",
		Short: "List a broadcaster's subscribers (user token required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			resp, err := client.GetSubscriptions(ctx, twitch.SubscriptionsParams{
				BroadcasterID: args[0],
				UserIDs:       userIDs,
				First:         first,
				After:         after,
			})
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().StringSliceVar(&userIDs, "user-id", nil, "narrow to specific subscriber ids")
	cmd.Flags().IntVar(&first, "first", 0, "page size")
	cmd.Flags().StringVar(&after, "after", "", "pagination cursor")
	return cmd
}

func bitsCommand() *cobra.Command {
	var (
		count     int
		period    string
		startedAt string
		userID    string
	)
	cmd := &cobra.Command{
		Use:   "bits",
		Short: "Show the bits leaderboard (user token required)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			params := twitch.BitsLeaderboardParams{
				Count:  count,
				Period: period,
				UserID: userID,
			}
			if startedAt != "" {
				ts, err := time.Parse(time.RFC3339, startedAt)
				if err != nil {
					return fmt.Errorf("invalid --started-at: %w", err)
				}
				params.StartedAt = ts
			}
			resp, err := client.GetBitsLeaderboard(ctx, params)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().IntVar(&count, "count", 0, "number of entries")
	cmd.Flags().StringVar(&period, "period", "", "day, week, month, year or all")
	cmd.Flags().StringVar(&startedAt, "started-at", "", "period anchor (RFC 3339)")
	cmd.Flags().StringVar(&userID, "user-id", "", "center the leaderboard on a user")
	return cmd
}

func clipCommand() *cobra.Command {
	var hasDelay bool
	cmd := &cobra.Command{
		Use:   "clip <broadcaster-id>",
		Short: "Create a clip of a live stream (user token required)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			resp, err := client.CreateClip(ctx, args[0], hasDelay)
			if err != nil {
				return err
			}
			return printJSON(resp)
		},
	}
	cmd.Flags().BoolVar(&hasDelay, "has-delay", false, "account for stream delay")
	return cmd
}

func validateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check whether the configured access token is still accepted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			valid, err := client.ValidateToken(ctx)
			if err != nil {
				return err
			}
			return printJSON(map[string]bool{"valid": valid})
		},
	}
}

func authURLCommand() *cobra.Command {
	var scopes []string
	cmd := &cobra.Command{
		Use:   "auth-url",
		Short: "Print an authorization-code consent URL for the given scopes",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)
			client, err := newClient(ctx)
			if err != nil {
				return err
			}
			authURL, state := client.AuthorizationURL(scopes...)
			return printJSON(map[string]string{
				"url":   authURL,
				"state": state,
			})
		},
	}
	cmd.Flags().StringSliceVar(&scopes, "scope", nil, "OAuth scopes, e.g. "+strings.Join([]string{"bits:read", "channel:read:subscriptions"}, ","))
	return cmd
}
