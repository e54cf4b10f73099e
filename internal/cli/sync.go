package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/stridelake/stridelake/pkg/strava"
)

type SyncCmd struct{}

func NewSyncCmd() *SyncCmd {
	return &SyncCmd{}
}

func (c *SyncCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new and changed activities from Strava",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := syncOptionsFromFlags(cmd)
			if err != nil {
				return err
			}

			s, err := newSession(cmd)
			if err != nil {
				return err
			}
			defer s.Close()

			if s.app.Syncer == nil {
				return errors.New("strava credentials are not configured (set STRAVA_CLIENT_ID and STRAVA_CLIENT_SECRET)")
			}
			updates, err := s.app.Syncer.UpdateAll(s.ctx, opts)
			if err != nil {
				return err
			}
			renderUpdates(cmd.OutOrStdout(), updates)
			return nil
		},
	}
	cmd.Flags().Int64Slice("athlete-id", nil, "athlete IDs to sync (default all)")
	cmd.Flags().String("after", "", "only activities after this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().String("before", "", "only activities before this date (YYYY-MM-DD or RFC3339)")
	cmd.Flags().Int("limit", 0, "maximum activities to list per athlete (0 for no limit)")
	cmd.Flags().Bool("bypass-check", false, "refetch activities even when unchanged")
	return cmd
}

func syncOptionsFromFlags(cmd *cobra.Command) (strava.UpdateOptions, error) {
	var opts strava.UpdateOptions
	var err error
	if opts.AthleteIDs, err = cmd.Flags().GetInt64Slice("athlete-id"); err != nil {
		return opts, fmt.Errorf("failed to get athlete-id flag: %w", err)
	}
	if opts.Limit, err = cmd.Flags().GetInt("limit"); err != nil {
		return opts, fmt.Errorf("failed to get limit flag: %w", err)
	}
	if opts.Limit < 0 {
		return opts, errors.New("--limit must not be negative")
	}
	if opts.BypassCheck, err = cmd.Flags().GetBool("bypass-check"); err != nil {
		return opts, fmt.Errorf("failed to get bypass-check flag: %w", err)
	}

	after, err := cmd.Flags().GetString("after")
	if err != nil {
		return opts, fmt.Errorf("failed to get after flag: %w", err)
	}
	if opts.After, err = parseDate(after); err != nil {
		return opts, fmt.Errorf("invalid --after: %w", err)
	}
	before, err := cmd.Flags().GetString("before")
	if err != nil {
		return opts, fmt.Errorf("failed to get before flag: %w", err)
	}
	if opts.Before, err = parseDate(before); err != nil {
		return opts, fmt.Errorf("invalid --before: %w", err)
	}
	if !opts.After.IsZero() && !opts.Before.IsZero() && !opts.After.Before(opts.Before) {
		return opts, errors.New("--after must be earlier than --before")
	}
	return opts, nil
}

// parseDate accepts YYYY-MM-DD (UTC midnight) or RFC3339. Empty is the zero time.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}
