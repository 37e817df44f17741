package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Sanny1998/Virtual-chef/internal/conversation"
	"github.com/Sanny1998/Virtual-chef/internal/timer"
)

func newTimersCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "timers",
		Short: "List your cooking timers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ts, err := a.store.Timers(cmd.Context(), a.userID)
			if err != nil {
				return fmt.Errorf("listing timers: %w", err)
			}
			if len(ts) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No timers yet.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatTimers(ts, time.Now()))
			return nil
		},
	}
}

// newDueCmd fires due timers once and exits. It suits a cron job when the
// chat is not running.
func newDueCmd(f *flags) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Deliver timers that are due and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := f.load(cmd)
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			out := conversation.NewWriterNotifier(cmd.OutOrStdout(), false, a.log)
			fired, err := timer.New(a.store, out, a.log, timer.WithMetrics(a.metrics)).Poll(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d timer(s) delivered.\n", len(fired))
			return nil
		},
	}
}
