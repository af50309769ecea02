package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

var outboxLimit int

var outboxCmd = &cobra.Command{
	Use:   "outbox",
	Short: "Inspect and replay undeliverable events",
}

var failedOutboxCmd = &cobra.Command{
	Use:   "failed",
	Short: "List events that exhausted their retries",
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()
		if c.Outbox == nil {
			return errors.New("outbox needs store.driver=postgres")
		}

		events, err := c.Outbox.GetFailedEvents(cmd.Context(), outboxLimit)
		if err != nil {
			return err
		}
		renderEvents(cmd.OutOrStdout(), events)
		return nil
	},
}

var replayOutboxCmd = &cobra.Command{
	Use:   "replay [eventID]",
	Short: "Reset a failed event to pending so the dispatcher retries it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid event id %q", args[0])
		}
		c, err := components()
		if err != nil {
			return err
		}
		defer c.Close()
		if c.Outbox == nil {
			return errors.New("outbox needs store.driver=postgres")
		}

		if err := c.Outbox.ReplayEvent(cmd.Context(), id); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "✅ Event %d queued for replay\n", id)
		return nil
	},
}

func init() {
	failedOutboxCmd.Flags().IntVar(&outboxLimit, "limit", 50, "maximum events to list")

	outboxCmd.AddCommand(failedOutboxCmd)
	outboxCmd.AddCommand(replayOutboxCmd)
}
