package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newSlotsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "slots",
		Short: "Query availability once and print the bookable slots",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			creds, err := a.creds.Lookup(ctx)
			if err != nil {
				return fmt.Errorf("credentials: %w", err)
			}
			slots := a.client().FetchAvailableTimes(ctx, creds)
			out := cmd.OutOrStdout()
			if len(slots) == 0 {
				fmt.Fprintln(out, "no available appointment")
				return nil
			}
			for _, s := range slots {
				fmt.Fprintln(out, s)
			}
			return nil
		},
	}
}
