package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/notify"
	"github.com/Pairs34/CerrahPasaRandevu/internal/poller"
)

func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Poll until a slot is booked (Ctrl-C stops)",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			p := a.poller(prometheus.NewRegistry(), poller.Hooks{
				OnStateChange: func(s poller.State) {
					a.log.Info("state changed", zap.Stringer("state", s), zap.String("label", s.Label()))
				},
			})
			defer p.Close()

			booked, err := p.Run(ctx)
			switch {
			case errors.Is(err, context.Canceled):
				fmt.Fprintln(cmd.ErrOrStderr(), "stopped")
				return nil
			case err != nil:
				return err
			}

			b := notify.Booking{Slot: booked.Slot, RunID: booked.RunID}
			a.notifier().Dispatch(context.WithoutCancel(ctx), b)
			fmt.Fprintln(cmd.OutOrStdout(), b.Text())
			return nil
		},
	}
}
