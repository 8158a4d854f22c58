package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/notify"
	"github.com/Pairs34/CerrahPasaRandevu/internal/poller"
	"github.com/Pairs34/CerrahPasaRandevu/internal/web"
)

func newServerCmd() *cobra.Command {
	var autostart bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the web control page with the poller",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			a, err := newApp(ctx)
			if err != nil {
				return err
			}
			defer a.close()
			if err := a.cfg.ValidateWeb(); err != nil {
				return err
			}

			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)

			ws := &web.Server{
				Auth:     web.NewAuth(a.cfg.WebUsername, a.cfg.WebPasswordBcrypt, a.cfg.CookieHashKey, a.cfg.CookieBlockKey),
				Gatherer: reg,
				Logger:   a.log,
			}
			notifier := a.notifier()

			p := a.poller(reg, poller.Hooks{
				OnStateChange: func(s poller.State) {
					a.log.Info("state changed", zap.Stringer("state", s), zap.String("label", s.Label()))
				},
				OnBooked: func(b poller.Booked) {
					ws.Booked(b.Slot)
					notifier.Dispatch(context.WithoutCancel(ctx), notify.Booking{Slot: b.Slot, RunID: b.RunID})
				},
			})
			defer p.Close()
			ws.Poller = p

			if autostart {
				p.Start()
			}
			return web.Start(ctx, a.cfg.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&autostart, "start", false, "start polling immediately")
	return cmd
}
