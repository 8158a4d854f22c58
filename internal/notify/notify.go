// Package notify tells the operator that a slot was booked.
package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
)

// SuccessMessage is shown to the user once a reservation is confirmed.
const SuccessMessage = "Randevu alındı! İşlemler durduruluyor."

type Booking struct {
	Slot  appointment.TimeSlot
	RunID string
}

func (b Booking) Text() string {
	return fmt.Sprintf("%s (%s)", SuccessMessage, b.Slot)
}

type Notifier interface {
	Notify(ctx context.Context, b Booking) error
}

// Dispatcher fans a booking out to every configured notifier. A failing
// notifier is logged and does not stop the others.
type Dispatcher struct {
	notifiers []Notifier
	log       *zap.Logger
}

func NewDispatcher(log *zap.Logger, notifiers ...Notifier) *Dispatcher {
	d := &Dispatcher{log: logger.OrNop(log).Named("notify")}
	for _, n := range notifiers {
		if n != nil {
			d.notifiers = append(d.notifiers, n)
		}
	}
	return d
}

func (d *Dispatcher) Len() int { return len(d.notifiers) }

func (d *Dispatcher) Dispatch(ctx context.Context, b Booking) {
	for _, n := range d.notifiers {
		if err := n.Notify(ctx, b); err != nil {
			d.log.Error("notification failed",
				zap.String("notifier", fmt.Sprintf("%T", n)),
				zap.Stringer("slot", b.Slot),
				zap.String("run_id", b.RunID),
				zap.Error(err))
		}
	}
}

// LogNotifier writes the booking to the process log.
type LogNotifier struct {
	log *zap.Logger
}

func NewLogNotifier(log *zap.Logger) *LogNotifier {
	return &LogNotifier{log: logger.OrNop(log)}
}

func (n *LogNotifier) Notify(_ context.Context, b Booking) error {
	n.log.Info(SuccessMessage, zap.Stringer("slot", b.Slot), zap.String("run_id", b.RunID))
	return nil
}
