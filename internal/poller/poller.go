// Package poller drives the fetch-then-reserve loop: every Interval it asks
// for the bookable slots and tries them in server order until one is
// confirmed, then stops itself.
package poller

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/logger"
	"github.com/Pairs34/CerrahPasaRandevu/internal/observability/metrics"
)

const DefaultInterval = time.Second

var (
	ErrAlreadyRunning = errors.New("poller already running")
	ErrStopped        = errors.New("poller stopped before a booking")
)

type CredentialSource interface {
	Get(ctx context.Context) (appointment.Credentials, bool)
}

type Fetcher interface {
	FetchAvailableTimes(ctx context.Context, creds appointment.Credentials) []appointment.TimeSlot
}

type Reserver interface {
	MakeAppointment(ctx context.Context, slot appointment.TimeSlot, creds appointment.Credentials) bool
}

// Booked describes the reservation that ended a run.
type Booked struct {
	RunID string
	Slot  appointment.TimeSlot
}

// Hooks are called after a transition, outside the poller's lock.
type Hooks struct {
	OnStateChange func(State)
	// OnBooked fires once per run, only on the success path.
	OnBooked func(Booked)
}

type Config struct {
	Interval time.Duration
	// SkipOverlap drops a tick while the previous one of the same run is
	// still in flight. Off by default: ticks fire on schedule regardless.
	SkipOverlap bool
}

type Deps struct {
	Credentials CredentialSource
	Fetcher     Fetcher
	Reserver    Reserver
	Hooks       Hooks
	Logger      *zap.Logger
	Metrics     *metrics.PollerMetrics
}

type Poller struct {
	creds    CredentialSource
	fetcher  Fetcher
	reserver Reserver
	hooks    Hooks
	log      *zap.Logger
	metrics  *metrics.PollerMetrics

	interval    time.Duration
	skipOverlap bool

	// base bounds network calls; Stop leaves it alone, Close cancels it.
	base   context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu    sync.Mutex
	state State
	run   *run
}

type run struct {
	id   string
	stop context.CancelFunc
	busy atomic.Bool
	done chan struct{}

	// set before done is closed
	booked bool
	result Booked
}

func New(d Deps, cfg Config) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultInterval
	}
	base, cancel := context.WithCancel(context.Background())
	return &Poller{
		creds:       d.Credentials,
		fetcher:     d.Fetcher,
		reserver:    d.Reserver,
		hooks:       d.Hooks,
		log:         logger.OrNop(d.Logger).Named("poller"),
		metrics:     d.Metrics,
		interval:    cfg.Interval,
		skipOverlap: cfg.SkipOverlap,
		base:        base,
		cancel:      cancel,
	}
}

func (p *Poller) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// RunID identifies the current run in logs; empty while idle.
func (p *Poller) RunID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.run == nil {
		return ""
	}
	return p.run.id
}

// Start moves Idle to Polling. It reports false when already polling.
func (p *Poller) Start() bool {
	p.mu.Lock()
	if p.state == Polling {
		p.mu.Unlock()
		return false
	}
	p.startLocked()
	p.mu.Unlock()

	p.stateChanged(Polling)
	return true
}

// Stop moves Polling to Idle. No new tick is scheduled afterwards; requests
// already sent by an in-flight tick are allowed to complete.
func (p *Poller) Stop() bool {
	p.mu.Lock()
	if p.state == Idle {
		p.mu.Unlock()
		return false
	}
	p.endLocked(nil)
	p.mu.Unlock()

	p.log.Info("polling stopped")
	p.stateChanged(Idle)
	return true
}

// Toggle flips the state and returns the new one.
func (p *Poller) Toggle() State {
	p.mu.Lock()
	next := Polling
	if p.state == Polling {
		next = Idle
		p.endLocked(nil)
	} else {
		p.startLocked()
	}
	p.mu.Unlock()

	if next == Idle {
		p.log.Info("polling stopped")
	}
	p.stateChanged(next)
	return next
}

// Run starts polling and blocks until a slot is booked, the poller is
// stopped elsewhere, or ctx is done.
func (p *Poller) Run(ctx context.Context) (Booked, error) {
	p.mu.Lock()
	if p.state == Polling {
		p.mu.Unlock()
		return Booked{}, ErrAlreadyRunning
	}
	r := p.startLocked()
	p.mu.Unlock()
	p.stateChanged(Polling)

	select {
	case <-ctx.Done():
		p.mu.Lock()
		stopped := p.run == r
		if stopped {
			p.endLocked(nil)
		}
		p.mu.Unlock()
		if stopped {
			p.log.Info("polling stopped")
			p.stateChanged(Idle)
		}
		return Booked{}, ctx.Err()
	case <-r.done:
		if r.booked {
			return r.result, nil
		}
		return Booked{}, ErrStopped
	}
}

// Close stops polling, cancels in-flight requests and waits for every tick
// goroutine to return.
func (p *Poller) Close() {
	p.Stop()
	p.cancel()
	p.wg.Wait()
}

func (p *Poller) startLocked() *run {
	ctx, cancel := context.WithCancel(p.base)
	r := &run{id: uuid.NewString(), stop: cancel, done: make(chan struct{})}
	p.run = r
	p.state = Polling
	p.metrics.SetPolling(true)

	p.wg.Add(1)
	go p.loop(ctx, r)

	p.log.Info("polling started", zap.String("run_id", r.id), zap.Duration("interval", p.interval))
	return r
}

func (p *Poller) endLocked(slot *appointment.TimeSlot) {
	r := p.run
	r.stop()
	if slot != nil {
		r.booked = true
		r.result = Booked{RunID: r.id, Slot: *slot}
	}
	close(r.done)
	p.run = nil
	p.state = Idle
	p.metrics.SetPolling(false)
}

func (p *Poller) loop(ctx context.Context, r *run) {
	defer p.wg.Done()
	t := time.NewTicker(p.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if p.skipOverlap && !r.busy.CompareAndSwap(false, true) {
				p.log.Debug("previous tick still in flight, skipping", zap.String("run_id", r.id))
				continue
			}
			p.wg.Add(1)
			go func() {
				defer p.wg.Done()
				if p.skipOverlap {
					defer r.busy.Store(false)
				}
				p.tick(r)
			}()
		}
	}
}

func (p *Poller) current(r *run) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.run == r
}

func (p *Poller) tick(r *run) {
	ctx := p.base
	log := p.log.With(zap.String("run_id", r.id))
	if !p.current(r) {
		return
	}

	creds, ok := p.creds.Get(ctx)
	if !ok {
		return
	}

	slots := p.fetcher.FetchAvailableTimes(ctx, creds)
	p.metrics.ObserveTick(len(slots))
	if len(slots) == 0 {
		log.Info("no available appointment")
		return
	}

	log.Info("trying slots", zap.Int("count", len(slots)), zap.Stringers("slots", slots))
	for _, s := range slots {
		if !p.current(r) {
			log.Info("run ended, leaving remaining slots untried")
			return
		}
		booked := p.reserver.MakeAppointment(ctx, s, creds)
		p.metrics.ObserveAttempt(booked)
		if booked {
			p.succeed(r, s, log)
			return
		}
	}
}

func (p *Poller) succeed(r *run, slot appointment.TimeSlot, log *zap.Logger) {
	p.mu.Lock()
	if p.run != r {
		p.mu.Unlock()
		log.Warn("reservation confirmed after the run ended", zap.Stringer("slot", slot))
		return
	}
	p.endLocked(&slot)
	p.mu.Unlock()

	log.Info("appointment booked, stopping", zap.Stringer("slot", slot))
	p.stateChanged(Idle)
	if p.hooks.OnBooked != nil {
		p.hooks.OnBooked(Booked{RunID: r.id, Slot: slot})
	}
}

func (p *Poller) stateChanged(s State) {
	if p.hooks.OnStateChange != nil {
		p.hooks.OnStateChange(s)
	}
}

// Label is the toggle caption for the current state.
func (p *Poller) Label() string {
	return p.State().Label()
}
