package poller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pairs34/CerrahPasaRandevu/internal/domain/appointment"
	"github.com/Pairs34/CerrahPasaRandevu/internal/observability/metrics"
)

const (
	testInterval = 5 * time.Millisecond
	waitFor      = 2 * time.Second
	pollEvery    = time.Millisecond
)

type fakeCreds struct{ ok bool }

func (f fakeCreds) Get(context.Context) (appointment.Credentials, bool) {
	if !f.ok {
		return appointment.Credentials{}, false
	}
	return appointment.Credentials{Token: "tok"}, true
}

type fakeFetcher struct {
	calls   atomic.Int32
	active  atomic.Int32
	maxSeen atomic.Int32
	fn      func(n int32) []appointment.TimeSlot
}

func (f *fakeFetcher) FetchAvailableTimes(_ context.Context, _ appointment.Credentials) []appointment.TimeSlot {
	n := f.calls.Add(1)
	cur := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		prev := f.maxSeen.Load()
		if cur <= prev || f.maxSeen.CompareAndSwap(prev, cur) {
			break
		}
	}
	if f.fn == nil {
		return nil
	}
	return f.fn(n)
}

type fakeReserver struct {
	mu       sync.Mutex
	attempts []appointment.TimeSlot
	results  map[appointment.TimeSlot]bool
	block    chan struct{}
	entered  chan struct{}
}

func (f *fakeReserver) MakeAppointment(_ context.Context, slot appointment.TimeSlot, _ appointment.Credentials) bool {
	f.mu.Lock()
	f.attempts = append(f.attempts, slot)
	f.mu.Unlock()
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}
	return f.results[slot]
}

func (f *fakeReserver) Attempts() []appointment.TimeSlot {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]appointment.TimeSlot(nil), f.attempts...)
}

type recorder struct {
	mu     sync.Mutex
	states []State
	booked []Booked
}

func (r *recorder) hooks() Hooks {
	return Hooks{
		OnStateChange: func(s State) {
			r.mu.Lock()
			r.states = append(r.states, s)
			r.mu.Unlock()
		},
		OnBooked: func(b Booked) {
			r.mu.Lock()
			r.booked = append(r.booked, b)
			r.mu.Unlock()
		},
	}
}

func (r *recorder) States() []State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]State(nil), r.states...)
}

func (r *recorder) Booked() []Booked {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Booked(nil), r.booked...)
}

func slots(s ...string) []appointment.TimeSlot {
	out := make([]appointment.TimeSlot, len(s))
	for i, v := range s {
		out[i] = appointment.Slot(v)
	}
	return out
}

func newTestPoller(t *testing.T, f *fakeFetcher, r *fakeReserver, rec *recorder, cfg Config) *Poller {
	t.Helper()
	if cfg.Interval == 0 {
		cfg.Interval = testInterval
	}
	p := New(Deps{
		Credentials: fakeCreds{ok: true},
		Fetcher:     f,
		Reserver:    r,
		Hooks:       rec.hooks(),
	}, cfg)
	t.Cleanup(p.Close)
	return p
}

func TestRunBooksThirdSlotAndStops(t *testing.T) {
	f := &fakeFetcher{fn: func(int32) []appointment.TimeSlot { return slots("09:00", "09:15", "09:30") }}
	r := &fakeReserver{results: map[appointment.TimeSlot]bool{appointment.Slot("09:30"): true}}
	rec := &recorder{}
	p := newTestPoller(t, f, r, rec, Config{SkipOverlap: true})

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	got, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, appointment.Slot("09:30"), got.Slot)
	assert.NotEmpty(t, got.RunID)

	assert.Equal(t, slots("09:00", "09:15", "09:30"), r.Attempts())
	assert.Equal(t, Idle, p.State())
	assert.Equal(t, "Başlat", p.Label())
	assert.Equal(t, []State{Polling, Idle}, rec.States())
	assert.Equal(t, []Booked{got}, rec.Booked())

	calls := f.calls.Load()
	time.Sleep(10 * testInterval)
	assert.Equal(t, calls, f.calls.Load(), "no tick after the booking")
}

func TestFirstSlotWins(t *testing.T) {
	f := &fakeFetcher{fn: func(int32) []appointment.TimeSlot { return slots("A", "B") }}
	r := &fakeReserver{results: map[appointment.TimeSlot]bool{appointment.Slot("A"): true, appointment.Slot("B"): true}}
	rec := &recorder{}
	p := newTestPoller(t, f, r, rec, Config{SkipOverlap: true})

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	got, err := p.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, appointment.Slot("A"), got.Slot)
	assert.Equal(t, slots("A"), r.Attempts())
}

func TestEmptyTicksKeepPolling(t *testing.T) {
	f := &fakeFetcher{}
	r := &fakeReserver{}
	rec := &recorder{}
	p := newTestPoller(t, f, r, rec, Config{})

	require.True(t, p.Start())
	assert.Eventually(t, func() bool { return f.calls.Load() >= 3 }, waitFor, pollEvery)
	assert.Equal(t, Polling, p.State())
	assert.Empty(t, r.Attempts())
	assert.Empty(t, rec.Booked())

	require.True(t, p.Stop())
	assert.Equal(t, []State{Polling, Idle}, rec.States())
}

func TestMissingCredentialsSkipsFetch(t *testing.T) {
	f := &fakeFetcher{}
	p := New(Deps{
		Credentials: fakeCreds{ok: false},
		Fetcher:     f,
		Reserver:    &fakeReserver{},
	}, Config{Interval: testInterval})
	t.Cleanup(p.Close)

	p.Start()
	time.Sleep(10 * testInterval)
	assert.Zero(t, f.calls.Load())
	assert.Equal(t, Polling, p.State())
}

func TestStopDuringReservationDropsLateSuccess(t *testing.T) {
	f := &fakeFetcher{fn: func(n int32) []appointment.TimeSlot {
		if n == 1 {
			return slots("A", "B")
		}
		return nil
	}}
	r := &fakeReserver{
		results: map[appointment.TimeSlot]bool{appointment.Slot("A"): true, appointment.Slot("B"): true},
		block:   make(chan struct{}),
		entered: make(chan struct{}, 4),
	}
	rec := &recorder{}
	p := newTestPoller(t, f, r, rec, Config{SkipOverlap: true})

	p.Start()
	select {
	case <-r.entered:
	case <-time.After(waitFor):
		t.Fatal("reservation was never attempted")
	}

	require.True(t, p.Stop())
	close(r.block)

	time.Sleep(10 * testInterval)
	assert.Equal(t, slots("A"), r.Attempts(), "stopped run tries no further slots")
	assert.Equal(t, Idle, p.State())
	assert.Empty(t, rec.Booked())
	assert.Equal(t, []State{Polling, Idle}, rec.States())
}

func TestStaleTickIgnoredByNewRun(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 1)
	f := &fakeFetcher{fn: func(n int32) []appointment.TimeSlot {
		if n == 1 {
			started <- struct{}{}
			<-release
			return slots("OLD")
		}
		return nil
	}}
	r := &fakeReserver{results: map[appointment.TimeSlot]bool{appointment.Slot("OLD"): true}}
	rec := &recorder{}
	p := newTestPoller(t, f, r, rec, Config{})

	p.Start()
	<-started
	p.Stop()
	p.Start()
	close(release)

	time.Sleep(10 * testInterval)
	assert.Empty(t, r.Attempts())
	assert.Equal(t, Polling, p.State())
	assert.Empty(t, rec.Booked())
}

func TestStartAndStopAreIdempotent(t *testing.T) {
	rec := &recorder{}
	p := newTestPoller(t, &fakeFetcher{}, &fakeReserver{}, rec, Config{})

	assert.False(t, p.Stop())
	assert.True(t, p.Start())
	id := p.RunID()
	assert.NotEmpty(t, id)
	assert.False(t, p.Start())
	assert.Equal(t, id, p.RunID())
	assert.True(t, p.Stop())
	assert.Empty(t, p.RunID())

	assert.Equal(t, []State{Polling, Idle}, rec.States())
}

func TestToggle(t *testing.T) {
	rec := &recorder{}
	p := newTestPoller(t, &fakeFetcher{}, &fakeReserver{}, rec, Config{})

	assert.Equal(t, "Başlat", p.Label())
	assert.Equal(t, Polling, p.Toggle())
	assert.Equal(t, "Durdur", p.Label())
	first := p.RunID()

	assert.Equal(t, Idle, p.Toggle())
	assert.Equal(t, "Başlat", p.Label())
	assert.Equal(t, Polling, p.Toggle())
	assert.NotEqual(t, first, p.RunID())

	assert.Equal(t, []State{Polling, Idle, Polling}, rec.States())
}

func TestRunCancelled(t *testing.T) {
	rec := &recorder{}
	p := newTestPoller(t, &fakeFetcher{}, &fakeReserver{}, rec, Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*testInterval)
	defer cancel()
	_, err := p.Run(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, Idle, p.State())
	assert.Equal(t, []State{Polling, Idle}, rec.States())
}

func TestRunStoppedElsewhere(t *testing.T) {
	p := newTestPoller(t, &fakeFetcher{}, &fakeReserver{}, &recorder{}, Config{})

	errc := make(chan error, 1)
	go func() {
		_, err := p.Run(context.Background())
		errc <- err
	}()
	require.Eventually(t, func() bool { return p.State() == Polling }, waitFor, pollEvery)
	p.Stop()

	select {
	case err := <-errc:
		assert.ErrorIs(t, err, ErrStopped)
	case <-time.After(waitFor):
		t.Fatal("Run did not return after Stop")
	}
}

func TestRunWhilePolling(t *testing.T) {
	p := newTestPoller(t, &fakeFetcher{}, &fakeReserver{}, &recorder{}, Config{})
	p.Start()
	_, err := p.Run(context.Background())
	assert.ErrorIs(t, err, ErrAlreadyRunning)
}

func TestTicksOverlapUnlessSkipped(t *testing.T) {
	slow := func(int32) []appointment.TimeSlot {
		time.Sleep(6 * testInterval)
		return nil
	}

	t.Run("overlap allowed", func(t *testing.T) {
		f := &fakeFetcher{fn: slow}
		p := newTestPoller(t, f, &fakeReserver{}, &recorder{}, Config{})
		p.Start()
		assert.Eventually(t, func() bool { return f.maxSeen.Load() > 1 }, waitFor, pollEvery)
	})

	t.Run("skip overlap", func(t *testing.T) {
		f := &fakeFetcher{fn: slow}
		p := newTestPoller(t, f, &fakeReserver{}, &recorder{}, Config{SkipOverlap: true})
		p.Start()
		assert.Eventually(t, func() bool { return f.calls.Load() >= 3 }, waitFor, pollEvery)
		assert.Equal(t, int32(1), f.maxSeen.Load())
	})
}

func TestPollerRecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.NewPollerMetrics(reg)
	f := &fakeFetcher{fn: func(int32) []appointment.TimeSlot { return slots("A", "B") }}
	r := &fakeReserver{results: map[appointment.TimeSlot]bool{appointment.Slot("B"): true}}

	p := New(Deps{
		Credentials: fakeCreds{ok: true},
		Fetcher:     f,
		Reserver:    r,
		Metrics:     m,
	}, Config{Interval: testInterval, SkipOverlap: true})
	t.Cleanup(p.Close)

	ctx, cancel := context.WithTimeout(context.Background(), waitFor)
	defer cancel()
	_, err := p.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, float64(1), metricValue(t, reg, "randevu_poller_booked_total"))
	assert.Equal(t, float64(2), metricValue(t, reg, "randevu_poller_slots_found_total"))
	assert.Equal(t, float64(0), metricValue(t, reg, "randevu_poller_polling"))
}

func metricValue(t *testing.T, reg *prometheus.Registry, name string) float64 {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			m := mf.GetMetric()[0]
			if c := m.GetCounter(); c != nil {
				return c.GetValue()
			}
			return m.GetGauge().GetValue()
		}
	}
	t.Fatalf("metric %s not gathered", name)
	return 0
}

func TestStateLabels(t *testing.T) {
	assert.Equal(t, "Başlat", Idle.Label())
	assert.Equal(t, "Durdur", Polling.Label())
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "polling", Polling.String())
}
