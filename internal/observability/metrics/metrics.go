package metrics

import "github.com/prometheus/client_golang/prometheus"

// PollerMetrics exposes counters for the availability/reservation loop.
type PollerMetrics struct {
	ticksTotal    prometheus.Counter
	slotsFound    prometheus.Counter
	attemptsTotal *prometheus.CounterVec
	bookedTotal   prometheus.Counter
	polling       prometheus.Gauge
}

func NewPollerMetrics(reg prometheus.Registerer) *PollerMetrics {
	m := &PollerMetrics{
		ticksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "randevu",
			Subsystem: "poller",
			Name:      "ticks_total",
			Help:      "Total poll ticks started",
		}),
		slotsFound: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "randevu",
			Subsystem: "poller",
			Name:      "slots_found_total",
			Help:      "Total bookable slots returned by the availability endpoint",
		}),
		attemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "randevu",
			Subsystem: "poller",
			Name:      "reservation_attempts_total",
			Help:      "Reservation attempts by result",
		}, []string{"result"}),
		bookedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "randevu",
			Subsystem: "poller",
			Name:      "booked_total",
			Help:      "Confirmed reservations",
		}),
		polling: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "randevu",
			Subsystem: "poller",
			Name:      "polling",
			Help:      "1 while the poller is running",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.ticksTotal, m.slotsFound, m.attemptsTotal, m.bookedTotal, m.polling)
	return m
}

func (m *PollerMetrics) ObserveTick(slots int) {
	if m == nil {
		return
	}
	m.ticksTotal.Inc()
	m.slotsFound.Add(float64(slots))
}

func (m *PollerMetrics) ObserveAttempt(booked bool) {
	if m == nil {
		return
	}
	result := "rejected"
	if booked {
		result = "booked"
		m.bookedTotal.Inc()
	}
	m.attemptsTotal.WithLabelValues(result).Inc()
}

func (m *PollerMetrics) SetPolling(on bool) {
	if m == nil {
		return
	}
	if on {
		m.polling.Set(1)
		return
	}
	m.polling.Set(0)
}
