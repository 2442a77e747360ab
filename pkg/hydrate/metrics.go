package hydrate

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "hydra4go"

// Metrics holds the hydrator's Prometheus collectors. A nil *Metrics records nothing.
type Metrics struct {
	HydrateTotal     *prometheus.CounterVec
	FetchTotal       *prometheus.CounterVec
	RelationsSkipped *prometheus.CounterVec
	HydrateDuration  *prometheus.HistogramVec
}

// NewMetrics creates the hydrator collectors and registers them on reg (if not nil)
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		HydrateTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "hydrate_total",
				Help:      "Total number of hydrate calls by entity type and result",
			},
			[]string{"entity", "result"},
		),

		FetchTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "fetch_total",
				Help:      "Total number of loader calls issued by the hydrator",
			},
			[]string{"entity"},
		),

		RelationsSkipped: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Name:      "relations_skipped_total",
				Help:      "Requested relations that were already present and not fetched",
			},
			[]string{"entity"},
		),

		HydrateDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Name:      "hydrate_duration_seconds",
				Help:      "Hydrate call duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"entity"},
		),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.HydrateTotal, m.FetchTotal, m.RelationsSkipped, m.HydrateDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observe(entity string, start time.Time, err error) {
	if m == nil {
		return
	}
	m.HydrateTotal.WithLabelValues(entity, resultLabel(err)).Inc()
	m.HydrateDuration.WithLabelValues(entity).Observe(time.Since(start).Seconds())
}

func (m *Metrics) fetched(entity string) {
	if m == nil {
		return
	}
	m.FetchTotal.WithLabelValues(entity).Inc()
}

func (m *Metrics) skipped(entity string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RelationsSkipped.WithLabelValues(entity).Add(float64(n))
}

func resultLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case IsConfigError(err):
		return "invalid"
	default:
		return "error"
	}
}
