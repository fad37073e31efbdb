package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager holds every collector the service exports. A nil *Manager is valid
// and records nothing.
type Manager struct {
	// counters
	CounterRequests     *prometheus.CounterVec
	CounterEvaluations  *prometheus.CounterVec
	CounterSetsIngested *prometheus.CounterVec
	CounterTierChanges  *prometheus.CounterVec

	// gauges
	GaugeRequests prometheus.Gauge

	// histograms
	HistEvaluationDuration   prometheus.Histogram
	HistogramRequestDuration *prometheus.HistogramVec
}

func NewTestManager() *Manager {
	return NewManager("reprank", "test", prometheus.NewRegistry())
}

func NewTestManagerAndRegistry() (*Manager, *prometheus.Registry) {
	reg := prometheus.NewRegistry()
	return NewManager("reprank", "test", reg), reg
}

func NewManager(namespace, subsystem string, reg prometheus.Registerer) *Manager {
	factory := promauto.With(reg)

	return &Manager{
		CounterRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request",
			Help:      "The total number of incoming requests",
		}, []string{"method", "status"}),
		CounterEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluations",
			Help:      "The total number of rank evaluations by outcome",
		}, []string{"outcome"}),
		CounterSetsIngested: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "sets_ingested",
			Help:      "The total number of workout sets stored",
		}, []string{"source"}),
		CounterTierChanges: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "tier_changes",
			Help:      "Tier changes observed after an import",
		}, []string{"direction"}),
		GaugeRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "current_requests",
			Help:      "Current number of requests served",
		}),
		HistEvaluationDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "evaluation_duration_seconds",
			Help:      "Duration of a full rank evaluation including data loading",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}),
		HistogramRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "request_duration_seconds",
			Help:      "Histogram of response time for requests in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}, []string{"route", "method", "status_code"}),
	}
}

// ObserveEvaluation records one evaluation's duration and outcome.
func (m *Manager) ObserveEvaluation(start time.Time, err error) {
	if m == nil {
		return
	}
	m.HistEvaluationDuration.Observe(time.Since(start).Seconds())
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.CounterEvaluations.WithLabelValues(outcome).Inc()
}

// SetsIngested counts stored sets for a source.
func (m *Manager) SetsIngested(source string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.CounterSetsIngested.WithLabelValues(source).Add(float64(n))
}

// TierChanges counts promotions and demotions.
func (m *Manager) TierChanges(promotions, demotions int) {
	if m == nil {
		return
	}
	if promotions > 0 {
		m.CounterTierChanges.WithLabelValues("promotion").Add(float64(promotions))
	}
	if demotions > 0 {
		m.CounterTierChanges.WithLabelValues("demotion").Add(float64(demotions))
	}
}
