package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/rfarias/config-sentinel/internal/report"
)

const pushJobName = "config_sentinel"

// Metrics wraps Prometheus collectors for config-sentinel. Because a run is
// one-shot, metrics are pushed to a gateway rather than scraped.
type Metrics struct {
	registry              *prometheus.Registry
	runDurationSeconds    prometheus.Histogram
	devicesTotal          *prometheus.GaugeVec
	snapshotBytesTotal    prometheus.Counter
	historyErrorsTotal    prometheus.Counter
	notifyErrorsTotal     prometheus.Counter
	lastSuccessfulRunTime prometheus.Gauge
}

// New initializes a Metrics registry with all collectors registered.
func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		runDurationSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "config_sentinel_run_duration_seconds",
			Help:    "Duration of full backup runs in seconds.",
			Buckets: prometheus.DefBuckets,
		}),
		devicesTotal: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "config_sentinel_devices_total",
			Help: "Devices attempted in the last run by outcome.",
		}, []string{"outcome"}),
		snapshotBytesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "config_sentinel_snapshot_bytes_total",
			Help: "Total bytes of configuration captured.",
		}),
		historyErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "config_sentinel_history_errors_total",
			Help: "Total history recording failures.",
		}),
		notifyErrorsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "config_sentinel_notify_errors_total",
			Help: "Total notification delivery failures.",
		}),
		lastSuccessfulRunTime: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "config_sentinel_last_successful_run_timestamp",
			Help: "Unix timestamp of the last fully successful run.",
		}),
	}

	registry.MustRegister(
		m.runDurationSeconds,
		m.devicesTotal,
		m.snapshotBytesTotal,
		m.historyErrorsTotal,
		m.notifyErrorsTotal,
		m.lastSuccessfulRunTime,
	)

	return m
}

// RecordReport updates run-level collectors from an aggregate report.
func (m *Metrics) RecordReport(rep report.AggregateReport) {
	if m == nil {
		return
	}
	m.runDurationSeconds.Observe(rep.Elapsed.Seconds())
	m.devicesTotal.WithLabelValues("succeeded").Set(float64(rep.Succeeded()))
	m.devicesTotal.WithLabelValues("failed").Set(float64(rep.Failed()))
	for _, result := range rep.Results {
		if result.Durable() {
			m.snapshotBytesTotal.Add(float64(result.SizeBytes))
		}
		if result.Outcome == report.OutcomePartial {
			m.historyErrorsTotal.Inc()
		}
	}
	if rep.AllSucceeded() && rep.Total() > 0 {
		m.lastSuccessfulRunTime.Set(float64(rep.FinishedAt.Unix()))
	}
}

// IncNotifyErrors increments the notification failure counter.
func (m *Metrics) IncNotifyErrors() {
	if m == nil {
		return
	}
	m.notifyErrorsTotal.Inc()
}

// SetLastSuccessfulRunTimestamp sets the last successful run time.
func (m *Metrics) SetLastSuccessfulRunTimestamp(t time.Time) {
	if m == nil {
		return
	}
	m.lastSuccessfulRunTime.Set(float64(t.Unix()))
}

// Push delivers the registry to a Pushgateway. A push failure is the
// caller's to log; it never affects run outcome.
func (m *Metrics) Push(gatewayURL string) error {
	if m == nil || gatewayURL == "" {
		return nil
	}
	return push.New(gatewayURL, pushJobName).Gatherer(m.registry).Push()
}
