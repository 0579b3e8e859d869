package monitoring

import (
	"time"

	"conference/internal/core/domain"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// PrometheusCollector exposes the gauges/histograms named in the metrics
// section: balancer free capacity per backend, in-flight backend
// transactions, outbox backlog depth, and vacuum sweep duration.
type PrometheusCollector struct {
	backendFreeCapacity *prometheus.GaugeVec
	transactionsInFlight *prometheus.GaugeVec
	transactionDuration  *prometheus.HistogramVec
	outboxBacklog        prometheus.Gauge
	outboxDeliveredTotal prometheus.Counter
	outboxFailedTotal    prometheus.Counter
	vacuumDuration       prometheus.Histogram
	vacuumSweepsTotal    prometheus.Counter
	roomsActiveTotal     prometheus.Gauge
	rtcsActiveTotal      prometheus.Gauge
}

func NewPrometheusCollector() *PrometheusCollector {
	return &PrometheusCollector{
		backendFreeCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conference_backend_free_capacity",
			Help: "Free balancer capacity per backend, per the §4.2 scoring formula",
		}, []string{"backend_id"}),

		transactionsInFlight: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "conference_backend_transactions_in_flight",
			Help: "Backend transactions awaiting a response, per backend",
		}, []string{"backend_id"}),

		transactionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "conference_backend_transaction_duration_seconds",
			Help:    "Backend transaction round-trip duration",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"kind"}),

		outboxBacklog: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conference_outbox_backlog",
			Help: "Outbox entries due for delivery but not yet delivered",
		}),

		outboxDeliveredTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conference_outbox_delivered_total",
			Help: "Total outbox entries successfully delivered",
		}),

		outboxFailedTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conference_outbox_failed_total",
			Help: "Total outbox delivery attempts that failed",
		}),

		vacuumDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "conference_vacuum_sweep_duration_seconds",
			Help:    "Duration of one vacuum sweep",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		}),

		vacuumSweepsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "conference_vacuum_sweeps_total",
			Help: "Total vacuum sweeps run",
		}),

		roomsActiveTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conference_rooms_active_total",
			Help: "Rooms currently open",
		}),

		rtcsActiveTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "conference_rtcs_active_total",
			Help: "RTCs with at least one connected agent",
		}),
	}
}

func (p *PrometheusCollector) SetBackendFreeCapacity(backendID domain.BackendID, free int) {
	p.backendFreeCapacity.WithLabelValues(backendID.String()).Set(float64(free))
}

func (p *PrometheusCollector) IncTransactionsInFlight(backendID domain.BackendID) {
	p.transactionsInFlight.WithLabelValues(backendID.String()).Inc()
}

func (p *PrometheusCollector) DecTransactionsInFlight(backendID domain.BackendID) {
	p.transactionsInFlight.WithLabelValues(backendID.String()).Dec()
}

func (p *PrometheusCollector) RecordTransaction(kind string, duration time.Duration) {
	p.transactionDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (p *PrometheusCollector) SetOutboxBacklog(n int) {
	p.outboxBacklog.Set(float64(n))
}

func (p *PrometheusCollector) RecordOutboxDelivery(ok bool) {
	if ok {
		p.outboxDeliveredTotal.Inc()
		return
	}
	p.outboxFailedTotal.Inc()
}

func (p *PrometheusCollector) RecordVacuumSweep(duration time.Duration) {
	p.vacuumDuration.Observe(duration.Seconds())
	p.vacuumSweepsTotal.Inc()
}

func (p *PrometheusCollector) SetRoomsActive(n int) {
	p.roomsActiveTotal.Set(float64(n))
}

func (p *PrometheusCollector) SetRTCsActive(n int) {
	p.rtcsActiveTotal.Set(float64(n))
}
