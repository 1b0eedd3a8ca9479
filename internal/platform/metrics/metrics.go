// Package metrics はアラートパイプラインのPrometheusメトリクスを提供します。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"stock_alerts/internal/feature/alert/domain/entity"
	"stock_alerts/internal/feature/alert/usecase"
)

const namespace = "stock_alerts"

// Recorder は usecase.Recorder のPrometheus実装です。
type Recorder struct {
	registry *prometheus.Registry

	cycleDuration *prometheus.HistogramVec
	cyclesSkipped prometheus.Counter
	unitsTotal    prometheus.Counter
	unitFailures  *prometheus.CounterVec
	evaluated     prometheus.Counter
	fired         prometheus.Counter
	deliveries    *prometheus.CounterVec
	malformed     prometheus.Counter
	lastCycle     prometheus.Gauge
}

var _ usecase.Recorder = (*Recorder)(nil)

// NewRecorder は専用レジストリにメトリクスを登録した Recorder を生成します。
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		cycleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "cycle_duration_seconds",
			Help:      "Duration of evaluation cycles",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		}, []string{"result"}),
		cyclesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cycles_skipped_total",
			Help:      "Cycles skipped because the previous one was still running",
		}),
		unitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "units_total",
			Help:      "Symbol/interval units planned",
		}),
		unitFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unit_failures_total",
			Help:      "Units whose snapshot could not be computed",
		}, []string{"reason"}),
		evaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_evaluated_total",
			Help:      "Alert condition evaluations",
		}),
		fired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "alerts_fired_total",
			Help:      "Alerts that transitioned to cooldown",
		}),
		deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Notification delivery outcomes",
		}, []string{"outcome"}),
		malformed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "malformed_conditions_total",
			Help:      "Alerts flagged with a malformed condition",
		}),
		lastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_cycle_timestamp_seconds",
			Help:      "Start time of the last completed cycle",
		}),
	}
	r.registry.MustRegister(
		r.cycleDuration, r.cyclesSkipped, r.unitsTotal, r.unitFailures,
		r.evaluated, r.fired, r.deliveries, r.malformed, r.lastCycle,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// Registry はメトリクスのレジストリを返します。
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler は /metrics 用のHTTPハンドラーを返します。
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}

func (r *Recorder) ObserveCycle(d time.Duration, report usecase.CycleReport, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	r.cycleDuration.WithLabelValues(result).Observe(d.Seconds())
	r.unitsTotal.Add(float64(report.Units))
	r.evaluated.Add(float64(report.Evaluated))
	if err == nil {
		r.lastCycle.Set(float64(report.StartedAt.Unix()))
	}
}

func (r *Recorder) IncCycleSkipped() { r.cyclesSkipped.Inc() }

func (r *Recorder) IncUnitFailure(reason string) { r.unitFailures.WithLabelValues(reason).Inc() }

func (r *Recorder) IncFired() { r.fired.Inc() }

func (r *Recorder) IncDelivery(outcome entity.Outcome) {
	r.deliveries.WithLabelValues(string(outcome)).Inc()
}

func (r *Recorder) IncMalformed() { r.malformed.Inc() }
