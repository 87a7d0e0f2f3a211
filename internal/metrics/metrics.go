package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/rlaalswo86-stack/godlifedaily/internal/cache"
	"github.com/rlaalswo86-stack/godlifedaily/internal/model"
)

// Metrics holds all Prometheus metrics of the app.
type Metrics struct {
	ScansTotal      *prometheus.CounterVec // labels: result=completed|cancelled
	ScanDuration    prometheus.Histogram
	ScanMatches     prometheus.Gauge
	LastScanSuccess prometheus.Gauge

	SymbolOutcomes     *prometheus.CounterVec // labels: reason
	SymbolEvalDuration prometheus.Histogram

	CacheLookups *prometheus.CounterVec // labels: source, result=hit|miss

	FXRate *prometheus.GaugeVec // labels: code

	NotificationsTotal *prometheus.CounterVec // labels: result=sent|failed
	HTTPRequests       *prometheus.CounterVec // labels: route, code
}

// NewMetrics creates all metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ScansTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godlife_scans_total",
			Help: "Screener runs by result",
		}, []string{"result"}),
		ScanDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "godlife_scan_duration_seconds",
			Help:    "Wall time of a full screener run",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
		}),
		ScanMatches: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godlife_scan_matches",
			Help: "Matches found by the latest scan",
		}),
		LastScanSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "godlife_last_scan_timestamp_seconds",
			Help: "Unix time the latest scan finished",
		}),

		SymbolOutcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godlife_symbol_outcomes_total",
			Help: "Per-symbol screener outcomes by reason",
		}, []string{"reason"}),
		SymbolEvalDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "godlife_symbol_eval_duration_seconds",
			Help:    "Time to evaluate one symbol, remote calls included",
			Buckets: prometheus.DefBuckets,
		}),

		CacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godlife_cache_lookups_total",
			Help: "Cache lookups by source and result",
		}, []string{"source", "result"}),

		FXRate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "godlife_fx_rate_krw",
			Help: "Latest fetched KRW rate per market index code",
		}, []string{"code"}),

		NotificationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godlife_notifications_total",
			Help: "Telegram messages by result",
		}, []string{"result"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "godlife_http_requests_total",
			Help: "API requests by route and status code",
		}, []string{"route", "code"}),
	}

	reg.MustRegister(
		m.ScansTotal,
		m.ScanDuration,
		m.ScanMatches,
		m.LastScanSuccess,
		m.SymbolOutcomes,
		m.SymbolEvalDuration,
		m.CacheLookups,
		m.FXRate,
		m.NotificationsTotal,
		m.HTTPRequests,
	)
	return m
}

// ObserveOutcome records one evaluated symbol.
func (m *Metrics) ObserveOutcome(o model.Outcome, elapsed time.Duration) {
	m.SymbolOutcomes.WithLabelValues(string(o.Reason)).Inc()
	m.SymbolEvalDuration.Observe(elapsed.Seconds())
}

// ObserveScan records a finished scan.
func (m *Metrics) ObserveScan(r *model.ScanResult) {
	result := "completed"
	if r.Cancelled {
		result = "cancelled"
	}
	m.ScansTotal.WithLabelValues(result).Inc()
	m.ScanDuration.Observe(r.Duration().Seconds())
	m.ScanMatches.Set(float64(len(r.Matches)))
	m.LastScanSuccess.Set(float64(r.FinishedAt.Unix()))
}

// ObserveCache records a cache lookup.
func (m *Metrics) ObserveCache(key cache.Key, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(key.Source, result).Inc()
}

// ObserveQuote records a freshly fetched exchange rate.
func (m *Metrics) ObserveQuote(q model.FXQuote) {
	m.FXRate.WithLabelValues(q.Code).Set(q.Rate)
}

// ObserveNotification records a Telegram delivery attempt.
func (m *Metrics) ObserveNotification(err error) {
	if err != nil {
		m.NotificationsTotal.WithLabelValues("failed").Inc()
		return
	}
	m.NotificationsTotal.WithLabelValues("sent").Inc()
}
