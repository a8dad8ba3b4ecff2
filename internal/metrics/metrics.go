// Package metrics exposes Prometheus collectors for signal runs and price fetches.
package metrics

import (
	"time"

	"GEMSentinel/internal/model"
	"GEMSentinel/internal/strategy"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all collectors. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Runs          *prometheus.CounterVec
	Exclusions    *prometheus.CounterVec
	FetchDuration *prometheus.HistogramVec
	CacheLookups  *prometheus.CounterVec
	LeaderReturn  prometheus.Gauge
	RiskOn        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Runs: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gem_signal_runs_total",
				Help: "Signal evaluations by outcome",
			},
			[]string{"outcome"},
		),
		Exclusions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gem_instrument_exclusions_total",
				Help: "Instruments excluded from a run by reason",
			},
			[]string{"symbol", "reason"},
		),
		FetchDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gem_price_fetch_duration_seconds",
				Help:    "Duration of price history fetches",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
			},
			[]string{"source", "result"},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gem_price_cache_lookups_total",
				Help: "Price cache lookups by result",
			},
			[]string{"result"},
		),
		LeaderReturn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gem_leader_return_percent",
			Help: "Return of the top ranked instrument in the last successful run",
		}),
		RiskOn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gem_signal_risk_on",
			Help: "1 when the last signal was BuyRiskAsset, 0 when it was FleeToSafeHaven",
		}),
	}
	reg.MustRegister(m.Runs, m.Exclusions, m.FetchDuration, m.CacheLookups, m.LeaderReturn, m.RiskOn)
	return m
}

// ObserveFetch records one provider call.
func (m *Metrics) ObserveFetch(source string, err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.FetchDuration.WithLabelValues(source, result).Observe(d.Seconds())
}

// ObserveCache records a cache hit or miss.
func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.CacheLookups.WithLabelValues("hit").Inc()
	} else {
		m.CacheLookups.WithLabelValues("miss").Inc()
	}
}

// ObserveEvaluation records the outcome of an engine run.
func (m *Metrics) ObserveEvaluation(ev *strategy.Evaluation, err error) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(strategy.ReasonCode(err)).Inc()
	if ev == nil {
		return
	}
	for _, ex := range ev.Exclusions {
		m.Exclusions.WithLabelValues(ex.Instrument.Symbol, strategy.ReasonCode(ex.Reason)).Inc()
	}
	if ev.Signal != nil {
		m.LeaderReturn.Set(ev.Signal.Leader.ReturnPct)
		if ev.Signal.Action == model.ActionBuyRiskAsset {
			m.RiskOn.Set(1)
		} else {
			m.RiskOn.Set(0)
		}
	}
}
