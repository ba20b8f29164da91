// Package metrics exposes Prometheus collectors for the poll loop.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raterudder/energymatrix/pkg/cache"
	"github.com/raterudder/energymatrix/pkg/types"
)

const metricPrefix = "energymatrix_"

// Cycle results.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultTimeout = "timeout"
)

// Metrics holds the collectors of one process. Use New with a fresh registry
// in tests.
type Metrics struct {
	registry *prometheus.Registry

	cycles       *prometheus.CounterVec
	cycleErrors  *prometheus.CounterVec
	cycleLatency prometheus.Histogram
	cacheLookups *prometheus.CounterVec
	displaySends *prometheus.CounterVec

	acPower     prometheus.Gauge
	pvPower     prometheus.Gauge
	batterySOC  prometheus.Gauge
	price       prometheus.Gauge
	temperature prometheus.Gauge
	lastSuccess prometheus.Gauge
}

// New creates the collectors and registers them with a new registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycles_total",
				Help: "Total poll cycles by result",
			},
			[]string{"result"},
		),
		cycleErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cycle_errors_total",
				Help: "Total failed poll cycles by failing stage",
			},
			[]string{"stage"},
		),
		cycleLatency: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "cycle_latency_seconds",
				Help:    "Poll cycle latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "cache_lookups_total",
				Help: "Total cache lookups by cache and outcome",
			},
			[]string{"cache", "outcome"},
		),
		displaySends: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "display_sends_total",
				Help: "Total payloads sent to the display by result",
			},
			[]string{"result"},
		),
		acPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "ac_power_watts",
			Help: "AC consumption of the last sample",
		}),
		pvPower: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "pv_power_watts",
			Help: "PV power of the last sample",
		}),
		batterySOC: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "battery_soc_percent",
			Help: "Battery state of charge of the last sample",
		}),
		price: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "price_per_kwh",
			Help: "End-customer price of the current hour",
		}),
		temperature: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "temperature_celsius",
			Help: "Outside temperature of the last sample",
		}),
		lastSuccess: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: metricPrefix + "last_success_timestamp_seconds",
			Help: "Unix time of the last successful cycle",
		}),
	}
	m.registry.MustRegister(
		m.cycles,
		m.cycleErrors,
		m.cycleLatency,
		m.cacheLookups,
		m.displaySends,
		m.acPower,
		m.pvPower,
		m.batterySOC,
		m.price,
		m.temperature,
		m.lastSuccess,
	)
	return m
}

// ObserveCycle records the result and duration of a cycle. stage is the
// failing stage and ignored on success.
func (m *Metrics) ObserveCycle(result, stage string, seconds float64) {
	m.cycles.WithLabelValues(result).Inc()
	m.cycleLatency.Observe(seconds)
	if result != ResultSuccess && stage != "" {
		m.cycleErrors.WithLabelValues(stage).Inc()
	}
}

// ObserveCache counts a cache lookup.
func (m *Metrics) ObserveCache(name string, o cache.Outcome) {
	m.cacheLookups.WithLabelValues(name, string(o)).Inc()
}

// ObserveSend counts a display send.
func (m *Metrics) ObserveSend(err error) {
	if err != nil {
		m.displaySends.WithLabelValues(ResultError).Inc()
		return
	}
	m.displaySends.WithLabelValues(ResultSuccess).Inc()
}

// SetSample updates the gauges from s.
func (m *Metrics) SetSample(s types.Sample) {
	m.acPower.Set(s.ACPower)
	m.pvPower.Set(s.PVPower)
	m.batterySOC.Set(s.BatterySOC)
	if s.Price != nil {
		m.price.Set(s.Price.Price)
	}
	if s.Weather != nil {
		m.temperature.Set(s.Weather.Temperature)
	}
	m.lastSuccess.Set(float64(s.Timestamp.Unix()))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
