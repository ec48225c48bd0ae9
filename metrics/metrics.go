// Package metrics exports engine.Stats as Prometheus metrics,
// grounded on 99souls-ariadne's engine/monitoring.PrometheusExporter:
// that exporter registers CounterVec/GaugeVec instances into a
// prometheus.Registry and syncs them from a business-metrics
// collector on every scrape. This package keeps the same "sync from a
// snapshot on read" discipline but implements prometheus.Collector
// directly rather than owning a registry, so the caller decides where
// it's registered (spec.md §3 "Ownership": exported on the async side
// only, reading the engine's copy-on-read Stats/FaultLog — never the
// real-time tick).
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"ffbengine.dev/engine"
	"ffbengine.dev/safety"
)

// StatsProvider is the subset of *engine.Engine this package
// consumes. engine.Engine already satisfies it (GetStats, FaultLog),
// so wiring an Exporter needs no adapter.
type StatsProvider interface {
	GetStats() engine.Stats
	FaultLog() *safety.FaultLog
}

var (
	droppedFramesDesc = prometheus.NewDesc(
		"ffbengine_dropped_frames_total", "Cumulative game inputs dropped by the SPSC ring due to backpressure.", nil, nil)
	jitterMaxDesc = prometheus.NewDesc(
		"ffbengine_tick_jitter_max_ns", "Maximum observed tick-to-tick jitter, in nanoseconds.", nil, nil)
	jitterP50Desc = prometheus.NewDesc(
		"ffbengine_tick_jitter_p50_ns", "Median observed tick-to-tick jitter, in nanoseconds.", nil, nil)
	jitterP99Desc = prometheus.NewDesc(
		"ffbengine_tick_jitter_p99_ns", "99th percentile observed tick-to-tick jitter, in nanoseconds.", nil, nil)
	missedTicksDesc = prometheus.NewDesc(
		"ffbengine_missed_ticks_total", "Cumulative ticks whose period exceeded twice the nominal tick period.", nil, nil)
	sampleCountDesc = prometheus.NewDesc(
		"ffbengine_tick_samples_total", "Cumulative ticks observed by the jitter meter.", nil, nil)
	violationsDesc = prometheus.NewDesc(
		"ffbengine_limiter_violations_total", "Cumulative torque values clamped by the limiter.", nil, nil)
	safetyStateDesc = prometheus.NewDesc(
		"ffbengine_safety_state", "1 for the currently active safety state, 0 for all others.", []string{"state"}, nil)
	faultsLoggedDesc = prometheus.NewDesc(
		"ffbengine_faults_logged_total", "Fault entries currently held in the bounded fault log, by fault type.", []string{"fault"}, nil)
	modeDesc = prometheus.NewDesc(
		"ffbengine_mode", "Always 1, labelled with the FFB mode selected at construction.", []string{"mode"}, nil)
)

// safetyStateKinds and faultTypes enumerate every label value emitted
// for safetyStateDesc/faultsLoggedDesc so a state or fault type with a
// zero count still appears as an explicit 0 series rather than being
// silently absent.
var safetyStateKinds = []safety.Kind{
	safety.KindNormal, safety.KindWarning, safety.KindSafeMode, safety.KindEmergencyStop, safety.KindFaulted,
}

var faultTypes = []safety.FaultType{
	safety.FaultNone, safety.FaultUsbStall, safety.FaultEncoderNaN, safety.FaultThermalLimit,
	safety.FaultOvercurrent, safety.FaultPluginOverrun, safety.FaultTimingViolation,
	safety.FaultSafetyInterlockViolation, safety.FaultHandsOffTimeout, safety.FaultPipelineFault,
}

// Exporter implements prometheus.Collector over a StatsProvider,
// reading a fresh snapshot on every Collect call rather than
// maintaining its own internal counters (spec.md §3's copy-on-read
// rule applies all the way out to the metrics boundary).
type Exporter struct {
	provider StatsProvider
}

// NewExporter constructs an Exporter. Register it with
// prometheus.Register or into a dedicated prometheus.Registry; this
// package does not own a registry itself.
func NewExporter(provider StatsProvider) *Exporter {
	return &Exporter{provider: provider}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- droppedFramesDesc
	ch <- jitterMaxDesc
	ch <- jitterP50Desc
	ch <- jitterP99Desc
	ch <- missedTicksDesc
	ch <- sampleCountDesc
	ch <- violationsDesc
	ch <- safetyStateDesc
	ch <- faultsLoggedDesc
	ch <- modeDesc
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	stats := e.provider.GetStats()

	ch <- prometheus.MustNewConstMetric(droppedFramesDesc, prometheus.CounterValue, float64(stats.DroppedFrames))
	ch <- prometheus.MustNewConstMetric(jitterMaxDesc, prometheus.GaugeValue, float64(stats.Jitter.MaxNs))
	ch <- prometheus.MustNewConstMetric(jitterP50Desc, prometheus.GaugeValue, float64(stats.Jitter.P50Ns))
	ch <- prometheus.MustNewConstMetric(jitterP99Desc, prometheus.GaugeValue, float64(stats.Jitter.P99Ns))
	ch <- prometheus.MustNewConstMetric(missedTicksDesc, prometheus.CounterValue, float64(stats.Jitter.MissedTicks))
	ch <- prometheus.MustNewConstMetric(sampleCountDesc, prometheus.CounterValue, float64(stats.Jitter.SampleCount))
	ch <- prometheus.MustNewConstMetric(violationsDesc, prometheus.CounterValue, float64(stats.Violations))

	for _, kind := range safetyStateKinds {
		v := 0.0
		if stats.SafetyState.Kind == kind {
			v = 1
		}
		ch <- prometheus.MustNewConstMetric(safetyStateDesc, prometheus.GaugeValue, v, kind.String())
	}

	ch <- prometheus.MustNewConstMetric(modeDesc, prometheus.GaugeValue, 1, stats.Mode)

	e.collectFaultsByType(ch)
}

func (e *Exporter) collectFaultsByType(ch chan<- prometheus.Metric) {
	counts := make(map[safety.FaultType]uint64, len(faultTypes))
	for _, entry := range e.provider.FaultLog().Entries() {
		counts[entry.Fault]++
	}
	for _, ft := range faultTypes {
		ch <- prometheus.MustNewConstMetric(faultsLoggedDesc, prometheus.CounterValue, float64(counts[ft]), ft.String())
	}
}
