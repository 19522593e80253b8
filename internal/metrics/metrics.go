// Package metrics exposes batch counters in Prometheus form. A nil *Metrics
// is valid and discards every observation.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "movement_tracker"

type Metrics struct {
	registry *prometheus.Registry

	Documents     *prometheus.CounterVec
	Blocks        *prometheus.CounterVec
	Events        *prometheus.CounterVec
	ParseFailures prometheus.Counter
	DedupRemoved  prometheus.Counter
	CrossMatched  prometheus.Counter
	GroundTruth   *prometheus.CounterVec
	Lookups       *prometheus.CounterVec
	SinkPushes    *prometheus.CounterVec
}

// New creates the counters and registers them on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		Documents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "documents_total",
			Help: "Documents fetched, by source and outcome.",
		}, []string{"source", "result"}),
		Blocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "blocks_total",
			Help: "Text blocks seen by the classifier, by verdict.",
		}, []string{"verdict"}),
		Events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "events_detected_total",
			Help: "Events built from acts, by type and confidence tag.",
		}, []string{"type", "confidence"}),
		ParseFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "date_parse_failures_total",
			Help: "Acts dropped because no calendar date could be established.",
		}),
		DedupRemoved: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "dedup_removed_total",
			Help: "Events removed as republications.",
		}),
		CrossMatched: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "crossmatch_matched_total",
			Help: "Exits whose destination was inferred from an entry.",
		}),
		GroundTruth: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "ground_truth_records_total",
			Help: "Reference records applied, by action.",
		}, []string{"action"}),
		Lookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "lookups_total",
			Help: "Gazette lookups, by kind and result.",
		}, []string{"kind", "result"}),
		SinkPushes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "sink_pushes_total",
			Help: "Sink pushes, by sink and result.",
		}, []string{"sink", "result"}),
	}
	m.registry.MustRegister(
		m.Documents, m.Blocks, m.Events, m.ParseFailures, m.DedupRemoved,
		m.CrossMatched, m.GroundTruth, m.Lookups, m.SinkPushes,
	)
	return m
}

// Registry returns the registry holding the counters.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) ObserveDocuments(source, result string, n int) {
	if m == nil {
		return
	}
	m.Documents.WithLabelValues(source, result).Add(float64(n))
}

func (m *Metrics) ObserveBlock(verdict string) {
	if m == nil {
		return
	}
	m.Blocks.WithLabelValues(verdict).Inc()
}

func (m *Metrics) ObserveEvent(typ, confidence string) {
	if m == nil {
		return
	}
	m.Events.WithLabelValues(typ, confidence).Inc()
}

func (m *Metrics) ObserveParseFailure() {
	if m == nil {
		return
	}
	m.ParseFailures.Inc()
}

func (m *Metrics) ObserveDedup(removed int) {
	if m == nil {
		return
	}
	m.DedupRemoved.Add(float64(removed))
}

func (m *Metrics) ObserveCrossMatch(matched int) {
	if m == nil {
		return
	}
	m.CrossMatched.Add(float64(matched))
}

func (m *Metrics) ObserveGroundTruth(action string, n int) {
	if m == nil {
		return
	}
	m.GroundTruth.WithLabelValues(action).Add(float64(n))
}

func (m *Metrics) ObserveLookup(kind, result string) {
	if m == nil {
		return
	}
	m.Lookups.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveSinkPush(sink, result string) {
	if m == nil {
		return
	}
	m.SinkPushes.WithLabelValues(sink, result).Inc()
}

// WriteTextfile dumps all counters in the text exposition format, for the
// node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
