// Package metrics provides Prometheus observability for the Nimbus
// compaction pass. Collectors register against a private registry so
// repeated passes and parallel tests never collide on metric names.
//
// Example:
//
//	collector := metrics.NewCollector("nimbus")
//	collector.ObservePass(stats)
//	families, _ := collector.Gather()
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	dto "github.com/prometheus/client_model/go"

	"github.com/hig-dev/nimbus/pkg/shareddict"
)

// Collector records compaction pass outcomes as Prometheus metrics.
type Collector struct {
	registry *prometheus.Registry

	passes             prometheus.Counter
	bytesSaved         prometheus.Counter
	mergedDictionaries prometheus.Counter
	sharedDictionaries prometheus.Counter
	previousBytes      prometheus.Gauge
	modifiedBytes      prometheus.Gauge
	existingShared     prometheus.Gauge
	existingMerged     prometheus.Gauge
}

// NewCollector creates a collector with its own registry.
// The namespace prefixes every metric name.
func NewCollector(namespace string) *Collector {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	return &Collector{
		registry: registry,
		passes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_passes_total",
			Help:      "Completed shared-dictionary compaction passes.",
		}),
		bytesSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_bytes_saved_total",
			Help:      "Dictionary bytes released by compaction passes.",
		}),
		mergedDictionaries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_merged_dictionaries_total",
			Help:      "Member segments of the merge plans executed by compaction passes.",
		}),
		sharedDictionaries: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "compaction_shared_dictionaries_total",
			Help:      "Shared dictionaries produced by compaction passes.",
		}),
		previousBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compaction_previous_bytes",
			Help:      "Segment bytes scanned by the last pass.",
		}),
		modifiedBytes: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compaction_modified_previous_bytes",
			Help:      "Pre-pass bytes of the newly merged segments of the last pass.",
		}),
		existingShared: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compaction_existing_shared_dictionaries",
			Help:      "Pre-existing shared dictionaries seen by the last pass.",
		}),
		existingMerged: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "compaction_existing_merged_dictionaries",
			Help:      "Segments already sharing a dictionary before the last pass.",
		}),
	}
}

// ObservePass records the outcome of one completed pass.
func (c *Collector) ObservePass(stats *shareddict.Stats) {
	c.passes.Inc()
	c.bytesSaved.Add(float64(stats.TotalBytesSaved))
	c.mergedDictionaries.Add(float64(stats.NumMergedDictionaries))
	c.sharedDictionaries.Add(float64(stats.NumSharedDictionaries))
	c.previousBytes.Set(float64(stats.TotalPreviousBytes))
	c.modifiedBytes.Set(float64(stats.ModifiedPreviousBytes))
	c.existingShared.Set(float64(stats.NumExistingSharedDictionaries))
	c.existingMerged.Set(float64(stats.NumExistingMergedDictionaries))
}

// Registry exposes the private registry for HTTP exposition.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Gather collects the current metric families.
func (c *Collector) Gather() ([]*dto.MetricFamily, error) {
	return c.registry.Gather()
}
