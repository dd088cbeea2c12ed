package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hig-dev/nimbus/pkg/shareddict"
)

func TestCollectorsUsePrivateRegistries(t *testing.T) {
	// Two collectors with the same namespace must not collide.
	a := NewCollector("nimbus")
	b := NewCollector("nimbus")
	assert.NotSame(t, a.Registry(), b.Registry())
}

func TestObservePass(t *testing.T) {
	collector := NewCollector("nimbus")

	stats := &shareddict.Stats{
		TotalBytesSaved:       128,
		TotalPreviousBytes:    1024,
		ModifiedPreviousBytes: 512,
		NumMergedDictionaries: 4,
		NumSharedDictionaries: 2,
	}
	collector.ObservePass(stats)
	collector.ObservePass(stats)

	families, err := collector.Gather()
	require.NoError(t, err)

	values := make(map[string]float64)
	for _, family := range families {
		metric := family.GetMetric()[0]
		if metric.GetCounter() != nil {
			values[family.GetName()] = metric.GetCounter().GetValue()
		} else if metric.GetGauge() != nil {
			values[family.GetName()] = metric.GetGauge().GetValue()
		}
	}

	assert.Equal(t, 2.0, values["nimbus_compaction_passes_total"])
	assert.Equal(t, 256.0, values["nimbus_compaction_bytes_saved_total"], "counters accumulate")
	assert.Equal(t, 1024.0, values["nimbus_compaction_previous_bytes"], "gauges hold the last pass")
}
