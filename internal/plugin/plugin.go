// Package plugin hosts the shared-dictionary compaction pass behind the
// module lifecycle the host expects: Description, Start, Stop. Start runs
// one bounded pass over every table, column by column, in a fully
// determined order.
package plugin

import (
	"math"
	"os"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/hig-dev/nimbus/pkg/config"
	"github.com/hig-dev/nimbus/pkg/logger"
	"github.com/hig-dev/nimbus/pkg/metrics"
	"github.com/hig-dev/nimbus/pkg/shareddict"
	"github.com/hig-dev/nimbus/pkg/storage"
)

// SharedDictionariesPlugin saves memory by merging similar dictionaries
// within each column into shared dictionaries. Dictionaries are compared
// with the Jaccard index; a merge happens only when the index reaches the
// configured threshold and no participating attribute vector would widen.
type SharedDictionariesPlugin struct {
	manager   *storage.Manager
	log       *zap.Logger
	collector *metrics.Collector

	explicitThreshold *float64
	threshold         float64

	stats shareddict.Stats
}

// Option configures the plugin.
type Option func(*SharedDictionariesPlugin)

// WithThreshold fixes the Jaccard-index threshold, taking precedence over
// the environment variable and the default.
func WithThreshold(threshold float64) Option {
	return func(p *SharedDictionariesPlugin) {
		v := threshold
		p.explicitThreshold = &v
	}
}

// WithLogger replaces the global logger.
func WithLogger(log *zap.Logger) Option {
	return func(p *SharedDictionariesPlugin) {
		p.log = log
	}
}

// WithCollector attaches a metrics collector.
func WithCollector(collector *metrics.Collector) Option {
	return func(p *SharedDictionariesPlugin) {
		p.collector = collector
	}
}

// New creates the plugin around a storage manager.
func New(manager *storage.Manager, opts ...Option) *SharedDictionariesPlugin {
	p := &SharedDictionariesPlugin{manager: manager}
	for _, opt := range opts {
		opt(p)
	}
	if p.log == nil {
		p.log = logger.Get()
	}
	return p
}

// Description returns the human-readable plugin name.
func (p *SharedDictionariesPlugin) Description() string {
	return "Shared dictionaries plugin"
}

// Stats returns the counters of the last completed pass.
func (p *SharedDictionariesPlugin) Stats() shareddict.Stats {
	return p.stats
}

// Threshold returns the threshold resolved by the last Start.
func (p *SharedDictionariesPlugin) Threshold() float64 {
	return p.threshold
}

// Start runs the pass once, end-to-end. State from earlier passes is
// discarded.
func (p *SharedDictionariesPlugin) Start() error {
	p.stats.Reset()

	threshold, err := config.ResolveJaccardThreshold(p.explicitThreshold)
	if err != nil {
		p.log.Warn("falling back to default jaccard-index threshold", zap.Error(err))
	}
	p.threshold = threshold
	p.log.Debug("plugin configuration", zap.Float64("jaccard_index_threshold", threshold))

	rssBefore := processRSS()
	p.processEveryColumn()
	p.logProcessingResult(rssBefore)

	if p.collector != nil {
		p.collector.ObservePass(&p.stats)
	}
	return nil
}

// Stop releases nothing; the pass retains no state between runs.
func (p *SharedDictionariesPlugin) Stop() error {
	return nil
}

// processEveryColumn walks tables sorted by name, columns in definition
// order, and dispatches each column to the typed processor.
func (p *SharedDictionariesPlugin) processEveryColumn() {
	p.log.Info("starting creation of shared dictionaries")

	for _, tableName := range p.manager.TableNames() {
		table, err := p.manager.Table(tableName)
		if err != nil {
			// The table set is stable during a pass; a vanished name is a bug.
			p.log.Error("table disappeared during pass", zap.String("table", tableName), zap.Error(err))
			continue
		}
		p.log.Debug("creating shared dictionaries for table", zap.String("table", tableName))

		for columnID, definition := range table.Definitions() {
			p.log.Debug("creating shared dictionaries for column",
				zap.String("table", tableName),
				zap.String("column", definition.Name))
			p.processColumn(table, tableName, storage.ColumnID(columnID), definition)
		}
	}

	p.log.Info("completed creation of shared dictionaries")
}

// processColumn resolves the column data type to a typed processor run.
func (p *SharedDictionariesPlugin) processColumn(table *storage.Table, tableName string, columnID storage.ColumnID, definition storage.ColumnDefinition) {
	switch definition.Type {
	case storage.TypeInt32:
		runColumn[int32](p, table, tableName, columnID, definition.Name)
	case storage.TypeInt64:
		runColumn[int64](p, table, tableName, columnID, definition.Name)
	case storage.TypeFloat32:
		runColumn[float32](p, table, tableName, columnID, definition.Name)
	case storage.TypeFloat64:
		runColumn[float64](p, table, tableName, columnID, definition.Name)
	case storage.TypeString:
		runColumn[string](p, table, tableName, columnID, definition.Name)
	default:
		p.log.Warn("column has unsupported data type, skipping",
			zap.String("table", tableName),
			zap.String("column", definition.Name),
			zap.String("type", string(definition.Type)))
	}
}

func runColumn[T storage.Value](p *SharedDictionariesPlugin, table *storage.Table, tableName string, columnID storage.ColumnID, columnName string) {
	processor := shareddict.NewColumnProcessor[T](
		table, tableName, columnID, columnName, p.threshold, &p.stats, p.log)
	processor.Process()
}

// logProcessingResult emits the end-of-pass summary.
func (p *SharedDictionariesPlugin) logProcessingResult(rssBefore uint64) {
	totalSavePercentage := 0.0
	if p.stats.TotalPreviousBytes > 0 {
		totalSavePercentage = float64(p.stats.TotalBytesSaved) / float64(p.stats.TotalPreviousBytes) * 100
	}
	modifiedSavePercentage := 0.0
	if p.stats.ModifiedPreviousBytes > 0 {
		modifiedSavePercentage = float64(p.stats.TotalBytesSaved) / float64(p.stats.ModifiedPreviousBytes) * 100
	}

	fields := []zap.Field{
		zap.Uint32("merged_dictionaries", p.stats.NumMergedDictionaries),
		zap.Uint32("shared_dictionaries", p.stats.NumSharedDictionaries),
		zap.Uint32("existing_shared_dictionaries", p.stats.NumExistingSharedDictionaries),
		zap.Uint32("existing_merged_dictionaries", p.stats.NumExistingMergedDictionaries),
		zap.Uint64("bytes_saved", p.stats.TotalBytesSaved),
		zap.Float64("modified_save_percent", math.Ceil(modifiedSavePercentage)),
		zap.Float64("total_save_percent", math.Ceil(totalSavePercentage)),
	}

	if rssAfter := processRSS(); rssAfter > 0 && rssBefore > 0 {
		fields = append(fields,
			zap.Uint64("rss_before", rssBefore),
			zap.Uint64("rss_after", rssAfter))
	}

	p.log.Info("pass summary", fields...)
}

// processRSS reports the resident set size of this process, or 0 when the
// platform does not expose it.
func processRSS() uint64 {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0
	}
	info, err := proc.MemoryInfo()
	if err != nil || info == nil {
		return 0
	}
	return info.RSS
}
