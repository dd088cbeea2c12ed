package shareddict

import (
	"go.uber.org/zap"

	"github.com/hig-dev/nimbus/pkg/errors"
	"github.com/hig-dev/nimbus/pkg/logger"
	"github.com/hig-dev/nimbus/pkg/pool"
	"github.com/hig-dev/nimbus/pkg/storage"
)

// ColumnProcessor finds and merges similar dictionaries within one column
// of a table. Every dictionary segment is compared against all existing
// merge plans; the plan with the best Jaccard index that passes the
// admissibility check absorbs it. If no plan qualifies, the segment is
// compared pairwise with its immediate unmerged predecessor, possibly
// founding a new plan. Plans are then executed: each member segment gets a
// new attribute vector against the plan's shared dictionary and is swapped
// into its chunk atomically.
type ColumnProcessor[T storage.Value] struct {
	table      *storage.Table
	tableName  string
	columnID   storage.ColumnID
	columnName string
	threshold  float64
	stats      *Stats
	log        *zap.Logger
}

// segmentChunkPair is the predecessor cache entry.
type segmentChunkPair[T storage.Value] struct {
	segment *storage.DictionarySegment[T]
	chunk   *storage.Chunk
}

// NewColumnProcessor creates a processor for one column.
func NewColumnProcessor[T storage.Value](
	table *storage.Table,
	tableName string,
	columnID storage.ColumnID,
	columnName string,
	threshold float64,
	stats *Stats,
	log *zap.Logger,
) *ColumnProcessor[T] {
	if log == nil {
		log = logger.ForColumn(tableName, columnName)
	} else {
		log = log.With(zap.String("table", tableName), zap.String("column", columnName))
	}
	return &ColumnProcessor[T]{
		table:      table,
		tableName:  tableName,
		columnID:   columnID,
		columnName: columnName,
		threshold:  threshold,
		stats:      stats,
		log:        log,
	}
}

// Process runs grouping and rewrite for the column. Skippable conditions
// (unencoded segments, deleted chunks) are logged and passed over;
// executor-level invariant violations panic, since a failed rewrite
// indicates programmer error or storage corruption.
func (p *ColumnProcessor[T]) Process() {
	plans := p.initializeMergePlans()

	var previous *segmentChunkPair[T]

	chunkCount := p.table.ChunkCount()
	for id := 0; id < chunkCount; id++ {
		chunk := p.table.Chunk(storage.ChunkID(id))
		if chunk == nil {
			p.log.Debug("chunk was deleted, skipping", zap.Int("chunk", id))
			continue
		}
		segment := chunk.Segment(p.columnID)
		p.stats.TotalPreviousBytes += uint64(segment.MemoryUsage())

		dictionarySegment, ok := segment.(*storage.DictionarySegment[T])
		if !ok {
			p.log.Debug("segment is not dictionary encoded, skipping",
				zap.Int("chunk", id))
			continue
		}
		if dictionarySegment.UsesSharedDictionary() {
			// Captured by a seeded plan already.
			continue
		}

		current := dictionarySegment.Dictionary()
		merged := false

		if index, union := p.bestExistingPlan(current, plans); index >= 0 {
			plan := plans[index]
			plan.SharedDictionary = union
			plan.AddMember(dictionarySegment, chunk, false)
			merged = true
		} else if previous != nil {
			if union := p.unionWithPrevious(current, previous); union != nil {
				plan := NewMergePlan(union)
				plan.AddMember(dictionarySegment, chunk, false)
				plan.AddMember(previous.segment, previous.chunk, false)
				plans = append(plans, plan)
				merged = true
			}
		}

		// Keep the unmerged segment around for a possible pairwise merge
		// with its successor.
		if merged {
			previous = nil
		} else {
			previous = &segmentChunkPair[T]{segment: dictionarySegment, chunk: chunk}
		}
	}

	p.executeMergePlans(plans)
}

// initializeMergePlans seeds one plan per distinct shared dictionary
// already present in the column, in chunk order. Seeded plans can absorb
// further segments during the scan.
func (p *ColumnProcessor[T]) initializeMergePlans() []*MergePlan[T] {
	var plans []*MergePlan[T]
	byDictionary := make(map[*storage.Dictionary[T]]*MergePlan[T])

	chunkCount := p.table.ChunkCount()
	for id := 0; id < chunkCount; id++ {
		chunk := p.table.Chunk(storage.ChunkID(id))
		if chunk == nil {
			continue
		}
		dictionarySegment, ok := chunk.Segment(p.columnID).(*storage.DictionarySegment[T])
		if !ok || !dictionarySegment.UsesSharedDictionary() {
			continue
		}

		p.stats.NumExistingMergedDictionaries++
		dictionary := dictionarySegment.Dictionary()
		plan, exists := byDictionary[dictionary]
		if !exists {
			plan = NewMergePlan(dictionary)
			byDictionary[dictionary] = plan
			plans = append(plans, plan)
		}
		plan.AddMember(dictionarySegment, chunk, true)
	}

	p.stats.NumExistingSharedDictionaries += uint32(len(plans))
	return plans
}

// bestExistingPlan returns the index of the admissible plan with the
// highest Jaccard index against current, and the union dictionary that
// merging would produce. The strictly-greater comparison makes ties
// resolve to the earliest plan. Returns -1 when no plan is admissible.
func (p *ColumnProcessor[T]) bestExistingPlan(current *storage.Dictionary[T], plans []*MergePlan[T]) (int, *storage.Dictionary[T]) {
	bestIndex := -1
	bestJaccard := -1.0
	var bestUnion *storage.Dictionary[T]

	for index, plan := range plans {
		shared := plan.SharedDictionary
		union := UnionSorted(current.Values(), shared.Values())
		unionSize := len(union)
		intersectionSize := current.Size() + shared.Size() - unionSize
		jaccardIndex := Jaccard(unionSize, intersectionSize)

		if jaccardIndex <= bestJaccard {
			continue
		}
		if !ShouldMerge(p.threshold, jaccardIndex, unionSize, plan.MemberDictionarySizes(current.Size())) {
			continue
		}

		bestIndex = index
		bestJaccard = jaccardIndex
		if unionSize == shared.Size() {
			// The union added nothing; keep the existing dictionary object
			// so segments already referencing it stay shared.
			bestUnion = shared
		} else {
			bestUnion = storage.NewDictionaryFromSorted(union)
		}
	}

	return bestIndex, bestUnion
}

// unionWithPrevious returns the union dictionary for a pairwise merge with
// the predecessor, or nil when the pair is not admissible.
func (p *ColumnProcessor[T]) unionWithPrevious(current *storage.Dictionary[T], previous *segmentChunkPair[T]) *storage.Dictionary[T] {
	previousDictionary := previous.segment.Dictionary()
	union := UnionSorted(current.Values(), previousDictionary.Values())
	unionSize := len(union)
	intersectionSize := current.Size() + previousDictionary.Size() - unionSize
	jaccardIndex := Jaccard(unionSize, intersectionSize)

	if !ShouldMerge(p.threshold, jaccardIndex, unionSize, []int{current.Size(), previousDictionary.Size()}) {
		return nil
	}
	return storage.NewDictionaryFromSorted(union)
}

// executeMergePlans installs every plan holding at least one newly
// captured segment. Members already referencing the plan's dictionary
// object are left untouched.
func (p *ColumnProcessor[T]) executeMergePlans(plans []*MergePlan[T]) {
	for _, plan := range plans {
		if !plan.ContainsNonMergedSegment {
			continue
		}
		if len(plan.Members) < 2 {
			panic(errors.Newf(errors.ErrorTypeInternal,
				"merge plan for %s.%s holds %d segment(s), need at least 2",
				p.tableName, p.columnName, len(plan.Members)))
		}

		newDictionaryBytes := uint64(plan.SharedDictionary.ByteSize())
		previousDictionaryBytes := plan.NonMergedDictionaryBytes
		if plan.ContainsAlreadyMergedSegment {
			previousDictionaryBytes += newDictionaryBytes
		}

		p.stats.ModifiedPreviousBytes += plan.NonMergedTotalBytes
		p.stats.NumSharedDictionaries++

		for _, member := range plan.Members {
			p.stats.NumMergedDictionaries++
			if member.Segment.Dictionary() == plan.SharedDictionary {
				continue
			}

			attributeVector := p.newAttributeVector(member.Segment, plan.SharedDictionary)
			newSegment := storage.NewDictionarySegment(plan.SharedDictionary, attributeVector, true)
			if err := member.Chunk.ReplaceSegment(p.columnID, newSegment); err != nil {
				panic(errors.Wrap(err, errors.ErrorTypeInternal, "segment replacement failed"))
			}
		}

		if newDictionaryBytes > previousDictionaryBytes {
			panic(errors.Newf(errors.ErrorTypeInternal,
				"shared dictionary for %s.%s grew from %d to %d bytes",
				p.tableName, p.columnName, previousDictionaryBytes, newDictionaryBytes))
		}
		bytesSaved := previousDictionaryBytes - newDictionaryBytes
		p.stats.TotalBytesSaved += bytesSaved

		p.log.Debug("merged dictionaries",
			zap.Int("segments", len(plan.Members)),
			zap.Uint64("bytes_saved", bytesSaved))
	}
}

// newAttributeVector rebuilds a segment's value IDs against the shared
// dictionary. Every non-NULL value must be present in the shared
// dictionary; a miss is an invariant violation.
func (p *ColumnProcessor[T]) newAttributeVector(segment *storage.DictionarySegment[T], shared *storage.Dictionary[T]) storage.AttributeVector {
	rows := segment.Size()
	sentinel := uint32(shared.Size())

	buffer := pool.GetValueIDBuffer(rows)
	defer pool.PutValueIDBuffer(buffer)
	ids := *buffer

	for row := 0; row < rows; row++ {
		value, ok := segment.GetTypedValue(row)
		if !ok {
			ids[row] = sentinel
			continue
		}
		index, found := shared.Index(value)
		if !found {
			panic(errors.Newf(errors.ErrorTypeInternal,
				"shared dictionary for %s.%s does not contain segment value",
				p.tableName, p.columnName))
		}
		ids[row] = uint32(index)
	}

	return storage.CompressVector(ids, sentinel)
}
