package shareddict

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/hig-dev/nimbus/pkg/storage"
)

// newColumn builds a single-column table with one dictionary-encoded chunk
// per entry of chunks. Each chunk holds exactly the given values as rows,
// so its dictionary is their sorted distinct set.
func newColumn[T storage.Value](t *testing.T, chunks [][]T) *storage.Table {
	t.Helper()
	require.NotEmpty(t, chunks)

	first := storage.EncodeValues(chunks[0], nil)
	table, err := storage.NewTable([]storage.ColumnDefinition{{Name: "c", Type: first.DataType()}})
	require.NoError(t, err)

	for _, values := range chunks {
		chunk, err := storage.NewChunk([]storage.Segment{storage.EncodeValues(values, nil)})
		require.NoError(t, err)
		require.NoError(t, table.AppendChunk(chunk))
	}
	return table
}

func runPass[T storage.Value](t *testing.T, table *storage.Table, threshold float64) Stats {
	t.Helper()
	var stats Stats
	NewColumnProcessor[T](table, "t", 0, "c", threshold, &stats, zaptest.NewLogger(t)).Process()
	return stats
}

func segmentAt[T storage.Value](t *testing.T, table *storage.Table, chunk int) *storage.DictionarySegment[T] {
	t.Helper()
	seg, ok := table.Chunk(storage.ChunkID(chunk)).Segment(0).(*storage.DictionarySegment[T])
	require.True(t, ok, "chunk %d is not dictionary encoded", chunk)
	return seg
}

func dictionaryAt[T storage.Value](t *testing.T, table *storage.Table, chunk int) []T {
	t.Helper()
	return segmentAt[T](t, table, chunk).Dictionary().Values()
}

// decodeColumn materializes every live chunk of column 0.
func decodeColumn[T storage.Value](t *testing.T, table *storage.Table) ([][]T, [][]bool) {
	t.Helper()
	var values [][]T
	var nulls [][]bool
	for id := 0; id < table.ChunkCount(); id++ {
		chunk := table.Chunk(storage.ChunkID(id))
		if chunk == nil {
			continue
		}
		v, n, err := storage.MaterializeColumn[T](chunk.Segment(0))
		require.NoError(t, err)
		values = append(values, v)
		nulls = append(nulls, n)
	}
	return values, nulls
}

func seq(start, n int64) []int64 {
	values := make([]int64, n)
	for i := range values {
		values[i] = start + int64(i)
	}
	return values
}

func TestIdenticalNeighboursMerge(t *testing.T) {
	table := newColumn(t, [][]string{
		{"a", "b", "c"},
		{"a", "b", "c"},
		{"x", "y", "z"},
	})

	stats := runPass[string](t, table, 0.5)

	assert.Equal(t, uint32(2), stats.NumMergedDictionaries)
	assert.Equal(t, uint32(1), stats.NumSharedDictionaries)

	first := segmentAt[string](t, table, 0)
	second := segmentAt[string](t, table, 1)
	third := segmentAt[string](t, table, 2)

	assert.Equal(t, []string{"a", "b", "c"}, first.Dictionary().Values())
	assert.Same(t, first.Dictionary(), second.Dictionary(), "merged segments share one dictionary object")
	assert.True(t, first.UsesSharedDictionary())
	assert.True(t, second.UsesSharedDictionary())

	assert.Equal(t, []string{"x", "y", "z"}, third.Dictionary().Values())
	assert.False(t, third.UsesSharedDictionary())

	// Two identical dictionaries collapsed into one.
	expectedSaved := uint64(storage.NewDictionary([]string{"a", "b", "c"}).ByteSize())
	assert.Equal(t, expectedSaved, stats.TotalBytesSaved)
}

func TestLowSimilarityNeverMerges(t *testing.T) {
	table := newColumn(t, [][]int64{
		{1, 2, 3, 4},
		{3, 4, 5, 6},
		{5, 6, 7, 8},
	})

	// J of adjacent pairs is 2/6 ≈ 0.33, below the 0.5 threshold.
	stats := runPass[int64](t, table, 0.5)

	assert.Zero(t, stats.NumMergedDictionaries)
	assert.Zero(t, stats.NumSharedDictionaries)
	assert.Zero(t, stats.TotalBytesSaved)
	for id := 0; id < 3; id++ {
		assert.False(t, segmentAt[int64](t, table, id).UsesSharedDictionary())
	}
}

func TestLaterChunkGraftsOntoExistingPlan(t *testing.T) {
	table := newColumn(t, [][]int64{
		{1, 2, 3, 4},
		{1, 2, 3, 5},
		{1, 2, 3, 6},
	})

	// K0+K1: J = 3/5 = 0.6 founds a plan with [1,2,3,4,5]; K2 then joins
	// at J = 3/6 = 0.5 exactly.
	stats := runPass[int64](t, table, 0.5)

	assert.Equal(t, uint32(3), stats.NumMergedDictionaries)
	assert.Equal(t, uint32(1), stats.NumSharedDictionaries)

	want := []int64{1, 2, 3, 4, 5, 6}
	for id := 0; id < 3; id++ {
		assert.Equal(t, want, dictionaryAt[int64](t, table, id))
	}
	assert.Same(t, segmentAt[int64](t, table, 0).Dictionary(), segmentAt[int64](t, table, 2).Dictionary())
}

func TestWidthGrowthRejectsMerge(t *testing.T) {
	// Both dictionaries fit 8-bit IDs; their union of 260 values would not.
	table := newColumn(t, [][]int64{
		seq(0, 250),
		seq(10, 250),
	})

	stats := runPass[int64](t, table, 0.5)

	assert.Zero(t, stats.NumMergedDictionaries)
	assert.Zero(t, stats.NumSharedDictionaries)
	assert.Equal(t, 1, segmentAt[int64](t, table, 0).AttributeVector().WidthBytes())
	assert.Equal(t, 1, segmentAt[int64](t, table, 1).AttributeVector().WidthBytes())
}

func TestNonAdjacentTwinsDoNotMerge(t *testing.T) {
	table := newColumn(t, [][]string{
		{"a", "b", "c"},
		{"d", "e", "f"},
		{"a", "b", "c"},
	})

	// K0/K2 are identical but separated by the dissimilar K1, which
	// replaces K0 in the predecessor slot before K2 arrives.
	stats := runPass[string](t, table, 0.5)

	assert.Zero(t, stats.NumMergedDictionaries)
	assert.Zero(t, stats.NumSharedDictionaries)
}

// sharedColumn builds a table whose first chunks already share one
// dictionary, followed by freshly encoded chunks.
func sharedColumn(t *testing.T, shared []string, sharedChunks [][]string, fresh [][]string) *storage.Table {
	t.Helper()
	table, err := storage.NewTable([]storage.ColumnDefinition{{Name: "c", Type: storage.TypeString}})
	require.NoError(t, err)

	dict := storage.NewDictionary(shared)
	for _, rows := range sharedChunks {
		ids := make([]uint32, len(rows))
		for i, v := range rows {
			idx, found := dict.Index(v)
			require.True(t, found, "shared chunk value %q missing from dictionary", v)
			ids[i] = uint32(idx)
		}
		av := storage.CompressVector(ids, uint32(dict.Size()))
		chunk, err := storage.NewChunk([]storage.Segment{storage.NewDictionarySegment(dict, av, true)})
		require.NoError(t, err)
		require.NoError(t, table.AppendChunk(chunk))
	}

	for _, rows := range fresh {
		chunk, err := storage.NewChunk([]storage.Segment{storage.EncodeValues(rows, nil)})
		require.NoError(t, err)
		require.NoError(t, table.AppendChunk(chunk))
	}
	return table
}

func TestExistingSharedDictionaryAbsorbsNewChunk(t *testing.T) {
	table := sharedColumn(t,
		[]string{"a", "b", "c", "d"},
		[][]string{{"a", "b"}, {"c", "d"}},
		[][]string{{"a", "b", "c", "e"}},
	)

	stats := runPass[string](t, table, 0.5)

	assert.Equal(t, uint32(1), stats.NumExistingSharedDictionaries)
	assert.Equal(t, uint32(2), stats.NumExistingMergedDictionaries)
	assert.Equal(t, uint32(1), stats.NumSharedDictionaries)
	assert.Equal(t, uint32(3), stats.NumMergedDictionaries)

	want := []string{"a", "b", "c", "d", "e"}
	for id := 0; id < 3; id++ {
		seg := segmentAt[string](t, table, id)
		assert.Equal(t, want, seg.Dictionary().Values())
		assert.True(t, seg.UsesSharedDictionary())
	}
	assert.Same(t, segmentAt[string](t, table, 0).Dictionary(), segmentAt[string](t, table, 2).Dictionary())
}

func TestSubsetAbsorptionKeepsExistingSegments(t *testing.T) {
	table := sharedColumn(t,
		[]string{"a", "b", "c", "d"},
		[][]string{{"a", "b"}, {"c", "d"}},
		[][]string{{"a", "b"}},
	)

	sharedBefore := segmentAt[string](t, table, 0)
	stats := runPass[string](t, table, 0.5)

	// The union added nothing, so the pre-existing segments keep their
	// attribute vectors and the new chunk joins the same dictionary object.
	assert.Same(t, sharedBefore, segmentAt[string](t, table, 0))
	assert.Same(t, sharedBefore.Dictionary(), segmentAt[string](t, table, 2).Dictionary())
	assert.Equal(t, uint32(1), stats.NumSharedDictionaries)
}

func TestTieBreakPrefersEarliestPlan(t *testing.T) {
	// Two plans form during the scan: [a1,a2] (chunks 0,1) and [b1,b2]
	// (chunks 2,3). The final chunk has Jaccard 1/3 against both; the
	// earlier plan must win.
	table := newColumn(t, [][]string{
		{"a1", "a2"},
		{"a1", "a2"},
		{"b1", "b2"},
		{"b1", "b2"},
		{"a1", "b1"},
	})

	stats := runPass[string](t, table, 0.3)

	assert.Equal(t, uint32(2), stats.NumSharedDictionaries)
	assert.Equal(t, uint32(5), stats.NumMergedDictionaries)

	assert.Equal(t, []string{"a1", "a2", "b1"}, dictionaryAt[string](t, table, 4))
	assert.Same(t, segmentAt[string](t, table, 0).Dictionary(), segmentAt[string](t, table, 4).Dictionary())
	assert.Equal(t, []string{"b1", "b2"}, dictionaryAt[string](t, table, 2))
}

func TestValueSegmentsAreSkippedAndPreserved(t *testing.T) {
	table, err := storage.NewTable([]storage.ColumnDefinition{{Name: "c", Type: storage.TypeString}})
	require.NoError(t, err)

	chunks := []storage.Segment{
		storage.EncodeValues([]string{"a", "b", "c"}, nil),
		storage.NewValueSegment([]string{"p", "q", "r"}, nil),
		storage.EncodeValues([]string{"a", "b", "c"}, nil),
	}
	for _, seg := range chunks {
		chunk, err := storage.NewChunk([]storage.Segment{seg})
		require.NoError(t, err)
		require.NoError(t, table.AppendChunk(chunk))
	}

	stats := runPass[string](t, table, 0.5)

	// The unencoded chunk neither joins a plan nor clears the predecessor
	// slot, so the chunks flanking it still merge.
	assert.Equal(t, uint32(2), stats.NumMergedDictionaries)
	assert.Same(t, chunks[1], table.Chunk(1).Segment(0), "value segment must be preserved untouched")
	assert.Same(t, segmentAt[string](t, table, 0).Dictionary(), segmentAt[string](t, table, 2).Dictionary())
}

func TestDeletedChunksAreSkipped(t *testing.T) {
	table := newColumn(t, [][]string{
		{"a", "b"},
		{"x", "y"},
		{"a", "b"},
	})
	require.NoError(t, table.DeleteChunk(1))

	stats := runPass[string](t, table, 0.5)

	// With the dissimilar middle chunk gone, the twins are now adjacent.
	assert.Equal(t, uint32(2), stats.NumMergedDictionaries)
	assert.Equal(t, uint32(1), stats.NumSharedDictionaries)
}

func TestEmptyColumn(t *testing.T) {
	table, err := storage.NewTable([]storage.ColumnDefinition{{Name: "c", Type: storage.TypeString}})
	require.NoError(t, err)

	stats := runPass[string](t, table, 0.5)
	assert.Equal(t, Stats{}, stats)
}

func TestDecodeIdentitySurvivesRewrite(t *testing.T) {
	values := [][]string{
		{"ash", "birch", "cedar", "birch", "ash"},
		{"ash", "birch", "cedar", "douglas", "cedar"},
		{"ash", "birch", "elm", "elm", "ash"},
	}
	nullMasks := [][]bool{
		{false, true, false, false, false},
		{false, false, true, false, false},
		{true, false, false, false, false},
	}

	table, err := storage.NewTable([]storage.ColumnDefinition{{Name: "c", Type: storage.TypeString}})
	require.NoError(t, err)
	for i := range values {
		chunk, err := storage.NewChunk([]storage.Segment{storage.EncodeValues(values[i], nullMasks[i])})
		require.NoError(t, err)
		require.NoError(t, table.AppendChunk(chunk))
	}

	beforeValues, beforeNulls := decodeColumn[string](t, table)
	stats := runPass[string](t, table, 0.3)
	afterValues, afterNulls := decodeColumn[string](t, table)

	require.NotZero(t, stats.NumMergedDictionaries, "test input should trigger merges")
	assert.Equal(t, beforeValues, afterValues)
	assert.Equal(t, beforeNulls, afterNulls)
}

func TestWidthMonotonicity(t *testing.T) {
	table := newColumn(t, [][]int64{
		seq(0, 200),
		seq(0, 200),
		seq(100, 150),
		{1, 2, 3},
	})

	widthsBefore := make([]int, table.ChunkCount())
	for id := range widthsBefore {
		widthsBefore[id] = segmentAt[int64](t, table, id).AttributeVector().WidthBytes()
	}

	runPass[int64](t, table, 0.1)

	for id := range widthsBefore {
		after := segmentAt[int64](t, table, id).AttributeVector().WidthBytes()
		assert.LessOrEqual(t, after, widthsBefore[id], "chunk %d widened", id)
	}
}

func TestPassIsIdempotent(t *testing.T) {
	table := newColumn(t, [][]string{
		{"a", "b", "c"},
		{"a", "b", "d"},
		{"a", "b", "e"},
	})

	first := runPass[string](t, table, 0.3)
	require.NotZero(t, first.NumMergedDictionaries)
	require.NotZero(t, first.TotalBytesSaved)

	second := runPass[string](t, table, 0.3)
	assert.Zero(t, second.NumMergedDictionaries)
	assert.Zero(t, second.NumSharedDictionaries)
	assert.Zero(t, second.TotalBytesSaved)
	assert.Equal(t, first.NumSharedDictionaries, second.NumExistingSharedDictionaries)
	assert.Equal(t, first.NumMergedDictionaries, second.NumExistingMergedDictionaries)
}

func TestPassIsDeterministic(t *testing.T) {
	build := func() *storage.Table {
		return newColumn(t, [][]string{
			{"a", "b", "c"},
			{"a", "b", "d"},
			{"p", "q"},
			{"p", "q", "r"},
			{"a", "c", "d"},
		})
	}

	tableA, tableB := build(), build()
	statsA := runPass[string](t, tableA, 0.4)
	statsB := runPass[string](t, tableB, 0.4)

	assert.Equal(t, statsA, statsB)
	for id := 0; id < tableA.ChunkCount(); id++ {
		assert.Equal(t,
			dictionaryAt[string](t, tableA, id),
			dictionaryAt[string](t, tableB, id),
			"chunk %d dictionaries differ between runs", id)
	}
}

func TestDictionaryBytesNeverGrow(t *testing.T) {
	dictionaryBytes := func(table *storage.Table) int64 {
		seen := make(map[*storage.Dictionary[string]]bool)
		var total int64
		for id := 0; id < table.ChunkCount(); id++ {
			dict := segmentAt[string](t, table, id).Dictionary()
			if !seen[dict] {
				seen[dict] = true
				total += dict.ByteSize()
			}
		}
		return total
	}

	table := newColumn(t, [][]string{
		{"a", "b", "c"},
		{"a", "b", "d"},
		{"x", "y"},
		{"a", "c", "d"},
	})

	before := dictionaryBytes(table)
	stats := runPass[string](t, table, 0.3)
	after := dictionaryBytes(table)

	assert.LessOrEqual(t, after, before)
	assert.Equal(t, uint64(before-after), stats.TotalBytesSaved)
}
