package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hig-dev/nimbus/pkg/compression"
)

func snapshotFixture(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable([]ColumnDefinition{
		{Name: "id", Type: TypeInt64},
		{Name: "score", Type: TypeFloat64},
		{Name: "label", Type: TypeString},
	})
	require.NoError(t, err)

	chunk, err := NewChunk([]Segment{
		EncodeValues([]int64{1, 2, 3}, nil),
		EncodeValues([]float64{0.5, 0, 1.5}, []bool{false, true, false}),
		EncodeValues([]string{"red", "green", "red"}, nil),
	})
	require.NoError(t, err)
	require.NoError(t, table.AppendChunk(chunk))

	chunk, err = NewChunk([]Segment{
		EncodeValues([]int64{4, 5}, nil),
		EncodeValues([]float64{2.5, 3.5}, nil),
		EncodeValues([]string{"", "blue"}, []bool{true, false}),
	})
	require.NoError(t, err)
	require.NoError(t, table.AppendChunk(chunk))

	return table
}

func assertTablesEqual(t *testing.T, want, got *Table) {
	t.Helper()
	require.Equal(t, want.Definitions(), got.Definitions())
	require.Equal(t, want.ChunkCount(), got.ChunkCount())

	for id := 0; id < want.ChunkCount(); id++ {
		wantChunk, gotChunk := want.Chunk(ChunkID(id)), got.Chunk(ChunkID(id))
		require.Equal(t, wantChunk.RowCount(), gotChunk.RowCount())

		for col, def := range want.Definitions() {
			switch def.Type {
			case TypeInt64:
				assertColumnEqual[int64](t, wantChunk.Segment(ColumnID(col)), gotChunk.Segment(ColumnID(col)))
			case TypeFloat64:
				assertColumnEqual[float64](t, wantChunk.Segment(ColumnID(col)), gotChunk.Segment(ColumnID(col)))
			case TypeString:
				assertColumnEqual[string](t, wantChunk.Segment(ColumnID(col)), gotChunk.Segment(ColumnID(col)))
			default:
				t.Fatalf("unexpected column type %s", def.Type)
			}
		}
	}
}

func assertColumnEqual[T Value](t *testing.T, want, got Segment) {
	t.Helper()
	wantValues, wantNulls, err := MaterializeColumn[T](want)
	require.NoError(t, err)
	gotValues, gotNulls, err := MaterializeColumn[T](got)
	require.NoError(t, err)
	assert.Equal(t, wantValues, gotValues)
	assert.Equal(t, wantNulls, gotNulls)
}

func TestSnapshotRoundTrip(t *testing.T) {
	for _, algorithm := range []compression.Algorithm{compression.None, compression.LZ4, compression.Zstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			table := snapshotFixture(t)
			path := filepath.Join(t.TempDir(), "table.nim")

			require.NoError(t, WriteSnapshot(table, path, algorithm))

			restored, err := ReadSnapshot(path)
			require.NoError(t, err)
			assertTablesEqual(t, table, restored)
		})
	}
}

func TestSnapshotSkipsDeletedChunks(t *testing.T) {
	table := snapshotFixture(t)
	require.NoError(t, table.DeleteChunk(0))

	path := filepath.Join(t.TempDir(), "table.nim")
	require.NoError(t, WriteSnapshot(table, path, compression.LZ4))

	restored, err := ReadSnapshot(path)
	require.NoError(t, err)
	assert.Equal(t, 1, restored.ChunkCount())
	assert.Equal(t, 2, restored.RowCount())
}

func TestReadSnapshotRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.nim")
	require.NoError(t, os.WriteFile(path, []byte("not a snapshot at all"), 0o600))

	_, err := ReadSnapshot(path)
	assert.Error(t, err)
}
