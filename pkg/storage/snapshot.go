package storage

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"io"
	"math"
	"os"

	"github.com/goccy/go-json"

	"github.com/hig-dev/nimbus/pkg/compression"
	"github.com/hig-dev/nimbus/pkg/errors"
)

// Snapshot layout: magic, version, a JSON schema header, then one
// length-prefixed compressed block per (chunk, column) in chunk order.
// Blocks carry the decoded rows (NULL mask + values); segments are
// re-encoded on load, so a snapshot round-trips table contents, not the
// physical encoding.

var snapshotMagic = [4]byte{'N', 'I', 'M', 'B'}

const snapshotVersion = 1

type snapshotHeader struct {
	Columns []snapshotColumn `json:"columns"`
	Chunks  []int            `json:"chunks"` // row count per chunk
	Codec   string           `json:"codec"`
}

type snapshotColumn struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// WriteSnapshot persists a table to path using the given compression
// algorithm for the data blocks.
func WriteSnapshot(table *Table, path string, algorithm compression.Algorithm) error {
	comp, err := compression.NewCompressor(&compression.Config{
		Algorithm: algorithm,
		Level:     compression.Default,
	})
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "snapshot compressor")
	}

	f, err := os.Create(path) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "failed to create snapshot file")
	}
	defer f.Close()
	w := bufio.NewWriter(f)

	header := snapshotHeader{Codec: string(algorithm)}
	for _, def := range table.Definitions() {
		header.Columns = append(header.Columns, snapshotColumn{Name: def.Name, Type: string(def.Type)})
	}
	for id := 0; id < table.ChunkCount(); id++ {
		chunk := table.Chunk(ChunkID(id))
		if chunk == nil {
			continue
		}
		header.Chunks = append(header.Chunks, chunk.RowCount())
	}

	headerBytes, err := json.Marshal(header)
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeInternal, "snapshot header encode")
	}

	if _, err := w.Write(snapshotMagic[:]); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
	}
	if err := w.WriteByte(snapshotVersion); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
	}
	if err := binary.Write(w, binary.LittleEndian, uint32(len(headerBytes))); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
	}
	if _, err := w.Write(headerBytes); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
	}

	for id := 0; id < table.ChunkCount(); id++ {
		chunk := table.Chunk(ChunkID(id))
		if chunk == nil {
			continue
		}
		for col := range table.Definitions() {
			block, err := encodeSnapshotBlock(chunk.Segment(ColumnID(col)))
			if err != nil {
				return err
			}
			compressed, err := comp.Compress(block)
			if err != nil {
				return errors.Wrap(err, errors.ErrorTypeData, "snapshot block compress")
			}
			if err := binary.Write(w, binary.LittleEndian, uint32(len(compressed))); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
			}
			if _, err := w.Write(compressed); err != nil {
				return errors.Wrap(err, errors.ErrorTypeFile, "snapshot write")
			}
		}
	}

	return w.Flush()
}

// ReadSnapshot loads a table from a snapshot file. Columns are
// re-dictionary-encoded chunk by chunk.
func ReadSnapshot(path string) (*Table, error) {
	f, err := os.Open(path) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open snapshot file")
	}
	defer f.Close()
	r := bufio.NewReader(f)

	var magic [4]byte
	if _, err := io.ReadFull(r, magic[:]); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	if magic != snapshotMagic {
		return nil, errors.New(errors.ErrorTypeData, "not a nimbus snapshot")
	}
	version, err := r.ReadByte()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	if version != snapshotVersion {
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported snapshot version %d", version)
	}

	var headerLen uint32
	if err := binary.Read(r, binary.LittleEndian, &headerLen); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	headerBytes := make([]byte, headerLen)
	if _, err := io.ReadFull(r, headerBytes); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
	}
	var header snapshotHeader
	if err := json.Unmarshal(headerBytes, &header); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot header decode")
	}

	comp, err := compression.NewCompressor(&compression.Config{
		Algorithm: compression.Algorithm(header.Codec),
		Level:     compression.Default,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot codec")
	}

	definitions := make([]ColumnDefinition, len(header.Columns))
	for i, col := range header.Columns {
		dataType, err := ParseDataType(col.Type)
		if err != nil {
			return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot schema")
		}
		definitions[i] = ColumnDefinition{Name: col.Name, Type: dataType}
	}

	table, err := NewTable(definitions)
	if err != nil {
		return nil, err
	}

	for _, rows := range header.Chunks {
		segments := make([]Segment, len(definitions))
		for col, def := range definitions {
			var blockLen uint32
			if err := binary.Read(r, binary.LittleEndian, &blockLen); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
			}
			compressed := make([]byte, blockLen)
			if _, err := io.ReadFull(r, compressed); err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot read")
			}
			block, err := comp.Decompress(compressed)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "snapshot block decompress")
			}
			seg, err := decodeSnapshotBlock(block, def.Type, rows)
			if err != nil {
				return nil, err
			}
			segments[col] = seg
		}

		chunk, err := NewChunk(segments)
		if err != nil {
			return nil, err
		}
		if err := table.AppendChunk(chunk); err != nil {
			return nil, err
		}
	}

	return table, nil
}

func encodeSnapshotBlock(seg Segment) ([]byte, error) {
	switch seg.DataType() {
	case TypeInt32:
		return marshalBlock[int32](seg)
	case TypeInt64:
		return marshalBlock[int64](seg)
	case TypeFloat32:
		return marshalBlock[float32](seg)
	case TypeFloat64:
		return marshalBlock[float64](seg)
	case TypeString:
		return marshalBlock[string](seg)
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported segment type %s", seg.DataType())
	}
}

func decodeSnapshotBlock(block []byte, dataType DataType, rows int) (Segment, error) {
	switch dataType {
	case TypeInt32:
		return unmarshalBlock[int32](block, rows)
	case TypeInt64:
		return unmarshalBlock[int64](block, rows)
	case TypeFloat32:
		return unmarshalBlock[float32](block, rows)
	case TypeFloat64:
		return unmarshalBlock[float64](block, rows)
	case TypeString:
		return unmarshalBlock[string](block, rows)
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported column type %s", dataType)
	}
}

func marshalBlock[T Value](seg Segment) ([]byte, error) {
	values, nulls, err := MaterializeColumn[T](seg)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	for _, null := range nulls {
		if null {
			buf.WriteByte(1)
		} else {
			buf.WriteByte(0)
		}
	}
	for i, v := range values {
		if nulls[i] {
			continue
		}
		writeValue(&buf, v)
	}
	return buf.Bytes(), nil
}

func unmarshalBlock[T Value](block []byte, rows int) (Segment, error) {
	if len(block) < rows {
		return nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
	}
	nulls := make([]bool, rows)
	for i := 0; i < rows; i++ {
		nulls[i] = block[i] == 1
	}

	values := make([]T, rows)
	rest := block[rows:]
	for i := 0; i < rows; i++ {
		if nulls[i] {
			continue
		}
		v, remaining, err := readValue[T](rest)
		if err != nil {
			return nil, err
		}
		values[i] = v
		rest = remaining
	}

	return EncodeValues(values, nulls), nil
}

func writeValue[T Value](buf *bytes.Buffer, v T) {
	switch x := any(v).(type) {
	case int32:
		_ = binary.Write(buf, binary.LittleEndian, x)
	case int64:
		_ = binary.Write(buf, binary.LittleEndian, x)
	case float32:
		_ = binary.Write(buf, binary.LittleEndian, x)
	case float64:
		_ = binary.Write(buf, binary.LittleEndian, x)
	case string:
		_ = binary.Write(buf, binary.LittleEndian, uint32(len(x)))
		buf.WriteString(x)
	}
}

func readValue[T Value](data []byte) (T, []byte, error) {
	var zero T
	switch any(zero).(type) {
	case int32:
		if len(data) < 4 {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		v := int32(binary.LittleEndian.Uint32(data))
		return any(v).(T), data[4:], nil
	case int64:
		if len(data) < 8 {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		v := int64(binary.LittleEndian.Uint64(data))
		return any(v).(T), data[8:], nil
	case float32:
		if len(data) < 4 {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		v := math.Float32frombits(binary.LittleEndian.Uint32(data))
		return any(v).(T), data[4:], nil
	case float64:
		if len(data) < 8 {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		v := math.Float64frombits(binary.LittleEndian.Uint64(data))
		return any(v).(T), data[8:], nil
	case string:
		if len(data) < 4 {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		n := binary.LittleEndian.Uint32(data)
		if len(data) < int(4+n) {
			return zero, nil, errors.New(errors.ErrorTypeData, "snapshot block truncated")
		}
		v := string(data[4 : 4+n])
		return any(v).(T), data[4+n:], nil
	default:
		return zero, nil, errors.Newf(errors.ErrorTypeData, "unsupported element type %T", zero)
	}
}

// MaterializeColumn decodes a segment back into raw values and a NULL mask.
func MaterializeColumn[T Value](seg Segment) ([]T, []bool, error) {
	rows := seg.Size()
	values := make([]T, rows)
	nulls := make([]bool, rows)

	switch s := seg.(type) {
	case *DictionarySegment[T]:
		for i := 0; i < rows; i++ {
			v, ok := s.GetTypedValue(i)
			values[i] = v
			nulls[i] = !ok
		}
	case *ValueSegment[T]:
		for i := 0; i < rows; i++ {
			v, ok := s.GetTypedValue(i)
			values[i] = v
			nulls[i] = !ok
		}
	default:
		return nil, nil, errors.Newf(errors.ErrorTypeData,
			"segment type %T does not hold %s values", seg, dataTypeOf[T]())
	}

	return values, nulls, nil
}
