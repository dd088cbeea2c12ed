package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/hig-dev/nimbus/pkg/errors"
)

// CSVOptions controls CSV ingestion.
type CSVOptions struct {
	// ChunkSize is the row count per chunk. Zero means 65536.
	ChunkSize int
	// HasHeader marks the first record as column names.
	HasHeader bool
}

// DefaultCSVOptions returns the default ingestion options.
func DefaultCSVOptions() CSVOptions {
	return CSVOptions{ChunkSize: 65536, HasHeader: true}
}

// LoadCSV ingests a CSV file into a new table. Column types are inferred
// from the data (int64, then float64, then string); empty fields are NULL.
// Every column is dictionary-encoded chunk by chunk.
func LoadCSV(path string, opts CSVOptions) (*Table, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = 65536
	}

	f, err := os.Open(path) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to open CSV file")
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeData, "failed to parse CSV")
	}
	if len(records) == 0 {
		return nil, errors.New(errors.ErrorTypeData, "CSV file is empty")
	}

	columnCount := len(records[0])
	var names []string
	if opts.HasHeader {
		names = records[0]
		records = records[1:]
	} else {
		names = make([]string, columnCount)
		for i := range names {
			names[i] = fmt.Sprintf("column_%d", i)
		}
	}

	types := inferColumnTypes(records, columnCount)
	definitions := make([]ColumnDefinition, columnCount)
	for i := range definitions {
		definitions[i] = ColumnDefinition{Name: names[i], Type: types[i]}
	}

	table, err := NewTable(definitions)
	if err != nil {
		return nil, err
	}

	for start := 0; start < len(records); start += opts.ChunkSize {
		end := start + opts.ChunkSize
		if end > len(records) {
			end = len(records)
		}

		segments := make([]Segment, columnCount)
		for col := 0; col < columnCount; col++ {
			seg, err := encodeCSVColumn(records[start:end], col, types[col])
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

// inferColumnTypes picks the narrowest type every non-empty field of a
// column parses as.
func inferColumnTypes(records [][]string, columnCount int) []DataType {
	types := make([]DataType, columnCount)
	for col := 0; col < columnCount; col++ {
		isInt, isFloat, sawValue := true, true, false
		for _, record := range records {
			field := record[col]
			if field == "" {
				continue
			}
			sawValue = true
			if isInt {
				if _, err := strconv.ParseInt(field, 10, 64); err != nil {
					isInt = false
				}
			}
			if !isInt && isFloat {
				if _, err := strconv.ParseFloat(field, 64); err != nil {
					isFloat = false
					break
				}
			}
		}

		switch {
		case !sawValue:
			types[col] = TypeString
		case isInt:
			types[col] = TypeInt64
		case isFloat:
			types[col] = TypeFloat64
		default:
			types[col] = TypeString
		}
	}
	return types
}

func encodeCSVColumn(records [][]string, col int, dataType DataType) (Segment, error) {
	nulls := make([]bool, len(records))
	for i, record := range records {
		nulls[i] = record[col] == ""
	}

	switch dataType {
	case TypeInt64:
		values := make([]int64, len(records))
		for i, record := range records {
			if nulls[i] {
				continue
			}
			v, err := strconv.ParseInt(record[col], 10, 64)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "int64 column parse failed")
			}
			values[i] = v
		}
		return EncodeValues(values, nulls), nil
	case TypeFloat64:
		values := make([]float64, len(records))
		for i, record := range records {
			if nulls[i] {
				continue
			}
			v, err := strconv.ParseFloat(record[col], 64)
			if err != nil {
				return nil, errors.Wrap(err, errors.ErrorTypeData, "float64 column parse failed")
			}
			values[i] = v
		}
		return EncodeValues(values, nulls), nil
	case TypeString:
		values := make([]string, len(records))
		for i, record := range records {
			values[i] = record[col]
		}
		return EncodeValues(values, nulls), nil
	default:
		return nil, errors.Newf(errors.ErrorTypeData, "unsupported CSV column type %s", dataType)
	}
}
