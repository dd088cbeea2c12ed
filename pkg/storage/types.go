// Package storage implements the in-memory columnar engine Nimbus runs on.
// Tables hold ordered chunks; each chunk holds one segment per column.
// Segments are either dictionary-encoded (a sorted distinct dictionary plus
// a fixed-width attribute vector of value IDs) or plain value columns.
package storage

import (
	"fmt"
)

// ColumnID identifies a column within a table by definition order.
type ColumnID uint16

// ChunkID identifies a chunk within a table by append order.
type ChunkID uint32

// DataType identifies the element type of a column.
type DataType string

const (
	TypeInt32   DataType = "int32"
	TypeInt64   DataType = "int64"
	TypeFloat32 DataType = "float32"
	TypeFloat64 DataType = "float64"
	TypeString  DataType = "string"
)

// ParseDataType converts a type name to a DataType.
func ParseDataType(s string) (DataType, error) {
	switch DataType(s) {
	case TypeInt32, TypeInt64, TypeFloat32, TypeFloat64, TypeString:
		return DataType(s), nil
	default:
		return "", fmt.Errorf("unknown data type %q", s)
	}
}

// Value constrains the element types a column can hold. All of them are
// totally ordered, which dictionary encoding relies on.
type Value interface {
	~int32 | ~int64 | ~float32 | ~float64 | ~string
}

// ColumnDefinition describes one column of a table.
type ColumnDefinition struct {
	Name string
	Type DataType
}

// stringHeaderBytes is the accounting overhead charged per string element,
// matching the Go string header.
const stringHeaderBytes = 16

// dataTypeOf reports the DataType for a concrete element type.
func dataTypeOf[T Value]() DataType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return TypeInt32
	case int64:
		return TypeInt64
	case float32:
		return TypeFloat32
	case float64:
		return TypeFloat64
	case string:
		return TypeString
	default:
		panic(fmt.Sprintf("unsupported element type %T", zero))
	}
}

// elementByteSize returns the accounted byte size of a single element.
func elementByteSize[T Value](v T) int64 {
	switch x := any(v).(type) {
	case int32, float32:
		return 4
	case int64, float64:
		return 8
	case string:
		return int64(len(x)) + stringHeaderBytes
	default:
		panic(fmt.Sprintf("unsupported element type %T", v))
	}
}
