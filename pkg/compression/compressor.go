// Package compression provides compression support for Nimbus snapshots
// with multiple algorithms, configurable levels, and pooled compressor
// instances. It supports both in-memory and streaming operations.
//
// # Algorithm Selection
//
// Choose algorithms based on your requirements:
//   - LZ4: Extremely fast, decent compression (default for snapshots)
//   - Zstd: Best compression ratio, good speed
//   - None: Pass-through, useful for debugging snapshot contents
//
// # Basic Usage
//
//	config := &compression.Config{
//	    Algorithm: compression.LZ4,
//	    Level:     compression.Default,
//	}
//	comp, err := compression.NewCompressor(config)
//
//	compressed, err := comp.Compress(data)
//	original, err := comp.Decompress(compressed)
package compression

import (
	"bytes"
	"fmt"
	"io"
	"sync"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Algorithm represents a compression algorithm.
// Each algorithm has different trade-offs between speed and compression ratio.
type Algorithm string

const (
	// None represents no compression
	None Algorithm = "none"
	// LZ4 represents lz4 compression
	LZ4 Algorithm = "lz4"
	// Zstd represents zstandard compression
	Zstd Algorithm = "zstd"
)

// Level represents compression level, controlling the trade-off between
// compression speed and compression ratio.
type Level int

const (
	// Fastest prioritizes speed over compression ratio.
	Fastest Level = 1
	// Default balances speed and compression.
	Default Level = 5
	// Better improves compression at cost of speed.
	Better Level = 7
	// Best maximizes compression ratio.
	Best Level = 9
)

// String returns the level name for test and log output.
func (l Level) String() string {
	switch l {
	case Fastest:
		return "fastest"
	case Default:
		return "default"
	case Better:
		return "better"
	case Best:
		return "best"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

// Compressor provides compression and decompression functionality.
// All implementations are safe for concurrent use.
type Compressor interface {
	// Compress compresses data and returns the compressed bytes.
	// The input data is not modified.
	Compress(data []byte) ([]byte, error)

	// Decompress decompresses data and returns the original bytes.
	// The input data is not modified.
	Decompress(data []byte) ([]byte, error)

	// CompressStream compresses from reader to writer.
	CompressStream(dst io.Writer, src io.Reader) error

	// DecompressStream decompresses from reader to writer.
	DecompressStream(dst io.Writer, src io.Reader) error

	// Algorithm returns the compression algorithm used.
	Algorithm() Algorithm

	// Level returns the compression level configured.
	Level() Level
}

// Config represents compressor configuration.
type Config struct {
	Algorithm  Algorithm // Compression algorithm to use
	Level      Level     // Compression level
	BufferSize int       // Buffer size setting; stored, not used by the stream methods
}

// DefaultConfig returns the default snapshot compression configuration:
// LZ4 with 64KB buffers.
func DefaultConfig() *Config {
	return &Config{
		Algorithm:  LZ4,
		Level:      Default,
		BufferSize: 64 * 1024,
	}
}

// NewCompressor creates a new compressor based on the provided configuration.
// If config is nil, default configuration is used.
func NewCompressor(config *Config) (Compressor, error) {
	if config == nil {
		config = DefaultConfig()
	}

	switch config.Algorithm {
	case None:
		return &noneCompressor{baseCompressor: baseCompressor{
			algorithm:  None,
			level:      config.Level,
			bufferSize: config.BufferSize,
		}}, nil
	case LZ4:
		return newLZ4Compressor(config)
	case Zstd:
		return newZstdCompressor(config)
	default:
		return nil, fmt.Errorf("unsupported compression algorithm: %s", config.Algorithm)
	}
}

// Base compressor implementation
type baseCompressor struct {
	algorithm  Algorithm
	level      Level
	bufferSize int
}

// Algorithm returns the compression algorithm
func (bc *baseCompressor) Algorithm() Algorithm {
	return bc.algorithm
}

// Level returns the compression level
func (bc *baseCompressor) Level() Level {
	return bc.level
}

// None compressor (no compression)
type noneCompressor struct {
	baseCompressor
}

func (nc *noneCompressor) Compress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) Decompress(data []byte) ([]byte, error) {
	return data, nil
}

func (nc *noneCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

func (nc *noneCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	_, err := io.Copy(dst, src)
	return err
}

// LZ4 compressor
type lz4Compressor struct {
	baseCompressor
	compressionLevel lz4.CompressionLevel
}

func newLZ4Compressor(config *Config) (*lz4Compressor, error) {
	return &lz4Compressor{
		baseCompressor: baseCompressor{
			algorithm:  LZ4,
			level:      config.Level,
			bufferSize: config.BufferSize,
		},
		compressionLevel: mapLZ4Level(config.Level),
	}, nil
}

func (lc *lz4Compressor) Compress(data []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(data)/2 + 64)

	w := lz4.NewWriter(&buf)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return nil, err
	}

	if _, err := w.Write(data); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (lc *lz4Compressor) Decompress(data []byte) ([]byte, error) {
	r := lz4.NewReader(bytes.NewReader(data))

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func (lc *lz4Compressor) CompressStream(dst io.Writer, src io.Reader) error {
	w := lz4.NewWriter(dst)
	if err := w.Apply(lz4.CompressionLevelOption(lc.compressionLevel)); err != nil {
		return err
	}

	if _, err := io.Copy(w, src); err != nil {
		return err
	}
	return w.Close()
}

func (lc *lz4Compressor) DecompressStream(dst io.Writer, src io.Reader) error {
	r := lz4.NewReader(src)
	_, err := io.Copy(dst, r)
	return err
}

// Zstd compressor
type zstdCompressor struct {
	baseCompressor
	encoderPool sync.Pool
	decoderPool sync.Pool
}

func newZstdCompressor(config *Config) (*zstdCompressor, error) {
	level := mapZstdLevel(config.Level)

	zc := &zstdCompressor{
		baseCompressor: baseCompressor{
			algorithm:  Zstd,
			level:      config.Level,
			bufferSize: config.BufferSize,
		},
	}

	zc.encoderPool.New = func() interface{} {
		enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(level))
		return enc
	}

	zc.decoderPool.New = func() interface{} {
		dec, _ := zstd.NewReader(nil)
		return dec
	}

	return zc, nil
}

func (zc *zstdCompressor) Compress(data []byte) ([]byte, error) {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	return enc.EncodeAll(data, nil), nil
}

func (zc *zstdCompressor) Decompress(data []byte) ([]byte, error) {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	return dec.DecodeAll(data, nil)
}

func (zc *zstdCompressor) CompressStream(dst io.Writer, src io.Reader) error {
	enc := zc.encoderPool.Get().(*zstd.Encoder)
	defer zc.encoderPool.Put(enc)

	enc.Reset(dst)
	if _, err := io.Copy(enc, src); err != nil {
		return err
	}
	return enc.Close()
}

func (zc *zstdCompressor) DecompressStream(dst io.Writer, src io.Reader) error {
	dec := zc.decoderPool.Get().(*zstd.Decoder)
	defer zc.decoderPool.Put(dec)

	if err := dec.Reset(src); err != nil {
		return err
	}

	_, err := io.Copy(dst, dec)
	return err
}

// mapLZ4Level maps the generic level to an lz4 compression level
func mapLZ4Level(level Level) lz4.CompressionLevel {
	switch level {
	case Fastest:
		return lz4.Fast
	case Default:
		return lz4.Level5
	case Better:
		return lz4.Level7
	case Best:
		return lz4.Level9
	default:
		return lz4.Level5
	}
}

// mapZstdLevel maps the generic level to a zstd encoder level
func mapZstdLevel(level Level) zstd.EncoderLevel {
	switch level {
	case Fastest:
		return zstd.SpeedFastest
	case Default:
		return zstd.SpeedDefault
	case Better:
		return zstd.SpeedBetterCompression
	case Best:
		return zstd.SpeedBestCompression
	default:
		return zstd.SpeedDefault
	}
}
