package compression

import (
	"bytes"
	"testing"
)

func TestCompressorRoundTrip(t *testing.T) {
	original := []byte("This is a test string that will be compressed and decompressed. " +
		"It contains some repetitive content content content to improve compression ratio.")

	for _, algorithm := range []Algorithm{None, LZ4, Zstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{
				Algorithm:  algorithm,
				Level:      Default,
				BufferSize: 64 * 1024,
			})
			if err != nil {
				t.Fatalf("Failed to create %s compressor: %v", algorithm, err)
			}

			compressed, err := compressor.Compress(original)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}

			if !bytes.Equal(original, decompressed) {
				t.Errorf("Decompressed data doesn't match original.\nOriginal: %s\nDecompressed: %s",
					string(original), string(decompressed))
			}
		})
	}
}

func TestCompressorStreamRoundTrip(t *testing.T) {
	original := bytes.Repeat([]byte("stream data for compression "), 200)

	for _, algorithm := range []Algorithm{None, LZ4, Zstd} {
		t.Run(string(algorithm), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: algorithm, Level: Default})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			var compressedBuf bytes.Buffer
			if err := compressor.CompressStream(&compressedBuf, bytes.NewReader(original)); err != nil {
				t.Fatalf("Failed to compress stream: %v", err)
			}

			var decompressedBuf bytes.Buffer
			if err := compressor.DecompressStream(&decompressedBuf, &compressedBuf); err != nil {
				t.Fatalf("Failed to decompress stream: %v", err)
			}

			if !bytes.Equal(original, decompressedBuf.Bytes()) {
				t.Errorf("Stream decompressed data doesn't match original")
			}
		})
	}
}

func TestCompressionLevels(t *testing.T) {
	levels := []Level{Fastest, Default, Better, Best}
	testData := bytes.Repeat([]byte("test data for compression "), 100)

	for _, level := range levels {
		t.Run(level.String(), func(t *testing.T) {
			compressor, err := NewCompressor(&Config{Algorithm: LZ4, Level: level})
			if err != nil {
				t.Fatalf("Failed to create compressor: %v", err)
			}

			compressed, err := compressor.Compress(testData)
			if err != nil {
				t.Fatalf("Failed to compress: %v", err)
			}

			decompressed, err := compressor.Decompress(compressed)
			if err != nil {
				t.Fatalf("Failed to decompress: %v", err)
			}

			if !bytes.Equal(testData, decompressed) {
				t.Errorf("Round trip failed at level %s", level)
			}
		})
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewCompressor(&Config{Algorithm: "snappy"})
	if err == nil {
		t.Fatal("Expected error for unsupported algorithm")
	}
}

func TestNilConfigUsesDefault(t *testing.T) {
	compressor, err := NewCompressor(nil)
	if err != nil {
		t.Fatalf("Failed to create default compressor: %v", err)
	}
	if compressor.Algorithm() != LZ4 {
		t.Errorf("Expected default algorithm lz4, got %s", compressor.Algorithm())
	}
}
