// Package config provides configuration for the Nimbus compaction pass.
// It defines the PassConfig structure consumed by the shared-dictionary
// plugin and the CLI, and resolves the Jaccard-index threshold from its
// three sources in precedence order: explicit value, the
// JACCARD_INDEX_THRESHOLD environment variable, and the built-in default.
package config

import (
	"os"
	"strconv"

	"github.com/hig-dev/nimbus/pkg/errors"
)

const (
	// DefaultJaccardIndexThreshold is the minimum dictionary similarity
	// required for a merge when no other source configures it.
	DefaultJaccardIndexThreshold = 0.1

	// EnvJaccardIndexThreshold is the environment variable overriding the
	// default threshold.
	EnvJaccardIndexThreshold = "JACCARD_INDEX_THRESHOLD"

	// DefaultChunkSize is the ingestion chunk size used by the CLI.
	DefaultChunkSize = 65536
)

// PassConfig configures one end-to-end compaction pass.
type PassConfig struct {
	// JaccardIndexThreshold is the minimum Jaccard index for a merge,
	// in [0, 1].
	JaccardIndexThreshold float64 `yaml:"jaccard_index_threshold" json:"jaccard_index_threshold"`

	// ChunkSize is the row count per chunk used when ingesting data.
	ChunkSize int `yaml:"chunk_size" json:"chunk_size"`

	// LogLevel is a logger level name (debug, info, warn, error). The CLI
	// takes its logger level from the --log-level flag and does not apply
	// this field.
	LogLevel string `yaml:"log_level" json:"log_level"`

	// SnapshotCodec selects the snapshot compression algorithm
	// (lz4, zstd, none).
	SnapshotCodec string `yaml:"snapshot_codec" json:"snapshot_codec"`
}

// DefaultPassConfig returns the default pass configuration.
func DefaultPassConfig() *PassConfig {
	return &PassConfig{
		JaccardIndexThreshold: DefaultJaccardIndexThreshold,
		ChunkSize:             DefaultChunkSize,
		LogLevel:              "info",
		SnapshotCodec:         "lz4",
	}
}

// Validate checks the configuration for out-of-range values.
func (c *PassConfig) Validate() error {
	if c.JaccardIndexThreshold < 0 || c.JaccardIndexThreshold > 1 {
		return errors.Newf(errors.ErrorTypeValidation,
			"jaccard_index_threshold %v outside [0, 1]", c.JaccardIndexThreshold)
	}
	if c.ChunkSize <= 0 {
		return errors.Newf(errors.ErrorTypeValidation,
			"chunk_size %d must be positive", c.ChunkSize)
	}
	return nil
}

// ResolveJaccardThreshold resolves the threshold from its sources in
// precedence order: explicit value, environment variable, default.
//
// A non-nil error reports a source that was present but unusable; the
// returned threshold is then the default and the caller should log the
// error as a warning rather than fail the pass.
func ResolveJaccardThreshold(explicit *float64) (float64, error) {
	if explicit != nil {
		if *explicit < 0 || *explicit > 1 {
			return DefaultJaccardIndexThreshold, errors.Newf(errors.ErrorTypeConfig,
				"explicit jaccard-index threshold %v outside [0, 1], using default %v",
				*explicit, DefaultJaccardIndexThreshold)
		}
		return *explicit, nil
	}

	raw, ok := os.LookupEnv(EnvJaccardIndexThreshold)
	if !ok {
		return DefaultJaccardIndexThreshold, nil
	}

	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return DefaultJaccardIndexThreshold, errors.Wrap(err, errors.ErrorTypeConfig,
			"unparseable "+EnvJaccardIndexThreshold+", using default")
	}
	if parsed < 0 || parsed > 1 {
		return DefaultJaccardIndexThreshold, errors.Newf(errors.ErrorTypeConfig,
			"%s=%v outside [0, 1], using default %v",
			EnvJaccardIndexThreshold, parsed, DefaultJaccardIndexThreshold)
	}

	return parsed, nil
}
