package config

import (
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/hig-dev/nimbus/pkg/errors"
)

// LoadPassConfig reads a PassConfig from a YAML file. Environment
// references ($VAR or ${VAR}) are expanded before parsing, unknown keys
// are rejected, and fields absent from the file keep their defaults. The
// result is validated.
func LoadPassConfig(path string) (*PassConfig, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // G304: File path is controlled by caller
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "failed to read pass config")
	}

	expanded := os.Expand(string(raw), os.Getenv)

	cfg := DefaultPassConfig()
	decoder := yaml.NewDecoder(strings.NewReader(expanded))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil && err != io.EOF {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "failed to parse pass config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
