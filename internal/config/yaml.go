package config

import (
	"errors"
	"fmt"

	"github.com/goccy/go-yaml"
)

// MaxInputSize limits YAML input to prevent memory exhaustion.
const MaxInputSize = 1 << 20

var (
	ErrEmptyData     = errors.New("config data is empty")
	ErrInputTooLarge = errors.New("config data exceeds maximum size")
)

// unmarshalStrict decodes data into v and rejects unknown fields.
func unmarshalStrict(data []byte, v any) error {
	if len(data) == 0 {
		return ErrEmptyData
	}
	if len(data) > MaxInputSize {
		return fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}
	return yaml.UnmarshalWithOptions(data, v, yaml.Strict())
}

// Marshal encodes cfg as YAML, used by "pdfstitch doctor" to show the
// effective configuration.
func Marshal(cfg *Config) ([]byte, error) {
	return yaml.Marshal(cfg)
}
