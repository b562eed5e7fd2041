// Package serialization decodes YAML documents into structs and validates
// them with field tags and custom validators.
package serialization

import (
	"github.com/goccy/go-yaml"
	"github.com/yusing/chunkstream/internal/gperr"
)

var ErrUnmarshal = gperr.New("unmarshal error")

// UnmarshalYAML decodes data into dst, unknown fields are rejected.
//
// Fields absent from data keep their current value, so dst may be
// pre-filled with defaults.
func UnmarshalYAML(data []byte, dst any) gperr.Error {
	if err := yaml.UnmarshalWithOptions(data, dst, yaml.DisallowUnknownField()); err != nil {
		return ErrUnmarshal.With(err)
	}
	return nil
}
