package config

import (
	"fmt"
	"os"

	"github.com/mitchellh/mapstructure"
	"github.com/pelletier/go-toml/v2"
)

// Load reads a TOML file at path into fresh Options with defaults applied,
// then decodes it again through mapstructure so environment-style map
// overlays (as produced by a flattened env-var reader) can be merged in with
// the same decode path the file used, mirroring the teacher's layered
// Options/BindFlags/Validate composition.
func Load(path string) (*Options, error) {
	opts := NewOptions()
	if path == "" {
		return opts, opts.Validate()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return opts, opts.Validate()
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var asMap map[string]any
	if err := toml.Unmarshal(raw, &asMap); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := decodeOverlay(asMap, opts); err != nil {
		return nil, fmt.Errorf("decode config %s: %w", path, err)
	}
	return opts, opts.Validate()
}

// decodeOverlay merges a generic map (from a TOML file, or from an
// env-var-derived map built by the CLI layer) onto an existing Options
// value without clobbering fields the overlay doesn't mention.
func decodeOverlay(overlay map[string]any, dst *Options) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           dst,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return err
	}
	return decoder.Decode(overlay)
}
