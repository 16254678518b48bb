package activitystream

import (
	"context"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileStreamConfig is the on-disk shape of one stream entry in a YAML
// sink definitions file, decoded with string fields and re-typed into
// StreamConfig so the YAML document never has to spell a Go-only type
// like SinkKind or time.Duration.
type fileStreamConfig struct {
	Name         string `yaml:"name"`
	Kind         string `yaml:"kind"`
	URL          string `yaml:"url"`
	Username     string `yaml:"username"`
	Password     string `yaml:"password"`
	TLSCertFile  string `yaml:"tls_cert_file"`
	TimeoutSecs  int    `yaml:"timeout_seconds"`
}

// FileConfigSource is the non-store alternative ConfigSource: a flat YAML
// document of sink definitions, for a deployment that wants its activity
// streams under version control instead of editable through the database.
// Re-read on every call, so a reload picks up an edited file without a
// process restart.
type FileConfigSource struct {
	Path string
}

func (s *FileConfigSource) ListStreams(ctx context.Context) ([]StreamConfig, error) {
	raw, err := os.ReadFile(s.Path)
	if err != nil {
		return nil, fmt.Errorf("read activity stream config %s: %w", s.Path, err)
	}
	var doc struct {
		Streams []fileStreamConfig `yaml:"streams"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse activity stream config %s: %w", s.Path, err)
	}
	out := make([]StreamConfig, 0, len(doc.Streams))
	for _, f := range doc.Streams {
		kind := SinkKind(f.Kind)
		if kind != SinkVectorHTTP && kind != SinkLogstashHTTP {
			return nil, fmt.Errorf("activity stream config %s: stream %q has unknown kind %q", s.Path, f.Name, f.Kind)
		}
		cfg := StreamConfig{
			Name:     f.Name,
			Kind:     kind,
			URL:      f.URL,
			Username: f.Username,
			Password: f.Password,
		}
		if f.TimeoutSecs > 0 {
			cfg.Timeout = time.Duration(f.TimeoutSecs) * time.Second
		}
		if f.TLSCertFile != "" {
			pem, err := os.ReadFile(f.TLSCertFile)
			if err != nil {
				return nil, fmt.Errorf("activity stream config %s: read tls cert for %q: %w", s.Path, f.Name, err)
			}
			cfg.TLSCertPEM = pem
		}
		out = append(out, cfg)
	}
	return out, nil
}

var _ ConfigSource = (*FileConfigSource)(nil)
