package activitystream

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileConfigSourceListStreams(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.yaml")
	doc := `
streams:
  - name: vector
    kind: vector_http
    url: https://vector.example.internal/ingest
    username: ingest
    password: secret
    timeout_seconds: 5
  - name: logstash
    kind: logstash_http
    url: http://logstash.example.internal:8080
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	src := &FileConfigSource{Path: path}
	streams, err := src.ListStreams(context.Background())
	if err != nil {
		t.Fatalf("ListStreams: %v", err)
	}
	if len(streams) != 2 {
		t.Fatalf("expected 2 streams, got %d", len(streams))
	}
	if streams[0].Name != "vector" || streams[0].Kind != SinkVectorHTTP {
		t.Errorf("unexpected first stream: %+v", streams[0])
	}
	if streams[0].Timeout != 5*time.Second {
		t.Errorf("expected 5s timeout, got %s", streams[0].Timeout)
	}
	if streams[1].Name != "logstash" || streams[1].Kind != SinkLogstashHTTP {
		t.Errorf("unexpected second stream: %+v", streams[1])
	}
}

func TestFileConfigSourceRejectsUnknownKind(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "streams.yaml")
	doc := `
streams:
  - name: mystery
    kind: carrier_pigeon
    url: http://example.invalid
`
	if err := os.WriteFile(path, []byte(doc), 0o600); err != nil {
		t.Fatal(err)
	}

	src := &FileConfigSource{Path: path}
	if _, err := src.ListStreams(context.Background()); err == nil {
		t.Fatal("expected an error for an unrecognized sink kind")
	}
}

func TestFileConfigSourceMissingFile(t *testing.T) {
	src := &FileConfigSource{Path: filepath.Join(t.TempDir(), "missing.yaml")}
	if _, err := src.ListStreams(context.Background()); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
