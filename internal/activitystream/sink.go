package activitystream

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/defguard/defguard-core/internal/audit"
	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/pkg/metrics"
)

// runSink owns one configured stream's lifetime: subscribe to the audit
// bus, POST every NDJSON line it receives to cfg.URL, and keep going
// through individual request failures (spec.md §7 "Transport... logged at
// error; retries occur on the next matched event") until ctx is cancelled.
func runSink(ctx context.Context, cfg StreamConfig, bus *audit.Bus, defaultTimeout time.Duration) error {
	log := logging.Component("activity-stream-sink").With("stream", cfg.Name, "kind", cfg.Kind)
	data, lagged, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	client, err := newSinkClient(cfg, defaultTimeout)
	if err != nil {
		log.Error("activity stream sink misconfigured", "error", err)
		return nil
	}

	log.Info("activity stream sink started")
	for {
		select {
		case <-ctx.Done():
			log.Debug("activity stream sink stopping")
			return nil
		case dropped, ok := <-lagged:
			if !ok {
				return nil
			}
			log.Warn("activity stream sink lagging, entries dropped", "dropped", dropped)
		case line, ok := <-data:
			if !ok {
				return nil
			}
			if err := postLine(ctx, client, cfg, line); err != nil {
				metrics.ActivityStreamSinkFailures.WithLabelValues(cfg.Name).Inc()
				log.Error("activity stream post failed", "error", err)
			}
		}
	}
}

// newSinkClient builds the http.Client for cfg, trusting an additional PEM
// root when the sink URL is HTTPS and a cert was supplied (§4.J TLS
// clause).
func newSinkClient(cfg StreamConfig, defaultTimeout time.Duration) (*http.Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if strings.HasPrefix(cfg.URL, "https://") && len(cfg.TLSCertPEM) > 0 {
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(cfg.TLSCertPEM) {
			return nil, fmt.Errorf("append sink TLS cert: invalid PEM")
		}
		client.Transport = &http.Transport{TLSClientConfig: &tls.Config{RootCAs: pool}}
	}
	return client, nil
}

// postLine POSTs a single NDJSON line to cfg's sink, per spec.md §6
// ("Activity stream sink"): Content-Type application/x-ndjson, optional
// HTTP Basic auth.
func postLine(ctx context.Context, client *http.Client, cfg StreamConfig, line []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cfg.URL, bytes.NewReader(line))
	if err != nil {
		return fmt.Errorf("build sink request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-ndjson")
	if cfg.Username != "" {
		req.SetBasicAuth(cfg.Username, cfg.Password)
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("sink request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sink %s returned %d: %s", cfg.Name, resp.StatusCode, body)
	}
	return nil
}
