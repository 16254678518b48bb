package license

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/crypto/ed25519"

	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/pkg/metrics"
)

// Fetcher abstracts the HTTP round trip to the license server so Renewer
// can be tested without a live network dependency.
type Fetcher interface {
	Fetch(ctx context.Context, serverURL string) ([]byte, error)
}

// HTTPFetcher is the default Fetcher, a thin GET against serverURL.
type HTTPFetcher struct {
	Client *http.Client
}

func (f *HTTPFetcher) Fetch(ctx context.Context, serverURL string) ([]byte, error) {
	client := f.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, serverURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("license server returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Renewer periodically fetches and verifies a fresh license, installing it
// into Cache on success and logging (never crashing) on failure, so a
// transient license-server outage degrades to the last-known-good license
// rather than disabling enterprise features outright.
type Renewer struct {
	Cache     *Cache
	Fetcher   Fetcher
	ServerURL string
	PublicKey ed25519.PublicKey
	Interval  time.Duration
}

// Run blocks, renewing on Interval until ctx is cancelled.
func (r *Renewer) Run(ctx context.Context) {
	log := logging.Component("license")
	interval := r.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	r.renewOnce(ctx, log)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.renewOnce(ctx, log)
		}
	}
}

func (r *Renewer) renewOnce(ctx context.Context, log interface {
	Warn(msg string, args ...any)
	Info(msg string, args ...any)
}) {
	raw, err := r.Fetcher.Fetch(ctx, r.ServerURL)
	if err != nil {
		log.Warn("license fetch failed, keeping last-known-good license", "error", err)
		return
	}
	l, err := Verify(raw, r.PublicKey)
	if err != nil {
		metrics.LicenseValidations.WithLabelValues("invalid").Inc()
		log.Warn("license verification failed, keeping last-known-good license", "error", err)
		return
	}
	if err := r.Cache.Set(l); err != nil {
		log.Warn("license persist failed", "error", err)
		return
	}
	log.Info("license renewed", "subscription", l.Subscription, "expires_at", l.ExpiresAt)
}
