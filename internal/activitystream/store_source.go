package activitystream

import (
	"context"
	"fmt"

	"github.com/defguard/defguard-core/internal/store"
)

// StoreConfigSource adapts store.Querier.ListActivityStreams into a
// ConfigSource, converting the persisted row's free-form Kind string into
// the closed SinkKind set this package understands.
type StoreConfigSource struct {
	Querier store.Querier
}

func (s *StoreConfigSource) ListStreams(ctx context.Context) ([]StreamConfig, error) {
	rows, err := s.Querier.ListActivityStreams(ctx)
	if err != nil {
		return nil, fmt.Errorf("list activity streams: %w", err)
	}
	out := make([]StreamConfig, 0, len(rows))
	for _, r := range rows {
		kind := SinkKind(r.Kind)
		if kind != SinkVectorHTTP && kind != SinkLogstashHTTP {
			continue
		}
		out = append(out, StreamConfig{
			Name:       r.Name,
			Kind:       kind,
			URL:        r.URL,
			Username:   r.Username,
			Password:   r.Password,
			TLSCertPEM: r.TLSCertPEM,
		})
	}
	return out, nil
}

var _ ConfigSource = (*StoreConfigSource)(nil)
