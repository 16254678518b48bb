package clients

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/defguard/defguard-core/internal/logging"
)

// EvictionHandler is notified whenever Sweeper evicts an inactive client, so
// the event router can raise a DeviceDisconnected-style event.
type EvictionHandler func(locationID int64, evicted []*ClientState)

// Sweeper periodically evicts inactive clients across every location
// currently tracked by Map, spawning and cancelling one goroutine per
// location as they come and go rather than a single loop over the whole
// map, so a slow handler for one location never delays another's sweep.
type Sweeper struct {
	Map      *Map
	TTL      time.Duration
	Interval time.Duration
	OnEvict  EvictionHandler

	mu      sync.Mutex
	cancels map[int64]context.CancelFunc
}

// Run blocks, reconciling the set of per-location sweep goroutines against
// Map.Locations() every Interval until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	log := logging.Component("clients-sweep")
	s.cancels = make(map[int64]context.CancelFunc)
	ticker := time.NewTicker(s.reconcileInterval())
	defer ticker.Stop()

	reconcile := func() {
		active := map[int64]bool{}
		for _, id := range s.Map.Locations() {
			active[id] = true
			s.ensureSweep(ctx, id, log)
		}
		s.mu.Lock()
		for id, cancel := range s.cancels {
			if !active[id] {
				cancel()
				delete(s.cancels, id)
			}
		}
		s.mu.Unlock()
	}

	reconcile()
	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for _, cancel := range s.cancels {
				cancel()
			}
			s.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			reconcile()
		}
	}
}

func (s *Sweeper) reconcileInterval() time.Duration {
	if s.Interval <= 0 {
		return 30 * time.Second
	}
	return s.Interval
}

func (s *Sweeper) ensureSweep(parent context.Context, locationID int64, log interface {
	Info(msg string, args ...any)
}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.cancels[locationID]; ok {
		return
	}
	ctx, cancel := context.WithCancel(parent)
	s.cancels[locationID] = cancel
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return s.sweepLoop(gctx, locationID)
	})
	log.Info("started client sweep", "location_id", locationID)
}

func (s *Sweeper) sweepLoop(ctx context.Context, locationID int64) error {
	ttl := s.TTL
	if ttl <= 0 {
		ttl = 3 * time.Minute
	}
	ticker := time.NewTicker(ttl / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			evicted := s.Map.DisconnectInactive(locationID, time.Now(), ttl)
			if len(evicted) > 0 && s.OnEvict != nil {
				s.OnEvict(locationID, evicted)
			}
		}
	}
}
