package events

import (
	"context"
	"fmt"
	"time"

	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/internal/wireproto"
	"github.com/defguard/defguard-core/pkg/metrics"
)

// Router is the single-writer task described in spec.md §4.H: one
// goroutine, one select over four input channels, typed dispatch per
// event, exactly the shape of the teacher's store.observe() loop
// (pkg/store/store_observer.go) generalized from one producer to four.
type Router struct {
	API      chan Event
	GRPC     chan Event
	Bidi     chan Event
	Internal chan Event

	// Logger persists every event the audit log tracks. A Logger error is
	// fatal: Run returns it (§4.H "fails the router on channel close").
	Logger LoggerSink
	// Mail enqueues mail-triggering events. Nil disables mail dispatch.
	Mail MailSink
	// Gateways fans gateway-affecting events out to subscribed gateway
	// sessions. Nil disables gateway forwarding (tests only).
	Gateways *GatewayBroadcaster
	// StreamReload receives a non-blocking signal whenever an activity
	// stream configuration event is routed, per §4.H / §4.J. Buffer size 1
	// is sufficient: the Stream Manager coalesces any number of pending
	// signals into a single reload pass.
	StreamReload chan struct{}

	clock *wireproto.LogicalClock
}

// NewRouter returns a Router with freshly allocated input channels of the
// given buffer size (0 is a valid, fully synchronous choice) and a logical
// clock seeded at construction time.
func NewRouter(bufferSize int, logger LoggerSink, mailSink MailSink, gateways *GatewayBroadcaster) *Router {
	return &Router{
		API:          make(chan Event, bufferSize),
		GRPC:         make(chan Event, bufferSize),
		Bidi:         make(chan Event, bufferSize),
		Internal:     make(chan Event, bufferSize),
		Logger:       logger,
		Mail:         mailSink,
		Gateways:     gateways,
		StreamReload: make(chan struct{}, 1),
		clock:        wireproto.NewLogicalClock(time.Now()),
	}
}

// Submit is a convenience send used by producers that already hold a
// reference to the Router rather than its raw channels (the gRPC and bidi
// servers do, since they are constructed after the Router).
func (r *Router) Submit(producer Producer, ev Event) {
	ev.Producer = producer
	switch producer {
	case ProducerAPI:
		r.API <- ev
	case ProducerGRPC:
		r.GRPC <- ev
	case ProducerBidi:
		r.Bidi <- ev
	default:
		r.Internal <- ev
	}
}

// Run blocks, multiplexing the four input channels with a fair selector —
// Go's select already picks uniformly among ready cases, satisfying §4.H's
// "fair selector" requirement without extra bookkeeping — until ctx is
// cancelled or an input channel closes (fatal, per §4.H/§7) or the Logger
// fails.
func (r *Router) Run(ctx context.Context) error {
	log := logging.Component("event-router")
	log.Info("event router starting")
	for {
		select {
		case <-ctx.Done():
			log.Info("event router stopping", "reason", ctx.Err())
			return ctx.Err()
		case ev, ok := <-r.API:
			if !ok {
				return fmt.Errorf("event router: api channel closed")
			}
			if err := r.handle(ctx, log, ev); err != nil {
				return err
			}
		case ev, ok := <-r.GRPC:
			if !ok {
				return fmt.Errorf("event router: grpc channel closed")
			}
			if err := r.handle(ctx, log, ev); err != nil {
				return err
			}
		case ev, ok := <-r.Bidi:
			if !ok {
				return fmt.Errorf("event router: bidi channel closed")
			}
			if err := r.handle(ctx, log, ev); err != nil {
				return err
			}
		case ev, ok := <-r.Internal:
			if !ok {
				return fmt.Errorf("event router: internal channel closed")
			}
			if err := r.handle(ctx, log, ev); err != nil {
				return err
			}
		}
	}
}

func (r *Router) handle(ctx context.Context, log interface {
	Debug(msg string, args ...any)
	Error(msg string, args ...any)
}, ev Event) error {
	log.Debug("routing event", "producer", ev.Producer, "kind", ev.Kind)
	metrics.EventsRouted.WithLabelValues(ev.Producer.String(), ev.Kind.String()).Inc()

	if logEv, ok := ToLoggerEvent(ev); ok {
		if err := r.Logger.Append(ctx, logEv); err != nil {
			return fmt.Errorf("event router: audit log store: %w", err)
		}
	}

	if isStreamConfigEvent(ev.Kind) {
		select {
		case r.StreamReload <- struct{}{}:
		default:
		}
	}

	if r.Gateways != nil {
		if upd := toGatewayUpdate(ev, r.clock); upd != nil {
			r.Gateways.Publish(ev.NetworkID, upd)
		}
	}

	if r.Mail != nil {
		if m, ok := toMail(ev); ok {
			if err := r.Mail.Send(ctx, m); err != nil {
				log.Error("mail dispatch failed", "error", err)
			}
		}
	}

	return nil
}
