package rpc

import (
	"context"
	"io"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/defguard/defguard-core/internal/gateway"
	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/internal/wireproto"
)

// ConfigProvider builds the full Configuration for a network on demand, the
// way Component D/E/F's owning packages would assemble it from the store.
type ConfigProvider interface {
	BuildConfiguration(ctx context.Context, networkID int64) (*wireproto.Configuration, error)
}

// UpdateSource is subscribed to by a connected gateway to receive
// incremental Update frames for networkID until the stream ends.
type UpdateSource interface {
	Subscribe(networkID int64) (ch <-chan *wireproto.Update, cancel func())
}

// Server implements GatewayServer: the per-connection lifecycle (registry
// bookkeeping, version gate) plus frame dispatch for the bidi RPC.
type Server struct {
	Registry      *gateway.Registry
	Incompatible  *gateway.IncompatibleRegistry
	MinVersion    string
	Config        ConfigProvider
	Updates       UpdateSource
	OnStatsUpdate func(locationID int64, s *wireproto.StatsUpdate)
}

// Bidi implements GatewayServer. On stream start it runs the spec.md §4.F
// add_gateway -> connect_gateway transition pair (location/gateway identity
// comes from the authenticated claims), then runs two loops concurrently:
// one reading CoreResponse frames off the stream, one forwarding
// subscribed Update frames onto it, exactly the read-loop/write-loop split
// subscribe.go uses for its single send direction, generalized to bidi.
func (s *Server) Bidi(stream BidiStream) error {
	claims, ok := ClaimsFromContext(stream.Context())
	if !ok {
		return status.Error(codes.Unauthenticated, "missing gateway claims")
	}
	log := logging.Component("gateway-rpc").With("location_id", claims.LocationID, "gateway", claims.Name)

	if !gateway.MeetsMinVersion(claims.Version, s.MinVersion) {
		if s.Incompatible != nil {
			s.Incompatible.Record(claims.LocationID, claims.Name, claims.Version)
		}
		log.Warn("rejecting gateway below minimum version", "version", claims.Version, "min_version", s.MinVersion)
		return status.Errorf(codes.FailedPrecondition, "gateway version %s is below the minimum supported version %s", claims.Version, s.MinVersion)
	}
	if s.Incompatible != nil {
		s.Incompatible.Clear(claims.LocationID, claims.Name)
	}

	// Stream start doubles as the gateway's add_gateway registration
	// (spec.md §4.F): idempotent, so a reconnecting gateway
	// that is already registered is unaffected. connect_gateway then
	// requires that registration to exist.
	s.Registry.Add(claims.LocationID, claims.Name, "", claims.Version)
	state, err := s.Registry.Connect(claims.LocationID, claims.Name, claims.Version)
	if err != nil {
		return status.Errorf(codes.NotFound, "gateway: %v", err)
	}
	defer s.Registry.Disconnect(claims.LocationID, claims.Name)
	log.Info("gateway connected", "gateway_id", state.ID)

	var (
		updatesCh  <-chan *wireproto.Update
		cancelSub  func()
		subscribed bool
	)
	defer func() {
		if cancelSub != nil {
			cancelSub()
		}
	}()

	recvCh := make(chan *wireproto.CoreResponse)
	recvErrCh := make(chan error, 1)
	go func() {
		for {
			msg, err := stream.Recv()
			if err != nil {
				if err == io.EOF {
					recvErrCh <- nil
				} else {
					recvErrCh <- err
				}
				close(recvCh)
				return
			}
			recvCh <- msg
		}
	}()

	for {
		select {
		case <-stream.Context().Done():
			return stream.Context().Err()
		case err := <-recvErrCh:
			return err
		case msg, ok := <-recvCh:
			if !ok {
				continue
			}
			if err := s.handleFrame(stream, claims.LocationID, msg, &updatesCh, &cancelSub, &subscribed); err != nil {
				log.Warn("handling gateway frame failed", "error", err)
			}
		case upd, ok := <-updatesCh:
			if !ok {
				updatesCh = nil
				continue
			}
			if err := stream.Send(&wireproto.CoreRequest{Update: upd}); err != nil {
				return err
			}
		}
	}
}

func (s *Server) handleFrame(stream BidiStream, locationID int64, msg *wireproto.CoreResponse, updatesCh *<-chan *wireproto.Update, cancelSub *func(), subscribed *bool) error {
	switch {
	case msg.ConfigRequest != nil:
		cfg, err := s.Config.BuildConfiguration(stream.Context(), msg.ConfigRequest.NetworkID)
		if err != nil {
			return err
		}
		return stream.Send(&wireproto.CoreRequest{Configuration: cfg})
	case msg.UpdatesSubscribe != nil:
		if *subscribed {
			return nil
		}
		ch, cancel := s.Updates.Subscribe(msg.UpdatesSubscribe.NetworkID)
		*updatesCh = ch
		*cancelSub = cancel
		*subscribed = true
		return nil
	case msg.StatsUpdate != nil:
		if s.OnStatsUpdate != nil {
			s.OnStatsUpdate(locationID, msg.StatsUpdate)
		}
		return nil
	}
	return nil
}
