package rpc

import (
	"google.golang.org/grpc"

	"github.com/defguard/defguard-core/internal/wireproto"
)

// BidiStream is the server-side handle for one gateway's long-lived stream,
// shaped like the server-stream interfaces protoc-gen-go-grpc would
// generate for the Bidi RPC in gateway.proto.
type BidiStream interface {
	Send(*wireproto.CoreRequest) error
	Recv() (*wireproto.CoreResponse, error)
	grpc.ServerStream
}

// GatewayServer is the service interface a concrete Server implements.
type GatewayServer interface {
	Bidi(BidiStream) error
}

type bidiStream struct {
	grpc.ServerStream
}

func (b *bidiStream) Send(m *wireproto.CoreRequest) error {
	return b.ServerStream.SendMsg(m)
}

func (b *bidiStream) Recv() (*wireproto.CoreResponse, error) {
	m := new(wireproto.CoreResponse)
	if err := b.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func bidiHandler(srv any, stream grpc.ServerStream) error {
	return srv.(GatewayServer).Bidi(&bidiStream{ServerStream: stream})
}

// ServiceDesc is the hand-built equivalent of the ServiceDesc
// protoc-gen-go-grpc would emit for the Gateway service in gateway.proto.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "defguard.gateway.v1.Gateway",
	HandlerType: (*GatewayServer)(nil),
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Bidi",
			Handler:       bidiHandler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "gateway.proto",
}

// RegisterGatewayServer registers srv on s.
func RegisterGatewayServer(s grpc.ServiceRegistrar, srv GatewayServer) {
	s.RegisterService(&ServiceDesc, srv)
}
