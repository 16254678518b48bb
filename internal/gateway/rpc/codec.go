// Package rpc wires internal/wireproto's hand-authored message types onto a
// real grpc.Server bidirectional stream. Since no protoc invocation is
// allowed in this module, the wire messages are not proto.Message
// implementations; rather than fabricate a protobuf encoder, this package
// registers a small JSON grpc codec (content-subtype "json") the way a
// protobuf codec would normally be registered by generated code. A gateway
// client selects it with grpc.CallContentSubtype("json") (content type
// "application/grpc+json"); the server does not force a codec and picks
// this one through the registration. This substitution is recorded in
// DESIGN.md.
package rpc

import (
	"encoding/json"

	"google.golang.org/grpc/encoding"
)

const codecName = "json"

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

func (jsonCodec) Name() string { return codecName }
