package rpc

import (
	"context"
	"testing"

	"google.golang.org/grpc"

	"github.com/defguard/defguard-core/internal/wireproto"
)

type fakeConfigProvider struct {
	cfg *wireproto.Configuration
}

func (f *fakeConfigProvider) BuildConfiguration(ctx context.Context, networkID int64) (*wireproto.Configuration, error) {
	return f.cfg, nil
}

type fakeBidiStream struct {
	grpc.ServerStream
	sent []*wireproto.CoreRequest
}

func (f *fakeBidiStream) Context() context.Context { return context.Background() }

func (f *fakeBidiStream) Send(m *wireproto.CoreRequest) error {
	f.sent = append(f.sent, m)
	return nil
}
func (f *fakeBidiStream) Recv() (*wireproto.CoreResponse, error) { return nil, nil }

func TestHandleFrameConfigRequest(t *testing.T) {
	s := &Server{Config: &fakeConfigProvider{cfg: &wireproto.Configuration{NetworkID: 7, Name: "office"}}}
	var updatesCh (<-chan *wireproto.Update)
	var cancel func()
	var subscribed bool

	stream := &fakeBidiStream{}
	err := s.handleFrame(stream, 1, &wireproto.CoreResponse{ConfigRequest: &wireproto.ConfigRequest{NetworkID: 7}}, &updatesCh, &cancel, &subscribed)
	if err != nil {
		t.Fatal(err)
	}
	if len(stream.sent) != 1 || stream.sent[0].Configuration == nil || stream.sent[0].Configuration.Name != "office" {
		t.Fatalf("expected configuration frame sent, got %+v", stream.sent)
	}
}
