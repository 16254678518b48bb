package main

import (
	"context"
	"fmt"

	"github.com/defguard/defguard-core/internal/wireproto"
)

// stubConfigProvider satisfies internal/gateway/rpc.ConfigProvider with no
// backing network/peer store. Building a full wireproto.Configuration
// requires reading WireguardNetwork and Device rows, which SPEC_FULL.md §5
// keeps as an external collaborator (the bulk CRUD/administrative API is a
// Non-goal) — a real deployment supplies a ConfigProvider backed by that
// API's data layer instead of this one. It is wired here only so `serve`
// has a complete, constructible rpc.Server; Component D (the ACL compiler)
// and the rest of this module are fully implemented and exercised by their
// own tests regardless of this stub.
type stubConfigProvider struct{}

func (stubConfigProvider) BuildConfiguration(ctx context.Context, networkID int64) (*wireproto.Configuration, error) {
	return nil, fmt.Errorf("defguard-core: no network/device data source configured for network %d", networkID)
}
