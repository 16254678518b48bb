package main

import (
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"os/signal"
	"syscall"
	"time"

	grpcprom "github.com/grpc-ecosystem/go-grpc-middleware/providers/prometheus"
	"github.com/grpc-ecosystem/go-grpc-middleware/v2/interceptors/recovery"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/ed25519"
	"golang.org/x/sync/errgroup"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
	"google.golang.org/grpc"

	"github.com/defguard/defguard-core/internal/activitystream"
	"github.com/defguard/defguard-core/internal/audit"
	"github.com/defguard/defguard-core/internal/clients"
	"github.com/defguard/defguard-core/internal/config"
	"github.com/defguard/defguard-core/internal/counts"
	"github.com/defguard/defguard-core/internal/events"
	"github.com/defguard/defguard-core/internal/gateway"
	"github.com/defguard/defguard-core/internal/gateway/rpc"
	"github.com/defguard/defguard-core/internal/license"
	"github.com/defguard/defguard-core/internal/logging"
	"github.com/defguard/defguard-core/internal/store"
	"github.com/defguard/defguard-core/internal/wireproto"
)

var (
	serveLogLevel string
	serveJSONLogs bool
)

func init() {
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "info", "log level (debug, info, warn, error)")
	serveCmd.Flags().BoolVar(&serveJSONLogs, "json-logs", false, "emit JSON-formatted logs instead of text")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "run the gateway registry, event router, and supporting services",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServe(cmd.Context())
	},
}

// runServe wires every component per SPEC_FULL.md's module layout into one
// running process, the way the teacher's services package composes the
// mesh storage, raft, and gRPC services into a single node process.
func runServe(ctx context.Context) error {
	opts, err := config.Load(cfgFile)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logging.Setup(serveLogLevel, serveJSONLogs)
	log := logging.Component("serve")

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.Pool(ctx, opts.Database.URL, int32(opts.Database.MaxOpenConns))
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer pool.Close()
	querier := store.NewPGQuerier(pool)

	licenseStore, err := license.OpenStore(opts.License.CachePath)
	if err != nil {
		return fmt.Errorf("open license store: %w", err)
	}
	defer licenseStore.Close()

	licenseCache := license.NewCache(licenseStore)

	var pubKey ed25519.PublicKey
	if opts.License.PublicKeyB64 != "" {
		raw, err := base64.StdEncoding.DecodeString(opts.License.PublicKeyB64)
		if err != nil {
			return fmt.Errorf("decode license public key: %w", err)
		}
		pubKey = ed25519.PublicKey(raw)
	}
	renewer := &license.Renewer{
		Cache:     licenseCache,
		Fetcher:   &license.HTTPFetcher{},
		ServerURL: opts.License.ServerURL,
		PublicKey: pubKey,
		Interval:  time.Hour,
	}

	countsCache := counts.NewCache(opts.FreeTierLimits)

	bus := audit.NewBus(0)
	auditStore := audit.NewStore(querier, bus)

	broadcaster := events.NewGatewayBroadcaster()
	router := events.NewRouter(64, auditStore, nil, broadcaster)

	registry := gateway.NewRegistry(10*time.Second, func(locationID int64, name string) {
		router.Submit(events.ProducerInternal, events.Event{
			Kind:        events.KindGatewayDisconnected,
			NetworkID:   locationID,
			GatewayName: name,
			Context:     events.Context{Timestamp: time.Now()},
		})
	})
	registry.OnReconnect = func(locationID int64, name string) {
		router.Submit(events.ProducerInternal, events.Event{
			Kind:        events.KindGatewayReconnected,
			NetworkID:   locationID,
			GatewayName: name,
			Context:     events.Context{Timestamp: time.Now()},
		})
	}
	incompatible := gateway.NewIncompatibleRegistry()

	clientMap := clients.NewMap()
	sweeper := &clients.Sweeper{
		Map:      clientMap,
		TTL:      3 * time.Minute,
		Interval: 30 * time.Second,
		OnEvict: func(locationID int64, evicted []*clients.ClientState) {
			for _, c := range evicted {
				router.Submit(events.ProducerInternal, events.Event{
					Kind:         events.KindClientDisconnected,
					NetworkID:    locationID,
					DevicePubKey: c.PublicKey.String(),
					Context:      events.Context{Timestamp: time.Now()},
				})
			}
		},
	}

	var streamConfigSource activitystream.ConfigSource = &activitystream.StoreConfigSource{Querier: querier}
	if opts.ActivityStream.FilePath != "" {
		streamConfigSource = &activitystream.FileConfigSource{Path: opts.ActivityStream.FilePath}
	}
	streamManager := &activitystream.Manager{
		Config:       streamConfigSource,
		License:      licenseCache,
		Bus:          bus,
		ReloadSignal: router.StreamReload,
	}

	rpcServer := &rpc.Server{
		Registry:      registry,
		Incompatible:  incompatible,
		MinVersion:    opts.Gateway.MinVersion,
		Config:        stubConfigProvider{},
		Updates:       broadcaster,
		OnStatsUpdate: newStatsHandler(clientMap),
	}

	srvMetrics := grpcprom.NewServerMetrics(grpcprom.WithServerCounterOptions())
	prometheus.MustRegister(srvMetrics)

	grpcSrv := grpc.NewServer(
		grpc.ChainStreamInterceptor(
			recovery.StreamServerInterceptor(recovery.WithRecoveryHandlerContext(
				func(ctx context.Context, p any) error {
					log.Error("gateway stream handler panicked", "panic", p)
					return fmt.Errorf("internal error")
				},
			)),
			srvMetrics.StreamServerInterceptor(),
			rpc.StreamAuthInterceptor([]byte(opts.Gateway.JWTSigningKey)),
		),
	)
	rpc.RegisterGatewayServer(grpcSrv, rpcServer)

	lis, err := net.Listen("tcp", opts.Server.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", opts.Server.ListenAddr, err)
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: opts.Server.MetricsAddr, Handler: metricsMux}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("gateway grpc service listening", "addr", opts.Server.ListenAddr)
		return grpcSrv.Serve(lis)
	})
	g.Go(func() error {
		log.Info("metrics endpoint listening", "addr", opts.Server.MetricsAddr)
		return metricsSrv.ListenAndServe()
	})
	g.Go(func() error { return router.Run(gctx) })
	g.Go(func() error { renewer.Run(gctx); return nil })
	g.Go(func() error { return sweeper.Run(gctx) })
	g.Go(func() error { return streamManager.Run(gctx) })
	g.Go(func() error { return refreshCountsLoop(gctx, countsCache, querier) })

	g.Go(func() error {
		<-gctx.Done()
		grpcSrv.GracefulStop()
		return metricsSrv.Close()
	})

	log.Info("defguard-core started")
	return g.Wait()
}

// newStatsHandler implements spec.md §4.G.4's stats-ingress dispatch: parse
// the frame, call Connect for an unseen key, then apply the frame with
// UpdateStats. The only expected Connect failure is
// ErrClientAlreadyConnected racing against a concurrent connect for the
// same key; it is logged and that frame is dropped.
func newStatsHandler(clientMap *clients.Map) func(locationID int64, s *wireproto.StatsUpdate) {
	log := logging.Component("client-stats")
	return func(locationID int64, s *wireproto.StatsUpdate) {
		key, err := wgtypes.ParseKey(s.PublicKey)
		if err != nil {
			log.Warn("stats frame with invalid public key", "location_id", locationID, "error", err)
			return
		}
		endpoint, _ := netip.ParseAddrPort(s.Endpoint)
		handshake := time.Unix(s.LatestHandshakeUnix, 0)

		if _, ok := clientMap.Get(locationID, key); !ok {
			if err := clientMap.Connect(locationID, key, endpoint, handshake); err != nil {
				log.Warn("client connect failed", "location_id", locationID, "key", key, "error", err)
				return
			}
		}
		clientMap.UpdateStats(locationID, key, handshake, s.Upload, s.Download)
	}
}

// refreshCountsLoop recomputes the resource-count snapshot hourly, per
// spec.md §4.C's update_counts(db) contract.
func refreshCountsLoop(ctx context.Context, c *counts.Cache, q store.Querier) error {
	log := logging.Component("counts")
	if err := c.Refresh(ctx, q); err != nil {
		log.Warn("initial counts refresh failed", "error", err)
	}
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := c.Refresh(ctx, q); err != nil {
				log.Warn("counts refresh failed", "error", err)
			}
		}
	}
}
