// Command gateway runs a single routing gateway: it answers heartbeats from
// storage nodes, maintains the consistent-hash ring, gossips membership to
// its peer gateways, and answers owner_of lookups for clients.
//
// Configuration is environment-first (GATEWAY_ID, LISTEN_PORT,
// PEER_GATEWAYS), with an optional YAML overlay named by GATEWAY_CONFIG for
// settings env vars don't cover; see internal/config.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/kvring/internal/config"
	"github.com/dreamware/kvring/internal/gateway"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck
	sugar := log.Sugar()

	cfg, err := config.LoadGateway()
	if err != nil {
		sugar.Fatalw("failed to load gateway config", "error", err)
	}
	if cfg.GatewayID == "" {
		sugar.Fatalw("GATEWAY_ID must be set")
	}

	svc := gateway.New(gateway.Config{
		GatewayID:         cfg.GatewayID,
		VirtualNodes:      cfg.VirtualNodes,
		HeartbeatTimeout:  cfg.HeartbeatTimeout,
		HealthCheckPeriod: cfg.HealthCheckPeriod,
		ProbeTimeout:      cfg.ProbeTimeout,
		GossipPeerTimeout: cfg.GossipPeerTimeout,
		GossipMaxInFlight: cfg.GossipMaxInFlight,
		SeenMessagesCap:   cfg.SeenMessagesCap,
		PeerGateways:      cfg.PeerGateways,
	}, sugar)

	ctx, cancelHealth := context.WithCancel(context.Background())
	go svc.Start(ctx)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           gateway.NewMux(svc),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sugar.Infow("gateway listening", "gateway_id", cfg.GatewayID, "addr", cfg.ListenAddr, "peers", cfg.PeerGateways)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("listen failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sugar.Infow("shutting down gateway")
	cancelHealth()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown failed", "error", err)
	}
	sugar.Infow("gateway stopped")
}
