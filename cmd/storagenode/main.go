// Command storagenode runs a single storage node: an HTTP server for
// put/get/delete/keys/health/stats, and a background loop that registers
// with a gateway and heartbeats key-count stats to it.
//
// Configuration is environment-first (NODE_ID, LISTEN_PORT, NODE_ADDRESS,
// GATEWAY_ADDRESS), with an optional YAML overlay named by NODE_CONFIG; see
// internal/config.
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
	"github.com/dreamware/kvring/internal/storagenode"
)

func main() {
	log, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer log.Sync() //nolint:errcheck
	sugar := log.Sugar()

	cfg, err := config.LoadNode()
	if err != nil {
		sugar.Fatalw("failed to load node config", "error", err)
	}
	if cfg.NodeID == "" {
		sugar.Fatalw("NODE_ID must be set")
	}
	if cfg.GatewayAddress == "" {
		sugar.Fatalw("GATEWAY_ADDRESS must be set")
	}

	node := storagenode.New(storagenode.Config{
		NodeID:                    cfg.NodeID,
		ListenAddr:                cfg.ListenAddr,
		AdvertiseAddress:          cfg.AdvertiseAddress,
		AdvertisePort:             cfg.AdvertisePort,
		GatewayAddress:            cfg.GatewayAddress,
		HeartbeatInterval:         cfg.HeartbeatInterval,
		RegistrationRetryInterval: cfg.RegistrationRetryInterval,
	}, sugar)

	runCtx, cancelRun := context.WithCancel(context.Background())
	go node.Run(runCtx)

	httpSrv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           storagenode.NewMux(node),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		sugar.Infow("storage node listening", "node_id", cfg.NodeID, "addr", cfg.ListenAddr, "gateway", cfg.GatewayAddress)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sugar.Fatalw("listen failed", "error", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	sugar.Infow("shutting down storage node")
	node.Stop()
	cancelRun()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		sugar.Warnw("graceful shutdown failed", "error", err)
	}
	sugar.Infow("storage node stopped")
}
