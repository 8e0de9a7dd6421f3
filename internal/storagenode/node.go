package storagenode

import (
	"context"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/kvring/internal/storage"
	"github.com/dreamware/kvring/internal/transport"
)

// Config tunes a Node's identity, transport addresses, and loop timings.
// Zero-valued duration fields fall back to the defaults in internal/config.
type Config struct {
	NodeID                    string
	ListenAddr                string
	AdvertiseAddress          string
	AdvertisePort             int
	GatewayAddress            string
	HeartbeatInterval         time.Duration
	RegistrationRetryInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.HeartbeatInterval <= 0 {
		c.HeartbeatInterval = 10 * time.Second
	}
	if c.RegistrationRetryInterval <= 0 {
		c.RegistrationRetryInterval = 5 * time.Second
	}
	return c
}

// Node is a storage node: a flat key-value map plus the registration and
// heartbeat state machine that keeps one gateway aware of it.
type Node struct {
	cfg   Config
	log   *zap.SugaredLogger
	store storage.Store

	httpClient *transport.Client
	startedAt  time.Time
	metrics    *Metrics

	running           atomic.Bool
	registered        atomic.Bool
	explicitlyStopped atomic.Bool
}

// New creates a Node ready to serve requests. Run must be called separately
// to start the background heartbeat loop.
func New(cfg Config, log *zap.SugaredLogger) *Node {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	store := storage.NewMemoryStore()
	n := &Node{
		cfg:        cfg,
		log:        log,
		store:      store,
		httpClient: transport.New(5 * time.Second),
		startedAt:  time.Now(),
		metrics:    NewMetrics(store),
	}
	n.running.Store(true)
	return n
}

// Run drives the registration/heartbeat loop until ctx is cancelled or Stop
// is called. Each iteration: register if not registered (sleeping the
// shorter retry interval and trying again on failure, skipping the
// heartbeat for that tick), then post a heartbeat carrying the current key
// count, dropping back to unregistered on any non-2xx or transport error so
// the next tick re-registers.
func (n *Node) Run(ctx context.Context) {
	for n.running.Load() {
		if ctx.Err() != nil {
			return
		}

		if !n.registered.Load() {
			if err := n.postHeartbeat(ctx, false); err != nil {
				n.log.Warnw("registration failed", "gateway", n.cfg.GatewayAddress, "error", err)
				if !n.sleep(ctx, n.cfg.RegistrationRetryInterval) {
					return
				}
				continue
			}
			n.registered.Store(true)
			n.log.Infow("registered with gateway", "node_id", n.cfg.NodeID, "gateway", n.cfg.GatewayAddress)
		}

		if err := n.postHeartbeat(ctx, true); err != nil {
			n.log.Warnw("heartbeat failed, will re-register", "node_id", n.cfg.NodeID, "error", err)
			n.registered.Store(false)
		}

		if !n.sleep(ctx, n.cfg.HeartbeatInterval) {
			return
		}
	}
}

func (n *Node) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

type heartbeatRequest struct {
	NodeID    string  `json:"node_id"`
	Address   string  `json:"address"`
	Port      int     `json:"port"`
	Timestamp float64 `json:"timestamp,omitempty"`
	KeyCount  int     `json:"key_count,omitempty"`
}

// postHeartbeat posts to the gateway's /heartbeat, the same endpoint used
// for both initial registration and steady-state liveness reporting;
// withStats adds the timestamp and key count a heartbeat (but not a bare
// registration) carries.
func (n *Node) postHeartbeat(ctx context.Context, withStats bool) error {
	req := heartbeatRequest{
		NodeID:  n.cfg.NodeID,
		Address: n.cfg.AdvertiseAddress,
		Port:    n.cfg.AdvertisePort,
	}
	if withStats {
		req.Timestamp = float64(time.Now().Unix())
		req.KeyCount = n.store.Stats().Keys
	}

	url := fmt.Sprintf("%s/heartbeat", n.cfg.GatewayAddress)
	status, err := n.httpClient.DoJSON(ctx, http.MethodPost, url, req, nil)
	if err != nil {
		return err
	}
	if status < 200 || status >= 300 {
		return fmt.Errorf("heartbeat to %s: http %d", url, status)
	}
	return nil
}

// Stop requests a cooperative shutdown: the heartbeat loop exits on its
// next check, and Health starts reporting "stopping" so the gateway's
// direct probe fails fast instead of waiting out the heartbeat timeout.
func (n *Node) Stop() {
	n.running.Store(false)
	n.explicitlyStopped.Store(true)
}

// Put stores value under key, replacing any existing value.
func (n *Node) Put(key string, value []byte) error {
	if err := n.store.Put(key, value); err != nil {
		return err
	}
	n.metrics.PutsTotal.Inc()
	return nil
}

// Get retrieves the value stored under key, or storage.ErrKeyNotFound.
func (n *Node) Get(key string) ([]byte, error) {
	n.metrics.GetsTotal.Inc()
	return n.store.Get(key)
}

// Delete removes key, or returns storage.ErrKeyNotFound if key is absent
// (which handlers.go reports as a 404). Unlike storage.Store.Delete, it is
// not idempotent: it checks for the key before deleting it.
func (n *Node) Delete(key string) error {
	if _, err := n.store.Get(key); err != nil {
		return err
	}
	if err := n.store.Delete(key); err != nil {
		return err
	}
	n.metrics.DeletesTotal.Inc()
	return nil
}

// Keys returns a snapshot of every key currently stored.
func (n *Node) Keys() []string {
	return n.store.List()
}

// HealthView is the response shape for GET /health.
type HealthView struct {
	Status string `json:"status"`
}

// Health reports "stopping" once Stop has been called, "healthy" otherwise.
func (n *Node) Health() HealthView {
	if n.explicitlyStopped.Load() {
		return HealthView{Status: "stopping"}
	}
	return HealthView{Status: "healthy"}
}

// StatsView is the response shape for GET /stats.
type StatsView struct {
	NodeID     string  `json:"node_id"`
	Address    string  `json:"address"`
	KeyCount   int     `json:"key_count"`
	Registered bool    `json:"registered"`
	Gateway    string  `json:"gateway"`
	Uptime     float64 `json:"uptime"`
}

// Stats reports identity, storage size, registration status, and uptime.
func (n *Node) Stats() StatsView {
	return StatsView{
		NodeID:     n.cfg.NodeID,
		Address:    fmt.Sprintf("%s:%d", n.cfg.AdvertiseAddress, n.cfg.AdvertisePort),
		KeyCount:   n.store.Stats().Keys,
		Registered: n.registered.Load(),
		Gateway:    n.cfg.GatewayAddress,
		Uptime:     time.Since(n.startedAt).Seconds(),
	}
}
