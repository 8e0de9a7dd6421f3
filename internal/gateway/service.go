package gateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dreamware/kvring/internal/gossip"
	"github.com/dreamware/kvring/internal/ring"
	"github.com/dreamware/kvring/internal/transport"
)

// Node descriptor status values. StatusInactive is reserved by the design
// but never set by this implementation.
const (
	StatusActive   = "active"
	StatusDead     = "dead"
	StatusInactive = "inactive"
)

// NodeDescriptor is the gateway's view of a single storage node.
type NodeDescriptor struct {
	NodeID        string    `json:"node_id"`
	Address       string    `json:"address"`
	Port          int       `json:"port"`
	LastHeartbeat time.Time `json:"last_heartbeat"`
	Status        string    `json:"status"`
}

// URL returns the storage node's base HTTP address.
func (n NodeDescriptor) URL() string {
	return fmt.Sprintf("http://%s:%d", n.Address, n.Port)
}

// Config tunes a Service's timings and limits. Zero-valued fields fall
// back to the defaults in internal/config.
type Config struct {
	GatewayID         string
	VirtualNodes      int
	HeartbeatTimeout  time.Duration
	HealthCheckPeriod time.Duration
	ProbeTimeout      time.Duration
	GossipPeerTimeout time.Duration
	GossipMaxInFlight int
	SeenMessagesCap   int
	PeerGateways      []string
}

func (c Config) withDefaults() Config {
	if c.VirtualNodes <= 0 {
		c.VirtualNodes = ring.DefaultVirtualNodes
	}
	if c.HeartbeatTimeout <= 0 {
		c.HeartbeatTimeout = 30 * time.Second
	}
	if c.HealthCheckPeriod <= 0 {
		c.HealthCheckPeriod = 10 * time.Second
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = 3 * time.Second
	}
	if c.GossipPeerTimeout <= 0 {
		c.GossipPeerTimeout = 5 * time.Second
	}
	if c.GossipMaxInFlight <= 0 {
		c.GossipMaxInFlight = 10
	}
	return c
}

// Service is the routing gateway: node membership, the hash ring, gossip,
// and the background health checker.
type Service struct {
	cfg Config
	log *zap.SugaredLogger

	nodesMu sync.RWMutex
	nodes   map[string]*NodeDescriptor

	ring *ring.Ring
	seen *gossip.SeenSet

	httpClient *transport.Client
	health     *HealthMonitor
	metrics    *Metrics

	gossipSem chan struct{}
}

// New creates a Service ready to serve requests. Start must be called to
// begin the background health checker.
func New(cfg Config, log *zap.SugaredLogger) *Service {
	cfg = cfg.withDefaults()
	if log == nil {
		log = zap.NewNop().Sugar()
	}

	s := &Service{
		cfg:        cfg,
		log:        log,
		nodes:      make(map[string]*NodeDescriptor),
		ring:       ring.New(cfg.VirtualNodes),
		seen:       gossip.NewSeenSet(cfg.SeenMessagesCap),
		httpClient: transport.New(cfg.GossipPeerTimeout),
		metrics:    NewMetrics(),
		gossipSem:  make(chan struct{}, cfg.GossipMaxInFlight),
	}
	s.health = NewHealthMonitor(s, cfg.HealthCheckPeriod, cfg.ProbeTimeout, cfg.HeartbeatTimeout)
	return s
}

// Start launches the background health checker. It returns once ctx is
// cancelled.
func (s *Service) Start(ctx context.Context) {
	s.health.Run(ctx)
}

// Heartbeat upserts a node descriptor, adding the node to the ring on
// first sight, and gossips the observation to peers. It mirrors the
// "unknown node" vs. "known node" registration paths from the design:
// a never-before-seen (or previously evicted) node ID is treated as new.
func (s *Service) Heartbeat(nodeID, address string, port int) {
	now := time.Now()

	s.nodesMu.Lock()
	desc, known := s.nodes[nodeID]
	if !known {
		desc = &NodeDescriptor{NodeID: nodeID}
		s.nodes[nodeID] = desc
	}
	isNew := !known || desc.Status == StatusDead
	desc.Address = address
	desc.Port = port
	desc.LastHeartbeat = now
	desc.Status = StatusActive
	s.nodesMu.Unlock()

	if isNew {
		s.ring.Add(nodeID)
		s.log.Infow("node registered", "node_id", nodeID, "address", address, "port", port)
	}
	s.metrics.HeartbeatsAccepted.Inc()

	msg := gossip.NewHeartbeat(s.cfg.GatewayID, gossip.HeartbeatData{
		NodeID:    nodeID,
		Address:   address,
		Port:      port,
		Timestamp: float64(now.Unix()),
	})
	s.seen.MarkSeen(msg.MessageID)
	go s.broadcast(msg)
}

// ListNodes returns a snapshot of every known node descriptor, keyed by ID.
func (s *Service) ListNodes() map[string]NodeDescriptor {
	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()

	out := make(map[string]NodeDescriptor, len(s.nodes))
	for id, d := range s.nodes {
		out[id] = *d
	}
	return out
}

// OwnerOf returns the descriptor of the node owning key, and false if the
// ring currently holds no live nodes.
func (s *Service) OwnerOf(key string) (NodeDescriptor, bool) {
	nodeID, ok := s.ring.Owner(key)
	if !ok {
		return NodeDescriptor{}, false
	}

	s.nodesMu.RLock()
	defer s.nodesMu.RUnlock()
	desc, ok := s.nodes[nodeID]
	if !ok {
		// Ring and node table briefly disagree during a concurrent
		// eviction; treat as "no owner" rather than panic.
		return NodeDescriptor{}, false
	}
	return *desc, true
}

// RingStatusView is the response shape for GET /ring/status.
type RingStatusView struct {
	GatewayID    string   `json:"gateway_id"`
	TotalNodes   int      `json:"total_nodes"`
	ActiveNodes  int      `json:"active_nodes"`
	RingNodes    []string `json:"ring_nodes"`
	PeerGateways []string `json:"peer_gateways"`
}

// RingStatus summarizes current membership and ring contents.
func (s *Service) RingStatus() RingStatusView {
	s.nodesMu.RLock()
	active := 0
	total := len(s.nodes)
	for _, d := range s.nodes {
		if d.Status == StatusActive {
			active++
		}
	}
	s.nodesMu.RUnlock()

	return RingStatusView{
		GatewayID:    s.cfg.GatewayID,
		TotalNodes:   total,
		ActiveNodes:  active,
		RingNodes:    s.ring.Nodes(),
		PeerGateways: s.cfg.PeerGateways,
	}
}

// HealthView is the response shape for GET /health.
type HealthView struct {
	Status      string  `json:"status"`
	GatewayID   string  `json:"gateway_id"`
	NodesCount  int     `json:"nodes_count"`
	ActiveNodes int     `json:"active_nodes"`
	Timestamp   float64 `json:"timestamp"`
}

// Health reports the gateway's own liveness.
func (s *Service) Health() HealthView {
	status := s.RingStatus()
	return HealthView{
		Status:      "healthy",
		GatewayID:   s.cfg.GatewayID,
		NodesCount:  status.TotalNodes,
		ActiveNodes: status.ActiveNodes,
		Timestamp:   float64(time.Now().Unix()),
	}
}

// AdminClearNodes wipes the node table and replaces the ring with an empty
// one at AdminVirtualNodes granularity. Test-only per the design.
func (s *Service) AdminClearNodes() int {
	s.nodesMu.Lock()
	cleared := len(s.nodes)
	s.nodes = make(map[string]*NodeDescriptor)
	s.nodesMu.Unlock()

	s.ring = ring.New(ring.AdminVirtualNodes)
	return cleared
}

// Gossip applies an inbound gossip message, deduplicating by MessageID,
// and re-broadcasts it to peers if it is new and not self-originated.
func (s *Service) Gossip(msg gossip.Message) {
	if !s.seen.MarkSeen(msg.MessageID) {
		s.metrics.GossipDuplicatesSuppressed.Inc()
		return
	}

	if msg.Type == gossip.Heartbeat {
		s.applyGossipHeartbeat(msg.Data)
	}

	if msg.SenderID != s.cfg.GatewayID {
		go s.broadcast(msg)
	}
}

// applyGossipHeartbeat updates (or creates) a descriptor from a
// peer-observed heartbeat, and adds the node to the ring. The reference
// design leaves inbound gossip out of the ring-insertion path, which
// silently strands a node the gateway knows is live; this implementation
// takes the documented fix (see DESIGN.md) and adds it exactly like a
// direct heartbeat would.
func (s *Service) applyGossipHeartbeat(data gossip.HeartbeatData) {
	observedAt := time.Unix(int64(data.Timestamp), 0)

	s.nodesMu.Lock()
	desc, known := s.nodes[data.NodeID]
	if !known {
		desc = &NodeDescriptor{NodeID: data.NodeID}
		s.nodes[data.NodeID] = desc
	}
	isNewer := !known || observedAt.After(desc.LastHeartbeat)
	revived := isNewer && known && desc.Status == StatusDead
	if isNewer {
		desc.Address = data.Address
		desc.Port = data.Port
		desc.LastHeartbeat = observedAt
		desc.Status = StatusActive
	}
	s.nodesMu.Unlock()

	if !known || revived {
		s.ring.Add(data.NodeID)
		s.log.Infow("node learned via gossip", "node_id", data.NodeID)
	}
}

// broadcast fans a gossip message out to every configured peer,
// concurrently, with a bounded number of in-flight sends. Failures are
// logged and dropped; there is no retry.
func (s *Service) broadcast(msg gossip.Message) {
	var wg sync.WaitGroup
	for _, peer := range s.cfg.PeerGateways {
		peer := peer
		wg.Add(1)
		s.gossipSem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-s.gossipSem }()

			ctx, cancel := context.WithTimeout(context.Background(), s.cfg.GossipPeerTimeout)
			defer cancel()

			if err := postGossip(ctx, s.httpClient, peer, msg); err != nil {
				s.log.Warnw("gossip delivery failed", "peer", peer, "error", err)
				return
			}
			s.metrics.GossipMessagesSent.Inc()
		}()
	}
	wg.Wait()
}
