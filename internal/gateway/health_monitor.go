package gateway

import (
	"context"
	"time"

	"github.com/dreamware/kvring/internal/transport"
)

// HealthMonitor periodically checks every known node descriptor and
// evicts ones that have gone quiet or failed a direct probe, per the
// two-condition eviction rule from the design: a heartbeat timeout alone
// is sufficient, and so is a single failed probe.
type HealthMonitor struct {
	svc       *Service
	period    time.Duration
	timeout   time.Duration
	probeCl   *transport.Client
	hbTimeout time.Duration
}

// NewHealthMonitor creates a checker bound to svc. Run must be called to
// start the background loop.
func NewHealthMonitor(svc *Service, period, probeTimeout, heartbeatTimeout time.Duration) *HealthMonitor {
	return &HealthMonitor{
		svc:       svc,
		period:    period,
		timeout:   probeTimeout,
		hbTimeout: heartbeatTimeout,
		probeCl:   transport.New(probeTimeout),
	}
}

// Run ticks every period, checking all nodes known at the start of the
// tick, until ctx is cancelled.
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.checkAll(ctx)
		}
	}
}

// checkAll snapshots the node table once, releases the lock, and then
// checks each node without holding it — so probes racing concurrent
// heartbeats never block request handlers.
func (h *HealthMonitor) checkAll(ctx context.Context) {
	h.svc.nodesMu.RLock()
	snapshot := make([]NodeDescriptor, 0, len(h.svc.nodes))
	for _, d := range h.svc.nodes {
		snapshot = append(snapshot, *d)
	}
	h.svc.nodesMu.RUnlock()

	for _, desc := range snapshot {
		h.checkOne(ctx, desc)
	}
}

func (h *HealthMonitor) checkOne(ctx context.Context, desc NodeDescriptor) {
	if time.Since(desc.LastHeartbeat) > h.hbTimeout {
		h.evict(desc.NodeID, "heartbeat timeout")
		return
	}

	probeCtx, cancel := context.WithTimeout(ctx, h.timeout)
	err := probeHealth(probeCtx, h.probeCl, desc.Address, desc.Port)
	cancel()

	if err != nil {
		h.evict(desc.NodeID, "probe failed")
		return
	}

	h.svc.nodesMu.Lock()
	if d, ok := h.svc.nodes[desc.NodeID]; ok {
		d.Status = StatusActive
	}
	h.svc.nodesMu.Unlock()
}

func (h *HealthMonitor) evict(nodeID, reason string) {
	h.svc.nodesMu.Lock()
	d, ok := h.svc.nodes[nodeID]
	alreadyDead := ok && d.Status == StatusDead
	if ok {
		d.Status = StatusDead
	}
	h.svc.nodesMu.Unlock()

	if !ok || alreadyDead {
		return
	}

	h.svc.ring.Remove(nodeID)
	h.svc.metrics.NodesEvicted.Inc()
	h.svc.log.Warnw("node evicted", "node_id", nodeID, "reason", reason)
}
