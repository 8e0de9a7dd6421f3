package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the gateway's Prometheus collectors. Each Service owns its
// own registry so that multiple gateways can run in a single test process
// without colliding on the default global registry.
type Metrics struct {
	Registry *prometheus.Registry

	HeartbeatsAccepted          prometheus.Counter
	GossipMessagesSent          prometheus.Counter
	GossipDuplicatesSuppressed  prometheus.Counter
	NodesEvicted                prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on a private registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		HeartbeatsAccepted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_heartbeats_accepted_total",
			Help: "Heartbeats accepted from storage nodes.",
		}),
		GossipMessagesSent: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_gossip_messages_sent_total",
			Help: "Gossip messages successfully delivered to a peer.",
		}),
		GossipDuplicatesSuppressed: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_gossip_duplicates_suppressed_total",
			Help: "Inbound gossip messages discarded as already-seen.",
		}),
		NodesEvicted: factory.NewCounter(prometheus.CounterOpts{
			Name: "gateway_nodes_evicted_total",
			Help: "Nodes evicted from the ring by the health checker.",
		}),
	}
}
