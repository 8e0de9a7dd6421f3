// Package gateway implements the routing-gateway half of the sharded
// key-value service: it maintains the authoritative membership view for
// clients and peer gateways, without ever storing user data itself.
//
// # Responsibilities
//
//   - Accept heartbeats from storage nodes, upsert their descriptors, and
//     add newly seen nodes to the consistent-hash ring.
//   - Run a background health checker that evicts nodes which miss their
//     heartbeat deadline or fail a direct liveness probe.
//   - Gossip heartbeat observations to peer gateways with duplicate
//     suppression, so membership knowledge eventually floods the peer
//     graph even though no single gateway sees every heartbeat directly.
//   - Answer ownership queries ("which node holds key k?") for clients.
//
// # Architecture
//
//	┌────────────────────────────────────────┐
//	│                Service                  │
//	├────────────────────────────────────────┤
//	│  nodes   map[nodeID]*NodeDescriptor     │  <- node table, own RWMutex
//	│  ring    *ring.Ring                     │  <- ring, own RWMutex
//	│  seen    *gossip.SeenSet                │  <- dedup, own mutex
//	│  health  *HealthMonitor                 │  <- background goroutine
//	└────────────────────────────────────────┘
//
// No lock is ever held across a network call: gossip fan-out and direct
// health probes always release their lock on the node table before
// dialing out.
package gateway
