package storagenode

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/dreamware/kvring/internal/storage"
)

// Metrics holds a storage node's Prometheus collectors on a private
// registry, mirroring internal/gateway's per-instance registry so multiple
// nodes can run in one test process without colliding.
type Metrics struct {
	Registry *prometheus.Registry

	KeysStored   prometheus.GaugeFunc
	PutsTotal    prometheus.Counter
	GetsTotal    prometheus.Counter
	DeletesTotal prometheus.Counter
}

// NewMetrics registers a fresh set of collectors on a private registry.
// KeysStored reads live from store rather than being set on each write, so
// it can never drift from the map it describes.
func NewMetrics(store storage.Store) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,
		KeysStored: factory.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "storagenode_keys",
			Help: "Number of keys currently held by this node.",
		}, func() float64 { return float64(store.Stats().Keys) }),
		PutsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_puts_total",
			Help: "Put operations served.",
		}),
		GetsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_gets_total",
			Help: "Get operations served.",
		}),
		DeletesTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "storagenode_deletes_total",
			Help: "Delete operations served.",
		}),
	}
}
