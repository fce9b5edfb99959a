package storage

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/frostbytespace/hiven-go/metric"
)

// sizeGauges exports per-partition record counts. A nil registry turns
// every update into a no-op so tests can run without metrics.
type sizeGauges struct {
	vec *prometheus.GaugeVec
}

func newSizeGauges(registry *metric.Registry) *sizeGauges {
	if registry == nil {
		return &sizeGauges{}
	}
	vec := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "hiven_cache_partition_size",
		Help: "Number of records held per cache partition",
	}, []string{"partition"})
	if err := registry.RegisterGaugeVec("storage", "partition_size", vec); err != nil {
		return &sizeGauges{}
	}
	return &sizeGauges{vec: vec}
}

func (s *sizeGauges) set(partition string, n int) {
	if s == nil || s.vec == nil {
		return
	}
	s.vec.WithLabelValues(partition).Set(float64(n))
}

func (c *Cache) publishSizes() {
	c.sizes.set("users", len(c.users))
	c.sizes.set("houses", len(c.houses))
	c.sizes.set("entities", len(c.entities))
	c.sizes.set("rooms_house", len(c.houseRooms))
	c.sizes.set("rooms_private_single", len(c.privateSingle))
	c.sizes.set("rooms_private_group", len(c.privateGroup))
	c.sizes.set("relationships", len(c.relationships))
}
