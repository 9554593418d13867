package cache

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/themodernway/themodernway-server-core-sub001/internal/util"
)

// metrics are registered on Options.Registerer; a nil registerer keeps them
// unregistered but still counting. Caches of storages with the same name on
// one registerer share their series.
type metrics struct {
	hits        prometheus.Counter
	misses      prometheus.Counter
	populations prometheus.Counter
	evictions   *prometheus.CounterVec
	entries     prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer, storage string) *metrics {
	labels := prometheus.Labels{"storage": storage}
	return &metrics{
		hits: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vfs_cache_hits_total",
			Help:        "Cache lookups served from a stored snapshot",
			ConstLabels: labels,
		})),
		misses: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vfs_cache_misses_total",
			Help:        "Cache lookups that found no readable content",
			ConstLabels: labels,
		})),
		populations: register(reg, prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "vfs_cache_populations_total",
			Help:        "Snapshots read from the backing medium",
			ConstLabels: labels,
		})),
		evictions: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "vfs_cache_evictions_total",
			Help:        "Evicted snapshots by cause",
			ConstLabels: labels,
		}, []string{"cause"})),
		entries: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "vfs_cache_entries",
			Help:        "Snapshots currently held",
			ConstLabels: labels,
		})),
	}
}

// register returns the collector already registered under the same
// description, or c when it was registered now or could not be registered.
func register[T prometheus.Collector](reg prometheus.Registerer, c T) T {
	if reg == nil {
		return c
	}
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(T); ok {
			return existing
		}
	}
	logger := util.GetLogger("ContentCache")
	logger.Warn().Err(err).Msg("Failed to register cache metric, keeping it unregistered")
	return c
}
