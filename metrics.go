package pathcond

import "github.com/prometheus/client_golang/prometheus"

// Ensure collector implements interface.
var _ prometheus.Collector = (*ArenaCollector)(nil)

// ArenaCollector exports arena statistics as Prometheus metrics.
type ArenaCollector struct {
	arena *Arena

	nodes     *prometheus.Desc
	lookups   *prometheus.Desc
	hits      *prometheus.Desc
	interned  *prometheus.Desc
	evictions *prometheus.Desc
}

// NewArenaCollector returns a new instance of ArenaCollector.
func NewArenaCollector(a *Arena) *ArenaCollector {
	return &ArenaCollector{
		arena:     a,
		nodes:     prometheus.NewDesc("pathcond_arena_nodes", "Number of canonical expression nodes in the arena table.", nil, nil),
		lookups:   prometheus.NewDesc("pathcond_arena_lookups_total", "Number of intern requests.", nil, nil),
		hits:      prometheus.NewDesc("pathcond_arena_hits_total", "Number of intern requests answered by an existing node.", nil, nil),
		interned:  prometheus.NewDesc("pathcond_arena_interned_total", "Number of expression nodes created.", nil, nil),
		evictions: prometheus.NewDesc("pathcond_arena_evictions_total", "Number of table entries removed after their node was reclaimed.", nil, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *ArenaCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.nodes
	ch <- c.lookups
	ch <- c.hits
	ch <- c.interned
	ch <- c.evictions
}

// Collect implements prometheus.Collector.
func (c *ArenaCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.arena.Stats()
	ch <- prometheus.MustNewConstMetric(c.nodes, prometheus.GaugeValue, float64(stats.Live))
	ch <- prometheus.MustNewConstMetric(c.lookups, prometheus.CounterValue, float64(stats.Lookups))
	ch <- prometheus.MustNewConstMetric(c.hits, prometheus.CounterValue, float64(stats.Hits))
	ch <- prometheus.MustNewConstMetric(c.interned, prometheus.CounterValue, float64(stats.Interned))
	ch <- prometheus.MustNewConstMetric(c.evictions, prometheus.CounterValue, float64(stats.Evicted))
}
