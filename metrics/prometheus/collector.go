package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/bnb-chain/zkbnb-nctree/metrics"
)

var _ metrics.Metrics = (*Collector)(nil)

// NewCollector registers the tree metrics with the default registry.
func NewCollector() *Collector {
	return NewCollectorWithRegisterer(prometheus.DefaultRegisterer)
}

func NewCollectorWithRegisterer(reg prometheus.Registerer) *Collector {
	treeSize := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nctree_tree_size",
		Help: "The number of leaves in the tree",
	})
	checkpoints := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nctree_checkpoints",
		Help: "The number of retained checkpoints",
	})
	markedPositions := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nctree_marked_positions",
		Help: "The number of marked positions",
	})
	rewinds := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nctree_rewound_checkpoints_total",
		Help: "The number of checkpoints unwound by rewinds",
	})
	subtrees := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nctree_completed_subtrees_total",
		Help: "The number of completed subtrees of tracked height",
	})
	latestSubtree := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nctree_latest_subtree_index",
		Help: "The index of the most recently completed subtree",
	})
	pruned := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "nctree_pruned_checkpoints_total",
		Help: "The number of oldest checkpoints dropped past the retained bound",
	})
	memoryUsage := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "nctree_memory_usage_bytes",
		Help: "The heap memory held by the tree",
	})
	reg.MustRegister(
		treeSize,
		checkpoints,
		markedPositions,
		rewinds,
		subtrees,
		latestSubtree,
		pruned,
		memoryUsage)

	return &Collector{
		treeSize:        treeSize,
		checkpoints:     checkpoints,
		markedPositions: markedPositions,
		rewinds:         rewinds,
		subtrees:        subtrees,
		latestSubtree:   latestSubtree,
		pruned:          pruned,
		memoryUsage:     memoryUsage,
	}
}

type Collector struct {
	treeSize        prometheus.Gauge
	checkpoints     prometheus.Gauge
	markedPositions prometheus.Gauge
	rewinds         prometheus.Counter
	subtrees        prometheus.Counter
	latestSubtree   prometheus.Gauge
	pruned          prometheus.Counter
	memoryUsage     prometheus.Gauge
}

func (c *Collector) TreeSize(size uint64) {
	c.treeSize.Set(float64(size))
}

func (c *Collector) Checkpoints(n int) {
	c.checkpoints.Set(float64(n))
}

func (c *Collector) MarkedPositions(n int) {
	c.markedPositions.Set(float64(n))
}

func (c *Collector) Rewind(steps int) {
	c.rewinds.Add(float64(steps))
}

func (c *Collector) SubtreeCompleted(index uint64) {
	c.subtrees.Inc()
	c.latestSubtree.Set(float64(index))
}

func (c *Collector) PrunedCheckpoints(n int) {
	c.pruned.Add(float64(n))
}

func (c *Collector) MemoryUsage(bytes int) {
	c.memoryUsage.Set(float64(bytes))
}
