package nctree

import "github.com/bnb-chain/zkbnb-nctree/metrics"

const DefaultMaxCheckpoints = 100

// Option is a function that configures CheckpointedTree.
type Option func(*CheckpointedTree)

// MaxCheckpoints bounds the number of checkpoints the tree retains.
func MaxCheckpoints(n int) Option {
	return func(tree *CheckpointedTree) {
		if n > 0 {
			tree.maxCheckpoints = n
		}
	}
}

// Depth overrides DefaultDepth.
func Depth(depth uint8) Option {
	return func(tree *CheckpointedTree) {
		tree.depth = depth
	}
}

// SubtreeHeight overrides TrackedSubtreeHeight.
func SubtreeHeight(height uint8) Option {
	return func(tree *CheckpointedTree) {
		tree.subtreeHeight = height
	}
}

func EnableMetrics(metrics metrics.Metrics) Option {
	return func(tree *CheckpointedTree) {
		tree.metrics = metrics
	}
}
