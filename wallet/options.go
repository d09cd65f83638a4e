package wallet

import (
	nctree "github.com/bnb-chain/zkbnb-nctree"
	"github.com/bnb-chain/zkbnb-nctree/metrics"
)

// MaxCheckpoints is the number of block checkpoints the wallet retains.
const MaxCheckpoints = 100

// Option is a function that configures Wallet.
type Option func(*Wallet)

func WithMaxCheckpoints(n int) Option {
	return func(w *Wallet) {
		w.treeOpts = append(w.treeOpts, nctree.MaxCheckpoints(n))
	}
}

// WithDepth overrides the tree depth and tracked subtree height.
func WithDepth(depth, subtreeHeight uint8) Option {
	return func(w *Wallet) {
		w.treeOpts = append(w.treeOpts, nctree.Depth(depth), nctree.SubtreeHeight(subtreeHeight))
	}
}

func WithMetrics(m metrics.Metrics) Option {
	return func(w *Wallet) {
		w.treeOpts = append(w.treeOpts, nctree.EnableMetrics(m))
	}
}
