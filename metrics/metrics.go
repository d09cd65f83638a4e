package metrics

type Metrics interface {
	// The number of leaves in the tree
	TreeSize(uint64)
	// The number of retained checkpoints
	Checkpoints(int)
	// The number of marked positions
	MarkedPositions(int)
	// The number of checkpoints unwound by a rewind
	Rewind(int)
	// The index of a completed subtree of tracked height
	SubtreeCompleted(uint64)
	// The number of oldest checkpoints dropped past the retained bound
	PrunedCheckpoints(int)
	// The heap memory held by the tree
	MemoryUsage(int)
}
