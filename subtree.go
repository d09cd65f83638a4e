package nctree

// AppendResult reports whether an append completed a subtree of the tracked
// height, and if so its root.
type AppendResult struct {
	HasSubtreeBoundary   bool
	CompletedSubtreeRoot Hash
	// SubtreeIndex is the index of the completed subtree among all subtrees
	// of the tracked height, left to right.
	SubtreeIndex uint64
}

// IsSubtreeBoundary reports whether the leaf at position is the last leaf of
// a complete subtree of the given height.
func IsSubtreeBoundary(position uint64, height uint8) bool {
	mask := uint64(1)<<height - 1
	return position&mask == mask
}

// DetectSubtreeBoundary inspects the most recent leaf of the frontier.
func DetectSubtreeBoundary(f *Frontier) AppendResult {
	p, ok := f.Position()
	if !ok || !IsSubtreeBoundary(p, f.subtreeHeight) {
		return AppendResult{}
	}
	root := f.rootAt(f.subtreeHeight)
	log.WithField("index", p>>f.subtreeHeight).WithField("root", root).Debug("Completed note commitment subtree")
	return AppendResult{
		HasSubtreeBoundary:   true,
		CompletedSubtreeRoot: root,
		SubtreeIndex:         p >> f.subtreeHeight,
	}
}
