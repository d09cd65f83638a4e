// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import (
	"sort"
	"unsafe"

	"github.com/sirupsen/logrus"

	"github.com/bnb-chain/zkbnb-nctree/metrics"
)

type checkpoint struct {
	tag      uint32
	frontier *Frontier
	marks    map[uint64]*witness
}

// CheckpointedTree is an incremental note commitment tree that retains a
// bounded number of checkpoints to rewind to, and keeps authentication paths
// of marked leaves up to date.
type CheckpointedTree struct {
	hasher         Hasher
	depth          uint8
	subtreeHeight  uint8
	maxCheckpoints int
	metrics        metrics.Metrics

	frontier    *Frontier
	marks       map[uint64]*witness
	checkpoints []*checkpoint
}

func NewCheckpointedTree(hasher Hasher, opts ...Option) (*CheckpointedTree, error) {
	tree := &CheckpointedTree{
		hasher:         hasher,
		depth:          DefaultDepth,
		subtreeHeight:  TrackedSubtreeHeight,
		maxCheckpoints: DefaultMaxCheckpoints,
	}
	for _, opt := range opts {
		opt(tree)
	}
	if err := checkDepth(tree.depth, tree.subtreeHeight); err != nil {
		return nil, err
	}
	tree.frontier = newFrontier(hasher, tree.depth, tree.subtreeHeight)
	tree.marks = make(map[uint64]*witness)
	return tree, nil
}

// NewCheckpointedTreeFromFrontier creates a tree whose state is the given
// frontier. The tree takes ownership of f.
func NewCheckpointedTreeFromFrontier(f *Frontier, opts ...Option) (*CheckpointedTree, error) {
	tree, err := NewCheckpointedTree(f.hasher, append([]Option{Depth(f.depth), SubtreeHeight(f.subtreeHeight)}, opts...)...)
	if err != nil {
		return nil, err
	}
	if err := tree.InitFromFrontier(f); err != nil {
		return nil, err
	}
	return tree, nil
}

func (t *CheckpointedTree) Hasher() Hasher { return t.hasher }

func (t *CheckpointedTree) Size() uint64 { return t.frontier.size }

// Frontier returns a copy of the current frontier.
func (t *CheckpointedTree) Frontier() *Frontier { return t.frontier.Clone() }

// InitFromFrontier replaces an unused tree's state with f, taking ownership
// of it. It fails with ErrTreeNotEmpty if the tree has checkpoints or marked
// positions.
func (t *CheckpointedTree) InitFromFrontier(f *Frontier) error {
	if len(t.checkpoints) > 0 || len(t.marks) > 0 {
		log.WithFields(logrus.Fields{
			"checkpoints": len(t.checkpoints),
			"marks":       len(t.marks),
		}).Warn("Refusing to initialise a tree in use from a frontier")
		return ErrTreeNotEmpty
	}
	if f.depth != t.depth || f.hasher.Pool() != t.hasher.Pool() {
		return ErrInvalidDepth
	}
	f.subtreeHeight = t.subtreeHeight
	t.frontier = f
	t.updateMetrics()
	return nil
}

// Reset discards every leaf, checkpoint and marked position. Witnesses of
// marked positions are lost.
func (t *CheckpointedTree) Reset() {
	t.frontier = newFrontier(t.hasher, t.depth, t.subtreeHeight)
	t.marks = make(map[uint64]*witness)
	t.checkpoints = nil
	t.updateMetrics()
}

// Append adds a leaf at the next position, failing with ErrInvalidCommitment
// before any change if the leaf is not a valid node.
func (t *CheckpointedTree) Append(leaf Hash) (AppendResult, error) {
	if _, err := t.hasher.ParseNode(leaf[:]); err != nil {
		return AppendResult{}, err
	}
	if t.frontier.size == t.frontier.capacity() {
		return AppendResult{}, ErrTreeFull
	}
	result := t.append(leaf)
	t.updateMetrics()
	return result, nil
}

func (t *CheckpointedTree) AppendCommitment(cm [HashSize]byte) (AppendResult, error) {
	return t.Append(Hash(cm))
}

// AppendBundle appends every commitment of the bundle. The tree is unchanged
// if any commitment is invalid or the bundle does not fit.
func (t *CheckpointedTree) AppendBundle(bundle Bundle) (AppendResult, error) {
	leaves, err := parseBundle(t.hasher, bundle)
	if err != nil {
		return AppendResult{}, err
	}
	if err := checkBatch(t.frontier.size, uint64(len(leaves)), t.depth, t.subtreeHeight); err != nil {
		return AppendResult{}, err
	}
	var result AppendResult
	for _, leaf := range leaves {
		if r := t.append(leaf); r.HasSubtreeBoundary {
			result = r
		}
	}
	t.updateMetrics()
	return result, nil
}

func (t *CheckpointedTree) append(leaf Hash) AppendResult {
	t.frontier.append(leaf)
	position := t.frontier.size - 1
	for pos, w := range t.marks {
		if w.frozen {
			w = w.clone()
			t.marks[pos] = w
		}
		w.append(t.hasher, position, leaf)
	}
	result := DetectSubtreeBoundary(t.frontier)
	if result.HasSubtreeBoundary && t.metrics != nil {
		t.metrics.SubtreeCompleted(result.SubtreeIndex)
	}
	return result
}

// Root returns the root at the given checkpoint depth: 0 is the current
// state, n the state recorded by the nth most recent checkpoint.
func (t *CheckpointedTree) Root(checkpointDepth int) (Hash, bool) {
	if checkpointDepth < 0 || checkpointDepth > len(t.checkpoints) {
		return Hash{}, false
	}
	if checkpointDepth == 0 {
		return t.frontier.Root(), true
	}
	return t.checkpoints[len(t.checkpoints)-checkpointDepth].frontier.Root(), true
}

// Mark marks the most recent leaf so that its witness stays available, and
// returns its position.
func (t *CheckpointedTree) Mark() (uint64, error) {
	position, ok := t.frontier.Position()
	if !ok {
		return 0, ErrEmptyTree
	}
	if _, ok := t.marks[position]; !ok {
		t.marks[position] = newWitness(t.frontier)
		t.updateMetrics()
	}
	return position, nil
}

// RemoveMark stops tracking the witness of position. Checkpoints taken while
// it was marked still restore it.
func (t *CheckpointedTree) RemoveMark(position uint64) bool {
	if _, ok := t.marks[position]; !ok {
		return false
	}
	delete(t.marks, position)
	t.updateMetrics()
	return true
}

func (t *CheckpointedTree) IsMarked(position uint64) bool {
	_, ok := t.marks[position]
	return ok
}

// Marked returns the marked positions in ascending order.
func (t *CheckpointedTree) Marked() []uint64 {
	return sortedPositions(t.marks)
}

// Witness returns the authentication path of a marked position against the
// current root, leaf level first.
func (t *CheckpointedTree) Witness(position uint64) ([]Hash, error) {
	w, ok := t.marks[position]
	if !ok {
		return nil, ErrNotMarked
	}
	return w.path(t.hasher), nil
}

// MarkedLeaf returns the leaf at a marked position.
func (t *CheckpointedTree) MarkedLeaf(position uint64) (Hash, bool) {
	w, ok := t.marks[position]
	if !ok {
		return Hash{}, false
	}
	return w.leaf, true
}

// Checkpoint records the current state under tag. Unless no checkpoint
// exists, tag must directly follow the most recent checkpoint. Once more than
// the configured bound are held, the oldest checkpoint is dropped.
func (t *CheckpointedTree) Checkpoint(tag uint32) bool {
	if last, ok := t.LastCheckpoint(); ok && uint64(tag) != uint64(last)+1 {
		log.WithFields(logrus.Fields{
			"tag":  tag,
			"last": last,
		}).Warn("Rejected non-consecutive checkpoint")
		return false
	}
	marks := make(map[uint64]*witness, len(t.marks))
	for pos, w := range t.marks {
		w.frozen = true
		marks[pos] = w
	}
	t.checkpoints = append(t.checkpoints, &checkpoint{
		tag:      tag,
		frontier: t.frontier.Clone(),
		marks:    marks,
	})
	t.pruneCheckpoints()
	t.updateMetrics()
	return true
}

func (t *CheckpointedTree) LastCheckpoint() (uint32, bool) {
	if len(t.checkpoints) == 0 {
		return 0, false
	}
	return t.checkpoints[len(t.checkpoints)-1].tag, true
}

func (t *CheckpointedTree) CheckpointCount() int {
	return len(t.checkpoints)
}

// Rewind restores the state recorded by the most recent checkpoint and
// removes it. It returns false if there is no checkpoint.
func (t *CheckpointedTree) Rewind() bool {
	if len(t.checkpoints) == 0 {
		return false
	}
	last := t.checkpoints[len(t.checkpoints)-1]
	t.checkpoints[len(t.checkpoints)-1] = nil
	t.checkpoints = t.checkpoints[:len(t.checkpoints)-1]
	t.frontier = last.frontier
	t.marks = last.marks
	if t.metrics != nil {
		t.metrics.Rewind(1)
	}
	t.updateMetrics()
	return true
}

// RewindTo rewinds checkpoint by checkpoint until the most recent checkpoint
// is target, and returns the resulting last checkpoint. A target at or above
// the last checkpoint is a no-op. Running out of checkpoints is allowed only
// when no position is marked in the state that would remain; otherwise the
// tree is left untouched and an *InsufficientCheckpointsError is returned.
func (t *CheckpointedTree) RewindTo(target uint32) (uint32, error) {
	last, ok := t.LastCheckpoint()
	if !ok {
		if len(t.marks) > 0 {
			return 0, &InsufficientCheckpointsError{Available: 0}
		}
		return target, nil
	}
	if target >= last {
		return last, nil
	}
	steps := int(last - target)
	available := len(t.checkpoints)
	if steps > available && len(t.checkpoints[0].marks) > 0 {
		log.WithFields(logrus.Fields{
			"target":    target,
			"last":      last,
			"available": available,
		}).Warn("Not enough checkpoints to rewind with marked positions")
		return 0, &InsufficientCheckpointsError{Available: available}
	}
	for i := 0; i < steps && t.Rewind(); i++ {
	}
	log.WithFields(logrus.Fields{
		"target": target,
		"size":   t.frontier.size,
	}).Info("Rewound note commitment tree")
	return target, nil
}

// GarbageCollect drops the oldest checkpoints beyond the configured bound and
// returns how many were dropped. Checkpoint keeps the bound on its own; this
// trims state read from a tree that retained more checkpoints.
func (t *CheckpointedTree) GarbageCollect() int {
	excess := t.pruneCheckpoints()
	if t.metrics != nil {
		t.metrics.MemoryUsage(t.DynamicMemoryUsage())
	}
	t.updateMetrics()
	return excess
}

func (t *CheckpointedTree) pruneCheckpoints() int {
	excess := len(t.checkpoints) - t.maxCheckpoints
	if excess <= 0 {
		return 0
	}
	for i := 0; i < excess; i++ {
		t.checkpoints[i] = nil
	}
	t.checkpoints = append(t.checkpoints[:0:0], t.checkpoints[excess:]...)
	if t.metrics != nil {
		t.metrics.PrunedCheckpoints(excess)
	}
	return excess
}

// Clone returns a deep copy of the tree.
func (t *CheckpointedTree) Clone() *CheckpointedTree {
	c := *t
	c.frontier = t.frontier.Clone()
	c.marks = cloneMarks(t.marks)
	c.checkpoints = make([]*checkpoint, len(t.checkpoints))
	for i, cp := range t.checkpoints {
		c.checkpoints[i] = &checkpoint{
			tag:      cp.tag,
			frontier: cp.frontier.Clone(),
			marks:    cloneMarks(cp.marks),
		}
	}
	return &c
}

// DynamicMemoryUsage returns the heap memory held by the tree. Witnesses
// shared between checkpoints are counted once.
func (t *CheckpointedTree) DynamicMemoryUsage() int {
	seen := make(map[*witness]struct{})
	countMarks := func(marks map[uint64]*witness) int {
		n := len(marks) * int(unsafe.Sizeof(uint64(0))+unsafe.Sizeof((*witness)(nil)))
		for _, w := range marks {
			if _, ok := seen[w]; ok {
				continue
			}
			seen[w] = struct{}{}
			n += w.memoryUsage()
		}
		return n
	}
	n := int(unsafe.Sizeof(*t)) + t.frontier.DynamicMemoryUsage() + countMarks(t.marks)
	for _, cp := range t.checkpoints {
		n += int(unsafe.Sizeof(*cp)) + cp.frontier.DynamicMemoryUsage() + countMarks(cp.marks)
	}
	return n
}

func (t *CheckpointedTree) updateMetrics() {
	if t.metrics == nil {
		return
	}
	t.metrics.TreeSize(t.frontier.size)
	t.metrics.Checkpoints(len(t.checkpoints))
	t.metrics.MarkedPositions(len(t.marks))
}

func cloneMarks(marks map[uint64]*witness) map[uint64]*witness {
	c := make(map[uint64]*witness, len(marks))
	for pos, w := range marks {
		c[pos] = w.clone()
	}
	return c
}

func sortedPositions(marks map[uint64]*witness) []uint64 {
	positions := make([]uint64, 0, len(marks))
	for pos := range marks {
		positions = append(positions, pos)
	}
	sort.Slice(positions, func(i, j int) bool { return positions[i] < positions[j] })
	return positions
}
