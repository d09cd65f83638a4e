// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import (
	"math/bits"
	"unsafe"
)

// Bundle is the note commitment view of a parsed transaction bundle.
type Bundle interface {
	Commitments() [][HashSize]byte
}

// Frontier is the rightmost edge of an append-only Merkle tree: the most
// recent leaf, its position and the left siblings (ommers) on its path to the
// root. Ommers are stored one per set bit of the position, lowest level first.
type Frontier struct {
	hasher        Hasher
	depth         uint8
	subtreeHeight uint8

	size   uint64
	leaf   Hash
	ommers []Hash
}

// NewFrontier creates an empty frontier of DefaultDepth that reports
// completed subtrees of TrackedSubtreeHeight.
func NewFrontier(hasher Hasher) *Frontier {
	return newFrontier(hasher, DefaultDepth, TrackedSubtreeHeight)
}

// NewFrontierWithDepth creates an empty frontier with a custom depth and
// tracked subtree height.
func NewFrontierWithDepth(hasher Hasher, depth, subtreeHeight uint8) (*Frontier, error) {
	if err := checkDepth(depth, subtreeHeight); err != nil {
		return nil, err
	}
	return newFrontier(hasher, depth, subtreeHeight), nil
}

func newFrontier(hasher Hasher, depth, subtreeHeight uint8) *Frontier {
	return &Frontier{
		hasher:        hasher,
		depth:         depth,
		subtreeHeight: subtreeHeight,
	}
}

func checkDepth(depth, subtreeHeight uint8) error {
	if depth == 0 || depth > MaxDepth || subtreeHeight > depth {
		return ErrInvalidDepth
	}
	return nil
}

func (f *Frontier) Hasher() Hasher { return f.hasher }

func (f *Frontier) Depth() uint8 { return f.depth }

// Size returns the number of leaves appended so far.
func (f *Frontier) Size() uint64 { return f.size }

func (f *Frontier) IsEmpty() bool { return f.size == 0 }

// Position returns the position of the most recent leaf.
func (f *Frontier) Position() (uint64, bool) {
	if f.size == 0 {
		return 0, false
	}
	return f.size - 1, true
}

// Leaf returns the most recent leaf.
func (f *Frontier) Leaf() (Hash, bool) {
	return f.leaf, f.size > 0
}

// Ommers returns a copy of the left siblings of the most recent leaf.
func (f *Frontier) Ommers() []Hash {
	return append([]Hash(nil), f.ommers...)
}

func (f *Frontier) capacity() uint64 {
	return uint64(1) << f.depth
}

// Append adds a leaf at the next position. A leaf that is not a valid node
// for the hasher fails with ErrInvalidCommitment and leaves the frontier
// unchanged.
func (f *Frontier) Append(leaf Hash) (AppendResult, error) {
	if _, err := f.hasher.ParseNode(leaf[:]); err != nil {
		return AppendResult{}, err
	}
	if f.size == f.capacity() {
		return AppendResult{}, ErrTreeFull
	}
	f.append(leaf)
	return DetectSubtreeBoundary(f), nil
}

// AppendCommitment appends a raw note commitment.
func (f *Frontier) AppendCommitment(cm [HashSize]byte) (AppendResult, error) {
	return f.Append(Hash(cm))
}

// AppendBundle appends every commitment of the bundle in order. Nothing is
// appended unless the whole bundle fits.
func (f *Frontier) AppendBundle(bundle Bundle) (AppendResult, error) {
	leaves, err := parseBundle(f.hasher, bundle)
	if err != nil {
		return AppendResult{}, err
	}
	if err := checkBatch(f.size, uint64(len(leaves)), f.depth, f.subtreeHeight); err != nil {
		return AppendResult{}, err
	}
	var result AppendResult
	for _, leaf := range leaves {
		f.append(leaf)
		if r := DetectSubtreeBoundary(f); r.HasSubtreeBoundary {
			result = r
		}
	}
	return result, nil
}

// append never modifies the ommer slice in place, so clones may share it.
func (f *Frontier) append(leaf Hash) {
	if f.size > 0 {
		p := f.size - 1
		t := bits.TrailingZeros64(^p)
		carry := f.leaf
		for l := 0; l < t; l++ {
			carry = f.hasher.Combine(uint8(l), f.ommers[l], carry)
		}
		ommers := make([]Hash, 0, len(f.ommers)-t+1)
		ommers = append(ommers, carry)
		f.ommers = append(ommers, f.ommers[t:]...)
	}
	f.leaf = leaf
	f.size++
}

// Root returns the root of the tree, hashing the frontier against empty
// subtrees up to the tree depth.
func (f *Frontier) Root() Hash {
	return f.rootAt(f.depth)
}

// rootAt hashes the most recent leaf up to the given level.
func (f *Frontier) rootAt(level uint8) Hash {
	if f.size == 0 {
		return f.hasher.EmptyRoot(level)
	}
	p := f.size - 1
	digest := f.leaf
	next := 0
	for l := uint8(0); l < level; l++ {
		if p>>l&1 == 1 {
			digest = f.hasher.Combine(l, f.ommers[next], digest)
			next++
		} else {
			digest = f.hasher.Combine(l, digest, f.hasher.EmptyRoot(l))
		}
	}
	return digest
}

// Clone returns an independent copy of the frontier.
func (f *Frontier) Clone() *Frontier {
	c := *f
	c.ommers = append([]Hash(nil), f.ommers...)
	return &c
}

// Equal reports whether two frontiers describe the same tree.
func (f *Frontier) Equal(o *Frontier) bool {
	if f.depth != o.depth || f.size != o.size || len(f.ommers) != len(o.ommers) {
		return false
	}
	if f.size > 0 && f.leaf != o.leaf {
		return false
	}
	for i := range f.ommers {
		if f.ommers[i] != o.ommers[i] {
			return false
		}
	}
	return true
}

// DynamicMemoryUsage returns the heap memory held by the frontier.
func (f *Frontier) DynamicMemoryUsage() int {
	return int(unsafe.Sizeof(*f)) + cap(f.ommers)*HashSize
}

func parseBundle(hasher Hasher, bundle Bundle) ([]Hash, error) {
	if bundle == nil {
		return nil, nil
	}
	commitments := bundle.Commitments()
	leaves := make([]Hash, len(commitments))
	for i := range commitments {
		leaf, err := hasher.ParseNode(commitments[i][:])
		if err != nil {
			return nil, err
		}
		leaves[i] = leaf
	}
	return leaves, nil
}

// checkBatch rejects a batch of n leaves that overflows the tree or completes
// more than one tracked subtree.
func checkBatch(size, n uint64, depth, subtreeHeight uint8) error {
	if n > (uint64(1)<<depth)-size {
		return ErrTreeFull
	}
	if (size+n)>>subtreeHeight-size>>subtreeHeight > 1 {
		return ErrBundleTooLarge
	}
	return nil
}
