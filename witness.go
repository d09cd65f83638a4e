package nctree

import (
	"math/bits"
	"unsafe"
)

// witness tracks the authentication path of a marked leaf while the tree
// grows to its right. Left siblings are fixed when the leaf is marked; right
// siblings are filled in as the subtrees beside the path complete, with the
// one currently being filled kept as a partial frontier.
type witness struct {
	position uint64
	leaf     Hash

	siblings []Hash
	known    uint64

	cursor      *Frontier
	cursorLevel uint8

	// frozen witnesses are shared with a checkpoint and must be copied before
	// they are modified.
	frozen bool
}

func newWitness(f *Frontier) *witness {
	p := f.size - 1
	w := &witness{
		position: p,
		leaf:     f.leaf,
		siblings: make([]Hash, f.depth),
	}
	next := 0
	for l := uint8(0); l < f.depth; l++ {
		if p>>l&1 == 1 {
			w.siblings[l] = f.ommers[next]
			w.known |= 1 << l
			next++
		}
	}
	return w
}

// append folds the leaf appended at position into the path.
func (w *witness) append(hasher Hasher, position uint64, leaf Hash) {
	level := uint8(bits.Len64(position^w.position) - 1)
	if level == 0 {
		w.siblings[0] = leaf
		w.known |= 1
		return
	}
	if w.cursor == nil {
		w.cursor = newFrontier(hasher, level, level)
		w.cursorLevel = level
	}
	w.cursor.append(leaf)
	if w.cursor.size == w.cursor.capacity() {
		w.siblings[level] = w.cursor.Root()
		w.known |= 1 << level
		w.cursor = nil
		w.cursorLevel = 0
	}
}

// path returns the siblings of the marked leaf from the leaf level upward.
func (w *witness) path(hasher Hasher) []Hash {
	path := make([]Hash, len(w.siblings))
	for l := range path {
		level := uint8(l)
		switch {
		case w.known>>level&1 == 1:
			path[l] = w.siblings[l]
		case w.cursor != nil && w.cursorLevel == level:
			path[l] = w.cursor.Root()
		default:
			path[l] = hasher.EmptyRoot(level)
		}
	}
	return path
}

func (w *witness) clone() *witness {
	c := *w
	c.siblings = append([]Hash(nil), w.siblings...)
	if w.cursor != nil {
		c.cursor = w.cursor.Clone()
	}
	c.frozen = false
	return &c
}

func (w *witness) memoryUsage() int {
	n := int(unsafe.Sizeof(*w)) + cap(w.siblings)*HashSize
	if w.cursor != nil {
		n += w.cursor.DynamicMemoryUsage()
	}
	return n
}

// VerifyPath reports whether leaf at position hashes up through path to root.
func VerifyPath(hasher Hasher, leaf Hash, position uint64, path []Hash, root Hash) bool {
	digest := leaf
	for l, sibling := range path {
		if position>>uint(l)&1 == 1 {
			digest = hasher.Combine(uint8(l), sibling, digest)
		} else {
			digest = hasher.Combine(uint8(l), digest, sibling)
		}
	}
	return position>>uint(len(path)) == 0 && digest == root
}
