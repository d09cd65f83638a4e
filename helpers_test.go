package nctree

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"
)

func testLeaf(h Hasher, i uint64) Hash {
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], i)
	return h.HashToNode(seed[:])
}

func testLeaves(h Hasher, from, n uint64) []Hash {
	leaves := make([]Hash, n)
	for i := range leaves {
		leaves[i] = testLeaf(h, from+uint64(i))
	}
	return leaves
}

// naiveLevels hashes the leaves level by level, padding with empty subtrees.
func naiveLevels(h Hasher, leaves []Hash, depth uint8) [][]Hash {
	levels := [][]Hash{append([]Hash(nil), leaves...)}
	for l := uint8(0); l < depth; l++ {
		nodes := levels[l]
		parents := make([]Hash, 0, (len(nodes)+1)/2)
		for i := 0; i < len(nodes); i += 2 {
			right := h.EmptyRoot(l)
			if i+1 < len(nodes) {
				right = nodes[i+1]
			}
			parents = append(parents, h.Combine(l, nodes[i], right))
		}
		levels = append(levels, parents)
	}
	return levels
}

func naiveRoot(h Hasher, leaves []Hash, depth uint8) Hash {
	if len(leaves) == 0 {
		return h.EmptyRoot(depth)
	}
	levels := naiveLevels(h, leaves, depth)
	return levels[depth][0]
}

func naivePath(h Hasher, leaves []Hash, depth uint8, position uint64) []Hash {
	levels := naiveLevels(h, leaves, depth)
	path := make([]Hash, depth)
	for l := uint8(0); l < depth; l++ {
		sibling := (position >> l) ^ 1
		if sibling < uint64(len(levels[l])) {
			path[l] = levels[l][sibling]
		} else {
			path[l] = h.EmptyRoot(l)
		}
	}
	return path
}

type testBundle [][HashSize]byte

func (b testBundle) Commitments() [][HashSize]byte { return b }

func bundleOf(leaves ...Hash) testBundle {
	b := make(testBundle, len(leaves))
	for i := range leaves {
		b[i] = leaves[i]
	}
	return b
}

func testHashers() []Hasher {
	return []Hasher{saplingHasher, orchardHasher}
}

func newTestTree(t *testing.T, h Hasher, opts ...Option) *CheckpointedTree {
	tree, err := NewCheckpointedTree(h, append([]Option{Depth(8), SubtreeHeight(2)}, opts...)...)
	require.NoError(t, err)
	return tree
}
