package nctree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrontierRootMatchesNaive(t *testing.T) {
	for _, h := range testHashers() {
		t.Run(h.Pool().String(), func(t *testing.T) {
			f, err := NewFrontierWithDepth(h, 8, 3)
			require.NoError(t, err)
			leaves := testLeaves(h, 0, 70)

			assert.Equal(t, h.EmptyRoot(8), f.Root())
			for i, leaf := range leaves {
				_, err := f.Append(leaf)
				require.NoError(t, err)
				require.Equal(t, uint64(i+1), f.Size())
				require.Equal(t, naiveRoot(h, leaves[:i+1], 8), f.Root(), "size %d", i+1)
			}
		})
	}
}

func TestFrontierDefaultDepth(t *testing.T) {
	f := NewFrontier(saplingHasher)
	assert.Equal(t, saplingHasher.EmptyRoot(DefaultDepth), f.Root())
	assert.True(t, f.IsEmpty())
	_, ok := f.Position()
	assert.False(t, ok)

	leaves := testLeaves(saplingHasher, 0, 5)
	for _, leaf := range leaves {
		_, err := f.Append(leaf)
		require.NoError(t, err)
	}
	assert.Equal(t, naiveRoot(saplingHasher, leaves, DefaultDepth), f.Root())
	pos, ok := f.Position()
	assert.True(t, ok)
	assert.Equal(t, uint64(4), pos)
	leaf, ok := f.Leaf()
	assert.True(t, ok)
	assert.Equal(t, leaves[4], leaf)
	// position 4 = 0b100
	assert.Len(t, f.Ommers(), 1)
}

func TestFrontierFull(t *testing.T) {
	f, err := NewFrontierWithDepth(orchardHasher, 3, 1)
	require.NoError(t, err)
	leaves := testLeaves(orchardHasher, 0, 8)
	for _, leaf := range leaves {
		_, err := f.Append(leaf)
		require.NoError(t, err)
	}
	root := f.Root()
	_, err = f.Append(testLeaf(orchardHasher, 8))
	assert.ErrorIs(t, err, ErrTreeFull)
	assert.Equal(t, uint64(8), f.Size())
	assert.Equal(t, root, f.Root())
	assert.Equal(t, naiveRoot(orchardHasher, leaves, 3), root)
}

func TestInvalidDepth(t *testing.T) {
	_, err := NewFrontierWithDepth(saplingHasher, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidDepth)
	_, err = NewFrontierWithDepth(saplingHasher, MaxDepth+1, 16)
	assert.ErrorIs(t, err, ErrInvalidDepth)
	_, err = NewFrontierWithDepth(saplingHasher, 4, 5)
	assert.ErrorIs(t, err, ErrInvalidDepth)
	_, err = NewCheckpointedTree(saplingHasher, Depth(4), SubtreeHeight(5))
	assert.ErrorIs(t, err, ErrInvalidDepth)
}

func TestSubtreeBoundary(t *testing.T) {
	f, err := NewFrontierWithDepth(saplingHasher, 6, 2)
	require.NoError(t, err)
	leaves := testLeaves(saplingHasher, 0, 20)
	for i, leaf := range leaves {
		result, err := f.Append(leaf)
		require.NoError(t, err)
		if (i+1)%4 != 0 {
			assert.False(t, result.HasSubtreeBoundary, "position %d", i)
			continue
		}
		require.True(t, result.HasSubtreeBoundary, "position %d", i)
		assert.Equal(t, uint64(i/4), result.SubtreeIndex)
		assert.Equal(t, naiveRoot(saplingHasher, leaves[i-3:i+1], 2), result.CompletedSubtreeRoot)
	}
}

func TestIsSubtreeBoundary(t *testing.T) {
	for _, tc := range []struct {
		position uint64
		height   uint8
		want     bool
	}{
		{0, 0, true},
		{0, 1, false},
		{1, 1, true},
		{65534, 16, false},
		{65535, 16, true},
		{65536, 16, false},
		{2*65536 - 1, 16, true},
	} {
		assert.Equal(t, tc.want, IsSubtreeBoundary(tc.position, tc.height), "position %d height %d", tc.position, tc.height)
	}
}

func TestSingleBoundaryAcrossTrackedSubtree(t *testing.T) {
	if testing.Short() {
		t.Skip("appends a full tracked subtree")
	}
	f := NewFrontier(saplingHasher)
	n := uint64(1) << TrackedSubtreeHeight
	leaves := testLeaves(saplingHasher, 0, n)
	boundaries := 0
	var last AppendResult
	for _, leaf := range leaves {
		result, err := f.Append(leaf)
		require.NoError(t, err)
		if result.HasSubtreeBoundary {
			boundaries++
			last = result
		}
	}
	assert.Equal(t, 1, boundaries)
	assert.Equal(t, uint64(0), last.SubtreeIndex)
	assert.Equal(t, naiveRoot(saplingHasher, leaves, TrackedSubtreeHeight), last.CompletedSubtreeRoot)
}

func TestFrontierAppendBundle(t *testing.T) {
	h := saplingHasher
	f, err := NewFrontierWithDepth(h, 5, 2)
	require.NoError(t, err)
	leaves := testLeaves(h, 0, 3)

	result, err := f.AppendBundle(bundleOf(leaves...))
	require.NoError(t, err)
	assert.False(t, result.HasSubtreeBoundary)

	more := testLeaves(h, 3, 3)
	result, err = f.AppendBundle(bundleOf(more...))
	require.NoError(t, err)
	assert.True(t, result.HasSubtreeBoundary)
	all := append(leaves, more...)
	assert.Equal(t, naiveRoot(h, all[:4], 2), result.CompletedSubtreeRoot)
	assert.Equal(t, naiveRoot(h, all, 5), f.Root())

	// A bad commitment in the middle leaves the frontier untouched.
	root := f.Root()
	bad := bundleOf(testLeaves(h, 6, 3)...)
	for i := range bad[1] {
		bad[1][i] = 0xff
	}
	_, err = f.AppendBundle(bad)
	assert.ErrorIs(t, err, ErrInvalidCommitment)
	assert.Equal(t, uint64(6), f.Size())
	assert.Equal(t, root, f.Root())

	_, err = f.AppendBundle(bundleOf(testLeaves(h, 6, 9)...))
	assert.ErrorIs(t, err, ErrBundleTooLarge)
	assert.Equal(t, uint64(6), f.Size())

	_, err = f.AppendBundle(bundleOf(testLeaves(h, 6, 27)...))
	assert.ErrorIs(t, err, ErrTreeFull)
	assert.Equal(t, root, f.Root())
}

func TestFrontierAppendCommitment(t *testing.T) {
	f := NewFrontier(orchardHasher)
	var bad [HashSize]byte
	for i := range bad {
		bad[i] = 0xff
	}
	_, err := f.AppendCommitment(bad)
	assert.ErrorIs(t, err, ErrInvalidCommitment)
	assert.True(t, f.IsEmpty())

	_, err = f.AppendCommitment(testLeaf(orchardHasher, 1))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), f.Size())
}

func TestFrontierClone(t *testing.T) {
	f := NewFrontier(saplingHasher)
	for _, leaf := range testLeaves(saplingHasher, 0, 11) {
		_, err := f.Append(leaf)
		require.NoError(t, err)
	}
	c := f.Clone()
	assert.True(t, f.Equal(c))
	_, err := c.Append(testLeaf(saplingHasher, 11))
	require.NoError(t, err)
	assert.False(t, f.Equal(c))
	assert.Equal(t, uint64(11), f.Size())
	assert.Greater(t, f.DynamicMemoryUsage(), 0)
}
