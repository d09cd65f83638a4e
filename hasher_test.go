package nctree

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmptyRoots(t *testing.T) {
	for _, h := range testHashers() {
		t.Run(h.Pool().String(), func(t *testing.T) {
			assert.Equal(t, h.EmptyLeaf(), h.EmptyRoot(0))
			for l := uint8(0); l < MaxDepth; l++ {
				assert.Equal(t, h.Combine(l, h.EmptyRoot(l), h.EmptyRoot(l)), h.EmptyRoot(l+1))
			}
			root, err := EmptyRoot(h.Pool())
			require.NoError(t, err)
			assert.Equal(t, h.EmptyRoot(DefaultDepth), root)
		})
	}
}

func TestCombineDependsOnLevel(t *testing.T) {
	for _, h := range testHashers() {
		a, b := testLeaf(h, 1), testLeaf(h, 2)
		assert.NotEqual(t, h.Combine(0, a, b), h.Combine(1, a, b))
		assert.NotEqual(t, h.Combine(0, a, b), h.Combine(0, b, a))
	}
}

func TestParseNode(t *testing.T) {
	for _, h := range testHashers() {
		t.Run(h.Pool().String(), func(t *testing.T) {
			leaf := testLeaf(h, 7)
			parsed, err := h.ParseNode(leaf[:])
			require.NoError(t, err)
			assert.Equal(t, leaf, parsed)

			parent := h.Combine(3, leaf, leaf)
			_, err = h.ParseNode(parent[:])
			assert.NoError(t, err)

			_, err = h.ParseNode(bytes.Repeat([]byte{0xff}, HashSize))
			assert.ErrorIs(t, err, ErrInvalidCommitment)

			_, err = h.ParseNode(leaf[:HashSize-1])
			assert.ErrorIs(t, err, ErrInvalidCommitment)
		})
	}
}

func TestPools(t *testing.T) {
	for _, name := range []string{"sapling", "orchard"} {
		pool, err := ParsePool(name)
		require.NoError(t, err)
		assert.Equal(t, name, pool.String())
		h, err := NewHasher(pool)
		require.NoError(t, err)
		assert.Equal(t, pool, h.Pool())
	}
	_, err := ParsePool("sprout")
	assert.ErrorIs(t, err, ErrUnknownPool)
	_, err = NewHasher(Pool(9))
	assert.ErrorIs(t, err, ErrUnknownPool)
	assert.NotEqual(t, saplingHasher.EmptyRoot(DefaultDepth), orchardHasher.EmptyRoot(DefaultDepth))
}
