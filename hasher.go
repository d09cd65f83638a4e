// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

const (
	// HashSize is the encoded size of every node and commitment.
	HashSize = 32

	// DefaultDepth is the depth of the note commitment tree.
	DefaultDepth uint8 = 32

	// MaxDepth bounds the depth of any tree built by this package.
	MaxDepth uint8 = 32

	// TrackedSubtreeHeight is the height of the subtrees whose completion is
	// reported by every append.
	TrackedSubtreeHeight uint8 = 16
)

// Hash is a tree node or leaf commitment.
type Hash [HashSize]byte

func (h Hash) Bytes() []byte { return h[:] }

func (h Hash) String() string { return common.Bytes2Hex(h[:]) }

// Pool identifies the shielded pool a tree belongs to. Each pool has its own
// node hashing.
type Pool uint8

const (
	PoolSapling Pool = iota + 1
	PoolOrchard
)

func (p Pool) String() string {
	switch p {
	case PoolSapling:
		return "sapling"
	case PoolOrchard:
		return "orchard"
	default:
		return fmt.Sprintf("pool(%d)", uint8(p))
	}
}

// ParsePool maps a pool name to its Pool.
func ParsePool(name string) (Pool, error) {
	switch name {
	case "sapling":
		return PoolSapling, nil
	case "orchard":
		return PoolOrchard, nil
	default:
		return 0, ErrUnknownPool
	}
}

// Hasher is the hashing capability a tree is generic over.
type Hasher interface {
	Pool() Pool
	// EmptyLeaf is the value of an unfilled leaf.
	EmptyLeaf() Hash
	// Combine hashes two sibling nodes at the given level into their parent.
	// Leaves are at level 0.
	Combine(level uint8, left, right Hash) Hash
	// EmptyRoot is the root of an empty subtree of the given height.
	EmptyRoot(level uint8) Hash
	// ParseNode decodes a node from its fixed-size encoding, failing with
	// ErrInvalidCommitment if b is not a canonical node value.
	ParseNode(b []byte) (Hash, error)
	// HashToNode maps arbitrary data to a valid node value.
	HashToNode(data []byte) Hash
}

// NewHasher returns the hasher of the given pool.
func NewHasher(pool Pool) (Hasher, error) {
	switch pool {
	case PoolSapling:
		return saplingHasher, nil
	case PoolOrchard:
		return orchardHasher, nil
	default:
		return nil, ErrUnknownPool
	}
}

// EmptyRoot returns the root of an empty tree of DefaultDepth for the pool.
func EmptyRoot(pool Pool) (Hash, error) {
	hasher, err := NewHasher(pool)
	if err != nil {
		return Hash{}, err
	}
	return hasher.EmptyRoot(DefaultDepth), nil
}

// nilHashes caches the roots of empty subtrees for every level up to MaxDepth.
type nilHashes struct {
	hashes []Hash
}

func newNilHashes(emptyLeaf Hash, combine func(level uint8, left, right Hash) Hash) *nilHashes {
	hashes := make([]Hash, MaxDepth+1)
	hashes[0] = emptyLeaf
	for level := uint8(0); level < MaxDepth; level++ {
		hashes[level+1] = combine(level, hashes[level], hashes[level])
	}
	return &nilHashes{hashes: hashes}
}

func (n *nilHashes) Get(level uint8) Hash {
	return n.hashes[level]
}
