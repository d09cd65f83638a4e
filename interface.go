// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import "github.com/panjf2000/ants/v2"

type (
	// TreeView is the read-only surface of a checkpointed tree.
	TreeView interface {
		Hasher() Hasher
		Size() uint64
		Frontier() *Frontier
		Root(checkpointDepth int) (Hash, bool)
		IsMarked(position uint64) bool
		Marked() []uint64
		MarkedLeaf(position uint64) (Hash, bool)
		Witness(position uint64) ([]Hash, error)
		LastCheckpoint() (uint32, bool)
		CheckpointCount() int
		DynamicMemoryUsage() int
		VerifyWitnesses(pool *ants.Pool) error
	}

	// NoteCommitmentTree is an append-only commitment tree that can be
	// checkpointed, rewound and asked for witnesses of marked leaves.
	NoteCommitmentTree interface {
		Size() uint64
		Root(checkpointDepth int) (Hash, bool)
		Append(leaf Hash) (AppendResult, error)
		AppendCommitment(cm [HashSize]byte) (AppendResult, error)
		AppendBundle(bundle Bundle) (AppendResult, error)
		Mark() (uint64, error)
		RemoveMark(position uint64) bool
		Witness(position uint64) ([]Hash, error)
		Checkpoint(tag uint32) bool
		LastCheckpoint() (uint32, bool)
		Rewind() bool
		RewindTo(target uint32) (uint32, error)
		GarbageCollect() int
		Reset()
	}
)

var (
	_ NoteCommitmentTree = (*CheckpointedTree)(nil)
	_ TreeView           = (*CheckpointedTree)(nil)
)
