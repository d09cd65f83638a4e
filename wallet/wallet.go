package wallet

import (
	"bytes"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	nctree "github.com/bnb-chain/zkbnb-nctree"
)

// Wallet is the note commitment state of a wallet for one shielded pool: the
// checkpointed tree, the positions of the wallet's own notes and the
// coordinate of the most recent append.
type Wallet struct {
	hasher   nctree.Hasher
	treeOpts []nctree.Option

	tree         *nctree.CheckpointedTree
	positions    map[TxID]*NotePositions
	lastObserved *LastObserved
}

func New(pool nctree.Pool, opts ...Option) (*Wallet, error) {
	hasher, err := nctree.NewHasher(pool)
	if err != nil {
		return nil, err
	}
	w := &Wallet{
		hasher:   hasher,
		treeOpts: []nctree.Option{nctree.MaxCheckpoints(MaxCheckpoints)},
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.tree, err = w.newTree(); err != nil {
		return nil, err
	}
	w.positions = make(map[TxID]*NotePositions)
	return w, nil
}

func (w *Wallet) newTree() (*nctree.CheckpointedTree, error) {
	return nctree.NewCheckpointedTree(w.hasher, w.treeOpts...)
}

func (w *Wallet) Pool() nctree.Pool { return w.hasher.Pool() }

// Tree exposes the underlying tree for inspection. Mutations go through the
// wallet so positions and the append cursor stay consistent.
func (w *Wallet) Tree() nctree.TreeView { return w.tree }

// LastObserved returns the coordinate of the most recent append.
func (w *Wallet) LastObserved() (LastObserved, bool) {
	if w.lastObserved == nil {
		return LastObserved{}, false
	}
	return *w.lastObserved, true
}

// Reset discards the tree, every recorded position and the append cursor,
// in preparation for a rescan. Witnesses of the wallet's notes are lost.
func (w *Wallet) Reset() {
	w.tree.Reset()
	w.positions = make(map[TxID]*NotePositions)
	w.lastObserved = nil
	log.WithField("pool", w.Pool()).Info("Reset note commitment state")
}

// InitFromFrontier starts the tree from a frontier obtained elsewhere. It
// fails with nctree.ErrTreeNotEmpty once the wallet has checkpoints or
// marked notes.
func (w *Wallet) InitFromFrontier(f *nctree.Frontier) error {
	return w.tree.InitFromFrontier(f)
}

// Checkpoint records the state before the notes of block height are
// appended. Heights must be consecutive.
func (w *Wallet) Checkpoint(height uint32) bool {
	return w.tree.Checkpoint(height)
}

func (w *Wallet) LastCheckpoint() (uint32, bool) {
	return w.tree.LastCheckpoint()
}

// Rewind unwinds the tree to the state recorded for block height to, drops
// the positions of transactions mined above it and resets the append cursor
// to the start of that block. If to is at or above the last checkpoint
// nothing changes and the last checkpoint is returned.
func (w *Wallet) Rewind(to uint32) (uint32, error) {
	if last, ok := w.tree.LastCheckpoint(); ok && to >= last {
		return last, nil
	}
	if _, err := w.tree.RewindTo(to); err != nil {
		return 0, err
	}
	for txid, positions := range w.positions {
		if positions.TxHeight > to {
			delete(w.positions, txid)
		}
	}
	w.lastObserved = &LastObserved{BlockHeight: to}
	log.WithFields(logrus.Fields{
		"pool":   w.Pool(),
		"height": to,
		"size":   w.tree.Size(),
	}).Info("Rewound wallet note commitments")
	return to, nil
}

// AppendBundle appends every note commitment of the transaction at index
// txIdx of block height. A nil bundle is a no-op.
func (w *Wallet) AppendBundle(height, txIdx uint32, bundle nctree.Bundle) (nctree.AppendResult, error) {
	if bundle == nil {
		return nctree.AppendResult{}, nil
	}
	if !w.lastObserved.acceptsBundle(height, txIdx) {
		return nctree.AppendResult{}, w.outOfOrder(height, txIdx, nil)
	}
	result, err := w.tree.AppendBundle(bundle)
	if err != nil {
		return nctree.AppendResult{}, err
	}
	w.lastObserved = &LastObserved{BlockHeight: height, TxIndex: &txIdx}
	return result, nil
}

// AppendSingle appends one note commitment. If the note belongs to the
// wallet its position is marked and recorded under txid, which must already
// have been registered with CreatePositions.
func (w *Wallet) AppendSingle(height uint32, txid TxID, txIdx, outIdx uint32, cm [nctree.HashSize]byte, owning bool) (nctree.AppendResult, error) {
	if !w.lastObserved.acceptsOutput(height, txIdx, outIdx) {
		return nctree.AppendResult{}, w.outOfOrder(height, txIdx, &outIdx)
	}
	var positions *NotePositions
	if owning {
		var ok bool
		if positions, ok = w.positions[txid]; !ok {
			return nctree.AppendResult{}, errors.Wrapf(ErrUnknownTransaction, "txid %s", txid)
		}
		if _, ok := positions.Positions[outIdx]; ok {
			return nctree.AppendResult{}, errors.Wrapf(ErrDuplicateOutput, "txid %s output %d", txid, outIdx)
		}
	}
	result, err := w.tree.AppendCommitment(cm)
	if err != nil {
		return nctree.AppendResult{}, err
	}
	if owning {
		position, err := w.tree.Mark()
		if err != nil {
			return nctree.AppendResult{}, err
		}
		positions.Positions[outIdx] = position
	}
	w.lastObserved = &LastObserved{BlockHeight: height, TxIndex: &txIdx, OutputIndex: &outIdx}
	return result, nil
}

func (w *Wallet) outOfOrder(height, txIdx uint32, outIdx *uint32) error {
	e := &OutOfOrderError{BlockHeight: height, TxIndex: txIdx, OutputIndex: outIdx}
	if w.lastObserved != nil {
		e.Last = *w.lastObserved
	}
	log.WithFields(logrus.Fields{
		"height": height,
		"tx":     txIdx,
		"last":   e.Last.String(),
	}).Error("Rejected out of order note commitment")
	return e
}

// CreatePositions registers txid, mined at height, as a wallet transaction
// with no recorded outputs yet. An existing record is replaced.
func (w *Wallet) CreatePositions(height uint32, txid TxID) {
	w.positions[txid] = newNotePositions(height)
}

// ClearPositions forgets the recorded positions of txid.
func (w *Wallet) ClearPositions(txid TxID) {
	delete(w.positions, txid)
}

// Positions returns a copy of the positions recorded for txid.
func (w *Wallet) Positions(txid TxID) (*NotePositions, bool) {
	positions, ok := w.positions[txid]
	if !ok {
		return nil, false
	}
	return positions.clone(), true
}

// Transactions returns the ids of every transaction with recorded
// positions, in ascending byte order.
func (w *Wallet) Transactions() []TxID {
	txids := make([]TxID, 0, len(w.positions))
	for txid := range w.positions {
		txids = append(txids, txid)
	}
	sort.Slice(txids, func(i, j int) bool { return bytes.Compare(txids[i][:], txids[j][:]) < 0 })
	return txids
}

// Witness returns the position and authentication path of a wallet note.
func (w *Wallet) Witness(txid TxID, outIdx uint32) (uint64, []nctree.Hash, error) {
	positions, ok := w.positions[txid]
	if !ok {
		return 0, nil, errors.Wrapf(ErrUnknownTransaction, "txid %s", txid)
	}
	position, ok := positions.Positions[outIdx]
	if !ok {
		return 0, nil, errors.Wrapf(nctree.ErrNotMarked, "txid %s output %d", txid, outIdx)
	}
	path, err := w.tree.Witness(position)
	if err != nil {
		return 0, nil, err
	}
	return position, path, nil
}

// Root returns the tree root at the given checkpoint depth, 0 being the
// current state.
func (w *Wallet) Root(checkpointDepth int) (nctree.Hash, bool) {
	return w.tree.Root(checkpointDepth)
}

// GarbageCollect drops checkpoints beyond the retained bound.
func (w *Wallet) GarbageCollect() int {
	return w.tree.GarbageCollect()
}
