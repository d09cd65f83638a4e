package wallet

import (
	"io"
	"sort"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/bnb-chain/zkbnb-nctree/utils"
)

// NoteStateV1 is the version byte of the note position state encoding.
const NoteStateV1 byte = 1

// Write encodes the note position state: version, optional last checkpoint,
// the tree and the positions of every wallet transaction.
func (w *Wallet) Write(wr io.Writer) error {
	if err := utils.WriteByte(wr, NoteStateV1); err != nil {
		return errors.Wrap(err, "write note state version")
	}
	last, ok := w.tree.LastCheckpoint()
	if err := utils.WriteOption(wr, ok); err != nil {
		return err
	}
	if ok {
		if err := utils.WriteUint32(wr, last); err != nil {
			return err
		}
	}
	if err := w.tree.Write(wr); err != nil {
		return errors.Wrap(err, "write note commitment tree")
	}
	txids := w.Transactions()
	if err := utils.WriteCompactSize(wr, uint64(len(txids))); err != nil {
		return err
	}
	for _, txid := range txids {
		if err := writeNotePositions(wr, txid, w.positions[txid]); err != nil {
			return errors.Wrapf(err, "write positions of %s", txid)
		}
	}
	return nil
}

func writeNotePositions(w io.Writer, txid TxID, positions *NotePositions) error {
	if _, err := w.Write(txid[:]); err != nil {
		return err
	}
	if err := utils.WriteUint32(w, positions.TxHeight); err != nil {
		return err
	}
	outputs := make([]uint32, 0, len(positions.Positions))
	for idx := range positions.Positions {
		outputs = append(outputs, idx)
	}
	sort.Slice(outputs, func(i, j int) bool { return outputs[i] < outputs[j] })
	if err := utils.WriteCompactSize(w, uint64(len(outputs))); err != nil {
		return err
	}
	for _, idx := range outputs {
		if err := utils.WriteUint32(w, idx); err != nil {
			return err
		}
		if err := utils.WriteUint64(w, positions.Positions[idx]); err != nil {
			return err
		}
	}
	return nil
}

// Read replaces the tree and positions with state decoded by Write. Nothing
// is applied unless the whole state decodes.
func (w *Wallet) Read(r io.Reader) error {
	version, err := utils.ReadByte(r)
	if err != nil {
		return errors.Wrap(err, "read note state version")
	}
	if version != NoteStateV1 {
		log.WithField("version", version).Error("Unrecognized note position state version")
		return errors.Wrapf(ErrUnrecognizedVersion, "version %d", version)
	}
	hasLast, err := utils.ReadOption(r)
	if err != nil {
		return err
	}
	var last uint32
	if hasLast {
		if last, err = utils.ReadUint32(r); err != nil {
			return err
		}
	}
	tree, err := w.newTree()
	if err != nil {
		return err
	}
	if err := tree.Read(r); err != nil {
		return errors.Wrap(err, "read note commitment tree")
	}
	treeLast, treeHasLast := tree.LastCheckpoint()
	if hasLast != treeHasLast || last != treeLast {
		return ErrCheckpointMismatch
	}
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return err
	}
	positions := make(map[TxID]*NotePositions, n)
	for i := uint64(0); i < n; i++ {
		txid, p, err := readNotePositions(r)
		if err != nil {
			return errors.Wrap(err, "read note positions")
		}
		positions[txid] = p
	}
	w.tree = tree
	w.positions = positions
	log.WithFields(logrus.Fields{
		"pool":         w.Pool(),
		"size":         tree.Size(),
		"checkpoints":  tree.CheckpointCount(),
		"transactions": len(positions),
	}).Debug("Loaded note commitment state")
	return nil
}

func readNotePositions(r io.Reader) (TxID, *NotePositions, error) {
	var txid TxID
	if _, err := io.ReadFull(r, txid[:]); err != nil {
		return txid, nil, err
	}
	height, err := utils.ReadUint32(r)
	if err != nil {
		return txid, nil, err
	}
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return txid, nil, err
	}
	positions := newNotePositions(height)
	for i := uint64(0); i < n; i++ {
		idx, err := utils.ReadUint32(r)
		if err != nil {
			return txid, nil, err
		}
		pos, err := utils.ReadUint64(r)
		if err != nil {
			return txid, nil, err
		}
		positions.Positions[idx] = pos
	}
	return txid, positions, nil
}
