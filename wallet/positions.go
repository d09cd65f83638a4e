package wallet

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// TxID identifies a transaction.
type TxID [32]byte

func (id TxID) String() string { return common.Bytes2Hex(id[:]) }

// NotePositions records where the outputs of one wallet transaction landed
// in the note commitment tree.
type NotePositions struct {
	TxHeight uint32
	// Positions maps output index to leaf position.
	Positions map[uint32]uint64
}

func newNotePositions(height uint32) *NotePositions {
	return &NotePositions{TxHeight: height, Positions: make(map[uint32]uint64)}
}

func (p *NotePositions) clone() *NotePositions {
	c := newNotePositions(p.TxHeight)
	for idx, pos := range p.Positions {
		c.Positions[idx] = pos
	}
	return c
}

// LastObserved is the coordinate of the most recent append.
type LastObserved struct {
	BlockHeight uint32
	// TxIndex and OutputIndex are unset after a rewind.
	TxIndex     *uint32
	OutputIndex *uint32
}

func (l LastObserved) String() string {
	s := fmt.Sprintf("height %d", l.BlockHeight)
	if l.TxIndex != nil {
		s += fmt.Sprintf(" tx %d", *l.TxIndex)
	}
	if l.OutputIndex != nil {
		s += fmt.Sprintf(" output %d", *l.OutputIndex)
	}
	return s
}

// acceptsBundle reports whether a whole transaction at (height, txIdx) may
// follow the cursor.
func (l *LastObserved) acceptsBundle(height, txIdx uint32) bool {
	if l == nil {
		return true
	}
	return height > l.BlockHeight ||
		(height == l.BlockHeight && l.TxIndex != nil && *l.TxIndex < txIdx)
}

// acceptsOutput also admits a later output of the transaction last appended.
func (l *LastObserved) acceptsOutput(height, txIdx, outIdx uint32) bool {
	if l.acceptsBundle(height, txIdx) {
		return true
	}
	return height == l.BlockHeight &&
		l.TxIndex != nil && *l.TxIndex == txIdx &&
		l.OutputIndex != nil && *l.OutputIndex < outIdx
}
