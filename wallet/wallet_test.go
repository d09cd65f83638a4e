package wallet

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	nctree "github.com/bnb-chain/zkbnb-nctree"
)

type bundle [][nctree.HashSize]byte

func (b bundle) Commitments() [][nctree.HashSize]byte { return b }

func newTestWallet(t *testing.T, pool nctree.Pool) *Wallet {
	w, err := New(pool, WithDepth(8, 2))
	require.NoError(t, err)
	return w
}

func commitment(t *testing.T, pool nctree.Pool, i uint64) [nctree.HashSize]byte {
	h, err := nctree.NewHasher(pool)
	require.NoError(t, err)
	var seed [8]byte
	binary.BigEndian.PutUint64(seed[:], i)
	return h.HashToNode(seed[:])
}

func commitments(t *testing.T, pool nctree.Pool, from, n uint64) bundle {
	b := make(bundle, n)
	for i := range b {
		b[i] = commitment(t, pool, from+uint64(i))
	}
	return b
}

func txid(i byte) TxID {
	var id TxID
	id[0] = i
	return id
}

func u32(v uint32) *uint32 { return &v }

func TestBundleOrdering(t *testing.T) {
	w := newTestWallet(t, nctree.PoolSapling)
	_, err := w.AppendBundle(10, 3, commitments(t, nctree.PoolSapling, 0, 2))
	require.NoError(t, err)

	for _, tc := range []struct {
		name   string
		height uint32
		txIdx  uint32
		ok     bool
	}{
		{"same tx", 10, 3, false},
		{"earlier tx", 10, 2, false},
		{"earlier block", 9, 7, false},
		{"later tx", 10, 4, true},
		{"later block", 11, 0, true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			size := w.Tree().Size()
			last, _ := w.LastObserved()
			_, err := w.AppendBundle(tc.height, tc.txIdx, commitments(t, nctree.PoolSapling, size, 1))
			if tc.ok {
				require.NoError(t, err)
				assert.Equal(t, size+1, w.Tree().Size())
				return
			}
			var ooo *OutOfOrderError
			require.ErrorAs(t, err, &ooo)
			assert.ErrorIs(t, err, ErrOutOfOrder)
			assert.Equal(t, last, ooo.Last)
			assert.Equal(t, tc.height, ooo.BlockHeight)
			assert.Equal(t, tc.txIdx, ooo.TxIndex)
			assert.Nil(t, ooo.OutputIndex)
			assert.Equal(t, size, w.Tree().Size())
		})
	}
}

func TestSingleOrdering(t *testing.T) {
	pool := nctree.PoolOrchard
	w := newTestWallet(t, pool)
	_, err := w.AppendSingle(5, txid(1), 2, 1, commitment(t, pool, 0), false)
	require.NoError(t, err)
	last, ok := w.LastObserved()
	require.True(t, ok)
	assert.Equal(t, LastObserved{BlockHeight: 5, TxIndex: u32(2), OutputIndex: u32(1)}, last)

	_, err = w.AppendSingle(5, txid(1), 2, 1, commitment(t, pool, 1), false)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	_, err = w.AppendSingle(5, txid(1), 2, 0, commitment(t, pool, 1), false)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	_, err = w.AppendSingle(5, txid(0), 1, 9, commitment(t, pool, 1), false)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, uint64(1), w.Tree().Size())

	_, err = w.AppendSingle(5, txid(1), 2, 2, commitment(t, pool, 1), false)
	require.NoError(t, err)
	_, err = w.AppendSingle(5, txid(2), 3, 0, commitment(t, pool, 2), false)
	require.NoError(t, err)

	// A whole bundle never follows part of the same transaction.
	_, err = w.AppendBundle(5, 3, commitments(t, pool, 3, 1))
	assert.ErrorIs(t, err, ErrOutOfOrder)
	// A single output after a bundle of the same transaction neither.
	_, err = w.AppendBundle(5, 4, commitments(t, pool, 3, 1))
	require.NoError(t, err)
	_, err = w.AppendSingle(5, txid(3), 4, 7, commitment(t, pool, 4), false)
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.Equal(t, uint64(4), w.Tree().Size())
}

func TestInvalidCommitmentLeavesCursor(t *testing.T) {
	pool := nctree.PoolSapling
	w := newTestWallet(t, pool)
	var bad [nctree.HashSize]byte
	for i := range bad {
		bad[i] = 0xff
	}
	_, err := w.AppendSingle(1, txid(1), 0, 0, bad, false)
	assert.ErrorIs(t, err, nctree.ErrInvalidCommitment)
	_, ok := w.LastObserved()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), w.Tree().Size())

	_, err = w.AppendBundle(1, 0, bundle{commitment(t, pool, 0), bad})
	assert.ErrorIs(t, err, nctree.ErrInvalidCommitment)
	assert.Equal(t, uint64(0), w.Tree().Size())
}

func TestOwnedNotes(t *testing.T) {
	pool := nctree.PoolSapling
	w := newTestWallet(t, pool)
	cms := commitments(t, pool, 0, 6)

	_, err := w.AppendSingle(1, txid(7), 0, 0, cms[0], true)
	assert.ErrorIs(t, err, ErrUnknownTransaction)
	assert.Equal(t, uint64(0), w.Tree().Size())

	w.CreatePositions(1, txid(7))
	_, err = w.AppendSingle(1, txid(7), 0, 0, cms[0], true)
	require.NoError(t, err)
	_, err = w.AppendSingle(1, txid(7), 0, 1, cms[1], false)
	require.NoError(t, err)
	_, err = w.AppendSingle(1, txid(7), 0, 2, cms[2], true)
	require.NoError(t, err)
	_, err = w.AppendBundle(2, 0, cms[3:])
	require.NoError(t, err)

	positions, ok := w.Positions(txid(7))
	require.True(t, ok)
	assert.Equal(t, uint32(1), positions.TxHeight)
	assert.Equal(t, map[uint32]uint64{0: 0, 2: 2}, positions.Positions)
	assert.Equal(t, []uint64{0, 2}, w.Tree().Marked())

	root, ok := w.Root(0)
	require.True(t, ok)
	for out, pos := range positions.Positions {
		gotPos, path, err := w.Witness(txid(7), out)
		require.NoError(t, err)
		assert.Equal(t, pos, gotPos)
		leaf := nctree.Hash(cms[pos])
		assert.True(t, nctree.VerifyPath(w.hasher, leaf, pos, path, root))
	}
	_, _, err = w.Witness(txid(7), 1)
	assert.ErrorIs(t, err, nctree.ErrNotMarked)
	_, _, err = w.Witness(txid(8), 0)
	assert.ErrorIs(t, err, ErrUnknownTransaction)

	// Replacing the record forgets recorded outputs.
	w.CreatePositions(1, txid(7))
	positions, ok = w.Positions(txid(7))
	require.True(t, ok)
	assert.Empty(t, positions.Positions)

	w.ClearPositions(txid(7))
	_, ok = w.Positions(txid(7))
	assert.False(t, ok)
	w.ClearPositions(txid(7))
}

func TestDuplicateOutput(t *testing.T) {
	pool := nctree.PoolSapling
	w := newTestWallet(t, pool)
	w.CreatePositions(1, txid(1))
	_, err := w.AppendSingle(1, txid(1), 0, 0, commitment(t, pool, 0), true)
	require.NoError(t, err)
	_, err = w.AppendSingle(1, txid(1), 1, 0, commitment(t, pool, 1), true)
	assert.ErrorIs(t, err, ErrDuplicateOutput)
	assert.Equal(t, uint64(1), w.Tree().Size())
}

// scanBlocks appends blocks from..to, each holding two transactions of two
// outputs, checkpointing before every block. The first output of every
// block's first transaction belongs to the wallet.
func scanBlocks(t *testing.T, w *Wallet, from, to uint32) {
	pool := w.Pool()
	for height := from; height <= to; height++ {
		require.True(t, w.Checkpoint(height))
		id := txid(byte(height))
		w.CreatePositions(height, id)
		n := w.Tree().Size()
		_, err := w.AppendSingle(height, id, 0, 0, commitment(t, pool, n), true)
		require.NoError(t, err)
		_, err = w.AppendSingle(height, id, 0, 1, commitment(t, pool, n+1), false)
		require.NoError(t, err)
		_, err = w.AppendBundle(height, 1, commitments(t, pool, n+2, 2))
		require.NoError(t, err)
	}
}

func TestNilBundle(t *testing.T) {
	w := newTestWallet(t, nctree.PoolOrchard)
	result, err := w.AppendBundle(3, 0, nil)
	require.NoError(t, err)
	assert.False(t, result.HasSubtreeBoundary)
	assert.Equal(t, uint64(0), w.Tree().Size())
	_, ok := w.LastObserved()
	assert.False(t, ok)

	_, err = w.AppendBundle(3, 1, commitments(t, nctree.PoolOrchard, 0, 2))
	require.NoError(t, err)
	_, err = w.AppendBundle(3, 0, nil)
	require.NoError(t, err)
	cursor, ok := w.LastObserved()
	require.True(t, ok)
	assert.Equal(t, uint32(1), *cursor.TxIndex)
	assert.Equal(t, uint64(2), w.Tree().Size())
}

func TestRewind(t *testing.T) {
	w := newTestWallet(t, nctree.PoolSapling)
	scanBlocks(t, w, 100, 104)
	roots := make(map[uint32]nctree.Hash)
	for depth := 1; depth <= 5; depth++ {
		root, ok := w.Root(depth)
		require.True(t, ok)
		roots[uint32(105-depth)] = root
	}
	_, ok := w.Root(6)
	assert.False(t, ok)

	got, err := w.Rewind(102)
	require.NoError(t, err)
	assert.Equal(t, uint32(102), got)
	last, ok := w.LastCheckpoint()
	require.True(t, ok)
	assert.Equal(t, uint32(102), last)
	assert.Equal(t, uint64(12), w.Tree().Size())
	root, _ := w.Root(0)
	assert.Equal(t, roots[103], root)

	assert.Equal(t, []TxID{txid(100), txid(101), txid(102)}, w.Transactions())
	cursor, ok := w.LastObserved()
	require.True(t, ok)
	assert.Equal(t, LastObserved{BlockHeight: 102}, cursor)

	// The rewound block cannot be resumed, the next one can.
	_, err = w.AppendBundle(102, 5, commitments(t, w.Pool(), 50, 1))
	assert.ErrorIs(t, err, ErrOutOfOrder)
	assert.True(t, w.Checkpoint(103))
	_, err = w.AppendBundle(103, 0, commitments(t, w.Pool(), 50, 1))
	require.NoError(t, err)
}

func TestRewindNoOp(t *testing.T) {
	w := newTestWallet(t, nctree.PoolOrchard)
	scanBlocks(t, w, 10, 12)
	cursor, _ := w.LastObserved()
	root, _ := w.Root(0)

	for _, to := range []uint32{12, 13, 1000} {
		got, err := w.Rewind(to)
		require.NoError(t, err)
		assert.Equal(t, uint32(12), got)
	}
	after, _ := w.LastObserved()
	assert.Equal(t, cursor, after)
	afterRoot, _ := w.Root(0)
	assert.Equal(t, root, afterRoot)
	assert.Len(t, w.Transactions(), 3)
}

func TestRewindWithoutCheckpoints(t *testing.T) {
	pool := nctree.PoolSapling
	w := newTestWallet(t, pool)
	_, err := w.AppendBundle(20, 0, commitments(t, pool, 0, 3))
	require.NoError(t, err)

	got, err := w.Rewind(15)
	require.NoError(t, err)
	assert.Equal(t, uint32(15), got)
	cursor, _ := w.LastObserved()
	assert.Equal(t, LastObserved{BlockHeight: 15}, cursor)
	assert.Equal(t, uint64(3), w.Tree().Size())

	w.CreatePositions(16, txid(1))
	_, err = w.AppendSingle(16, txid(1), 0, 0, commitment(t, pool, 3), true)
	require.NoError(t, err)
	_, err = w.Rewind(15)
	var insufficient *nctree.InsufficientCheckpointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 0, insufficient.Available)
}

func TestRewindInsufficientCheckpoints(t *testing.T) {
	pool := nctree.PoolSapling
	w, err := New(pool, WithDepth(8, 2), WithMaxCheckpoints(2))
	require.NoError(t, err)
	scanBlocks(t, w, 1, 5)
	assert.Equal(t, 2, w.Tree().CheckpointCount())
	assert.Equal(t, 0, w.GarbageCollect())

	root, _ := w.Root(0)
	cursor, _ := w.LastObserved()
	_, err = w.Rewind(2)
	var insufficient *nctree.InsufficientCheckpointsError
	require.ErrorAs(t, err, &insufficient)
	assert.Equal(t, 2, insufficient.Available)

	after, _ := w.Root(0)
	assert.Equal(t, root, after)
	afterCursor, _ := w.LastObserved()
	assert.Equal(t, cursor, afterCursor)
	assert.Len(t, w.Transactions(), 5)
	last, _ := w.LastCheckpoint()
	assert.Equal(t, uint32(5), last)

	got, err := w.Rewind(4)
	require.NoError(t, err)
	assert.Equal(t, uint32(4), got)
	assert.Len(t, w.Transactions(), 4)
}

func TestWriteRead(t *testing.T) {
	for _, pool := range []nctree.Pool{nctree.PoolSapling, nctree.PoolOrchard} {
		t.Run(pool.String(), func(t *testing.T) {
			w := newTestWallet(t, pool)
			scanBlocks(t, w, 40, 46)

			var buf bytes.Buffer
			require.NoError(t, w.Write(&buf))
			assert.Equal(t, NoteStateV1, buf.Bytes()[0])

			loaded := newTestWallet(t, pool)
			require.NoError(t, loaded.Read(bytes.NewReader(buf.Bytes())))
			assert.Equal(t, w.Transactions(), loaded.Transactions())
			for _, id := range w.Transactions() {
				want, _ := w.Positions(id)
				got, _ := loaded.Positions(id)
				assert.Equal(t, want, got)
			}
			last, _ := loaded.LastCheckpoint()
			assert.Equal(t, uint32(46), last)
			for depth := 0; depth <= 7; depth++ {
				want, _ := w.Root(depth)
				got, ok := loaded.Root(depth)
				require.True(t, ok)
				assert.Equal(t, want, got)
			}

			var again bytes.Buffer
			require.NoError(t, loaded.Write(&again))
			assert.Equal(t, buf.Bytes(), again.Bytes())

			_, err := loaded.Rewind(43)
			require.NoError(t, err)
			assert.Len(t, loaded.Transactions(), 4)
		})
	}
}

func TestWriteReadEmpty(t *testing.T) {
	w := newTestWallet(t, nctree.PoolSapling)
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	assert.Equal(t, []byte{NoteStateV1, 0x00, 0x00, 0x00, 0x00, 0x00}, buf.Bytes())

	loaded := newTestWallet(t, nctree.PoolSapling)
	require.NoError(t, loaded.Read(&buf))
	_, ok := loaded.LastCheckpoint()
	assert.False(t, ok)
}

func TestReadUnrecognizedVersion(t *testing.T) {
	pool := nctree.PoolSapling
	w := newTestWallet(t, pool)
	scanBlocks(t, w, 1, 2)
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))

	target := newTestWallet(t, pool)
	scanBlocks(t, target, 1, 1)
	root, _ := target.Root(0)

	encoded := buf.Bytes()
	encoded[0] = 2
	err := target.Read(bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrUnrecognizedVersion)
	after, _ := target.Root(0)
	assert.Equal(t, root, after)
	assert.Len(t, target.Transactions(), 1)

	encoded[0] = NoteStateV1
	err = target.Read(bytes.NewReader(encoded[:len(encoded)-3]))
	assert.Error(t, err)
	assert.Len(t, target.Transactions(), 1)
}

func TestReadCheckpointMismatch(t *testing.T) {
	w := newTestWallet(t, nctree.PoolSapling)
	scanBlocks(t, w, 1, 2)
	var buf bytes.Buffer
	require.NoError(t, w.Write(&buf))
	encoded := buf.Bytes()
	// last checkpoint follows the version and option bytes
	binary.LittleEndian.PutUint32(encoded[2:6], 9)

	err := newTestWallet(t, nctree.PoolSapling).Read(bytes.NewReader(encoded))
	assert.ErrorIs(t, err, ErrCheckpointMismatch)
}

func TestResetAndInitFromFrontier(t *testing.T) {
	pool := nctree.PoolOrchard
	w := newTestWallet(t, pool)
	scanBlocks(t, w, 1, 3)

	h, err := nctree.NewHasher(pool)
	require.NoError(t, err)
	f, err := nctree.NewFrontierWithDepth(h, 8, 2)
	require.NoError(t, err)
	_, err = f.AppendBundle(commitments(t, pool, 0, 5))
	require.NoError(t, err)

	assert.ErrorIs(t, w.InitFromFrontier(f.Clone()), nctree.ErrTreeNotEmpty)

	w.Reset()
	_, ok := w.LastObserved()
	assert.False(t, ok)
	assert.Empty(t, w.Transactions())
	_, ok = w.LastCheckpoint()
	assert.False(t, ok)
	assert.Equal(t, uint64(0), w.Tree().Size())

	require.NoError(t, w.InitFromFrontier(f.Clone()))
	root, _ := w.Root(0)
	assert.Equal(t, f.Root(), root)
	assert.True(t, w.Checkpoint(50))
}
