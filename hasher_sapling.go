package nctree

import (
	"github.com/consensys/gnark-crypto/ecc/bls12-381/fr"
	"golang.org/x/crypto/blake2b"

	"github.com/bnb-chain/zkbnb-nctree/utils"
)

var saplingHasher = newBlake2bHasher()

var saplingNodeKey = []byte("zkbnb_sapling_nct")

var _ Hasher = (*blake2bHasher)(nil)

// blake2bHasher hashes nodes of the sapling pool. Node values are elements of
// the BLS12-381 scalar field encoded little-endian; a parent is the keyed
// BLAKE2b-256 digest of level, left and right reduced into the field.
type blake2bHasher struct {
	nilHashes *nilHashes
}

func newBlake2bHasher() *blake2bHasher {
	h := &blake2bHasher{}
	var one Hash
	one[0] = 1
	h.nilHashes = newNilHashes(one, h.Combine)
	return h
}

func (h *blake2bHasher) Pool() Pool { return PoolSapling }

func (h *blake2bHasher) EmptyLeaf() Hash { return h.nilHashes.Get(0) }

func (h *blake2bHasher) EmptyRoot(level uint8) Hash { return h.nilHashes.Get(level) }

func (h *blake2bHasher) Combine(level uint8, left, right Hash) Hash {
	d, err := blake2b.New256(saplingNodeKey)
	if err != nil {
		panic(err)
	}
	d.Write([]byte{level})
	d.Write(left[:])
	d.Write(right[:])
	return h.reduce(d.Sum(nil))
}

func (h *blake2bHasher) ParseNode(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, ErrInvalidCommitment
	}
	var e fr.Element
	if err := e.SetBytesCanonical(utils.ReverseBytes(utils.CopyBytes(b))); err != nil {
		return Hash{}, ErrInvalidCommitment
	}
	var node Hash
	copy(node[:], b)
	return node, nil
}

func (h *blake2bHasher) HashToNode(data []byte) Hash {
	digest := blake2b.Sum256(data)
	return h.reduce(digest[:])
}

func (h *blake2bHasher) reduce(digest []byte) Hash {
	var e fr.Element
	e.SetBytes(digest)
	be := e.Bytes()
	var node Hash
	copy(node[:], utils.ReverseBytes(be[:]))
	return node
}
