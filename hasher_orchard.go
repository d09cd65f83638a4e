package nctree

import (
	"github.com/consensys/gnark-crypto/ecc/bn254/fr"
	"github.com/consensys/gnark-crypto/ecc/bn254/fr/mimc"
	"golang.org/x/crypto/blake2b"
)

var orchardHasher = newMiMCHasher()

var _ Hasher = (*mimcHasher)(nil)

// mimcHasher hashes nodes of the orchard pool. Node values are canonical
// big-endian BN254 scalar field elements combined with MiMC.
type mimcHasher struct {
	nilHashes *nilHashes
}

func newMiMCHasher() *mimcHasher {
	h := &mimcHasher{}
	var two Hash
	two[HashSize-1] = 2
	h.nilHashes = newNilHashes(two, h.Combine)
	return h
}

func (h *mimcHasher) Pool() Pool { return PoolOrchard }

func (h *mimcHasher) EmptyLeaf() Hash { return h.nilHashes.Get(0) }

func (h *mimcHasher) EmptyRoot(level uint8) Hash { return h.nilHashes.Get(level) }

func (h *mimcHasher) Combine(level uint8, left, right Hash) Hash {
	lvl := fr.NewElement(uint64(level))
	lvlBytes := lvl.Bytes()

	d := mimc.NewMiMC()
	// Node values are canonical by construction, so Write cannot fail.
	if _, err := d.Write(lvlBytes[:]); err != nil {
		panic(err)
	}
	if _, err := d.Write(left[:]); err != nil {
		panic(err)
	}
	if _, err := d.Write(right[:]); err != nil {
		panic(err)
	}
	var node Hash
	copy(node[:], d.Sum(nil))
	return node
}

func (h *mimcHasher) ParseNode(b []byte) (Hash, error) {
	if len(b) != HashSize {
		return Hash{}, ErrInvalidCommitment
	}
	var e fr.Element
	if err := e.SetBytesCanonical(b); err != nil {
		return Hash{}, ErrInvalidCommitment
	}
	var node Hash
	copy(node[:], b)
	return node, nil
}

func (h *mimcHasher) HashToNode(data []byte) Hash {
	digest := blake2b.Sum256(data)
	var e fr.Element
	e.SetBytes(digest[:])
	return Hash(e.Bytes())
}
