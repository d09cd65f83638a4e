// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import (
	"io"
	"math/bits"

	"github.com/pkg/errors"

	"github.com/bnb-chain/zkbnb-nctree/utils"
)

// Write encodes the frontier in the current format: an optional non-empty
// frontier holding the position (u64 LE), the leaf and a compact-size
// prefixed vector of ommers.
func (f *Frontier) Write(w io.Writer) error {
	if f.size == 0 {
		return utils.WriteOption(w, false)
	}
	if err := utils.WriteOption(w, true); err != nil {
		return err
	}
	if err := utils.WriteUint64(w, f.size-1); err != nil {
		return err
	}
	if err := writeHash(w, f.leaf); err != nil {
		return err
	}
	if err := utils.WriteCompactSize(w, uint64(len(f.ommers))); err != nil {
		return err
	}
	for _, ommer := range f.ommers {
		if err := writeHash(w, ommer); err != nil {
			return err
		}
	}
	return nil
}

// Read replaces the frontier's contents with one decoded from the current
// format. The frontier keeps its hasher and depth, and is left unchanged if
// decoding fails.
func (f *Frontier) Read(r io.Reader) error {
	present, err := utils.ReadOption(r)
	if err != nil {
		return err
	}
	if !present {
		f.reset()
		return nil
	}
	position, err := utils.ReadUint64(r)
	if err != nil {
		return err
	}
	if position >= f.capacity() {
		return errors.Wrapf(ErrCorrupted, "position %d exceeds depth %d", position, f.depth)
	}
	leaf, err := f.readNode(r)
	if err != nil {
		return err
	}
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return err
	}
	if n != uint64(bits.OnesCount64(position)) {
		return errors.Wrapf(ErrCorrupted, "%d ommers for position %d", n, position)
	}
	ommers := make([]Hash, n)
	for i := range ommers {
		if ommers[i], err = f.readNode(r); err != nil {
			return err
		}
	}
	f.size = position + 1
	f.leaf = leaf
	f.ommers = ommers
	return nil
}

// WriteLegacy encodes the frontier in the fixed-depth commitment tree format:
// optional left leaf, optional right leaf and a vector of optional parents
// for levels 1 and up. Trailing empty parents are omitted.
func (f *Frontier) WriteLegacy(w io.Writer) error {
	var (
		left, right *Hash
		parents     []*Hash
	)
	if f.size > 0 {
		p := f.size - 1
		rest := f.ommers
		leaf := f.leaf
		if p&1 == 1 {
			left, right = &rest[0], &leaf
			rest = rest[1:]
		} else {
			left = &leaf
		}
		for level := uint8(1); level < f.depth && p>>level != 0; level++ {
			if p>>level&1 == 1 {
				parents = append(parents, &rest[0])
				rest = rest[1:]
			} else {
				parents = append(parents, nil)
			}
		}
	}
	if err := writeOptionalHash(w, left); err != nil {
		return err
	}
	if err := writeOptionalHash(w, right); err != nil {
		return err
	}
	if err := utils.WriteCompactSize(w, uint64(len(parents))); err != nil {
		return err
	}
	for _, parent := range parents {
		if err := writeOptionalHash(w, parent); err != nil {
			return err
		}
	}
	return nil
}

// ReadLegacy replaces the frontier's contents with one decoded from the
// fixed-depth commitment tree format.
func (f *Frontier) ReadLegacy(r io.Reader) error {
	left, err := f.readOptionalNode(r)
	if err != nil {
		return err
	}
	right, err := f.readOptionalNode(r)
	if err != nil {
		return err
	}
	n, err := utils.ReadCompactSize(r)
	if err != nil {
		return err
	}
	if n > uint64(f.depth-1) {
		return errors.Wrapf(ErrCorrupted, "%d parents exceed depth %d", n, f.depth)
	}
	var (
		position uint64
		ommers   []Hash
		leaf     Hash
	)
	switch {
	case left == nil && right != nil:
		return errors.Wrap(ErrCorrupted, "right leaf without left leaf")
	case right != nil:
		position = 1
		leaf = *right
		ommers = append(ommers, *left)
	case left != nil:
		leaf = *left
	}
	for i := uint64(0); i < n; i++ {
		parent, err := f.readOptionalNode(r)
		if err != nil {
			return err
		}
		if parent == nil {
			continue
		}
		if left == nil {
			return errors.Wrap(ErrCorrupted, "parent in a tree without leaves")
		}
		position |= uint64(1) << (i + 1)
		ommers = append(ommers, *parent)
	}
	if left == nil {
		f.reset()
		return nil
	}
	f.size = position + 1
	f.leaf = leaf
	f.ommers = ommers
	return nil
}

// ParseFrontier decodes a frontier of DefaultDepth in the current format.
func ParseFrontier(r io.Reader, hasher Hasher) (*Frontier, error) {
	f := NewFrontier(hasher)
	if err := f.Read(r); err != nil {
		return nil, err
	}
	return f, nil
}

// ParseLegacyFrontier decodes a frontier of DefaultDepth in the legacy format.
func ParseLegacyFrontier(r io.Reader, hasher Hasher) (*Frontier, error) {
	f := NewFrontier(hasher)
	if err := f.ReadLegacy(r); err != nil {
		return nil, err
	}
	return f, nil
}

func (f *Frontier) reset() {
	f.size = 0
	f.leaf = Hash{}
	f.ommers = nil
}

func (f *Frontier) readNode(r io.Reader) (Hash, error) {
	var buf [HashSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Hash{}, errors.Wrap(err, "read node")
	}
	return f.hasher.ParseNode(buf[:])
}

func (f *Frontier) readOptionalNode(r io.Reader) (*Hash, error) {
	present, err := utils.ReadOption(r)
	if err != nil || !present {
		return nil, err
	}
	node, err := f.readNode(r)
	if err != nil {
		return nil, err
	}
	return &node, nil
}

func writeHash(w io.Writer, h Hash) error {
	_, err := w.Write(h[:])
	return err
}

func writeOptionalHash(w io.Writer, h *Hash) error {
	if err := utils.WriteOption(w, h != nil); err != nil || h == nil {
		return err
	}
	return writeHash(w, *h)
}
