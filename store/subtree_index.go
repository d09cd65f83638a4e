package store

import (
	"encoding/binary"
	"fmt"

	"github.com/ethereum/go-ethereum/rlp"
	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	nctree "github.com/bnb-chain/zkbnb-nctree"
	"github.com/bnb-chain/zkbnb-nctree/database"
)

const defaultSubtreeCacheSize = 1024

// SubtreeRoot is the root of a completed subtree of tracked height.
type SubtreeRoot struct {
	Index uint64
	Root  nctree.Hash
	// CompletingHeight is the block height of the append that completed it.
	CompletingHeight uint32
}

// SubtreeIndex records the roots of completed subtrees reported by appends,
// keyed by subtree index.
type SubtreeIndex struct {
	db    database.TreeDB
	pool  nctree.Pool
	cache *lru.Cache

	count uint64
}

// NewSubtreeIndex opens the index of pool stored in db. A cacheSize of zero
// selects the default.
func NewSubtreeIndex(db database.TreeDB, pool nctree.Pool, cacheSize int) (*SubtreeIndex, error) {
	if cacheSize <= 0 {
		cacheSize = defaultSubtreeCacheSize
	}
	cache, err := lru.New(cacheSize)
	if err != nil {
		return nil, err
	}
	idx := &SubtreeIndex{db: db, pool: pool, cache: cache}
	data, err := db.Get(idx.countKey())
	switch {
	case errors.Is(err, database.ErrDatabaseNotFound):
	case err != nil:
		return nil, errors.Wrap(err, "load subtree count")
	case len(data) != 8:
		return nil, errors.Errorf("malformed subtree count of %d bytes", len(data))
	default:
		idx.count = binary.BigEndian.Uint64(data)
	}
	return idx, nil
}

func (s *SubtreeIndex) countKey() []byte {
	return []byte(fmt.Sprintf("subtree:%s:count", s.pool))
}

func (s *SubtreeIndex) rootKey(index uint64) []byte {
	key := []byte(fmt.Sprintf("subtree:%s:", s.pool))
	return binary.BigEndian.AppendUint64(key, index)
}

// Count returns the number of stored subtree roots.
func (s *SubtreeIndex) Count() uint64 { return s.count }

// Observe stores the completed subtree root of an append result, if any.
func (s *SubtreeIndex) Observe(result nctree.AppendResult, height uint32) error {
	if !result.HasSubtreeBoundary {
		return nil
	}
	return s.Put(SubtreeRoot{
		Index:            result.SubtreeIndex,
		Root:             result.CompletedSubtreeRoot,
		CompletingHeight: height,
	})
}

// Put stores the next subtree root. Roots already stored at or above its
// index are replaced.
func (s *SubtreeIndex) Put(root SubtreeRoot) error {
	if root.Index > s.count {
		return errors.Wrapf(ErrSubtreeGap, "index %d after %d roots", root.Index, s.count)
	}
	if root.Index < s.count {
		if err := s.Truncate(root.Index); err != nil {
			return err
		}
	}
	data, err := rlp.EncodeToBytes(&root)
	if err != nil {
		return err
	}
	batch := s.db.NewBatch()
	if err := batch.Set(s.rootKey(root.Index), data); err != nil {
		return err
	}
	if err := batch.Set(s.countKey(), binary.BigEndian.AppendUint64(nil, root.Index+1)); err != nil {
		return err
	}
	queued := batch.ValueSize()
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "write subtree root")
	}
	s.count = root.Index + 1
	s.cache.Add(root.Index, root)
	log.WithFields(logrus.Fields{
		"pool":   s.pool,
		"index":  root.Index,
		"height": root.CompletingHeight,
		"bytes":  queued,
	}).Info("Stored completed subtree root")
	return nil
}

func (s *SubtreeIndex) Get(index uint64) (SubtreeRoot, error) {
	if index >= s.count {
		return SubtreeRoot{}, ErrSubtreeNotFound
	}
	if cached, ok := s.cache.Get(index); ok {
		return cached.(SubtreeRoot), nil
	}
	data, err := s.db.Get(s.rootKey(index))
	if errors.Is(err, database.ErrDatabaseNotFound) {
		return SubtreeRoot{}, ErrSubtreeNotFound
	}
	if err != nil {
		return SubtreeRoot{}, err
	}
	var root SubtreeRoot
	if err := rlp.DecodeBytes(data, &root); err != nil {
		return SubtreeRoot{}, errors.Wrapf(err, "decode subtree root %d", index)
	}
	s.cache.Add(index, root)
	return root, nil
}

// Latest returns the most recently completed subtree root.
func (s *SubtreeIndex) Latest() (SubtreeRoot, bool, error) {
	if s.count == 0 {
		return SubtreeRoot{}, false, nil
	}
	root, err := s.Get(s.count - 1)
	return root, err == nil, err
}

// Truncate removes every root at or above index, as after a rewind below
// the append that completed them.
func (s *SubtreeIndex) Truncate(index uint64) error {
	if index >= s.count {
		return nil
	}
	batch := s.db.NewBatch()
	for i := index; i < s.count; i++ {
		if err := batch.Delete(s.rootKey(i)); err != nil {
			return err
		}
	}
	if err := batch.Set(s.countKey(), binary.BigEndian.AppendUint64(nil, index)); err != nil {
		return err
	}
	queued := batch.ValueSize()
	if err := batch.Write(); err != nil {
		return errors.Wrap(err, "truncate subtree roots")
	}
	for i := index; i < s.count; i++ {
		s.cache.Remove(i)
	}
	log.WithFields(logrus.Fields{
		"pool":    s.pool,
		"from":    index,
		"removed": s.count - index,
		"bytes":   queued,
	}).Info("Removed subtree roots")
	s.count = index
	return nil
}

// TruncateAbove removes the roots completed by appends above block height.
func (s *SubtreeIndex) TruncateAbove(height uint32) error {
	keep := s.count
	for keep > 0 {
		root, err := s.Get(keep - 1)
		if err != nil {
			return err
		}
		if root.CompletingHeight <= height {
			break
		}
		keep--
	}
	return s.Truncate(keep)
}
