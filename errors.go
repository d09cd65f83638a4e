// Copyright 2022 bnb-chain. All Rights Reserved.
//
// Distributed under MIT license.
// See file LICENSE for detail or copy at https://opensource.org/licenses/MIT

package nctree

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrTreeFull = errors.New("note commitment tree is full")

	ErrInvalidCommitment = errors.New("invalid note commitment")

	ErrTreeNotEmpty = errors.New("tree already has checkpoints or marked positions")

	ErrInsufficientCheckpoints = errors.New("insufficient checkpoints")

	ErrEmptyTree = errors.New("tree has no leaves")

	ErrNotMarked = errors.New("position is not marked")

	ErrUnknownPool = errors.New("unknown shielded pool")

	ErrInvalidDepth = errors.New("invalid tree depth")

	ErrBundleTooLarge = errors.New("bundle completes more than one tracked subtree")

	ErrCorrupted = errors.New("malformed tree encoding")

	ErrInvalidWitness = errors.New("witness does not verify against the tree root")
)

// InsufficientCheckpointsError is returned by a rewind that would have to go
// further back than the retained checkpoints while positions are marked.
type InsufficientCheckpointsError struct {
	Available int
}

func (e *InsufficientCheckpointsError) Error() string {
	return fmt.Sprintf("insufficient checkpoints: only %d available", e.Available)
}

func (e *InsufficientCheckpointsError) Is(target error) bool {
	return target == ErrInsufficientCheckpoints
}
