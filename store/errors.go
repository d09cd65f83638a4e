package store

import "github.com/pkg/errors"

var (
	ErrSubtreeNotFound = errors.New("subtree root not found")

	ErrSubtreeGap = errors.New("subtree roots must be stored in index order")
)
