package wallet

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrOutOfOrder = errors.New("note commitment appended out of order")

	ErrUnrecognizedVersion = errors.New("unrecognized note position state version")

	ErrUnknownTransaction = errors.New("no note positions recorded for transaction")

	ErrDuplicateOutput = errors.New("output already has a recorded position")

	ErrCheckpointMismatch = errors.New("last checkpoint does not match the tree")
)

// OutOfOrderError is returned when an append does not come strictly after
// the most recently observed one.
type OutOfOrderError struct {
	Last        LastObserved
	BlockHeight uint32
	TxIndex     uint32
	OutputIndex *uint32
}

func (e *OutOfOrderError) Error() string {
	msg := fmt.Sprintf("append at height %d tx %d", e.BlockHeight, e.TxIndex)
	if e.OutputIndex != nil {
		msg += fmt.Sprintf(" output %d", *e.OutputIndex)
	}
	return msg + " does not follow " + e.Last.String()
}

func (e *OutOfOrderError) Is(target error) bool {
	return target == ErrOutOfOrder
}
