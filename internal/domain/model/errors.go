package model

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by the store and the voting session.
var (
	ErrConflict    = errors.New("version conflict")
	ErrUnavailable = errors.New("store unavailable")
	ErrNotFound    = errors.New("item not found")
)

// ConflictError reports the first update whose expected version was stale.
type ConflictError struct {
	ID       string
	Expected int64
	Actual   int64
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("version conflict on %s: expected %d, stored %d", e.ID, e.Expected, e.Actual)
}

// Is makes errors.Is(err, ErrConflict) true.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
