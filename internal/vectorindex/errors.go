package vectorindex

import (
	"errors"
	"fmt"
)

var (
	// ErrNotSearchable matches every IndexStateError through errors.Is.
	ErrNotSearchable   = errors.New("index is not searchable")
	ErrDuplicateID     = errors.New("duplicate document id")
	ErrModelMismatch   = errors.New("index was built with a different encoder model")
	ErrDimMismatch     = errors.New("vector dimension mismatch")
	ErrLockNotAcquired = errors.New("index directory is locked")
)

// IndexStateError rejects an operation issued in a state that does not allow it.
type IndexStateError struct {
	Op    string
	State State
}

func (e *IndexStateError) Error() string {
	return fmt.Sprintf("%s: index is %s", e.Op, e.State)
}

func (e *IndexStateError) Is(target error) bool {
	return target == ErrNotSearchable
}
