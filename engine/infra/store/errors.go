package store

import "fmt"

// PersistenceError wraps any failure inside a writer transaction. The
// transaction is always rolled back before this error propagates; nothing
// is ever swallowed locally, so a failed write never leaves a partially
// updated document behind.
type PersistenceError struct {
	DocID string
	Op    string
	Err   error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("store: %s for document %s: %v", e.Op, e.DocID, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
