package derive

import "fmt"

// ReferenceError reports that an operation referenced a parent entity that
// does not exist. Derivation never creates a missing parent implicitly.
type ReferenceError struct {
	Entity string
	ID     string
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("%s %s does not exist", e.Entity, e.ID)
}

// UnsupportedOperationError reports a state transition this layer does not
// model, such as reverting a dispensed prescription detail.
type UnsupportedOperationError struct {
	Op string
}

func (e *UnsupportedOperationError) Error() string {
	return fmt.Sprintf("unsupported operation: %s", e.Op)
}

// PersistenceError wraps a failed write of a derived value. It always
// propagates so the enclosing transaction aborts instead of committing a
// partially applied change.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }
