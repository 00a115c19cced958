package recdb

import "fmt"

// NotFoundError is returned by Get and mutations on a rid that is absent or
// has been deleted.
type NotFoundError struct {
	Rid Rid
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("recdb: rid %v not found", e.Rid)
}

// DuplicateError is returned by Create when the caller-supplied id attribute
// already names a live record.
type DuplicateError struct {
	Rid Rid
}

func (e *DuplicateError) Error() string {
	return fmt.Sprintf("recdb: rid %v already exists", e.Rid)
}

// KeyMissingError is returned by View.Get when the attribute isn't present
// on the underlying record.
type KeyMissingError struct {
	Rid Rid
	Key string
}

func (e *KeyMissingError) Error() string {
	return fmt.Sprintf("recdb: rid %v has no attribute %q", e.Rid, e.Key)
}

// BadPredicateError is returned when a predicate leaf is malformed, i.e. has
// an empty attribute path. No literal is rejected: Compare orders every Value.
type BadPredicateError struct {
	Msg string
	Err error
}

func badPredicatef(err error, format string, args ...any) error {
	return &BadPredicateError{fmt.Sprintf(format, args...), err}
}

func (e *BadPredicateError) Unwrap() error { return e.Err }

func (e *BadPredicateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("recdb: bad predicate: %s: %v", e.Msg, e.Err)
	}
	return fmt.Sprintf("recdb: bad predicate: %s", e.Msg)
}

// BadOrderingError is returned when limit or offset is negative.
type BadOrderingError struct {
	Msg string
}

func badOrderingf(format string, args ...any) error {
	return &BadOrderingError{fmt.Sprintf(format, args...)}
}

func (e *BadOrderingError) Error() string {
	return fmt.Sprintf("recdb: bad ordering: %s", e.Msg)
}

// TransactionClosedError is returned by any operation on a Tx after it has
// committed or rolled back.
type TransactionClosedError struct{}

func (e *TransactionClosedError) Error() string {
	return "recdb: transaction is closed"
}
