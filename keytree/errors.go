package keytree

import (
	"errors"
	"fmt"
)

// Sentinel errors for structural violations. Every error returned by this
// package wraps exactly one of them, so callers can use errors.Is.
var (
	ErrExistedKey      = errors.New("key already exists")
	ErrNullKey         = errors.New("key does not exist")
	ErrIllegalAddChild = errors.New("node cannot hold children")
	ErrIllegalValue    = errors.New("node cannot hold a value")
	ErrPathFormat      = errors.New("malformed key path")
	ErrMissingParent   = errors.New("parent is null")
)

// Error describes a failed tree operation.
type Error struct {
	Err  error    // one of the sentinels above
	Key  string   // key or path the operation was given
	Type NodeType // type of the node the operation ran on
}

func (e *Error) Error() string {
	switch e.Err {
	case ErrIllegalAddChild, ErrIllegalValue:
		return fmt.Sprintf("%v: [%s] is a %s", e.Err, e.Key, e.Type)
	default:
		return fmt.Sprintf("%v: [%s]", e.Err, e.Key)
	}
}

func (e *Error) Unwrap() error { return e.Err }

func newError(err error, key string, typ NodeType) *Error {
	return &Error{Err: err, Key: key, Type: typ}
}
