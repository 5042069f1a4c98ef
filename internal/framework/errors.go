package framework

import "github.com/cockroachdb/errors"

// Sentinel errors a Host implementation returns; internal/rpc maps these
// onto the wire error taxonomy of spec §7.
var (
	ErrUnknownObject   = errors.New("framework: unknown object")
	ErrUnknownProperty = errors.New("framework: unknown property")
	ErrWrongKind       = errors.New("framework: wrong kind for operation")
	ErrArityMismatch   = errors.New("framework: argument arity mismatch")
	ErrNotInvokable    = errors.New("framework: method not remotely invokable")
	ErrInvalidValue    = errors.New("framework: value not acceptable for property type")
)
