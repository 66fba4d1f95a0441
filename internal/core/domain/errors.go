package domain

import "errors"

// Error taxonomy shared across layers. Lower layers wrap these with %w and
// callers classify with errors.Is.
var (
	// ErrConfiguration marks invalid configuration. Raised before any
	// network attempt is made.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrTransport marks a network or node-level failure on a transport
	// call. Surfaced to the caller, never silently retried.
	ErrTransport = errors.New("transport failure")

	// ErrDecode marks a log entry that does not match the expected event
	// schema. Swallowed at the decode boundary: a contract may emit several
	// event types on one address, so a mismatch means "not this event".
	ErrDecode = errors.New("log does not match event schema")

	// ErrTransactionBuild marks an invocation that cannot be encoded into a
	// valid transaction payload.
	ErrTransactionBuild = errors.New("transaction creation failed")

	// ErrSigning marks invalid key material.
	ErrSigning = errors.New("signing failed")
)
