package ledger

import (
	"errors"
	"fmt"
)

// ErrNotConfigured is returned when the gateway has no node endpoint or
// operating key. Callers treat the ledger as absent and degrade.
var ErrNotConfigured = errors.New("ledger gateway is not configured")

// ErrUnavailable is returned on the read path when the node cannot be
// reached. Maps to HTTP 503.
var ErrUnavailable = errors.New("ledger node unavailable")

// RevertError reports that gas estimation failed or the mined transaction
// reverted. Both almost always mean the contract rejected the call.
type RevertError struct {
	Method string
	Err    error
}

func (e *RevertError) Error() string {
	return fmt.Sprintf("contract call %s would revert: %v", e.Method, e.Err)
}

func (e *RevertError) Unwrap() error { return e.Err }

// SubmitError reports a network or node failure while submitting a
// transaction or waiting for its receipt. The transaction may still land
// later; the outcome is unknown.
type SubmitError struct {
	Method string
	Err    error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("submitting %s transaction: %v", e.Method, e.Err)
}

func (e *SubmitError) Unwrap() error { return e.Err }
