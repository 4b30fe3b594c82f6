package service

import (
	"fmt"
	"strings"
)

type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "validation failed: " + strings.Join(e.Fields, "; ")
}

// UnauthorizedError is an authorization engine denial. Reason is a
// stable machine-readable code, not prose.
type UnauthorizedError struct {
	Operation Operation
	Reason    DenyReason
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("unauthorized %s: %s", e.Operation, e.Reason)
}

// PartialFailureError reports a write that succeeded on one store and
// failed on the other, with compensation also failed or not applicable.
// It names the surviving side so reconciliation knows what to clean up.
// Never retried as a fresh operation.
type PartialFailureError struct {
	Operation     Operation
	RecordID      string
	StoreApplied  bool
	LedgerApplied bool
	Cause         error
}

func (e *PartialFailureError) Error() string {
	return fmt.Sprintf("partial failure on %s of record %s (store applied: %v, ledger applied: %v): %v",
		e.Operation, e.RecordID, e.StoreApplied, e.LedgerApplied, e.Cause)
}

func (e *PartialFailureError) Unwrap() error {
	return e.Cause
}
