package record

import "errors"

var (
	ErrRecordNotFound  = errors.New("record not found")
	ErrDuplicateRecord = errors.New("record with same ID already exists")
	ErrInvalidStatus   = errors.New("invalid record status")
	ErrDiverged        = errors.New("record diverged: ledger fingerprint does not match stored document")
)
