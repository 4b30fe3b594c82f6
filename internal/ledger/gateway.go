// Package ledger is the typed gateway to the authoritative ledger node:
// the patient and doctor directories, the whitelist relation, and the
// record index. The node itself is an opaque append-only authority; this
// package only shapes calls and sends against it.
package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/identity"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/record"
)

var (
	// ErrUnavailable means the node could not be reached or answered
	// with a transport-level failure. Retryable.
	ErrUnavailable = errors.New("ledger unavailable")

	// ErrRejected means the node accepted the request and refused the
	// transaction. Not retryable; the state it would have produced does
	// not exist.
	ErrRejected = errors.New("ledger transaction rejected")
)

// Receipt is what a send yields once the transaction lands. Timestamp is
// server-assigned (block time); callers use it instead of their own
// clock so every replica agrees on record ordering.
type Receipt struct {
	TxHash    string    `json:"tx_hash"`
	Block     uint64    `json:"block"`
	Timestamp time.Time `json:"timestamp"`
}

// Gateway is the call/send surface the coordinator depends on. The
// concrete implementation is the HTTP node client; tests substitute an
// in-memory ledger.
type Gateway interface {
	// Directory calls.
	GetPatient(ctx context.Context, addr domain.Address) (*identity.Patient, error)
	ListPatients(ctx context.Context) ([]*identity.Patient, error)
	GetDoctor(ctx context.Context, addr domain.Address) (*identity.Doctor, error)
	ListDoctors(ctx context.Context) ([]*identity.Doctor, error)
	GetRecord(ctx context.Context, id string) (*record.Record, error)

	// Directory sends.
	CreatePatient(ctx context.Context, cmd *identity.CreatePatientCommand, sender domain.Address) (*Receipt, error)
	CreateDoctor(ctx context.Context, cmd *identity.CreateDoctorCommand, sender domain.Address) (*Receipt, error)

	// Record sends. CreateRecord appends the entry and indexes the ID
	// under the patient; RemoveRecord undoes both.
	CreateRecord(ctx context.Context, id, fingerprint string, doctor, patient, sender domain.Address) (*Receipt, error)
	EditRecord(ctx context.Context, id, fingerprint string, status record.Status, sender domain.Address) (*Receipt, error)
	RemoveRecord(ctx context.Context, id string, patient, sender domain.Address) (*Receipt, error)

	// Whitelist sends.
	AddWhitelist(ctx context.Context, doctor, patient, sender domain.Address) (*Receipt, error)
	RemoveWhitelist(ctx context.Context, doctor, patient, sender domain.Address) (*Receipt, error)
}
