package record

import (
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
)

// Status is the approval state of a ledger record. Wire values match the
// ledger contract's enum.
type Status int

const (
	StatusPending Status = iota
	StatusCompleted
	StatusDeclined
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusDeclined:
		return true
	}
	return false
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusCompleted:
		return "completed"
	case StatusDeclined:
		return "declined"
	}
	return "unknown"
}

// Record is the ledger entry for a clinical document: identity and
// fingerprint only, never content. The content lives in the off-chain
// store under the same ID.
type Record struct {
	ID           string         `json:"id"`
	Fingerprint  string         `json:"fingerprint"`
	IssuerDoctor domain.Address `json:"issuer_doctor"`
	Patient      domain.Address `json:"patient"`
	CreatedAt    time.Time      `json:"created_at"`
	Status       Status         `json:"status"`
}

// Exists reports whether the ledger returned a populated entry rather
// than the zero struct it yields for unknown IDs.
func (r *Record) Exists() bool {
	return r != nil && r.ID != "" && !r.IssuerDoctor.IsZero() && !r.Patient.IsZero()
}

// VerifyResult classifies the relationship between a ledger entry and
// its off-chain document.
type VerifyResult string

const (
	// VerifyConsistent: both sides present and the stored document's
	// fingerprint matches the ledger entry.
	VerifyConsistent VerifyResult = "consistent"
	// VerifyDiverged: both sides present but the fingerprints disagree.
	VerifyDiverged VerifyResult = "diverged"
	// VerifyOrphanedLedgerEntry: ledger entry with no stored document.
	VerifyOrphanedLedgerEntry VerifyResult = "orphaned_ledger_entry"
	// VerifyOrphanedDocument: stored document with no ledger entry.
	VerifyOrphanedDocument VerifyResult = "orphaned_document"
	// VerifyAbsent: neither side present. With consistent the only other
	// valid steady state.
	VerifyAbsent VerifyResult = "absent"
)

type CreateRecordCommand struct {
	Patient  domain.Address
	Doctor   domain.Address
	Kind     document.Kind
	Payload  document.Payload
	Actor    domain.Address
	Note     string
}

type EditRecordCommand struct {
	ID      string
	Payload document.Payload
	Status  Status
	Actor   domain.Address
	Note    string
}

// Summary is the caller-facing join of a ledger record and its resolved
// off-chain document.
type Summary struct {
	ID           string             `json:"id"`
	Fingerprint  string             `json:"fingerprint"`
	IssuerDoctor domain.Address     `json:"issuer_doctor"`
	Patient      domain.Address     `json:"patient"`
	Timestamp    time.Time          `json:"timestamp"`
	Status       Status             `json:"status"`
	Kind         document.Kind      `json:"kind,omitempty"`
	Document     *document.Document `json:"document,omitempty"`
	Verify       VerifyResult       `json:"verify"`
}
