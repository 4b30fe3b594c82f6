// Package store is the typed gateway to the off-chain document store:
// one logical collection per clinical document kind, all content
// mutable and richly queryable. The ledger never sees any of this
// content, only its fingerprint.
package store

import (
	"context"
	"errors"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
)

// ErrUnavailable means the store could not be reached. Retryable at the
// caller's discretion; the gorm implementation surfaces it for
// connection-level failures as opposed to logical ones.
var ErrUnavailable = errors.New("document store unavailable")

// Gateway is the CRUD surface the coordinator depends on.
//
// Create and Update return the document as stored, not as submitted:
// the store may normalize payload fields on write, and the fingerprint
// recorded on the ledger must be computed from what a later read will
// actually return.
type Gateway interface {
	// Find looks up a document within one kind's collection. Returns
	// document.ErrDocumentNotFound if the ID is absent from that
	// collection, even if it exists under another kind.
	Find(ctx context.Context, kind document.Kind, id string) (*document.Document, error)

	// FindAny resolves a document by ID alone, using the persisted kind
	// discriminator. Returns document.ErrDocumentNotFound if absent.
	FindAny(ctx context.Context, id string) (*document.Document, error)

	// ListByKind returns every document of one kind.
	ListByKind(ctx context.Context, kind document.Kind) ([]*document.Document, error)

	Create(ctx context.Context, doc *document.Document) (*document.Document, error)
	Update(ctx context.Context, doc *document.Document) (*document.Document, error)

	// Delete removes a document. Deleting an absent ID is a no-op
	// success; deletes are retried after timeouts and must be idempotent.
	Delete(ctx context.Context, kind document.Kind, id string) error
}
