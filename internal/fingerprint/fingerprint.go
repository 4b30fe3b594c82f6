// Package fingerprint implements the codec between a clinical document
// and the fingerprint a ledger record carries for it.
//
// The encoding is reversible: canonical JSON (sorted keys, UTC
// timestamps) wrapped in base64. Determinism is the whole point — the
// same document must produce the same fingerprint across process
// restarts and across the other language implementations that verify
// against the same ledger.
package fingerprint

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
)

// ErrEncoding is the codec's only failure mode: malformed input on
// either side.
var ErrEncoding = errors.New("fingerprint encoding error")

// canonical is the wire shape of a fingerprinted document. Marshaling
// goes through a map so keys come out sorted regardless of how the
// document was assembled in memory.
const (
	keyID   = "id"
	keyKind = "kind"
	keyBody = "payload"
	keyTime = "timestamp"
	keyNote = "additionalNote"
)

// Encode produces the fingerprint of a document.
func Encode(doc *document.Document) (string, error) {
	if doc == nil || doc.ID == "" || !doc.Kind.IsValid() {
		return "", fmt.Errorf("%w: document incomplete", ErrEncoding)
	}

	canon, err := canonicalize(doc)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(canon), nil
}

// Decode reverses Encode. The returned document re-encodes to exactly
// the input fingerprint.
func Decode(fp string) (*document.Document, error) {
	raw, err := base64.StdEncoding.DecodeString(fp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}

	doc := &document.Document{}
	if err := unmarshalField(m, keyID, &doc.ID); err != nil {
		return nil, err
	}
	if err := unmarshalField(m, keyKind, &doc.Kind); err != nil {
		return nil, err
	}
	if body, ok := m[keyBody]; ok {
		if err := json.Unmarshal(body, &doc.Payload); err != nil {
			return nil, fmt.Errorf("%w: payload: %v", ErrEncoding, err)
		}
	}
	var ts string
	if err := unmarshalField(m, keyTime, &ts); err != nil {
		return nil, err
	}
	if ts != "" {
		t, err := time.Parse(time.RFC3339Nano, ts)
		if err != nil {
			return nil, fmt.Errorf("%w: timestamp: %v", ErrEncoding, err)
		}
		doc.Timestamp = t
	}
	if note, ok := m[keyNote]; ok {
		if err := json.Unmarshal(note, &doc.AdditionalNote); err != nil {
			return nil, fmt.Errorf("%w: note: %v", ErrEncoding, err)
		}
	}

	if !doc.Kind.IsValid() {
		return nil, fmt.Errorf("%w: unknown kind %q", ErrEncoding, doc.Kind)
	}
	return doc, nil
}

// Verify re-encodes the document and compares against the fingerprint
// the ledger holds. This is the divergence check: fingerprints either
// match exactly or the two stores have drifted apart.
func Verify(doc *document.Document, fp string) bool {
	encoded, err := Encode(doc)
	if err != nil {
		return false
	}
	return encoded == fp
}

func canonicalize(doc *document.Document) ([]byte, error) {
	// Payload goes through a marshal/unmarshal round trip so that
	// whatever concrete types it arrived with (structs, json.Number,
	// typed slices) collapse to the same map shape a re-read from the
	// store would produce.
	normalized, err := normalizePayload(doc.Payload)
	if err != nil {
		return nil, err
	}

	m := map[string]any{
		keyID:   doc.ID,
		keyKind: doc.Kind,
		keyBody: normalized,
		keyTime: doc.Timestamp.UTC().Format(time.RFC3339Nano),
	}
	if doc.AdditionalNote != "" {
		m[keyNote] = doc.AdditionalNote
	}

	canon, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return canon, nil
}

func normalizePayload(p document.Payload) (map[string]any, error) {
	if p == nil {
		return map[string]any{}, nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("%w: payload not serializable: %v", ErrEncoding, err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEncoding, err)
	}
	return out, nil
}

func unmarshalField[T any](m map[string]json.RawMessage, key string, dst *T) error {
	raw, ok := m[key]
	if !ok {
		return fmt.Errorf("%w: missing %q", ErrEncoding, key)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncoding, key, err)
	}
	return nil
}
