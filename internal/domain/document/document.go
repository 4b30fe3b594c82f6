package document

import (
	"time"
)

// Kind discriminates the clinical document variants. It is persisted
// alongside the document at creation, so resolving a record's kind is a
// lookup, not a scan over every collection.
type Kind string

const (
	KindObservation Kind = "observation"
	KindCondition   Kind = "condition"
	KindAllergy     Kind = "allergy"
	KindMedication  Kind = "medication"
)

func (k Kind) IsValid() bool {
	switch k {
	case KindObservation, KindCondition, KindAllergy, KindMedication:
		return true
	}
	return false
}

// Kinds lists every collection, in the order the source system probed them.
func Kinds() []Kind {
	return []Kind{KindObservation, KindCondition, KindAllergy, KindMedication}
}

// Payload is the opaque structured content of a clinical document. The
// engine never interprets it beyond the required-field checklist; it is
// carried, canonicalized, and fingerprinted as-is.
type Payload map[string]any

// Clone returns a shallow copy. Enough for the coordinator, which never
// mutates nested values in place.
func (p Payload) Clone() Payload {
	if p == nil {
		return nil
	}
	out := make(Payload, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Document is a stored clinical document: the payload plus the fields
// the coordinator sets at write time.
type Document struct {
	ID             string    `json:"id"`
	Kind           Kind      `json:"kind"`
	Payload        Payload   `json:"payload"`
	Timestamp      time.Time `json:"timestamp"`
	AdditionalNote string    `json:"additional_note,omitempty"`
}

// requiredFields is the mandatory checklist per kind, taken from the
// clinical document schemas.
var requiredFields = map[Kind][]string{
	KindObservation: {"resourceType", "status", "code", "subject"},
	KindCondition:   {"resourceType", "clinicalStatus", "verificationStatus", "category", "severity", "code", "bodySite", "subject", "onsetDateTime"},
	KindAllergy:     {"resourceType", "clinicalStatus", "verificationStatus", "code", "patient"},
	KindMedication:  {"resourceType", "code"},
}

// RequiredFields returns the mandatory field names for a kind.
func RequiredFields(kind Kind) []string {
	return requiredFields[kind]
}

// Validate checks that a payload carries every mandatory field for its
// kind. Empty strings and nils count as missing.
func Validate(kind Kind, payload Payload) error {
	if !kind.IsValid() {
		return ErrUnknownKind
	}
	var missing []string
	for _, f := range requiredFields[kind] {
		v, ok := payload[f]
		if !ok || v == nil || v == "" {
			missing = append(missing, f)
		}
	}
	if len(missing) > 0 {
		return &MissingFieldsError{Kind: kind, Fields: missing}
	}
	return nil
}
