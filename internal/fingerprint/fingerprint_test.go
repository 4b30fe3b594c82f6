package fingerprint

import (
	"errors"
	"testing"
	"time"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
)

func sampleDoc() *document.Document {
	return &document.Document{
		ID:   "rec-123",
		Kind: document.KindObservation,
		Payload: document.Payload{
			"resourceType": "Observation",
			"status":       "final",
			"code":         map[string]any{"text": "Blood Pressure"},
			"subject":      "0x1111111111111111111111111111111111111111",
		},
		Timestamp:      time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC),
		AdditionalNote: "routine checkup",
	}
}

func TestEncodeDeterministic(t *testing.T) {
	doc := sampleDoc()

	first, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	second, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	if first != second {
		t.Errorf("Encode() not deterministic: %q vs %q", first, second)
	}
}

func TestEncodeIgnoresPayloadAssemblyOrder(t *testing.T) {
	a := sampleDoc()
	b := sampleDoc()
	// Rebuild b's payload in a different insertion order.
	rebuilt := document.Payload{}
	rebuilt["subject"] = b.Payload["subject"]
	rebuilt["code"] = b.Payload["code"]
	rebuilt["status"] = b.Payload["status"]
	rebuilt["resourceType"] = b.Payload["resourceType"]
	b.Payload = rebuilt

	fpA, err := Encode(a)
	if err != nil {
		t.Fatalf("Encode(a) error = %v", err)
	}
	fpB, err := Encode(b)
	if err != nil {
		t.Fatalf("Encode(b) error = %v", err)
	}
	if fpA != fpB {
		t.Errorf("fingerprint depends on map assembly order")
	}
}

func TestEncodeNormalizesTimezone(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	a := sampleDoc()
	b := sampleDoc()
	b.Timestamp = a.Timestamp.In(loc)

	fpA, _ := Encode(a)
	fpB, _ := Encode(b)
	if fpA != fpB {
		t.Errorf("fingerprint depends on timestamp timezone")
	}
}

func TestRoundTrip(t *testing.T) {
	doc := sampleDoc()

	fp, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	decoded, err := Decode(fp)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	if decoded.ID != doc.ID {
		t.Errorf("ID = %q, want %q", decoded.ID, doc.ID)
	}
	if decoded.Kind != doc.Kind {
		t.Errorf("Kind = %q, want %q", decoded.Kind, doc.Kind)
	}
	if decoded.AdditionalNote != doc.AdditionalNote {
		t.Errorf("AdditionalNote = %q, want %q", decoded.AdditionalNote, doc.AdditionalNote)
	}
	if !decoded.Timestamp.Equal(doc.Timestamp) {
		t.Errorf("Timestamp = %v, want %v", decoded.Timestamp, doc.Timestamp)
	}

	reencoded, err := Encode(decoded)
	if err != nil {
		t.Fatalf("re-Encode() error = %v", err)
	}
	if reencoded != fp {
		t.Errorf("decoded document does not re-encode to the same fingerprint")
	}
}

func TestVerify(t *testing.T) {
	doc := sampleDoc()
	fp, err := Encode(doc)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	if !Verify(doc, fp) {
		t.Error("Verify() = false for matching document")
	}

	edited := sampleDoc()
	edited.Payload["status"] = "amended"
	if Verify(edited, fp) {
		t.Error("Verify() = true for edited payload")
	}

	if Verify(doc, "bm90LWEtZmluZ2VycHJpbnQ=") {
		t.Error("Verify() = true for unrelated fingerprint")
	}
}

func TestEncodeIncompleteDocument(t *testing.T) {
	tests := []struct {
		name string
		doc  *document.Document
	}{
		{"nil document", nil},
		{"missing id", &document.Document{Kind: document.KindObservation}},
		{"invalid kind", &document.Document{ID: "x", Kind: "report"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Encode(tt.doc); !errors.Is(err, ErrEncoding) {
				t.Errorf("Encode() error = %v, want ErrEncoding", err)
			}
		})
	}
}

func TestDecodeMalformed(t *testing.T) {
	tests := []struct {
		name string
		fp   string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"not json", "bm90IGpzb24="},
		{"missing fields", "e30="},
		{"unknown kind", "eyJpZCI6IngiLCJraW5kIjoicmVwb3J0IiwidGltZXN0YW1wIjoiMjAyNC0wMy0xNVQwOTozMDowMFoifQ=="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.fp); !errors.Is(err, ErrEncoding) {
				t.Errorf("Decode(%q) error = %v, want ErrEncoding", tt.fp, err)
			}
		})
	}
}
