package document

import (
	"errors"
	"strings"
)

var (
	ErrDocumentNotFound = errors.New("document not found")
	ErrUnknownKind      = errors.New("unknown document kind")
)

// MissingFieldsError reports which mandatory fields a payload lacks.
type MissingFieldsError struct {
	Kind   Kind
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return "missing required " + string(e.Kind) + " fields: " + strings.Join(e.Fields, ", ")
}
