package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain/document"
)

// DocumentRow is the stored shape of a clinical document. The kind
// column is the persisted discriminator: a record's kind is resolved by
// lookup, never by probing each collection for a hit. The primary key
// on ID makes the "same ID in two collections" state unrepresentable.
type DocumentRow struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	Kind           document.Kind    `gorm:"column:kind;type:varchar(20);not null;index"`
	Payload        document.Payload `gorm:"column:payload;serializer:json"`
	Timestamp      time.Time        `gorm:"column:timestamp;not null"`
	AdditionalNote string           `gorm:"column:additional_note;type:text"`
}

func (DocumentRow) TableName() string {
	return "clinical.documents"
}

func (r *DocumentRow) toDocument() *document.Document {
	return &document.Document{
		ID:             r.ID,
		Kind:           r.Kind,
		Payload:        r.Payload,
		Timestamp:      r.Timestamp,
		AdditionalNote: r.AdditionalNote,
	}
}

type GormStore struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewGormStore(db *gorm.DB, log *zap.Logger) *GormStore {
	return &GormStore{db: db, log: log}
}

func (s *GormStore) Find(ctx context.Context, kind document.Kind, id string) (*document.Document, error) {
	if !kind.IsValid() {
		return nil, document.ErrUnknownKind
	}

	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, kind).
		First(&row).Error
	if err != nil {
		return nil, s.translate(err)
	}
	return row.toDocument(), nil
}

func (s *GormStore) FindAny(ctx context.Context, id string) (*document.Document, error) {
	var row DocumentRow
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		return nil, s.translate(err)
	}
	return row.toDocument(), nil
}

func (s *GormStore) ListByKind(ctx context.Context, kind document.Kind) ([]*document.Document, error) {
	if !kind.IsValid() {
		return nil, document.ErrUnknownKind
	}

	var rows []DocumentRow
	err := s.db.WithContext(ctx).
		Where("kind = ?", kind).
		Order("timestamp ASC").
		Find(&rows).Error
	if err != nil {
		return nil, s.translate(err)
	}

	docs := make([]*document.Document, 0, len(rows))
	for i := range rows {
		docs = append(docs, rows[i].toDocument())
	}
	return docs, nil
}

func (s *GormStore) Create(ctx context.Context, doc *document.Document) (*document.Document, error) {
	if err := document.Validate(doc.Kind, doc.Payload); err != nil {
		return nil, err
	}

	row := DocumentRow{
		ID:             doc.ID,
		Kind:           doc.Kind,
		Payload:        doc.Payload,
		Timestamp:      doc.Timestamp,
		AdditionalNote: doc.AdditionalNote,
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, s.translate(err)
	}

	// Re-read what actually landed; the JSON serializer round-trip is
	// what every later fingerprint verification will see.
	return s.FindAny(ctx, doc.ID)
}

func (s *GormStore) Update(ctx context.Context, doc *document.Document) (*document.Document, error) {
	if err := document.Validate(doc.Kind, doc.Payload); err != nil {
		return nil, err
	}

	res := s.db.WithContext(ctx).
		Model(&DocumentRow{}).
		Where("id = ? AND kind = ?", doc.ID, doc.Kind).
		Updates(map[string]any{
			"payload":         doc.Payload,
			"timestamp":       doc.Timestamp,
			"additional_note": doc.AdditionalNote,
		})
	if res.Error != nil {
		return nil, s.translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, document.ErrDocumentNotFound
	}
	return s.FindAny(ctx, doc.ID)
}

func (s *GormStore) Delete(ctx context.Context, kind document.Kind, id string) error {
	if !kind.IsValid() {
		return document.ErrUnknownKind
	}

	// Idempotent: zero rows affected is success, deletes get retried.
	err := s.db.WithContext(ctx).
		Where("id = ? AND kind = ?", id, kind).
		Delete(&DocumentRow{}).Error
	if err != nil {
		return s.translate(err)
	}
	return nil
}

func (s *GormStore) translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return document.ErrDocumentNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	s.log.Error("document store query failed", zap.Error(err))
	return fmt.Errorf("%w: %v", ErrUnavailable, err)
}
