package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

type GormAuditRepository struct {
	db *gorm.DB
}

func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

func (r *GormAuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	if err := r.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("persisting audit entry: %w", err)
	}
	return nil
}

// ListByActor returns the most recent entries for one actor, newest first.
func (r *GormAuditRepository) ListByActor(ctx context.Context, actor domain.Address, limit int) ([]domain.AuditLog, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var entries []domain.AuditLog
	err := r.db.WithContext(ctx).
		Where("actor = ?", actor).
		Order("occurred_at DESC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("listing audit entries: %w", err)
	}
	return entries, nil
}
