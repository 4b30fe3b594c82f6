package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vanessaachristy/mymedtrust-be/internal/domain"
)

var ErrUserNotFound = errors.New("user not found")

type GormUserRepository struct {
	db *gorm.DB
}

func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Create(ctx context.Context, u *domain.User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		return fmt.Errorf("creating user: %w", err)
	}
	return nil
}

func (r *GormUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by email: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) GetByAddress(ctx context.Context, addr domain.Address) (*domain.User, error) {
	var user domain.User
	err := r.db.WithContext(ctx).Where("address = ?", addr).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("querying user by address: %w", err)
	}
	return &user, nil
}

func (r *GormUserRepository) RecordLogin(ctx context.Context, addr domain.Address) error {
	now := time.Now()
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("address = ?", addr).
		Update("last_login_at", &now).Error
	if err != nil {
		return fmt.Errorf("recording login: %w", err)
	}
	return nil
}
