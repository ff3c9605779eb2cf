package postgres

import (
	"context"
	"time"

	"github.com/careslot/careslot/internal/domain"
	"gorm.io/gorm"
)

type AuditRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAuditRepository(db *gorm.DB, timeout time.Duration) *AuditRepository {
	return &AuditRepository{db: db, timeout: timeout}
}

func (r *AuditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return storeErr(r.db.WithContext(ctx).Create(entry).Error)
}
