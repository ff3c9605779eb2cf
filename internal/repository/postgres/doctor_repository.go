package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DoctorRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewDoctorRepository(db *gorm.DB, timeout time.Duration) *DoctorRepository {
	return &DoctorRepository{db: db, timeout: timeout}
}

func (r *DoctorRepository) Create(ctx context.Context, d *doctor.Doctor) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return storeErr(r.db.WithContext(ctx).Create(d).Error)
}

func (r *DoctorRepository) GetByID(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var d doctor.Doctor
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&d).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, doctor.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &d, nil
}

func (r *DoctorRepository) List(ctx context.Context, q *doctor.ListQuery) (*doctor.Paged, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	base := r.db.WithContext(ctx).
		Model(&doctor.Doctor{}).
		Where("is_deleted = ?", false)
	if q.Specialization != "" {
		base = base.Where("specialization = ?", q.Specialization)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, storeErr(err)
	}

	var doctors []*doctor.Doctor
	err := base.
		Order("last_name asc, first_name asc").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&doctors).Error
	if err != nil {
		return nil, storeErr(err)
	}

	return &doctor.Paged{
		Doctors:    doctors,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}
