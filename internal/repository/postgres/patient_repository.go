package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PatientRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewPatientRepository(db *gorm.DB, timeout time.Duration) *PatientRepository {
	return &PatientRepository{db: db, timeout: timeout}
}

func (r *PatientRepository) Create(ctx context.Context, p *patient.Patient) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	return storeErr(r.db.WithContext(ctx).Create(p).Error)
}

func (r *PatientRepository) GetByID(ctx context.Context, id uuid.UUID) (*patient.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var p patient.Patient
	err := r.db.WithContext(ctx).
		Where("id = ? AND is_deleted = ?", id, false).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, patient.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &p, nil
}

func (r *PatientRepository) Update(ctx context.Context, id uuid.UUID, cmd *patient.UpdateCommand) (*patient.Patient, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	updates := map[string]any{}
	if cmd.FirstName != nil {
		updates["first_name"] = *cmd.FirstName
	}
	if cmd.LastName != nil {
		updates["last_name"] = *cmd.LastName
	}
	if cmd.Age != nil {
		updates["age"] = *cmd.Age
	}
	if cmd.Address != nil {
		updates["address"] = *cmd.Address
	}
	if cmd.WeightKG != nil {
		updates["weight_kg"] = *cmd.WeightKG
	}

	if len(updates) > 0 {
		res := r.db.WithContext(ctx).
			Model(&patient.Patient{}).
			Where("id = ? AND is_deleted = ?", id, false).
			Updates(updates)
		if res.Error != nil {
			return nil, storeErr(res.Error)
		}
		if res.RowsAffected == 0 {
			return nil, patient.ErrNotFound
		}
	}

	return r.GetByID(ctx, id)
}

func (r *PatientRepository) List(ctx context.Context, q *patient.ListQuery) (*patient.Paged, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	base := r.db.WithContext(ctx).
		Model(&patient.Patient{}).
		Where("is_deleted = ?", false)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, storeErr(err)
	}

	var patients []*patient.Patient
	err := base.
		Order("last_name asc, first_name asc").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&patients).Error
	if err != nil {
		return nil, storeErr(err)
	}

	return &patient.Paged{
		Patients:   patients,
		TotalCount: total,
		Page:       q.Page,
		PageSize:   q.PageSize,
	}, nil
}
