package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/careslot/careslot/internal/domain/appointment"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AppointmentRepository struct {
	db      *gorm.DB
	timeout time.Duration
}

func NewAppointmentRepository(db *gorm.DB, timeout time.Duration) *AppointmentRepository {
	return &AppointmentRepository{db: db, timeout: timeout}
}

// lockDoctor serializes all booking writes for one doctor within the current
// transaction. The advisory lock is released automatically at commit/rollback,
// which closes the check-then-write race between concurrent bookings.
func lockDoctor(tx *gorm.DB, doctorID uuid.UUID) error {
	return tx.Exec("SELECT pg_advisory_xact_lock(hashtextextended(?, 0))", doctorID.String()).Error
}

func conflictQuery(tx *gorm.DB, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) *gorm.DB {
	q := tx.Model(&appointment.Appointment{}).
		Where("doctor_id = ?", doctorID).
		Where("is_deleted = ?", false).
		Where("status <> ?", appointment.StatusRejected).
		Where("starts_at < ?", end).
		Where("ends_at > ?", start)
	if excludeID != nil {
		q = q.Where("id <> ?", *excludeID)
	}
	return q
}

func (r *AppointmentRepository) Schedule(ctx context.Context, a *appointment.Appointment) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockDoctor(tx, a.DoctorID); err != nil {
			return err
		}

		var count int64
		if err := conflictQuery(tx, a.DoctorID, a.StartsAt, a.EndsAt, nil).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return appointment.ErrSlotConflict
		}

		return tx.Create(a).Error
	})

	if isExclusionViolation(err) {
		return appointment.ErrSlotConflict
	}
	return storeErr(err)
}

func (r *AppointmentRepository) Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time, purpose *string) (*appointment.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var updated appointment.Appointment
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var a appointment.Appointment
		if err := tx.Where("id = ? AND is_deleted = ?", id, false).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return appointment.ErrNotFound
			}
			return err
		}

		if err := lockDoctor(tx, a.DoctorID); err != nil {
			return err
		}

		var count int64
		if err := conflictQuery(tx, a.DoctorID, start, end, &a.ID).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return appointment.ErrSlotConflict
		}

		// Moving the window always resets the approval state.
		updates := map[string]any{
			"starts_at": start,
			"ends_at":   end,
			"status":    appointment.StatusPending,
		}
		if purpose != nil {
			updates["purpose"] = *purpose
		}
		if err := tx.Model(&a).Updates(updates).Error; err != nil {
			return err
		}

		updated = a
		return nil
	})

	if isExclusionViolation(err) {
		return nil, appointment.ErrSlotConflict
	}
	if err != nil {
		return nil, storeErr(err)
	}
	return &updated, nil
}

func (r *AppointmentRepository) GetByID(ctx context.Context, id uuid.UUID, scope appointment.Scope) (*appointment.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	q := r.db.WithContext(ctx).Where("id = ?", id)
	if !scope.IncludeDeleted {
		q = q.Where("is_deleted = ?", false)
	}
	if scope.PatientID != nil {
		q = q.Where("patient_id = ?", *scope.PatientID)
	}
	if scope.DoctorID != nil {
		q = q.Where("doctor_id = ?", *scope.DoctorID)
	}

	var a appointment.Appointment
	if err := q.First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, appointment.ErrNotFound
		}
		return nil, storeErr(err)
	}
	return &a, nil
}

func (r *AppointmentRepository) UpdatePurpose(ctx context.Context, id uuid.UUID, purpose string) (*appointment.Appointment, error) {
	return r.updateFields(ctx, id, map[string]any{"purpose": purpose})
}

func (r *AppointmentRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	return r.updateFields(ctx, id, map[string]any{"status": status})
}

func (r *AppointmentRepository) updateFields(ctx context.Context, id uuid.UUID, updates map[string]any) (*appointment.Appointment, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	res := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ? AND is_deleted = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return nil, storeErr(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, appointment.ErrNotFound
	}

	var a appointment.Appointment
	if err := r.db.WithContext(ctx).First(&a, "id = ?", id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &a, nil
}

func (r *AppointmentRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	err := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("id = ?", id).
		Update("is_deleted", true).Error
	return storeErr(err)
}

func (r *AppointmentRepository) HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	var count int64
	if err := conflictQuery(r.db.WithContext(ctx), doctorID, start, end, excludeID).Count(&count).Error; err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

func (r *AppointmentRepository) List(ctx context.Context, q *appointment.ListQuery) (*appointment.Paged, error) {
	ctx, cancel := withTimeout(ctx, r.timeout)
	defer cancel()

	base := r.db.WithContext(ctx).
		Model(&appointment.Appointment{}).
		Where("is_deleted = ?", false)

	if q.PatientID != nil {
		base = base.Where("patient_id = ?", *q.PatientID)
	}
	if q.DoctorID != nil {
		base = base.Where("doctor_id = ?", *q.DoctorID)
	}
	if q.Status != nil {
		base = base.Where("status = ?", *q.Status)
	}
	if q.StartFrom != nil {
		base = base.Where("starts_at >= ?", *q.StartFrom)
	}
	if q.EndTo != nil {
		base = base.Where("ends_at <= ?", *q.EndTo)
	}

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, storeErr(err)
	}

	var appts []*appointment.Appointment
	err := base.
		Order("starts_at asc").
		Offset((q.Page - 1) * q.PageSize).
		Limit(q.PageSize).
		Find(&appts).Error
	if err != nil {
		return nil, storeErr(err)
	}

	return &appointment.Paged{
		Appointments: appts,
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
	}, nil
}
