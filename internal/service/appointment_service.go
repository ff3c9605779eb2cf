package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/appointment"
	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AppointmentService orchestrates booking: slot normalization, interval
// validation, conflict detection, the status state machine, and ownership
// scoping. Persistence-level serialization of check-then-write lives in the
// repository; this layer owns the policy decisions.
type AppointmentService struct {
	repo       appointment.Repository
	doctorRepo doctor.Repository
	auditSvc   *AuditService
	log        *zap.Logger
	now        func() time.Time
}

func NewAppointmentService(
	repo appointment.Repository,
	doctorRepo doctor.Repository,
	auditSvc *AuditService,
	log *zap.Logger,
) *AppointmentService {
	return &AppointmentService{
		repo:       repo,
		doctorRepo: doctorRepo,
		auditSvc:   auditSvc,
		log:        log,
		now:        time.Now,
	}
}

func (s *AppointmentService) Book(ctx context.Context, cmd *appointment.CreateCommand, claims *domain.Claims, ip string) (*appointment.Appointment, error) {
	start := appointment.NormalizeSlot(cmd.StartsAt)
	end := appointment.NormalizeSlot(cmd.EndsAt)

	if !end.After(start) {
		return nil, appointment.ErrInvalidInterval
	}
	if start.Before(s.now()) {
		return nil, appointment.ErrScheduledInPast
	}
	if strings.TrimSpace(cmd.Purpose) == "" {
		return nil, appointment.ErrPurposeRequired
	}

	d, err := s.doctorRepo.GetByID(ctx, cmd.DoctorID)
	if err != nil {
		return nil, fmt.Errorf("verifying doctor: %w", err)
	}
	if !d.IsActive() {
		return nil, doctor.ErrNotFound
	}

	a := &appointment.Appointment{
		PatientID: cmd.PatientID,
		DoctorID:  cmd.DoctorID,
		StartsAt:  start,
		EndsAt:    end,
		Status:    appointment.StatusPending,
		Purpose:   strings.TrimSpace(cmd.Purpose),
	}

	// Schedule re-checks availability and inserts under the per-doctor lock, so
	// two concurrent bookings for overlapping intervals cannot both commit.
	if err := s.repo.Schedule(ctx, a); err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "create",
		ResourceType: "appointment",
		ResourceID:   a.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("appointment booked",
		zap.String("appointment_id", a.ID.String()),
		zap.String("doctor_id", a.DoctorID.String()),
		zap.Time("starts_at", a.StartsAt),
	)

	return a, nil
}

func (s *AppointmentService) Get(ctx context.Context, id uuid.UUID, claims *domain.Claims) (*appointment.Appointment, error) {
	scope, err := ownershipScope(claims)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, id, scope)
}

func (s *AppointmentService) List(ctx context.Context, q *appointment.ListQuery, claims *domain.Claims) (*appointment.Paged, error) {
	switch claims.Role {
	case domain.RolePatient:
		if claims.PatientID == nil {
			return nil, ErrForbidden
		}
		q.PatientID = claims.PatientID
		q.DoctorID = nil
	case domain.RoleDoctor:
		if claims.DoctorID == nil {
			return nil, ErrForbidden
		}
		q.DoctorID = claims.DoctorID
		q.PatientID = nil
	case domain.RoleAdmin:
		// Unscoped
	default:
		return nil, ErrForbidden
	}

	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}

	return s.repo.List(ctx, q)
}

// PatientUpdate applies a patient-side patch: reschedule (both ends of the
// window together) and/or a new purpose. Moving the window forces the status
// back to PENDING so the doctor has to re-approve.
func (s *AppointmentService) PatientUpdate(ctx context.Context, id uuid.UUID, cmd *appointment.PatientUpdateCommand, claims *domain.Claims, ip string) (*appointment.Appointment, error) {
	if claims.Role != domain.RolePatient || claims.PatientID == nil {
		return nil, ErrForbidden
	}

	a, err := s.repo.GetByID(ctx, id, appointment.Scope{PatientID: claims.PatientID})
	if err != nil {
		return nil, err
	}

	if a.Status == appointment.StatusApproved {
		return nil, appointment.ErrAlreadyApproved
	}

	if cmd.Purpose != nil && strings.TrimSpace(*cmd.Purpose) == "" {
		return nil, appointment.ErrPurposeRequired
	}

	var updated *appointment.Appointment
	switch {
	case cmd.Reschedules():
		if cmd.StartsAt == nil || cmd.EndsAt == nil {
			return nil, &ValidationError{Fields: []string{"start and end must be provided together"}}
		}

		start := appointment.NormalizeSlot(*cmd.StartsAt)
		end := appointment.NormalizeSlot(*cmd.EndsAt)
		if !end.After(start) {
			return nil, appointment.ErrInvalidInterval
		}
		if start.Before(s.now()) {
			return nil, appointment.ErrScheduledInPast
		}

		updated, err = s.repo.Reschedule(ctx, a.ID, start, end, trimmed(cmd.Purpose))
		if err != nil {
			return nil, err
		}

	case cmd.Purpose != nil:
		// Purpose-only edit: no time change, no conflict check, status untouched.
		updated, err = s.repo.UpdatePurpose(ctx, a.ID, strings.TrimSpace(*cmd.Purpose))
		if err != nil {
			return nil, err
		}

	default:
		return a, nil
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "update",
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return updated, nil
}

// DoctorUpdate applies a doctor-side patch: a status transition and nothing
// else. Repeating an already-applied transition is a no-op, not an error.
func (s *AppointmentService) DoctorUpdate(ctx context.Context, id uuid.UUID, cmd *appointment.DoctorUpdateCommand, claims *domain.Claims, ip string) (*appointment.Appointment, error) {
	if claims.Role != domain.RoleDoctor || claims.DoctorID == nil {
		return nil, ErrForbidden
	}
	if !cmd.Status.IsValid() {
		return nil, appointment.ErrInvalidTransition
	}

	a, err := s.repo.GetByID(ctx, id, appointment.Scope{DoctorID: claims.DoctorID})
	if err != nil {
		return nil, err
	}

	if a.Status == cmd.Status {
		return a, nil
	}
	if !a.CanTransitionTo(cmd.Status) {
		return nil, appointment.ErrInvalidTransition
	}

	// Approving claims the slot for good; make sure no reschedule slipped in
	// between the doctor's read and this write.
	if cmd.Status == appointment.StatusApproved {
		conflict, err := s.repo.HasConflict(ctx, a.DoctorID, a.StartsAt, a.EndsAt, &a.ID)
		if err != nil {
			return nil, fmt.Errorf("checking conflicts: %w", err)
		}
		if conflict {
			return nil, appointment.ErrSlotConflict
		}
	}

	updated, err := s.repo.UpdateStatus(ctx, a.ID, cmd.Status)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "update",
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
		Changes:      fmt.Sprintf(`{"status":%q}`, cmd.Status),
	})

	return updated, nil
}

// Delete soft-deletes a patient-owned appointment. Approved appointments
// cannot be deleted; repeating a delete succeeds without effect.
func (s *AppointmentService) Delete(ctx context.Context, id uuid.UUID, claims *domain.Claims, ip string) error {
	if claims.Role != domain.RolePatient || claims.PatientID == nil {
		return ErrForbidden
	}

	a, err := s.repo.GetByID(ctx, id, appointment.Scope{PatientID: claims.PatientID, IncludeDeleted: true})
	if err != nil {
		return err
	}

	if a.Status == appointment.StatusApproved {
		return appointment.ErrAlreadyApproved
	}
	if a.IsDeleted {
		return nil
	}

	if err := s.repo.SoftDelete(ctx, a.ID); err != nil {
		return err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "delete",
		ResourceType: "appointment",
		ResourceID:   id.String(),
		IPAddress:    ip,
	})

	return nil
}

func ownershipScope(claims *domain.Claims) (appointment.Scope, error) {
	switch claims.Role {
	case domain.RolePatient:
		if claims.PatientID == nil {
			return appointment.Scope{}, ErrForbidden
		}
		return appointment.Scope{PatientID: claims.PatientID}, nil
	case domain.RoleDoctor:
		if claims.DoctorID == nil {
			return appointment.Scope{}, ErrForbidden
		}
		return appointment.Scope{DoctorID: claims.DoctorID}, nil
	case domain.RoleAdmin:
		return appointment.Scope{IncludeDeleted: true}, nil
	}
	return appointment.Scope{}, ErrForbidden
}

func trimmed(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	return &t
}
