package appointment

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Scope restricts a lookup to the caller's side of the appointment. Zero-value
// fields are ignored, so an admin load uses an empty scope.
type Scope struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	// IncludeDeleted widens the load past the is_deleted filter; used by the
	// idempotent delete path and privileged audit reads.
	IncludeDeleted bool
}

type Repository interface {
	// Schedule atomically re-checks availability for the appointment's doctor
	// and interval and inserts the row. The check and the insert are serialized
	// per doctor against all other Schedule/Reschedule calls. Returns
	// ErrSlotConflict when the interval is taken.
	Schedule(ctx context.Context, a *Appointment) error

	// Reschedule atomically re-checks availability excluding the appointment
	// itself, moves the time window, resets the status to PENDING, and updates
	// the purpose when non-nil. Same serialization contract as Schedule.
	Reschedule(ctx context.Context, id uuid.UUID, start, end time.Time, purpose *string) (*Appointment, error)

	// GetByID loads an appointment within the given ownership scope. Returns
	// ErrNotFound when absent, soft-deleted (unless IncludeDeleted), or owned
	// by someone else.
	GetByID(ctx context.Context, id uuid.UUID, scope Scope) (*Appointment, error)

	// UpdatePurpose changes the free-text purpose only; no conflict check.
	UpdatePurpose(ctx context.Context, id uuid.UUID, purpose string) (*Appointment, error)

	// UpdateStatus persists a status transition already validated by the caller.
	UpdateStatus(ctx context.Context, id uuid.UUID, status Status) (*Appointment, error)

	// SoftDelete marks the appointment deleted. Marking an already-deleted row
	// is a no-op, not an error.
	SoftDelete(ctx context.Context, id uuid.UUID) error

	// HasConflict reports whether any active non-rejected appointment of the
	// doctor overlaps [start, end), excluding excludeID when non-nil. Read-only;
	// the write paths above embed their own serialized re-check.
	HasConflict(ctx context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error)

	// List returns a page of non-deleted appointments ordered by starts_at
	// ascending, plus the total count for pagination metadata.
	List(ctx context.Context, q *ListQuery) (*Paged, error)
}
