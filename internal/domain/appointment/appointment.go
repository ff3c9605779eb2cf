package appointment

import (
	"time"

	"github.com/google/uuid"
)

// Status is the approval state of a booked slot.
//
// State transitions (doctor-driven; a patient never sets status directly):
//
//	PENDING  → APPROVED | REJECTED
//	APPROVED → REJECTED
//	REJECTED is terminal; freeing a slot requires a fresh booking.
//
// Any patient edit of the time window resets the status to PENDING so the
// doctor has to re-approve the new interval.
type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// NormalizeSlot truncates a timestamp to whole-minute precision. Every start/end
// value passes through here before validation, conflict checks, or persistence,
// so sub-minute jitter can never produce spurious overlaps or non-overlaps.
func NormalizeSlot(t time.Time) time.Time {
	return t.Truncate(time.Minute)
}

type Appointment struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	CreatedAt time.Time `gorm:"autoCreateTime;index"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`

	PatientID uuid.UUID `gorm:"column:patient_id;type:uuid;not null;index"`
	DoctorID  uuid.UUID `gorm:"column:doctor_id;type:uuid;not null;index"`

	StartsAt time.Time `gorm:"column:starts_at;not null;index"`
	EndsAt   time.Time `gorm:"column:ends_at;not null"`

	Status  Status `gorm:"column:status;type:varchar(20);not null;default:'PENDING';index"`
	Purpose string `gorm:"column:purpose;type:text;not null"`

	// Soft delete: rows are never physically removed. Active-state queries and
	// conflict checks all filter on is_deleted = false.
	IsDeleted bool `gorm:"column:is_deleted;not null;default:false;index"`
}

func (Appointment) TableName() string {
	return "clinical.appointments"
}

// Overlaps reports whether the appointment's [StartsAt, EndsAt) interval
// intersects [start, end). Half-open semantics: back-to-back slots where one's
// end equals the other's start do not overlap.
func (a *Appointment) Overlaps(start, end time.Time) bool {
	return a.EndsAt.After(start) && a.StartsAt.Before(end)
}

// BlocksSlot reports whether this record occupies its interval for conflict
// purposes. Rejected and soft-deleted appointments free their slot.
func (a *Appointment) BlocksSlot() bool {
	return !a.IsDeleted && a.Status != StatusRejected
}

func (a *Appointment) CanTransitionTo(newStatus Status) bool {
	allowed := map[Status][]Status{
		StatusPending:  {StatusApproved, StatusRejected},
		StatusApproved: {StatusRejected},
		StatusRejected: {},
	}

	for _, s := range allowed[a.Status] {
		if s == newStatus {
			return true
		}
	}
	return false
}

type CreateCommand struct {
	PatientID uuid.UUID
	DoctorID  uuid.UUID
	StartsAt  time.Time
	EndsAt    time.Time
	Purpose   string
}

// PatientUpdateCommand is the patient-side patch shape: the time window (both
// ends together) and the purpose. Status is deliberately unrepresentable here;
// patients never set it directly.
type PatientUpdateCommand struct {
	StartsAt *time.Time
	EndsAt   *time.Time
	Purpose  *string
}

// Reschedules reports whether the patch moves the time window.
func (c *PatientUpdateCommand) Reschedules() bool {
	return c.StartsAt != nil || c.EndsAt != nil
}

// DoctorUpdateCommand is the doctor-side patch shape: status only. Doctors
// never alter the time window or the purpose.
type DoctorUpdateCommand struct {
	Status Status
}

type ListQuery struct {
	PatientID *uuid.UUID
	DoctorID  *uuid.UUID
	Status    *Status
	StartFrom *time.Time // starts_at >= StartFrom
	EndTo     *time.Time // ends_at <= EndTo
	Page      int
	PageSize  int
}

type Paged struct {
	Appointments []*Appointment
	TotalCount   int64
	Page         int
	PageSize     int
}
