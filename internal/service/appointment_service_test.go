package service

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/appointment"
	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeAppointmentRepo mirrors the conflict and scoping semantics of the
// postgres repository over an in-memory map.
type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*appointment.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[uuid.UUID]*appointment.Appointment)}
}

func (r *fakeAppointmentRepo) conflictExists(doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) bool {
	for _, a := range r.items {
		if a.DoctorID != doctorID {
			continue
		}
		if excludeID != nil && a.ID == *excludeID {
			continue
		}
		if a.BlocksSlot() && a.Overlaps(start, end) {
			return true
		}
	}
	return false
}

func (r *fakeAppointmentRepo) Schedule(_ context.Context, a *appointment.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.conflictExists(a.DoctorID, a.StartsAt, a.EndsAt, nil) {
		return appointment.ErrSlotConflict
	}

	a.ID = uuid.New()
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	stored := *a
	r.items[a.ID] = &stored
	return nil
}

func (r *fakeAppointmentRepo) Reschedule(_ context.Context, id uuid.UUID, start, end time.Time, purpose *string) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.IsDeleted {
		return nil, appointment.ErrNotFound
	}

	if r.conflictExists(a.DoctorID, start, end, &id) {
		return nil, appointment.ErrSlotConflict
	}

	a.StartsAt = start
	a.EndsAt = end
	a.Status = appointment.StatusPending
	if purpose != nil {
		a.Purpose = *purpose
	}
	a.UpdatedAt = time.Now()

	out := *a
	return &out, nil
}

func (r *fakeAppointmentRepo) GetByID(_ context.Context, id uuid.UUID, scope appointment.Scope) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return nil, appointment.ErrNotFound
	}
	if a.IsDeleted && !scope.IncludeDeleted {
		return nil, appointment.ErrNotFound
	}
	if scope.PatientID != nil && a.PatientID != *scope.PatientID {
		return nil, appointment.ErrNotFound
	}
	if scope.DoctorID != nil && a.DoctorID != *scope.DoctorID {
		return nil, appointment.ErrNotFound
	}

	out := *a
	return &out, nil
}

func (r *fakeAppointmentRepo) UpdatePurpose(_ context.Context, id uuid.UUID, purpose string) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.IsDeleted {
		return nil, appointment.ErrNotFound
	}
	a.Purpose = purpose
	a.UpdatedAt = time.Now()

	out := *a
	return &out, nil
}

func (r *fakeAppointmentRepo) UpdateStatus(_ context.Context, id uuid.UUID, status appointment.Status) (*appointment.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok || a.IsDeleted {
		return nil, appointment.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()

	out := *a
	return &out, nil
}

func (r *fakeAppointmentRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a, ok := r.items[id]
	if !ok {
		return appointment.ErrNotFound
	}
	a.IsDeleted = true
	a.UpdatedAt = time.Now()
	return nil
}

func (r *fakeAppointmentRepo) HasConflict(_ context.Context, doctorID uuid.UUID, start, end time.Time, excludeID *uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.conflictExists(doctorID, start, end, excludeID), nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, q *appointment.ListQuery) (*appointment.Paged, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*appointment.Appointment
	for _, a := range r.items {
		if a.IsDeleted {
			continue
		}
		if q.PatientID != nil && a.PatientID != *q.PatientID {
			continue
		}
		if q.DoctorID != nil && a.DoctorID != *q.DoctorID {
			continue
		}
		if q.Status != nil && a.Status != *q.Status {
			continue
		}
		if q.StartFrom != nil && a.StartsAt.Before(*q.StartFrom) {
			continue
		}
		if q.EndTo != nil && a.EndsAt.After(*q.EndTo) {
			continue
		}
		out := *a
		matched = append(matched, &out)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].StartsAt.Before(matched[j].StartsAt)
	})

	total := int64(len(matched))
	offset := (q.Page - 1) * q.PageSize
	if offset > len(matched) {
		offset = len(matched)
	}
	end := offset + q.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	return &appointment.Paged{
		Appointments: matched[offset:end],
		TotalCount:   total,
		Page:         q.Page,
		PageSize:     q.PageSize,
	}, nil
}

type fakeDoctorRepo struct {
	doctors map[uuid.UUID]*doctor.Doctor
}

func (r *fakeDoctorRepo) Create(_ context.Context, d *doctor.Doctor) error {
	d.ID = uuid.New()
	r.doctors[d.ID] = d
	return nil
}

func (r *fakeDoctorRepo) GetByID(_ context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	d, ok := r.doctors[id]
	if !ok || d.IsDeleted {
		return nil, doctor.ErrNotFound
	}
	return d, nil
}

func (r *fakeDoctorRepo) List(_ context.Context, q *doctor.ListQuery) (*doctor.Paged, error) {
	var all []*doctor.Doctor
	for _, d := range r.doctors {
		if !d.IsDeleted {
			all = append(all, d)
		}
	}
	return &doctor.Paged{Doctors: all, TotalCount: int64(len(all)), Page: q.Page, PageSize: q.PageSize}, nil
}

type fakeAuditRepo struct{}

func (fakeAuditRepo) Create(context.Context, *domain.AuditLog) error { return nil }

// Prometheus counters register globally, so the test collector is shared.
var serviceMetrics = metrics.NewCollector("careslot_service_test")

// Fixture clock: all tests book relative to this instant.
var testNow = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func slot(day, hour, min int) time.Time {
	return time.Date(2026, 3, day, hour, min, 0, 0, time.UTC)
}

type testEnv struct {
	svc      *AppointmentService
	repo     *fakeAppointmentRepo
	doctorID uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeAppointmentRepo()
	docRepo := &fakeDoctorRepo{doctors: make(map[uuid.UUID]*doctor.Doctor)}

	d := &doctor.Doctor{FirstName: "Asha", LastName: "Rao", Gender: doctor.GenderFemale, Specialization: "Cardiology", Address: "12 Clinic Rd"}
	require.NoError(t, docRepo.Create(context.Background(), d))

	auditSvc := NewAuditService(fakeAuditRepo{}, serviceMetrics, zap.NewNop())
	t.Cleanup(auditSvc.Shutdown)

	svc := NewAppointmentService(repo, docRepo, auditSvc, zap.NewNop())
	svc.now = func() time.Time { return testNow }

	return &testEnv{svc: svc, repo: repo, doctorID: d.ID}
}

func patientClaims() *domain.Claims {
	pid := uuid.New()
	return &domain.Claims{UserID: uuid.New(), Role: domain.RolePatient, PatientID: &pid}
}

func doctorClaimsFor(doctorID uuid.UUID) *domain.Claims {
	return &domain.Claims{UserID: uuid.New(), Role: domain.RoleDoctor, DoctorID: &doctorID}
}

func (e *testEnv) book(t *testing.T, claims *domain.Claims, start, end time.Time) *appointment.Appointment {
	t.Helper()
	a, err := e.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID: *claims.PatientID,
		DoctorID:  e.doctorID,
		StartsAt:  start,
		EndsAt:    end,
		Purpose:   "checkup",
	}, claims, "127.0.0.1")
	require.NoError(t, err)
	return a
}

func TestBookCreatesPendingAppointment(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()

	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	assert.Equal(t, appointment.StatusPending, a.Status)
	assert.Equal(t, *claims.PatientID, a.PatientID)
	assert.True(t, a.StartsAt.Equal(slot(10, 10, 0)))
	assert.True(t, a.EndsAt.Equal(slot(10, 10, 30)))
}

func TestBookNormalizesSubMinutePrecision(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()

	start := time.Date(2026, 3, 10, 10, 0, 42, 500, time.UTC)
	end := time.Date(2026, 3, 10, 10, 30, 7, 0, time.UTC)

	a := env.book(t, claims, start, end)

	assert.True(t, a.StartsAt.Equal(slot(10, 10, 0)))
	assert.True(t, a.EndsAt.Equal(slot(10, 10, 30)))
}

func TestBookRejectsOverlappingSlot(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))

	claims := patientClaims()
	_, err := env.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID: *claims.PatientID,
		DoctorID:  env.doctorID,
		StartsAt:  slot(10, 10, 15),
		EndsAt:    slot(10, 10, 45),
		Purpose:   "second opinion",
	}, claims, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrSlotConflict)
}

func TestBookAllowsBackToBackSlots(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))

	a := env.book(t, patientClaims(), slot(10, 10, 30), slot(10, 11, 0))

	assert.Equal(t, appointment.StatusPending, a.Status)
}

func TestBookValidation(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()

	book := func(start, end time.Time, purpose string) error {
		_, err := env.svc.Book(context.Background(), &appointment.CreateCommand{
			PatientID: *claims.PatientID,
			DoctorID:  env.doctorID,
			StartsAt:  start,
			EndsAt:    end,
			Purpose:   purpose,
		}, claims, "127.0.0.1")
		return err
	}

	t.Run("end before start", func(t *testing.T) {
		assert.ErrorIs(t, book(slot(10, 11, 0), slot(10, 10, 0), "x"), appointment.ErrInvalidInterval)
	})

	t.Run("zero length after normalization", func(t *testing.T) {
		start := time.Date(2026, 3, 10, 10, 0, 10, 0, time.UTC)
		end := time.Date(2026, 3, 10, 10, 0, 50, 0, time.UTC)
		assert.ErrorIs(t, book(start, end, "x"), appointment.ErrInvalidInterval)
	})

	t.Run("in the past", func(t *testing.T) {
		assert.ErrorIs(t, book(testNow.Add(-time.Hour), testNow.Add(-30*time.Minute), "x"), appointment.ErrScheduledInPast)
	})

	t.Run("blank purpose", func(t *testing.T) {
		assert.ErrorIs(t, book(slot(10, 10, 0), slot(10, 10, 30), "   "), appointment.ErrPurposeRequired)
	})
}

func TestBookUnknownDoctor(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()

	_, err := env.svc.Book(context.Background(), &appointment.CreateCommand{
		PatientID: *claims.PatientID,
		DoctorID:  uuid.New(),
		StartsAt:  slot(10, 10, 0),
		EndsAt:    slot(10, 10, 30),
		Purpose:   "checkup",
	}, claims, "127.0.0.1")

	assert.ErrorIs(t, err, doctor.ErrNotFound)
}

func TestRebookingRejectedSlotSucceeds(t *testing.T) {
	env := newTestEnv(t)
	first := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))

	docClaims := doctorClaimsFor(env.doctorID)
	_, err := env.svc.DoctorUpdate(context.Background(), first.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusRejected}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	assert.Equal(t, appointment.StatusPending, a.Status)
}

func TestPatientRescheduleResetsStatusToPending(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	// Approve, then reject so the edit gate does not block the reschedule.
	docClaims := doctorClaimsFor(env.doctorID)
	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusRejected}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	start, end := slot(11, 9, 0), slot(11, 9, 30)
	updated, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{StartsAt: &start, EndsAt: &end}, claims, "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, appointment.StatusPending, updated.Status)
	assert.True(t, updated.StartsAt.Equal(start))
	assert.True(t, updated.EndsAt.Equal(end))
}

func TestPatientRescheduleExcludesOwnSlotFromConflictCheck(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	// Shift by 15 minutes; the new window overlaps the old one, which must not
	// count as a conflict with itself.
	start, end := slot(10, 10, 15), slot(10, 10, 45)
	updated, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{StartsAt: &start, EndsAt: &end}, claims, "127.0.0.1")

	require.NoError(t, err)
	assert.True(t, updated.StartsAt.Equal(start))
}

func TestPatientRescheduleConflictsWithOtherAppointment(t *testing.T) {
	env := newTestEnv(t)
	env.book(t, patientClaims(), slot(10, 11, 0), slot(10, 11, 30))

	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	start, end := slot(10, 11, 15), slot(10, 11, 45)
	_, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{StartsAt: &start, EndsAt: &end}, claims, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrSlotConflict)
}

func TestPatientUpdateRequiresBothEndsOfWindow(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	start := slot(10, 12, 0)
	_, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{StartsAt: &start}, claims, "127.0.0.1")

	var validErr *ValidationError
	assert.ErrorAs(t, err, &validErr)
}

func TestPatientUpdateOfApprovedAppointmentFails(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	docClaims := doctorClaimsFor(env.doctorID)
	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	purpose := "new purpose"
	_, err = env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{Purpose: &purpose}, claims, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrAlreadyApproved)
}

func TestPurposeOnlyUpdateKeepsStatusAndSlot(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	// A second appointment right next to it; a purpose edit must not trip any
	// conflict logic or move the window.
	env.book(t, patientClaims(), slot(10, 10, 30), slot(10, 11, 0))

	purpose := "annual physical"
	updated, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{Purpose: &purpose}, claims, "127.0.0.1")
	require.NoError(t, err)

	assert.Equal(t, "annual physical", updated.Purpose)
	assert.Equal(t, appointment.StatusPending, updated.Status)
	assert.True(t, updated.StartsAt.Equal(a.StartsAt))
}

func TestPatientUpdateEmptyPatchReturnsUnchanged(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	updated, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{}, claims, "127.0.0.1")

	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, a.Purpose, updated.Purpose)
}

func TestPatientCannotTouchAnotherPatientsAppointment(t *testing.T) {
	env := newTestEnv(t)
	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))

	other := patientClaims()
	purpose := "hijack"
	_, err := env.svc.PatientUpdate(context.Background(), a.ID,
		&appointment.PatientUpdateCommand{Purpose: &purpose}, other, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrNotFound)
}

func TestDoctorApprovesAndRejects(t *testing.T) {
	env := newTestEnv(t)
	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	docClaims := doctorClaimsFor(env.doctorID)

	approved, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusApproved, approved.Status)

	rejected, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusRejected}, docClaims, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusRejected, rejected.Status)
}

func TestDoctorRepeatedTransitionIsNoOp(t *testing.T) {
	env := newTestEnv(t)
	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	docClaims := doctorClaimsFor(env.doctorID)

	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	again, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, appointment.StatusApproved, again.Status)
}

func TestDoctorCannotResurrectRejectedAppointment(t *testing.T) {
	env := newTestEnv(t)
	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	docClaims := doctorClaimsFor(env.doctorID)

	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusRejected}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	_, err = env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)

	_, err = env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusPending}, docClaims, "127.0.0.1")
	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
}

func TestDoctorUpdateRejectsUnknownStatus(t *testing.T) {
	env := newTestEnv(t)
	a := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	docClaims := doctorClaimsFor(env.doctorID)

	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.Status("CANCELLED")}, docClaims, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrInvalidTransition)
}

func TestDeleteIsSoftAndIdempotent(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	require.NoError(t, env.svc.Delete(context.Background(), a.ID, claims, "127.0.0.1"))

	// Slot is free again for a different patient.
	env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))

	// Deleting again succeeds without effect.
	assert.NoError(t, env.svc.Delete(context.Background(), a.ID, claims, "127.0.0.1"))
}

func TestDeleteApprovedAppointmentFails(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	docClaims := doctorClaimsFor(env.doctorID)
	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	err = env.svc.Delete(context.Background(), a.ID, claims, "127.0.0.1")
	assert.ErrorIs(t, err, appointment.ErrAlreadyApproved)
}

func TestDeletedAppointmentInvisibleToReads(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	require.NoError(t, env.svc.Delete(context.Background(), a.ID, claims, "127.0.0.1"))

	_, err := env.svc.Get(context.Background(), a.ID, claims)
	assert.ErrorIs(t, err, appointment.ErrNotFound)

	page, err := env.svc.List(context.Background(), &appointment.ListQuery{}, claims)
	require.NoError(t, err)
	assert.Zero(t, page.TotalCount)
	assert.Empty(t, page.Appointments)
}

func TestApprovedLifecycle(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	docClaims := doctorClaimsFor(env.doctorID)

	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	// Approved appointments resist both edits and deletes.
	err = env.svc.Delete(context.Background(), a.ID, claims, "127.0.0.1")
	assert.ErrorIs(t, err, appointment.ErrAlreadyApproved)

	// After the doctor rejects, the slot frees up for a fresh booking.
	_, err = env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusRejected}, docClaims, "127.0.0.1")
	require.NoError(t, err)

	rebooked := env.book(t, patientClaims(), slot(10, 10, 0), slot(10, 10, 30))
	assert.Equal(t, appointment.StatusPending, rebooked.Status)
}

func TestApproveReChecksConflicts(t *testing.T) {
	env := newTestEnv(t)
	docClaims := doctorClaimsFor(env.doctorID)

	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	// A second pending booking sneaks into an overlapping window directly in
	// the store, simulating a race the service must catch at approval time.
	env.repo.mu.Lock()
	id := uuid.New()
	env.repo.items[id] = &appointment.Appointment{
		ID:        id,
		PatientID: uuid.New(),
		DoctorID:  env.doctorID,
		StartsAt:  slot(10, 10, 15),
		EndsAt:    slot(10, 10, 45),
		Status:    appointment.StatusApproved,
		Purpose:   "urgent",
	}
	env.repo.mu.Unlock()

	_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
		&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, docClaims, "127.0.0.1")

	assert.ErrorIs(t, err, appointment.ErrSlotConflict)
}

func TestListScopesByRole(t *testing.T) {
	env := newTestEnv(t)
	claimsA := patientClaims()
	claimsB := patientClaims()

	env.book(t, claimsA, slot(10, 10, 0), slot(10, 10, 30))
	env.book(t, claimsB, slot(10, 11, 0), slot(10, 11, 30))

	pageA, err := env.svc.List(context.Background(), &appointment.ListQuery{}, claimsA)
	require.NoError(t, err)
	assert.Equal(t, int64(1), pageA.TotalCount)

	docPage, err := env.svc.List(context.Background(), &appointment.ListQuery{}, doctorClaimsFor(env.doctorID))
	require.NoError(t, err)
	assert.Equal(t, int64(2), docPage.TotalCount)

	adminPage, err := env.svc.List(context.Background(), &appointment.ListQuery{},
		&domain.Claims{UserID: uuid.New(), Role: domain.RoleAdmin})
	require.NoError(t, err)
	assert.Equal(t, int64(2), adminPage.TotalCount)
}

func TestListOrdersByStartAscending(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()

	env.book(t, claims, slot(12, 10, 0), slot(12, 10, 30))
	env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))
	env.book(t, claims, slot(11, 10, 0), slot(11, 10, 30))

	page, err := env.svc.List(context.Background(), &appointment.ListQuery{}, claims)
	require.NoError(t, err)

	require.Len(t, page.Appointments, 3)
	for i := 1; i < len(page.Appointments); i++ {
		assert.True(t, page.Appointments[i-1].StartsAt.Before(page.Appointments[i].StartsAt))
	}
}

func TestRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	claims := patientClaims()
	a := env.book(t, claims, slot(10, 10, 0), slot(10, 10, 30))

	docClaims := doctorClaimsFor(env.doctorID)

	t.Run("doctor cannot use patient update", func(t *testing.T) {
		purpose := "nope"
		_, err := env.svc.PatientUpdate(context.Background(), a.ID,
			&appointment.PatientUpdateCommand{Purpose: &purpose}, docClaims, "127.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("patient cannot use doctor update", func(t *testing.T) {
		_, err := env.svc.DoctorUpdate(context.Background(), a.ID,
			&appointment.DoctorUpdateCommand{Status: appointment.StatusApproved}, claims, "127.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("doctor cannot delete", func(t *testing.T) {
		err := env.svc.Delete(context.Background(), a.ID, docClaims, "127.0.0.1")
		assert.ErrorIs(t, err, ErrForbidden)
	})
}
