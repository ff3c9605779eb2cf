package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakePatientRepo struct {
	mu       sync.Mutex
	patients map[uuid.UUID]*patient.Patient
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{patients: make(map[uuid.UUID]*patient.Patient)}
}

func (r *fakePatientRepo) Create(_ context.Context, p *patient.Patient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p.ID = uuid.New()
	stored := *p
	r.patients[p.ID] = &stored
	return nil
}

func (r *fakePatientRepo) GetByID(_ context.Context, id uuid.UUID) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.IsDeleted {
		return nil, patient.ErrNotFound
	}
	out := *p
	return &out, nil
}

func (r *fakePatientRepo) Update(_ context.Context, id uuid.UUID, cmd *patient.UpdateCommand) (*patient.Patient, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok || p.IsDeleted {
		return nil, patient.ErrNotFound
	}
	if cmd.FirstName != nil {
		p.FirstName = *cmd.FirstName
	}
	if cmd.LastName != nil {
		p.LastName = *cmd.LastName
	}
	if cmd.Age != nil {
		p.Age = *cmd.Age
	}
	if cmd.Address != nil {
		p.Address = *cmd.Address
	}
	if cmd.WeightKG != nil {
		p.WeightKG = cmd.WeightKG
	}
	out := *p
	return &out, nil
}

func (r *fakePatientRepo) List(_ context.Context, q *patient.ListQuery) (*patient.Paged, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*patient.Patient
	for _, p := range r.patients {
		if !p.IsDeleted {
			cp := *p
			out = append(out, &cp)
		}
	}
	return &patient.Paged{Patients: out, TotalCount: int64(len(out)), Page: q.Page, PageSize: q.PageSize}, nil
}

func newAuthTestSvc(t *testing.T) (*AuthService, *fakeUserRepo, *auth.JWTManager) {
	t.Helper()

	userRepo := newFakeUserRepo()
	jwtManager := auth.NewJWTManager(config.JWTConfig{
		Secret:          "auth-service-test-signing-secret",
		AccessTokenTTL:  15 * time.Minute,
		RefreshTokenTTL: 24 * time.Hour,
		Issuer:          "careslot-test",
	})

	return NewAuthService(userRepo, newFakePatientRepo(), jwtManager, zap.NewNop()), userRepo, jwtManager
}

func TestEnsureAdminCreatesAccountOnce(t *testing.T) {
	svc, userRepo, _ := newAuthTestSvc(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "Admin", "Admin@clinic.example", "a-strong-admin-pw"))

	u, err := userRepo.GetByEmail(context.Background(), "admin@clinic.example")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, u.Role)
	assert.Equal(t, "admin", u.Username)

	// Repeating on a later startup must not create a second account.
	require.NoError(t, svc.EnsureAdmin(context.Background(), "Admin", "Admin@clinic.example", "a-strong-admin-pw"))
	assert.Len(t, userRepo.users, 1)
}

func TestEnsureAdminDisabledWithoutEmail(t *testing.T) {
	svc, userRepo, _ := newAuthTestSvc(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "", ""))
	assert.Empty(t, userRepo.users)
}

func TestEnsureAdminRejectsWeakPassword(t *testing.T) {
	svc, _, _ := newAuthTestSvc(t)

	err := svc.EnsureAdmin(context.Background(), "admin", "admin@clinic.example", "short")

	var validErr *ValidationError
	assert.ErrorAs(t, err, &validErr)
}

func TestBootstrappedAdminCanLogIn(t *testing.T) {
	svc, _, jwtManager := newAuthTestSvc(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin@clinic.example", "a-strong-admin-pw"))

	pair, err := svc.Login(context.Background(), "admin@clinic.example", "a-strong-admin-pw", "127.0.0.1")
	require.NoError(t, err)

	claims, err := jwtManager.ValidateAccessToken(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, claims.Role)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	svc, _, _ := newAuthTestSvc(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin@clinic.example", "a-strong-admin-pw"))

	_, err := svc.Login(context.Background(), "admin@clinic.example", "wrong-password", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), "nobody@clinic.example", "whatever-pw", "127.0.0.1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRegisterPatientLinksProfile(t *testing.T) {
	svc, _, _ := newAuthTestSvc(t)

	u, err := svc.RegisterPatient(context.Background(), &RegisterPatientCommand{
		Username: "PatOne",
		Email:    "Pat@clinic.example",
		Password: "patient-password",
		Profile: patient.CreateCommand{
			FirstName: "Pat",
			LastName:  "One",
			Age:       34,
			Gender:    patient.GenderOther,
			Address:   "7 Home St",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.RolePatient, u.Role)
	require.NotNil(t, u.PatientID)
	assert.Nil(t, u.DoctorID)
	assert.Equal(t, "patone", u.Username)
}
