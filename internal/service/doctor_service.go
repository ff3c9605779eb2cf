package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type DoctorService struct {
	repo     doctor.Repository
	userRepo UserRepository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewDoctorService(repo doctor.Repository, userRepo UserRepository, auditSvc *AuditService, log *zap.Logger) *DoctorService {
	return &DoctorService{repo: repo, userRepo: userRepo, auditSvc: auditSvc, log: log}
}

// ProvisionDoctorCommand carries the doctor profile together with the login
// credentials for the account that owns it.
type ProvisionDoctorCommand struct {
	Username string
	Email    string
	Password string
	Profile  doctor.CreateCommand
}

// CreateDoctor provisions a doctor profile and its auth record in one step.
// Admin only; the provisioned doctor signs in through the shared login route
// and receives tokens carrying Role=DOCTOR and the profile link.
func (s *DoctorService) CreateDoctor(ctx context.Context, cmd *ProvisionDoctorCommand, claims *domain.Claims, ip string) (*doctor.Doctor, *domain.User, error) {
	if claims.Role != domain.RoleAdmin {
		return nil, nil, ErrForbidden
	}

	var errs []string
	if strings.TrimSpace(cmd.Username) == "" {
		errs = append(errs, "username is required")
	}
	if strings.TrimSpace(cmd.Email) == "" {
		errs = append(errs, "email is required")
	}
	if len(cmd.Password) < 8 {
		errs = append(errs, "password must be at least 8 characters")
	}
	if strings.TrimSpace(cmd.Profile.FirstName) == "" {
		errs = append(errs, "first_name is required")
	}
	if strings.TrimSpace(cmd.Profile.LastName) == "" {
		errs = append(errs, "last_name is required")
	}
	if !cmd.Profile.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}
	if strings.TrimSpace(cmd.Profile.Specialization) == "" {
		errs = append(errs, "specialization is required")
	}
	if strings.TrimSpace(cmd.Profile.Address) == "" {
		errs = append(errs, "address is required")
	}
	if len(errs) > 0 {
		return nil, nil, &ValidationError{Fields: errs}
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	username := strings.ToLower(strings.TrimSpace(cmd.Username))

	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, nil, ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, nil, fmt.Errorf("hashing password: %w", err)
	}

	d := &doctor.Doctor{
		FirstName:      strings.TrimSpace(cmd.Profile.FirstName),
		LastName:       strings.TrimSpace(cmd.Profile.LastName),
		Gender:         cmd.Profile.Gender,
		Specialization: strings.TrimSpace(cmd.Profile.Specialization),
		Address:        strings.TrimSpace(cmd.Profile.Address),
	}
	if err := s.repo.Create(ctx, d); err != nil {
		return nil, nil, fmt.Errorf("creating doctor: %w", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleDoctor,
		DoctorID:     &d.ID,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, nil, fmt.Errorf("creating doctor user: %w", err)
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "create",
		ResourceType: "doctor",
		ResourceID:   d.ID.String(),
		IPAddress:    ip,
	})

	s.log.Info("doctor provisioned",
		zap.String("doctor_id", d.ID.String()),
		zap.String("user_id", u.ID.String()),
	)

	return d, u, nil
}

func (s *DoctorService) GetDoctor(ctx context.Context, id uuid.UUID) (*doctor.Doctor, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *DoctorService) ListDoctors(ctx context.Context, q *doctor.ListQuery) (*doctor.Paged, error) {
	if q.PageSize <= 0 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	return s.repo.List(ctx, q)
}
