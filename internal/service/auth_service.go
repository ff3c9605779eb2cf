package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserAlreadyExists  = errors.New("a user with this email or username already exists")
)

type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error)
}

type AuthService struct {
	userRepo    UserRepository
	patientRepo patient.Repository
	jwtManager  *auth.JWTManager
	log         *zap.Logger
}

func NewAuthService(userRepo UserRepository, patientRepo patient.Repository, jwtManager *auth.JWTManager, log *zap.Logger) *AuthService {
	return &AuthService{userRepo: userRepo, patientRepo: patientRepo, jwtManager: jwtManager, log: log}
}

type RegisterPatientCommand struct {
	Username string
	Email    string
	Password string
	Profile  patient.CreateCommand
}

// RegisterPatient creates the patient profile and its auth record. Self-signup
// is patient-only; doctors are provisioned by an admin.
func (s *AuthService) RegisterPatient(ctx context.Context, cmd *RegisterPatientCommand) (*domain.User, error) {
	if err := validateRegistration(cmd); err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(cmd.Email))
	username := strings.ToLower(strings.TrimSpace(cmd.Username))

	exists, err := s.userRepo.ExistsByEmailOrUsername(ctx, email, username)
	if err != nil {
		return nil, fmt.Errorf("checking uniqueness: %w", err)
	}
	if exists {
		return nil, ErrUserAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cmd.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hashing password: %w", err)
	}

	p := &patient.Patient{
		FirstName: strings.TrimSpace(cmd.Profile.FirstName),
		LastName:  strings.TrimSpace(cmd.Profile.LastName),
		Age:       cmd.Profile.Age,
		Gender:    cmd.Profile.Gender,
		Address:   strings.TrimSpace(cmd.Profile.Address),
		WeightKG:  cmd.Profile.WeightKG,
	}
	if err := s.patientRepo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("creating patient profile: %w", err)
	}

	u := &domain.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RolePatient,
		PatientID:    &p.ID,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	s.log.Info("patient registered",
		zap.String("user_id", u.ID.String()),
		zap.String("patient_id", p.ID.String()),
	)

	return u, nil
}

func (s *AuthService) Login(ctx context.Context, email, password, ip string) (*domain.TokenPair, error) {
	user, err := s.userRepo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		// Use a bcrypt dummy hash to prevent timing-based user enumeration.
		_, _ = bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		s.log.Warn("failed login attempt",
			zap.String("email", email),
			zap.String("ip", ip),
		)
		return nil, ErrInvalidCredentials
	}

	pair, err := s.jwtManager.GenerateTokenPair(claimsFor(user))
	if err != nil {
		s.log.Error("failed to generate token pair", zap.Error(err))
		return nil, fmt.Errorf("generating tokens: %w", err)
	}

	s.log.Info("user logged in",
		zap.String("user_id", user.ID.String()),
		zap.String("ip", ip),
	)

	return pair, nil
}

// RefreshToken issues a new token pair given a valid refresh token.
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*domain.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// Re-validate the user still exists and has not been deleted
	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil || user.IsDeleted {
		return nil, ErrInvalidCredentials
	}

	return s.jwtManager.GenerateTokenPair(claimsFor(user))
}

// EnsureAdmin creates the bootstrap admin account on startup when it does not
// exist yet. A blank email disables bootstrapping; the admin then provisions
// doctors through the API.
func (s *AuthService) EnsureAdmin(ctx context.Context, username, email, password string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("looking up admin account: %w", err)
	}

	if len(password) < 8 {
		return &ValidationError{Fields: []string{"admin password must be at least 8 characters"}}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hashing admin password: %w", err)
	}

	u := &domain.User{
		Username:     strings.ToLower(strings.TrimSpace(username)),
		Email:        email,
		PasswordHash: string(hash),
		Role:         domain.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, u); err != nil {
		return fmt.Errorf("creating admin account: %w", err)
	}

	s.log.Info("bootstrap admin created", zap.String("user_id", u.ID.String()))
	return nil
}

func claimsFor(u *domain.User) *domain.Claims {
	return &domain.Claims{
		UserID:    u.ID,
		Email:     u.Email,
		Role:      u.Role,
		DoctorID:  u.DoctorID,
		PatientID: u.PatientID,
	}
}

func validateRegistration(cmd *RegisterPatientCommand) error {
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
	if cmd.Profile.Age < 0 {
		errs = append(errs, "age must be non-negative")
	}
	if !cmd.Profile.Gender.IsValid() {
		errs = append(errs, "gender is invalid")
	}
	if strings.TrimSpace(cmd.Profile.Address) == "" {
		errs = append(errs, "address is required")
	}

	if len(errs) > 0 {
		return &ValidationError{Fields: errs}
	}
	return nil
}
