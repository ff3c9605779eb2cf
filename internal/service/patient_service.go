package service

import (
	"context"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/patient"
	"go.uber.org/zap"
)

type PatientService struct {
	repo     patient.Repository
	auditSvc *AuditService
	log      *zap.Logger
}

func NewPatientService(repo patient.Repository, auditSvc *AuditService, log *zap.Logger) *PatientService {
	return &PatientService{repo: repo, auditSvc: auditSvc, log: log}
}

// GetOwnProfile returns the calling patient's profile.
func (s *PatientService) GetOwnProfile(ctx context.Context, claims *domain.Claims) (*patient.Patient, error) {
	if claims.Role != domain.RolePatient || claims.PatientID == nil {
		return nil, ErrForbidden
	}
	return s.repo.GetByID(ctx, *claims.PatientID)
}

// UpdateOwnProfile applies a partial update to the calling patient's profile.
func (s *PatientService) UpdateOwnProfile(ctx context.Context, cmd *patient.UpdateCommand, claims *domain.Claims, ip string) (*patient.Patient, error) {
	if claims.Role != domain.RolePatient || claims.PatientID == nil {
		return nil, ErrForbidden
	}

	if cmd.Age != nil && *cmd.Age < 0 {
		return nil, &ValidationError{Fields: []string{"age must be non-negative"}}
	}

	p, err := s.repo.Update(ctx, *claims.PatientID, cmd)
	if err != nil {
		return nil, err
	}

	s.auditSvc.LogAsync(ctx, AuditEntry{
		UserID:       claims.UserID.String(),
		UserRole:     string(claims.Role),
		Action:       "update",
		ResourceType: "patient",
		ResourceID:   p.ID.String(),
		IPAddress:    ip,
	})

	return p, nil
}

// ListPatients returns all patient profiles. Admin only.
func (s *PatientService) ListPatients(ctx context.Context, q *patient.ListQuery, claims *domain.Claims) (*patient.Paged, error) {
	if claims.Role != domain.RoleAdmin {
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
