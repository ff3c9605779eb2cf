package v1

import (
	"time"

	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
)

type PatientHandler struct {
	svc *service.PatientService
}

func NewPatientHandler(svc *service.PatientService) *PatientHandler {
	return &PatientHandler{svc: svc}
}

type updatePatientRequest struct {
	FirstName *string  `json:"firstName"`
	LastName  *string  `json:"lastName"`
	Age       *int     `json:"age"`
	Address   *string  `json:"address"`
	WeightKG  *float64 `json:"weightKg"`
}

type patientResponse struct {
	ID        string    `json:"id"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Age       int       `json:"age"`
	Gender    string    `json:"gender"`
	Address   string    `json:"address"`
	WeightKG  *float64  `json:"weightKg,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

func toPatientResponse(p *patient.Patient) *patientResponse {
	return &patientResponse{
		ID:        p.ID.String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Age:       p.Age,
		Gender:    string(p.Gender),
		Address:   p.Address,
		WeightKG:  p.WeightKG,
		CreatedAt: p.CreatedAt,
	}
}

// GetMe handles GET /patients/me.
func (h *PatientHandler) GetMe(c *gin.Context) {
	p, err := h.svc.GetOwnProfile(c.Request.Context(), claimsFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toPatientResponse(p))
}

// UpdateMe handles PATCH /patients/me.
func (h *PatientHandler) UpdateMe(c *gin.Context) {
	var req updatePatientRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &patient.UpdateCommand{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Age:       req.Age,
		Address:   req.Address,
		WeightKG:  req.WeightKG,
	}

	p, err := h.svc.UpdateOwnProfile(c.Request.Context(), cmd, claimsFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toPatientResponse(p))
}

// List handles GET /patients. Admin only.
func (h *PatientHandler) List(c *gin.Context) {
	q := &patient.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 20),
	}

	page, err := h.svc.ListPatients(c.Request.Context(), q, claimsFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]*patientResponse, 0, len(page.Patients))
	for _, p := range page.Patients {
		items = append(items, toPatientResponse(p))
	}

	respondPage(c, &pagination{
		Total:    page.TotalCount,
		Returned: len(items),
		Limit:    page.PageSize,
		Page:     page.Page,
	}, items)
}
