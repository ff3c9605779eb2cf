package v1

import (
	"time"

	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
)

type DoctorHandler struct {
	svc *service.DoctorService
}

func NewDoctorHandler(svc *service.DoctorService) *DoctorHandler {
	return &DoctorHandler{svc: svc}
}

type createDoctorRequest struct {
	Username       string `json:"username" binding:"required"`
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	FirstName      string `json:"firstName" binding:"required"`
	LastName       string `json:"lastName" binding:"required"`
	Gender         string `json:"gender" binding:"required"`
	Specialization string `json:"specialization" binding:"required"`
	Address        string `json:"address" binding:"required"`
}

type doctorResponse struct {
	ID             string    `json:"id"`
	FirstName      string    `json:"firstName"`
	LastName       string    `json:"lastName"`
	Gender         string    `json:"gender"`
	Specialization string    `json:"specialization"`
	Address        string    `json:"address"`
	CreatedAt      time.Time `json:"createdAt"`
}

func toDoctorResponse(d *doctor.Doctor) *doctorResponse {
	return &doctorResponse{
		ID:             d.ID.String(),
		FirstName:      d.FirstName,
		LastName:       d.LastName,
		Gender:         string(d.Gender),
		Specialization: d.Specialization,
		Address:        d.Address,
		CreatedAt:      d.CreatedAt,
	}
}

// Create handles POST /doctors. Admin only; provisions the profile and the
// doctor's login credentials together.
func (h *DoctorHandler) Create(c *gin.Context) {
	var req createDoctorRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &service.ProvisionDoctorCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Profile: doctor.CreateCommand{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Gender:         doctor.Gender(req.Gender),
			Specialization: req.Specialization,
			Address:        req.Address,
		},
	}

	d, u, err := h.svc.CreateDoctor(c.Request.Context(), cmd, claimsFrom(c), c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondCreated(c, gin.H{
		"doctor": toDoctorResponse(d),
		"user": gin.H{
			"id":       u.ID.String(),
			"username": u.Username,
			"email":    u.Email,
			"role":     string(u.Role),
		},
	})
}

func (h *DoctorHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	d, err := h.svc.GetDoctor(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toDoctorResponse(d))
}

func (h *DoctorHandler) List(c *gin.Context) {
	q := &doctor.ListQuery{
		Specialization: c.Query("specialization"),
		Page:           parseQueryInt(c, "page", 1),
		PageSize:       parseQueryInt(c, "limit", 20),
	}

	page, err := h.svc.ListDoctors(c.Request.Context(), q)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]*doctorResponse, 0, len(page.Doctors))
	for _, d := range page.Doctors {
		items = append(items, toDoctorResponse(d))
	}

	respondPage(c, &pagination{
		Total:    page.TotalCount,
		Returned: len(items),
		Limit:    page.PageSize,
		Page:     page.Page,
	}, items)
}
