package v1

import (
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	svc     *service.AuthService
	metrics *metrics.Collector
}

func NewAuthHandler(svc *service.AuthService, collector *metrics.Collector) *AuthHandler {
	return &AuthHandler{svc: svc, metrics: collector}
}

type registerRequest struct {
	Username  string   `json:"username" binding:"required"`
	Email     string   `json:"email" binding:"required,email"`
	Password  string   `json:"password" binding:"required"`
	FirstName string   `json:"firstName" binding:"required"`
	LastName  string   `json:"lastName" binding:"required"`
	Age       int      `json:"age"`
	Gender    string   `json:"gender" binding:"required"`
	Address   string   `json:"address" binding:"required"`
	WeightKG  *float64 `json:"weightKg"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Register handles POST /auth/register. Self-signup creates a patient
// profile plus its auth record.
func (h *AuthHandler) Register(c *gin.Context) {
	var req registerRequest
	if !bindJSON(c, &req) {
		return
	}

	cmd := &service.RegisterPatientCommand{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
		Profile: patient.CreateCommand{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Age:       req.Age,
			Gender:    patient.Gender(req.Gender),
			Address:   req.Address,
			WeightKG:  req.WeightKG,
		},
	}

	user, err := h.svc.RegisterPatient(c.Request.Context(), cmd)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	h.metrics.PatientsRegistered.Inc()

	respondCreated(c, gin.H{
		"id":       user.ID.String(),
		"username": user.Username,
		"email":    user.Email,
		"role":     string(user.Role),
		"patient":  user.PatientID.String(),
	})
}

func (h *AuthHandler) Login(c *gin.Context) {
	var req loginRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.Login(c.Request.Context(), req.Email, req.Password, c.ClientIP())
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}

func (h *AuthHandler) Refresh(c *gin.Context) {
	var req refreshRequest
	if !bindJSON(c, &req) {
		return
	}

	pair, err := h.svc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, pair)
}
