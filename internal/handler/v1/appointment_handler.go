package v1

import (
	"errors"
	"net/http"
	"time"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/appointment"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type AppointmentHandler struct {
	svc     *service.AppointmentService
	metrics *metrics.Collector
}

func NewAppointmentHandler(svc *service.AppointmentService, collector *metrics.Collector) *AppointmentHandler {
	return &AppointmentHandler{svc: svc, metrics: collector}
}

type bookAppointmentRequest struct {
	Doctor  string    `json:"doctor" binding:"required"`
	Start   time.Time `json:"start" binding:"required"`
	End     time.Time `json:"end" binding:"required"`
	Purpose string    `json:"purpose" binding:"required"`
}

// updateAppointmentRequest is the union of both role-specific patch shapes.
// Which fields a caller may set depends on its role; the handler rejects
// fields outside the caller's shape before building the typed command.
type updateAppointmentRequest struct {
	Start   *time.Time `json:"start"`
	End     *time.Time `json:"end"`
	Purpose *string    `json:"purpose"`
	Status  *string    `json:"status"`
}

type appointmentResponse struct {
	ID        string    `json:"id"`
	Patient   string    `json:"patient"`
	Doctor    string    `json:"doctor"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Status    string    `json:"status"`
	Purpose   string    `json:"purpose"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

func toAppointmentResponse(a *appointment.Appointment) *appointmentResponse {
	return &appointmentResponse{
		ID:        a.ID.String(),
		Patient:   a.PatientID.String(),
		Doctor:    a.DoctorID.String(),
		Start:     a.StartsAt,
		End:       a.EndsAt,
		Status:    string(a.Status),
		Purpose:   a.Purpose,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

// Book handles POST /appointments. Patient only; the appointment is always
// created for the calling patient.
func (h *AppointmentHandler) Book(c *gin.Context) {
	claims := claimsFrom(c)
	if claims.Role != domain.RolePatient || claims.PatientID == nil {
		respondError(c, http.StatusForbidden, "only patients can book appointments", codeForbidden)
		return
	}

	var req bookAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	doctorID, err := uuid.Parse(req.Doctor)
	if err != nil {
		respondError(c, http.StatusBadRequest, "doctor must be a valid UUID", codeValidation)
		return
	}

	cmd := &appointment.CreateCommand{
		PatientID: *claims.PatientID,
		DoctorID:  doctorID,
		StartsAt:  req.Start,
		EndsAt:    req.End,
		Purpose:   req.Purpose,
	}

	a, err := h.svc.Book(c.Request.Context(), cmd, claims, c.ClientIP())
	if err != nil {
		if errors.Is(err, appointment.ErrSlotConflict) {
			h.metrics.SlotConflictsTotal.Inc()
		}
		h.metrics.BookingsTotal.WithLabelValues("failed").Inc()
		respondServiceError(c, err)
		return
	}

	h.metrics.BookingsTotal.WithLabelValues("created").Inc()
	respondCreated(c, toAppointmentResponse(a))
}

// Get handles GET /appointments/:id. Visibility follows ownership: patients
// and doctors see their own, admins see everything.
func (h *AppointmentHandler) Get(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	a, err := h.svc.Get(c.Request.Context(), id, claimsFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, toAppointmentResponse(a))
}

// List handles GET /appointments with page, limit, status, start, and end
// query parameters. An empty result is a successful page with total 0.
func (h *AppointmentHandler) List(c *gin.Context) {
	q := &appointment.ListQuery{
		Page:     parseQueryInt(c, "page", 1),
		PageSize: parseQueryInt(c, "limit", 20),
	}

	if raw := c.Query("status"); raw != "" {
		status := appointment.Status(raw)
		if !status.IsValid() {
			respondError(c, http.StatusBadRequest, "status must be PENDING, APPROVED, or REJECTED", codeValidation)
			return
		}
		q.Status = &status
	}

	if raw := c.Query("start"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "start must be an RFC 3339 timestamp", codeValidation)
			return
		}
		q.StartFrom = &t
	}
	if raw := c.Query("end"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			respondError(c, http.StatusBadRequest, "end must be an RFC 3339 timestamp", codeValidation)
			return
		}
		q.EndTo = &t
	}

	page, err := h.svc.List(c.Request.Context(), q, claimsFrom(c))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	items := make([]*appointmentResponse, 0, len(page.Appointments))
	for _, a := range page.Appointments {
		items = append(items, toAppointmentResponse(a))
	}

	respondPage(c, &pagination{
		Total:    page.TotalCount,
		Returned: len(items),
		Limit:    page.PageSize,
		Page:     page.Page,
	}, items)
}

// Update handles PATCH /appointments/:id. The accepted body shape depends on
// the caller's role: patients may move the window and edit the purpose,
// doctors may only set the status.
func (h *AppointmentHandler) Update(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	var req updateAppointmentRequest
	if !bindJSON(c, &req) {
		return
	}

	claims := claimsFrom(c)

	switch claims.Role {
	case domain.RolePatient:
		if req.Status != nil {
			respondError(c, http.StatusForbidden, "patients cannot set appointment status", codeForbidden)
			return
		}
		cmd := &appointment.PatientUpdateCommand{
			StartsAt: req.Start,
			EndsAt:   req.End,
			Purpose:  req.Purpose,
		}
		a, err := h.svc.PatientUpdate(c.Request.Context(), id, cmd, claims, c.ClientIP())
		if err != nil {
			if errors.Is(err, appointment.ErrSlotConflict) {
				h.metrics.SlotConflictsTotal.Inc()
			}
			respondServiceError(c, err)
			return
		}
		respondOK(c, toAppointmentResponse(a))

	case domain.RoleDoctor:
		if req.Start != nil || req.End != nil || req.Purpose != nil {
			respondError(c, http.StatusForbidden, "doctors can only update appointment status", codeForbidden)
			return
		}
		if req.Status == nil {
			respondError(c, http.StatusBadRequest, "status is required", codeValidation)
			return
		}
		cmd := &appointment.DoctorUpdateCommand{Status: appointment.Status(*req.Status)}
		a, err := h.svc.DoctorUpdate(c.Request.Context(), id, cmd, claims, c.ClientIP())
		if err != nil {
			respondServiceError(c, err)
			return
		}
		respondOK(c, toAppointmentResponse(a))

	default:
		respondError(c, http.StatusForbidden, "access denied", codeForbidden)
	}
}

// Delete handles DELETE /appointments/:id. Patient only, soft delete,
// idempotent: deleting an already deleted appointment succeeds.
func (h *AppointmentHandler) Delete(c *gin.Context) {
	id, ok := parseUUID(c, "id")
	if !ok {
		return
	}

	err := h.svc.Delete(c.Request.Context(), id, claimsFrom(c), c.ClientIP())
	if err != nil {
		if errors.Is(err, appointment.ErrAlreadyApproved) {
			respondError(c, http.StatusUnprocessableEntity, err.Error(), codeAlreadyApprovedDelete)
			return
		}
		respondServiceError(c, err)
		return
	}

	respondOK(c, gin.H{"deleted": true})
}
