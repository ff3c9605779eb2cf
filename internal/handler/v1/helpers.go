package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/internal/domain/appointment"
	"github.com/careslot/careslot/internal/domain/doctor"
	"github.com/careslot/careslot/internal/domain/patient"
	"github.com/careslot/careslot/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	statusSuccess = "SUCCESS"
	statusFailed  = "FAILED"
)

// Stable error identifiers for client-side branching, one per error kind.
// Clients switch on the identifier, humans read the message.
const (
	codeValidation            = "0x000D01"
	codeNotFound              = "0x000D04"
	codeStoreUnavailable      = "0x000D05"
	codeInvalidInterval       = "0x000D06"
	codeForbidden             = "0x000D07"
	codeAlreadyApprovedEdit   = "0x000D081"
	codeAlreadyApprovedDelete = "0x000D082"
	codeInvalidTransition     = "0x000D09"
	codeSlotConflict          = "0x000D0C"

	codeDoctorNotFound  = "0x000B04"
	codePatientNotFound = "0x000C04"

	codeInvalidCredentials = "0x000A01"
	codeUserAlreadyExists  = "0x000A02"
	codeInvalidAuthToken   = "0x000A03"
)

type apiError struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Identifier string `json:"identifier"`
}

type pagination struct {
	Total    int64 `json:"total"`
	Returned int   `json:"returned"`
	Limit    int   `json:"limit"`
	Page     int   `json:"page"`
}

type envelope struct {
	Status     string      `json:"status"`
	Pagination *pagination `json:"pagination,omitempty"`
	Data       any         `json:"data,omitempty"`
	Error      *apiError   `json:"error,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Data: data})
}

func respondCreated(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, envelope{Status: statusSuccess, Data: data})
}

func respondPage(c *gin.Context, p *pagination, data any) {
	c.JSON(http.StatusOK, envelope{Status: statusSuccess, Pagination: p, Data: data})
}

func respondError(c *gin.Context, status int, message, identifier string) {
	c.JSON(status, envelope{
		Status: statusFailed,
		Error:  &apiError{StatusCode: status, Message: message, Identifier: identifier},
	})
}

// respondServiceError is the single mapping from error kinds to HTTP status
// and identifier. Everything a service can return is enumerated here.
func respondServiceError(c *gin.Context, err error) {
	var validErr *service.ValidationError
	if errors.As(err, &validErr) {
		respondError(c, http.StatusBadRequest, validErr.Error(), codeValidation)
		return
	}

	switch {
	case errors.Is(err, appointment.ErrInvalidInterval),
		errors.Is(err, appointment.ErrScheduledInPast):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), codeInvalidInterval)

	case errors.Is(err, appointment.ErrPurposeRequired):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), codeValidation)

	case errors.Is(err, appointment.ErrSlotConflict):
		respondError(c, http.StatusConflict, err.Error(), codeSlotConflict)

	case errors.Is(err, appointment.ErrAlreadyApproved):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), codeAlreadyApprovedEdit)

	case errors.Is(err, appointment.ErrInvalidTransition):
		respondError(c, http.StatusUnprocessableEntity, err.Error(), codeInvalidTransition)

	case errors.Is(err, appointment.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error(), codeNotFound)

	case errors.Is(err, doctor.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error(), codeDoctorNotFound)

	case errors.Is(err, patient.ErrNotFound):
		respondError(c, http.StatusNotFound, err.Error(), codePatientNotFound)

	case errors.Is(err, service.ErrForbidden):
		respondError(c, http.StatusForbidden, "access denied", codeForbidden)

	case errors.Is(err, service.ErrInvalidCredentials):
		respondError(c, http.StatusUnauthorized, "invalid credentials", codeInvalidCredentials)

	case errors.Is(err, service.ErrUserAlreadyExists):
		respondError(c, http.StatusConflict, err.Error(), codeUserAlreadyExists)

	case errors.Is(err, domain.ErrStoreUnavailable):
		respondError(c, http.StatusServiceUnavailable, err.Error(), codeStoreUnavailable)

	default:
		respondError(c, http.StatusInternalServerError, "internal server error", "0x000000")
	}
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		respondError(c, http.StatusBadRequest, "invalid request: "+err.Error(), codeValidation)
		return false
	}
	return true
}

func parseUUID(c *gin.Context, param string) (uuid.UUID, bool) {
	raw := c.Param(param)
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(c, http.StatusBadRequest, "invalid "+param+": must be a valid UUID", codeValidation)
		return uuid.Nil, false
	}
	return id, true
}

func parseQueryInt(c *gin.Context, key string, defaultVal int) int {
	if raw := c.Query(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 {
			return v
		}
	}
	return defaultVal
}

func claimsFrom(c *gin.Context) *domain.Claims {
	v, ok := c.Get(contextClaimsKey)
	if !ok {
		return nil
	}
	claims, _ := v.(*domain.Claims)
	return claims
}
