package v1

import (
	"net/http"

	"github.com/careslot/careslot/internal/config"
	"github.com/careslot/careslot/internal/domain"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config      *config.Config
	Log         *zap.Logger
	Collector   *metrics.Collector
	JWTManager  *auth.JWTManager
	RateLimiter *RateLimiter
	Auth        *AuthHandler
	Appointment *AppointmentHandler
	Doctor      *DoctorHandler
	Patient     *PatientHandler
}

func NewRouter(deps RouterDeps) *gin.Engine {
	if deps.Config.App.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(deps.Log))
	r.Use(Metrics(deps.Collector))
	r.Use(deps.RateLimiter.Middleware())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler()))

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", deps.Auth.Register)
		authGroup.POST("/login", deps.Auth.Login)
		authGroup.POST("/refresh", deps.Auth.Refresh)
	}

	authed := api.Group("")
	authed.Use(AuthRequired(deps.JWTManager))

	appointments := authed.Group("/appointments")
	{
		appointments.POST("", deps.Appointment.Book)
		appointments.GET("", deps.Appointment.List)
		appointments.GET("/:id", deps.Appointment.Get)
		appointments.PATCH("/:id", deps.Appointment.Update)
		appointments.DELETE("/:id", deps.Appointment.Delete)
	}

	doctors := authed.Group("/doctors")
	{
		doctors.GET("", deps.Doctor.List)
		doctors.GET("/:id", deps.Doctor.Get)
		doctors.POST("", RequireRoles(string(domain.RoleAdmin)), deps.Doctor.Create)
	}

	patients := authed.Group("/patients")
	{
		patients.GET("/me", RequireRoles(string(domain.RolePatient)), deps.Patient.GetMe)
		patients.PATCH("/me", RequireRoles(string(domain.RolePatient)), deps.Patient.UpdateMe)
		patients.GET("", RequireRoles(string(domain.RoleAdmin)), deps.Patient.List)
	}

	r.NoRoute(func(c *gin.Context) {
		respondError(c, http.StatusNotFound, "route not found", codeNotFound)
	})

	return r
}
