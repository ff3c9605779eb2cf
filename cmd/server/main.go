package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/careslot/careslot/internal/config"
	v1 "github.com/careslot/careslot/internal/handler/v1"
	"github.com/careslot/careslot/internal/repository/postgres"
	"github.com/careslot/careslot/internal/service"
	"github.com/careslot/careslot/pkg/auth"
	"github.com/careslot/careslot/pkg/database"
	"github.com/careslot/careslot/pkg/logger"
	"github.com/careslot/careslot/pkg/metrics"
	"github.com/careslot/careslot/pkg/tracer"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		os.Stderr.WriteString("config: " + err.Error() + "\n")
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		os.Stderr.WriteString("logger: " + err.Error() + "\n")
		os.Exit(1)
	}
	defer log.Sync()

	if err := run(cfg, log); err != nil {
		log.Fatal("server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	log.Info("starting careslot",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	tp, err := tracer.Init(cfg.Tracing)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Warn("tracer shutdown failed", zap.Error(err))
		}
	}()

	db, err := database.Connect(cfg.Database)
	if err != nil {
		return err
	}
	if err := database.Migrate(db, log); err != nil {
		return err
	}

	collector := metrics.NewCollector("careslot")
	if sqlDB, err := db.DB(); err == nil {
		go func() {
			for range time.Tick(15 * time.Second) {
				collector.DBConnections.Set(float64(sqlDB.Stats().OpenConnections))
			}
		}()
	}

	timeout := cfg.Database.QueryTimeout
	userRepo := postgres.NewUserRepository(db, timeout)
	patientRepo := postgres.NewPatientRepository(db, timeout)
	doctorRepo := postgres.NewDoctorRepository(db, timeout)
	appointmentRepo := postgres.NewAppointmentRepository(db, timeout)
	auditRepo := postgres.NewAuditRepository(db, timeout)

	jwtManager := auth.NewJWTManager(cfg.JWT)

	auditSvc := service.NewAuditService(auditRepo, collector, log)
	authSvc := service.NewAuthService(userRepo, patientRepo, jwtManager, log)
	patientSvc := service.NewPatientService(patientRepo, auditSvc, log)
	doctorSvc := service.NewDoctorService(doctorRepo, userRepo, auditSvc, log)
	appointmentSvc := service.NewAppointmentService(appointmentRepo, doctorRepo, auditSvc, log)

	if err := authSvc.EnsureAdmin(context.Background(), cfg.Admin.Username, cfg.Admin.Email, cfg.Admin.Password); err != nil {
		return err
	}

	rateLimiter := v1.NewRateLimiter(cfg.RateLimit)

	router := v1.NewRouter(v1.RouterDeps{
		Config:      cfg,
		Log:         log,
		Collector:   collector,
		JWTManager:  jwtManager,
		RateLimiter: rateLimiter,
		Auth:        v1.NewAuthHandler(authSvc, collector),
		Appointment: v1.NewAppointmentHandler(appointmentSvc, collector),
		Doctor:      v1.NewDoctorHandler(doctorSvc),
		Patient:     v1.NewPatientHandler(patientSvc),
	})

	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}

	// Drain the audit buffer after the listener stops accepting requests.
	auditSvc.Shutdown()
	rateLimiter.Stop()

	log.Info("server stopped")
	return nil
}
