package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/medstaff-api/internal/config"
	"github.com/jwalitptl/medstaff-api/internal/email"
	authHandler "github.com/jwalitptl/medstaff-api/internal/handler/auth"
	clinicHandler "github.com/jwalitptl/medstaff-api/internal/handler/clinic"
	doctorHandler "github.com/jwalitptl/medstaff-api/internal/handler/doctor"
	"github.com/jwalitptl/medstaff-api/internal/handler/health"
	orderHandler "github.com/jwalitptl/medstaff-api/internal/handler/order"
	promHandler "github.com/jwalitptl/medstaff-api/internal/handler/prometheus"
	"github.com/jwalitptl/medstaff-api/internal/middleware"
	"github.com/jwalitptl/medstaff-api/internal/repository/postgres"
	"github.com/jwalitptl/medstaff-api/internal/router"
	clinicService "github.com/jwalitptl/medstaff-api/internal/service/clinic"
	doctorService "github.com/jwalitptl/medstaff-api/internal/service/doctor"
	orderService "github.com/jwalitptl/medstaff-api/internal/service/order"
	"github.com/jwalitptl/medstaff-api/pkg/auth"
	"github.com/jwalitptl/medstaff-api/pkg/metrics"
)

func runServer(cfg *config.Config) error {
	gin.SetMode(cfg.Server.Mode)

	ctx := context.Background()

	// Initialize metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New("medstaff", registry)

	// Initialize database
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	// Initialize repositories
	opts := postgres.Options{
		DefaultLimit: cfg.Pagination.DefaultLimit,
		MaxLimit:     cfg.Pagination.MaxLimit,
	}
	adminRepo := postgres.NewAdminRepository(db, m)
	clinicRepo := postgres.NewClinicRepository(db, m, opts)
	doctorRepo := postgres.NewDoctorRepository(db, m, opts)
	orderRepo := postgres.NewOrderRepository(db, m, opts)

	// Initialize services
	authSvc, err := newAuthService(cfg, adminRepo, clinicRepo, m)
	if err != nil {
		return err
	}
	clinicSvc := clinicService.NewService(clinicRepo, email.NewService(cfg.SMTP, m))
	doctorSvc := doctorService.NewService(doctorRepo)
	orderSvc := orderService.NewService(orderRepo)

	// Login throttle shares counters through redis when configured
	store, closeStore, err := newAttemptStore(ctx, cfg.Login)
	if err != nil {
		return err
	}
	defer closeStore()

	var healthOpts []health.Option
	if p, ok := store.(health.Pinger); ok {
		healthOpts = append(healthOpts, health.WithOptionalCheck("redis", p))
	}

	throttle := middleware.ThrottleConfig{MaxAttempts: cfg.Login.MaxAttempts, Window: cfg.Login.Window}
	var adminThrottle, clinicThrottle gin.HandlerFunc
	if cfg.Login.MaxAttempts > 0 {
		adminThrottle = middleware.LoginThrottle(auth.RoleAdmin, store, throttle, m)
		clinicThrottle = middleware.LoginThrottle(auth.RoleClinic, store, throttle, m)
	}

	// Setup router
	r := router.NewRouter(
		middleware.NewAuthMiddleware(authSvc, clinicSvc, cfg.JWT.Header),
		router.Handlers{
			Auth:    authHandler.NewHandler(authSvc, adminThrottle, clinicThrottle),
			Clinic:  clinicHandler.NewHandler(clinicSvc),
			Doctor:  doctorHandler.NewHandler(doctorSvc),
			Order:   orderHandler.NewHandler(orderSvc),
			Health:  health.NewHandler(db, healthOpts...),
			Metrics: promHandler.New(registry),
		},
		m,
		router.RouterConfig{
			RateLimitEnabled: cfg.RateLimit.Enabled,
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			CORSConfig:       corsConfig(cfg.Security),
			RequestTimeout:   cfg.Server.RequestTimeout,
			MaxBodyBytes:     cfg.Server.MaxBodyBytes,
			LogBodies:        cfg.Server.Mode == gin.DebugMode,
			Compress:         cfg.Server.Compress,
		},
	)
	r.Setup()

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r.Engine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}
	log.Info().Msg("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	log.Info().Msg("server exited properly")
	return nil
}

func newAttemptStore(ctx context.Context, cfg config.LoginConfig) (middleware.AttemptStore, func(), error) {
	if cfg.RedisURL == "" {
		return middleware.NewMemoryAttemptStore(cfg.Window), func() {}, nil
	}

	store, err := middleware.NewRedisAttemptStore(ctx, cfg.RedisURL)
	if err != nil {
		return nil, nil, err
	}
	return store, func() {
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("failed to close redis")
		}
	}, nil
}

func corsConfig(cfg config.SecurityConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		cors.AllowOrigins = cfg.AllowedOrigins
	}
	if len(cfg.AllowedMethods) > 0 {
		cors.AllowMethods = cfg.AllowedMethods
	}
	if len(cfg.AllowedHeaders) > 0 {
		cors.AllowHeaders = cfg.AllowedHeaders
	}
	return cors
}
