package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/clinicbook/booking-api/config"
	appointmentHandler "github.com/clinicbook/booking-api/internal/handler/appointment"
	authHandler "github.com/clinicbook/booking-api/internal/handler/auth"
	consultationHandler "github.com/clinicbook/booking-api/internal/handler/consultation"
	directoryHandler "github.com/clinicbook/booking-api/internal/handler/directory"
	feedbackHandler "github.com/clinicbook/booking-api/internal/handler/feedback"
	healthHandler "github.com/clinicbook/booking-api/internal/handler/health"
	notificationHandler "github.com/clinicbook/booking-api/internal/handler/notification"
	paymentHandler "github.com/clinicbook/booking-api/internal/handler/payment"
	"github.com/clinicbook/booking-api/internal/email"
	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/repository/postgres"
	"github.com/clinicbook/booking-api/internal/router"
	appointmentService "github.com/clinicbook/booking-api/internal/service/appointment"
	authService "github.com/clinicbook/booking-api/internal/service/auth"
	consultationService "github.com/clinicbook/booking-api/internal/service/consultation"
	directoryService "github.com/clinicbook/booking-api/internal/service/directory"
	feedbackService "github.com/clinicbook/booking-api/internal/service/feedback"
	notificationService "github.com/clinicbook/booking-api/internal/service/notification"
	paymentService "github.com/clinicbook/booking-api/internal/service/payment"
	"github.com/clinicbook/booking-api/pkg/auth"
	"github.com/clinicbook/booking-api/pkg/logger"
	redisbroker "github.com/clinicbook/booking-api/pkg/messaging/redis"
	"github.com/clinicbook/booking-api/pkg/metrics"
	"github.com/clinicbook/booking-api/pkg/storage"
	"github.com/clinicbook/booking-api/pkg/validator"
	"github.com/clinicbook/booking-api/pkg/worker"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	broker, err := redisbroker.NewRedisBroker(redisbroker.Config{
		URL:          cfg.Redis.URL,
		MaxRetries:   cfg.Redis.MaxRetries,
		RetryBackoff: cfg.Redis.RetryBackoff,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	}, &log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer broker.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3Store(ctx, storage.Config{
		Bucket:   cfg.Storage.Bucket,
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize object storage")
	}

	userRepo := postgres.NewUserRepository(db)
	appointmentRepo := postgres.NewAppointmentRepository(db)
	consultationRepo := postgres.NewConsultationRepository(db)
	feedbackRepo := postgres.NewFeedbackRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	paymentRepo := postgres.NewPaymentRepository(db)
	outboxRepo := postgres.NewOutboxRepository(db)

	jwtSvc := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	directorySvc := directoryService.NewService(userRepo, cfg.Directory.CacheTTL, appLogger)
	authSvc := authService.NewService(userRepo, appointmentRepo, jwtSvc, appLogger)
	appointmentSvc := appointmentService.NewService(appointmentRepo, directorySvc, appLogger)
	consultationSvc := consultationService.NewService(consultationRepo, appointmentRepo, store, appLogger)
	feedbackSvc := feedbackService.NewService(feedbackRepo, appointmentRepo, directorySvc, appLogger)
	paymentSvc := paymentService.NewService(paymentRepo, directorySvc, appLogger)
	notificationSvc := notificationService.NewService(notificationRepo, broker)

	m := metrics.NewMetrics("booking", "api")
	authMW := middleware.NewAuthMiddleware(jwtSvc)
	v := validator.New()

	engine := router.New(router.Config{
		RateLimitEnabled:  cfg.RateLimit.Enabled,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
		Burst:             cfg.RateLimit.Burst,
		CORS:              middleware.DefaultCORSConfig(),
	}, authMW, router.Handlers{
		Auth:         authHandler.NewHandler(authSvc),
		Directory:    directoryHandler.NewHandler(directorySvc),
		Appointment:  appointmentHandler.NewHandler(appointmentSvc),
		Consultation: consultationHandler.NewHandler(consultationSvc, v),
		Feedback:     feedbackHandler.NewHandler(feedbackSvc),
		Payment:      paymentHandler.NewHandler(paymentSvc),
		Notification: notificationHandler.NewHandler(notificationSvc),
		Health:       healthHandler.NewHandler(db),
	}, m)

	// In-process dispatcher so a single-binary deployment still delivers
	// notifications; cmd/worker runs the same loop standalone.
	var sender email.Sender
	if cfg.SMTP.Enabled {
		sender = email.NewSMTPSender(email.Config{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
		})
	}
	dispatcher := worker.NewDispatcher(outboxRepo, notificationRepo, userRepo, broker, sender,
		worker.DispatcherConfig{
			BatchSize:       cfg.Outbox.BatchSize,
			PollInterval:    cfg.Outbox.PollInterval,
			MaxRetries:      cfg.Outbox.MaxRetries,
			RetryDelay:      cfg.Outbox.RetryDelay,
			CleanupInterval: cfg.Outbox.CleanupInterval,
			RetentionPeriod: cfg.Outbox.RetentionPeriod,
		}, appLogger.WithComponent("dispatcher"), m)
	go dispatcher.Start(ctx)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      engine,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("forced shutdown")
		os.Exit(1)
	}
}
