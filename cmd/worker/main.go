package main

import (
	"context"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/clinicbook/booking-api/config"
	"github.com/clinicbook/booking-api/internal/email"
	"github.com/clinicbook/booking-api/internal/repository/postgres"
	"github.com/clinicbook/booking-api/pkg/logger"
	redisbroker "github.com/clinicbook/booking-api/pkg/messaging/redis"
	"github.com/clinicbook/booking-api/pkg/metrics"
	"github.com/clinicbook/booking-api/pkg/worker"
)

// workerEnv overrides the shared config file for knobs that are tuned
// per deployment of the dispatcher, without editing config.yml.
type workerEnv struct {
	HealthPort      int           `envconfig:"HEALTH_PORT" default:"8081"`
	BatchSize       int           `envconfig:"BATCH_SIZE"`
	PollInterval    time.Duration `envconfig:"POLL_INTERVAL"`
	MaxRetries      int           `envconfig:"MAX_RETRIES"`
	RetryDelay      time.Duration `envconfig:"RETRY_DELAY"`
	CleanupInterval time.Duration `envconfig:"CLEANUP_INTERVAL"`
	RetentionPeriod time.Duration `envconfig:"RETENTION_PERIOD"`
}

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	var env workerEnv
	if err := envconfig.Process("worker", &env); err != nil {
		log.Fatal().Err(err).Msg("failed to parse worker environment")
	}
	applyOverrides(&cfg.Outbox, env)

	appLogger := logger.NewLogger(nil).WithComponent("dispatcher")

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

	outboxRepo := postgres.NewOutboxRepository(db)
	notificationRepo := postgres.NewNotificationRepository(db)
	userRepo := postgres.NewUserRepository(db)

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
		}, appLogger, metrics.NewMetrics("booking", "worker"))

	startHealthServer(env.HealthPort, db)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info().Int("batch_size", cfg.Outbox.BatchSize).Dur("poll_interval", cfg.Outbox.PollInterval).
		Msg("starting dispatcher")
	dispatcher.Start(ctx)
	log.Info().Msg("dispatcher stopped")
}

func applyOverrides(out *config.OutboxConfig, env workerEnv) {
	if env.BatchSize > 0 {
		out.BatchSize = env.BatchSize
	}
	if env.PollInterval > 0 {
		out.PollInterval = env.PollInterval
	}
	if env.MaxRetries > 0 {
		out.MaxRetries = env.MaxRetries
	}
	if env.RetryDelay > 0 {
		out.RetryDelay = env.RetryDelay
	}
	if env.CleanupInterval > 0 {
		out.CleanupInterval = env.CleanupInterval
	}
	if env.RetentionPeriod > 0 {
		out.RetentionPeriod = env.RetentionPeriod
	}
}

func startHealthServer(port int, db interface{ Ping() error }) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health/live", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	go func() {
		addr := ":" + strconv.Itoa(port)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Error().Err(err).Msg("health server failed")
		}
	}()
}
