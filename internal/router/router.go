package router

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clinicbook/booking-api/internal/handler/appointment"
	"github.com/clinicbook/booking-api/internal/handler/auth"
	"github.com/clinicbook/booking-api/internal/handler/consultation"
	"github.com/clinicbook/booking-api/internal/handler/directory"
	"github.com/clinicbook/booking-api/internal/handler/feedback"
	"github.com/clinicbook/booking-api/internal/handler/health"
	"github.com/clinicbook/booking-api/internal/handler/notification"
	"github.com/clinicbook/booking-api/internal/handler/payment"
	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/pkg/metrics"
)

type Config struct {
	RateLimitEnabled  bool
	RequestsPerSecond float64
	Burst             int
	CORS              middleware.CORSConfig
}

type Handlers struct {
	Auth         *auth.Handler
	Directory    *directory.Handler
	Appointment  *appointment.Handler
	Consultation *consultation.Handler
	Feedback     *feedback.Handler
	Payment      *payment.Handler
	Notification *notification.Handler
	Health       *health.Handler
}

// New assembles the gin engine: ambient middleware, the public surface
// (directory, booking, auth) and the authenticated API.
func New(cfg Config, authMW *middleware.AuthMiddleware, h Handlers, m *metrics.Metrics) *gin.Engine {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID())
	engine.Use(middleware.Logger())
	engine.Use(middleware.Metrics(m))
	engine.Use(middleware.CORS(cfg.CORS))

	if cfg.RateLimitEnabled {
		limiter := middleware.NewRateLimiter(cfg.RequestsPerSecond, cfg.Burst)
		engine.Use(limiter.RateLimit())
	}

	engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	h.Health.RegisterRoutes(engine.Group(""))

	api := engine.Group("/api/v1")

	public := api.Group("")
	h.Auth.RegisterRoutes(public)
	h.Directory.RegisterRoutes(public)
	h.Feedback.RegisterPublicRoutes(public)

	// Booking accepts guests; claims are attached when a token is present.
	booking := api.Group("", authMW.OptionalAuthenticate())
	h.Appointment.RegisterPublicRoutes(booking)

	protected := api.Group("", authMW.Authenticate())
	h.Auth.RegisterProtectedRoutes(protected)
	h.Appointment.RegisterProtectedRoutes(protected, authMW)
	h.Consultation.RegisterRoutes(protected, authMW)
	h.Feedback.RegisterProtectedRoutes(protected, authMW)
	h.Payment.RegisterRoutes(protected, authMW)
	h.Notification.RegisterRoutes(protected)

	return engine
}
