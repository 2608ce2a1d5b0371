package notification

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/service/notification"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *notification.Service
}

func NewHandler(service *notification.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/notifications", h.List)
	r.GET("/notifications/stream", h.Stream)
}

// List is the polling path over the durable store.
func (h *Handler) List(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	notifications, err := h.service.ListForUser(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, notifications)
}

// Stream is the live path: an SSE feed of notifications as the dispatcher
// publishes them. Clients reconcile against List and deduplicate by id.
func (h *Handler) Stream(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)

	ch, err := h.service.Subscribe(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case msg, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent("notification", string(msg))
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
