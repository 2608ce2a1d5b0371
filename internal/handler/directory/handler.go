package directory

import (
	"github.com/gin-gonic/gin"

	"github.com/clinicbook/booking-api/internal/service/directory"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *directory.Service
}

func NewHandler(service *directory.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/doctors", h.ListDoctors)
}

// ListDoctors is the public booking directory.
func (h *Handler) ListDoctors(c *gin.Context) {
	doctors, err := h.service.ListDoctors(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, doctors)
}
