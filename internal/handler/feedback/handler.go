package feedback

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/service/feedback"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *feedback.Service
}

func NewHandler(service *feedback.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/doctors/:id/feedback", h.ListForDoctor)
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/feedback", auth.RequireRole(model.UserRolePatient), h.Submit)
}

func (h *Handler) Submit(c *gin.Context) {
	var req model.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	fb, err := h.service.Submit(c.Request.Context(), &req, middleware.ClaimsFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, fb)
}

// ListForDoctor is public: prospective patients browse ratings before booking.
func (h *Handler) ListForDoctor(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid doctor id", err))
		return
	}

	list, err := h.service.ListForDoctor(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, list)
}
