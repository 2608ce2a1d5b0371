package appointment

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/service/appointment"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *appointment.Service
}

func NewHandler(service *appointment.Service) *Handler {
	return &Handler{service: service}
}

// RegisterPublicRoutes mounts the booking endpoint; it runs behind optional
// auth so guests and signed-in patients share it.
func (h *Handler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.POST("/appointments", h.Create)
}

func (h *Handler) RegisterProtectedRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/appointments/:id", h.Get)
	r.PATCH("/appointments/:id/confirm", auth.RequireRole(model.UserRoleDoctor), h.Confirm)
	r.PATCH("/appointments/:id", auth.RequireRole(model.UserRolePatient), h.UpdateAsPatient)
	r.GET("/doctor/appointments", auth.RequireRole(model.UserRoleDoctor), h.ListForDoctor)
	r.GET("/patient/appointments", auth.RequireRole(model.UserRolePatient), h.ListForPatient)
}

func (h *Handler) Create(c *gin.Context) {
	var req model.CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.Create(c.Request.Context(), &req, middleware.ClaimsFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, apt)
}

func (h *Handler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	apt, err := h.service.Get(c.Request.Context(), id, middleware.ClaimsFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) Confirm(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	var req model.ConfirmAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	claims := middleware.ClaimsFromContext(c)
	apt, err := h.service.Confirm(c.Request.Context(), id, &req, claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) UpdateAsPatient(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	var req model.PatientUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	apt, err := h.service.UpdateAsPatient(c.Request.Context(), id, &req, middleware.ClaimsFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, apt)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	claims := middleware.ClaimsFromContext(c)
	page, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}

	claims := middleware.ClaimsFromContext(c)
	page, err := h.service.ListForPatient(c.Request.Context(), claims.UserID, p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, page)
}
