package payment

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/service/payment"
	"github.com/clinicbook/booking-api/pkg/httputil"
)

type Handler struct {
	service *payment.Service
}

func NewHandler(service *payment.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.GET("/doctor/payments", auth.RequireRole(model.UserRoleDoctor), h.ListForDoctor)
	r.GET("/doctor/payments/latest", auth.RequireRole(model.UserRoleDoctor), h.ListLatestForDoctor)
	r.GET("/patient/payments", auth.RequireRole(model.UserRolePatient), h.ListForPatient)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	payments, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, payments)
}

func (h *Handler) ListLatestForDoctor(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "5"))

	claims := middleware.ClaimsFromContext(c)
	payments, err := h.service.ListLatestForDoctor(c.Request.Context(), claims.UserID, limit)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, payments)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	payments, err := h.service.ListForPatient(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, payments)
}
