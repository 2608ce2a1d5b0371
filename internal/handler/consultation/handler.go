package consultation

import (
	"io"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/clinicbook/booking-api/internal/middleware"
	"github.com/clinicbook/booking-api/internal/model"
	"github.com/clinicbook/booking-api/internal/service/consultation"
	apperrors "github.com/clinicbook/booking-api/pkg/errors"
	"github.com/clinicbook/booking-api/pkg/httputil"
	"github.com/clinicbook/booking-api/pkg/validator"
)

const maxAttachmentBytes = 10 << 20

type createForm struct {
	AppointmentID string `validate:"required,uuid"`
	Notes         string `validate:"required"`
	Visibility    string `validate:"omitempty,oneof=doctor patient both"`
}

type Handler struct {
	service   *consultation.Service
	validator *validator.Validator
}

func NewHandler(service *consultation.Service, v *validator.Validator) *Handler {
	return &Handler{service: service, validator: v}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup, auth *middleware.AuthMiddleware) {
	r.POST("/consultations", auth.RequireRole(model.UserRoleDoctor), h.Create)
	r.GET("/appointments/:id/consultations", h.ListByAppointment)
	r.GET("/doctor/consultations", auth.RequireRole(model.UserRoleDoctor), h.ListForDoctor)
	r.GET("/patient/consultations", auth.RequireRole(model.UserRolePatient), h.ListForPatient)
}

// Create accepts a multipart form: appointment_id, notes, visibility and any
// number of "files" parts. The form is decoded by hand, so validation runs
// through the shared validator instead of gin's binding.
func (h *Handler) Create(c *gin.Context) {
	form := createForm{
		AppointmentID: c.PostForm("appointment_id"),
		Notes:         c.PostForm("notes"),
		Visibility:    c.PostForm("visibility"),
	}
	if err := h.validator.Validate(form); err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(err.Error(), err))
		return
	}
	appointmentID, err := uuid.Parse(form.AppointmentID)
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment_id", err))
		return
	}

	req := &model.CreateConsultationRequest{
		AppointmentID: appointmentID,
		Notes:         form.Notes,
		Visibility:    model.ConsultationVisibility(form.Visibility),
	}

	if mf, err := c.MultipartForm(); err == nil && mf != nil {
		for _, fh := range mf.File["files"] {
			if fh.Size > maxAttachmentBytes {
				httputil.RespondWithError(c, apperrors.BadRequest("attachment too large", nil))
				return
			}
			f, err := fh.Open()
			if err != nil {
				httputil.RespondWithError(c, apperrors.BadRequest("unreadable attachment", err))
				return
			}
			data, err := io.ReadAll(f)
			f.Close()
			if err != nil {
				httputil.RespondWithError(c, apperrors.BadRequest("unreadable attachment", err))
				return
			}
			req.Files = append(req.Files, model.FileUpload{
				Name:        fh.Filename,
				ContentType: fh.Header.Get("Content-Type"),
				Data:        data,
			})
		}
	}

	claims := middleware.ClaimsFromContext(c)
	created, err := h.service.Create(c.Request.Context(), req, claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, created)
}

func (h *Handler) ListByAppointment(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("invalid appointment id", err))
		return
	}

	consultations, err := h.service.ListByAppointment(c.Request.Context(), id, middleware.ClaimsFromContext(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consultations)
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	consultations, err := h.service.ListForDoctor(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consultations)
}

func (h *Handler) ListForPatient(c *gin.Context) {
	claims := middleware.ClaimsFromContext(c)
	consultations, err := h.service.ListForPatient(c.Request.Context(), claims.UserID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consultations)
}
