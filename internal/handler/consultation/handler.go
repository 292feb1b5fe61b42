package consultation

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/service/consultation"
	"github.com/jwalitptl/consultation-api/pkg/httputil"
)

type Handler struct {
	service consultation.Service
}

func NewHandler(service consultation.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	consultations := r.Group("/consultations")
	{
		consultations.POST("", h.Book)
		consultations.GET("", h.List)
		consultations.GET("/reminder", h.SendReminders)
		consultations.GET("/consultation-summary/:provider_id/:date", h.Summary)
		consultations.PUT("/missed/:consultationId", h.MarkMissed)
		consultations.GET("/:id", h.Get)
		consultations.PUT("/:id", h.Reschedule)
		consultations.PUT("/:id/status", h.Complete)
		consultations.DELETE("/:id", h.Cancel)
	}
}

func (h *Handler) Book(c *gin.Context) {
	var req model.BookConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	patientID, err := uuid.Parse(req.PatientID)
	if err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	consultation, err := h.service.Book(c.Request.Context(), patientID, day, req.Time, model.Priority(req.Priority))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, consultation)
}

func (h *Handler) List(c *gin.Context) {
	consultations, err := h.service.List(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consultations)
}

func (h *Handler) Get(c *gin.Context) {
	id, ok := httputil.UUIDParam(c, "id")
	if !ok {
		return
	}
	consultation, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, consultation)
}

func (h *Handler) SendReminders(c *gin.Context) {
	result, err := h.service.SendUpcomingReminders(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, result.Message, result)
}

func (h *Handler) Reschedule(c *gin.Context) {
	id, ok := httputil.UUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.RescheduleConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}
	day, err := model.ParseDate(req.Date)
	if err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	consultation, err := h.service.Reschedule(c.Request.Context(), id, day, req.Time, model.Priority(req.Priority))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Consultation updated successfully", consultation)
}

func (h *Handler) MarkMissed(c *gin.Context) {
	id, ok := httputil.UUIDParam(c, "consultationId")
	if !ok {
		return
	}
	consultation, err := h.service.MarkMissed(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Consultation marked as missed, provider notified", consultation)
}

func (h *Handler) Complete(c *gin.Context) {
	id, ok := httputil.UUIDParam(c, "id")
	if !ok {
		return
	}
	consultation, err := h.service.Complete(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Consultation marked as completed", consultation)
}

func (h *Handler) Cancel(c *gin.Context) {
	id, ok := httputil.UUIDParam(c, "id")
	if !ok {
		return
	}
	if err := h.service.Cancel(c.Request.Context(), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Consultation deleted successfully", nil)
}

func (h *Handler) Summary(c *gin.Context) {
	providerID, ok := httputil.UUIDParam(c, "provider_id")
	if !ok {
		return
	}
	day, err := model.ParseDate(c.Param("date"))
	if err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	summary, err := h.service.Summarize(c.Request.Context(), providerID, day)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, "Consultation summary sent successfully", summary)
}
