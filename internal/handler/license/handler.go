package license

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/consultation-api/internal/service/license"
	"github.com/jwalitptl/consultation-api/pkg/httputil"
)

type Handler struct {
	service license.Service
}

func NewHandler(service license.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/license/check-license-expiry", h.CheckExpiry)
}

func (h *Handler) CheckExpiry(c *gin.Context) {
	report, err := h.service.Sweep(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithMessage(c, report.Message, report)
}
