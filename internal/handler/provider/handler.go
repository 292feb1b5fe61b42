package provider

import (
	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/consultation-api/internal/model"
	"github.com/jwalitptl/consultation-api/internal/service/provider"
	"github.com/jwalitptl/consultation-api/pkg/errors"
	"github.com/jwalitptl/consultation-api/pkg/httputil"
)

type Handler struct {
	service provider.Service
}

func NewHandler(service provider.Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	providers := r.Group("/providers")
	{
		providers.POST("/addprovider", h.AddProvider)
		providers.POST("/verify/:npiNumber", h.Verify)
		providers.GET("/license/:licenseNumber", h.GetByLicense)
		providers.GET("/taxonomy/:taxonomy", h.ListByTaxonomy)
		providers.GET("/taxonomy/:taxonomy/state/:state", h.LookupByTaxonomy)
		providers.GET("/organization", h.LookupByOrganization)
		providers.GET("/npi/:npiNumber", h.GetByNPI)
		providers.GET("/verified", h.ListVerified)
		providers.GET("/license-check/:npiNumber/:state", h.CheckLicenseInState)
	}
}

func (h *Handler) AddProvider(c *gin.Context) {
	var req model.CreateProviderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondWithBindError(c, err)
		return
	}

	p, err := h.service.AddProvider(c.Request.Context(), &req)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithCreated(c, p)
}

func (h *Handler) Verify(c *gin.Context) {
	result, err := h.service.Verify(c.Request.Context(), c.Param("npiNumber"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}

func (h *Handler) GetByLicense(c *gin.Context) {
	p, err := h.service.GetByLicense(c.Request.Context(), c.Param("licenseNumber"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) GetByNPI(c *gin.Context) {
	p, err := h.service.GetByNPI(c.Request.Context(), c.Param("npiNumber"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, p)
}

func (h *Handler) ListByTaxonomy(c *gin.Context) {
	providers, err := h.service.ListByTaxonomy(c.Request.Context(), c.Param("taxonomy"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, providers)
}

func (h *Handler) ListVerified(c *gin.Context) {
	providers, err := h.service.ListVerified(c.Request.Context())
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, providers)
}

func (h *Handler) LookupByOrganization(c *gin.Context) {
	organization, state := c.Query("organizationName"), c.Query("state")
	if organization == "" || state == "" {
		httputil.RespondWithError(c, errors.NewValidation("organizationName and state are required"))
		return
	}

	results, err := h.service.LookupByOrganizationAndState(c.Request.Context(), organization, state)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, results)
}

func (h *Handler) LookupByTaxonomy(c *gin.Context) {
	results, err := h.service.LookupByTaxonomyAndState(c.Request.Context(), c.Param("taxonomy"), c.Param("state"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, results)
}

func (h *Handler) CheckLicenseInState(c *gin.Context) {
	result, err := h.service.CheckLicenseInState(c.Request.Context(), c.Param("npiNumber"), c.Param("state"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, result)
}
