package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"flowtrack/internal/journey/service"
	"flowtrack/internal/journey/transport"
	"flowtrack/platform/httpkit"
	"flowtrack/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for customer journeys.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the journey routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.GET("/:crn", h.Get)
	rg.GET("/:crn/stage", h.GetStage)
	rg.POST("/:crn", h.Initiate)
	rg.PUT("/:crn/submissions", h.Submit)
}

// List handles GET /api/v1/journeys
func (h *Handler) List(c *gin.Context) {
	journeys, err := h.svc.AllJourneys(c.Request.Context())
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, journeys)
}

// Get handles GET /api/v1/journeys/:crn
func (h *Handler) Get(c *gin.Context) {
	journey, err := h.svc.Journey(c.Request.Context(), c.Param("crn"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, journey)
}

// GetStage handles GET /api/v1/journeys/:crn/stage
func (h *Handler) GetStage(c *gin.Context) {
	stage, err := h.svc.CurrentStage(c.Request.Context(), c.Param("crn"))
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, stage)
}

// Initiate handles POST /api/v1/journeys/:crn
func (h *Handler) Initiate(c *gin.Context) {
	var req transport.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	journey, err := h.svc.Initiate(c.Request.Context(), c.Param("crn"), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, journey)
}

// Submit handles PUT /api/v1/journeys/:crn/submissions
func (h *Handler) Submit(c *gin.Context) {
	var req transport.SubmitEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return
	}

	journey, err := h.svc.RecordSubmission(c.Request.Context(), c.Param("crn"), identity.Email(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, journey)
}
