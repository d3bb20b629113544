package storage

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apphttp "flowtrack/internal/http"
	"flowtrack/platform/httpkit"
	"flowtrack/platform/validator"
)

// Module exposes presigned upload and download endpoints for stage files.
// The module is optional; it is only mounted when MinIO is configured.
type Module struct {
	svc Service
	val *validator.Validator
}

func NewModule(svc Service, val *validator.Validator) *Module {
	return &Module{svc: svc, val: val}
}

func (m *Module) Name() string {
	return "storage"
}

func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	files := ctx.Protected.Group("/files")
	files.POST("/presign", m.presignUpload)
	files.GET("/download", m.presignDownload)
}

type presignUploadRequest struct {
	CRN         string `json:"crn" validate:"required,min=1,max=64"`
	FileName    string `json:"fileName" validate:"required,min=1,max=500"`
	ContentType string `json:"contentType" validate:"required"`
	SizeBytes   int64  `json:"sizeBytes" validate:"required,min=1"`
}

func (m *Module) presignUpload(c *gin.Context) {
	var req presignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := m.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", err.Error())
		return
	}

	result, err := m.svc.GenerateUploadURL(c.Request.Context(), req.CRN, req.FileName, req.ContentType, req.SizeBytes)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

func (m *Module) presignDownload(c *gin.Context) {
	fileKey := c.Query("key")
	if fileKey == "" {
		httpkit.Error(c, http.StatusBadRequest, "key is required", nil)
		return
	}

	result, err := m.svc.GenerateDownloadURL(c.Request.Context(), fileKey)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, result)
}

var _ apphttp.Module = (*Module)(nil)
