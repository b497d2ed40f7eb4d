package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"render-orchestrator/apperr"
	"render-orchestrator/dto"
	"render-orchestrator/service"
)

const tenantHeader = "X-Tenant-ID"

type Handler struct {
	render service.RenderService
	export service.ExportService
}

func NewHandler(render service.RenderService, export service.ExportService) *Handler {
	return &Handler{
		render: render,
		export: export,
	}
}

func (h *Handler) Register(r *gin.Engine) {
	api := r.Group("/api", TenantMiddleware())

	video := api.Group("/video/projects/:id")
	video.POST("/render", h.StartRender)
	video.GET("/render-status", h.RenderStatus)
	video.POST("/cancel", h.CancelRender)
	video.POST("/retry", h.RetryRender)
	video.GET("/history", h.RenderHistory)

	prints := api.Group("/print/projects/:id")
	prints.POST("/export", h.StartExport)
	prints.GET("/export-status", h.ExportStatus)
	prints.POST("/cancel", h.CancelExport)
	prints.POST("/retry", h.RetryExport)
	prints.GET("/history", h.ExportHistory)

	api.POST("/print/projects/export-batch", h.BatchExport)
}

// TenantMiddleware resolves the already-authenticated tenant from the gateway
// header. The core trusts this boundary and scopes every query by it.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader(tenantHeader)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing tenant"})
			return
		}
		tenantID, err := uuid.Parse(raw)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid tenant"})
			return
		}
		c.Set("tenantID", tenantID)
		c.Next()
	}
}

func tenantID(c *gin.Context) uuid.UUID {
	return c.MustGet("tenantID").(uuid.UUID)
}

func projectID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid project id"})
		return uuid.Nil, false
	}
	return id, true
}

func respondErr(c *gin.Context, err error) {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		c.JSON(appErr.HTTPStatus(), gin.H{"error": appErr.Message, "code": appErr.Code})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func bindOptions(c *gin.Context) (dto.RenderOptions, bool) {
	var req dto.StartRenderRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return dto.RenderOptions{}, false
		}
	}
	return req.Options(), true
}

func (h *Handler) StartRender(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	opts, ok := bindOptions(c)
	if !ok {
		return
	}

	resp, err := h.render.StartRender(c.Request.Context(), id, tenantID(c), opts)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) RenderStatus(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.render.GetRenderStatus(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CancelRender(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.render.CancelRender(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RetryRender(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.render.RetryRender(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) RenderHistory(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	entries, err := h.render.GetRenderHistory(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) StartExport(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	opts, ok := bindOptions(c)
	if !ok {
		return
	}

	resp, err := h.export.StartExport(c.Request.Context(), id, tenantID(c), opts)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) ExportStatus(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.export.GetExportStatus(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) CancelExport(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.export.CancelExport(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *Handler) RetryExport(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	resp, err := h.export.RetryExport(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

func (h *Handler) ExportHistory(c *gin.Context) {
	id, ok := projectID(c)
	if !ok {
		return
	}
	entries, err := h.export.GetExportHistory(c.Request.Context(), id, tenantID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"history": entries})
}

func (h *Handler) BatchExport(c *gin.Context) {
	var req dto.BatchExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	opts := dto.RenderOptions{Format: req.Format, Quality: req.Quality}
	resp, err := h.export.StartBatchExport(c.Request.Context(), req.ProjectIDs, tenantID(c), opts)
	if err != nil {
		respondErr(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
