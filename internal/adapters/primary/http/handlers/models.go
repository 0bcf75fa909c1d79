package handlers

import (
	"net/http"
	"strconv"

	"feature-store-service/internal/adapters/primary/http/dto"
	output "feature-store-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListModels(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.ModelFilter{
		Project: h.project(c, ""),
		Search:  c.Query("search"),
		Limit:   limit,
		Offset:  offset,
	}

	models, total, err := h.modelSvc.List(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list models failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.RegisteredModelResponse, 0, len(models))
	for _, m := range models {
		items = append(items, dto.ToRegisteredModelResponse(m))
	}

	c.JSON(http.StatusOK, dto.ListModelsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetModel(c *gin.Context) {
	model, err := h.modelSvc.Get(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToRegisteredModelResponse(model))
}

func (h *Handler) ListModelVersions(c *gin.Context) {
	versions, err := h.modelSvc.ListVersions(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	items := make([]dto.ModelVersionResponse, 0, len(versions))
	for _, v := range versions {
		items = append(items, dto.ToModelVersionResponse(v))
	}

	c.JSON(http.StatusOK, gin.H{"items": items, "total": len(items)})
}

// GetModelVersion returns one version by number, or the latest READY
// version for "latest".
func (h *Handler) GetModelVersion(c *gin.Context) {
	number := 0
	if raw := c.Param("version"); raw != "latest" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid version number"})
			return
		}
		number = parsed
	}

	version, err := h.modelSvc.GetVersion(c.Request.Context(), h.project(c, ""), c.Param("name"), number)
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToModelVersionResponse(version))
}

func (h *Handler) DeleteModel(c *gin.Context) {
	if err := h.modelSvc.Delete(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete model failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
