package handlers

import (
	"net/http"
	"strconv"

	"feature-store-service/internal/adapters/primary/http/dto"
	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListEntities(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.RegistryFilter{
		Project: h.project(c, ""),
		Search:  c.Query("search"),
		SortBy:  c.Query("sort_by"),
		Order:   c.Query("order"),
		Limit:   limit,
		Offset:  offset,
	}

	entities, total, err := h.registrySvc.ListEntities(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list entities failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EntityResponse, 0, len(entities))
	for _, e := range entities {
		items = append(items, dto.ToEntityResponse(e))
	}

	c.JSON(http.StatusOK, dto.ListEntitiesResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetEntity(c *gin.Context) {
	entity, err := h.registrySvc.GetEntity(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(entity))
}

// ApplyEntity upserts an entity by project and name.
func (h *Handler) ApplyEntity(c *gin.Context) {
	var req dto.ApplyEntityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	valueType := domain.ValueTypeString
	if req.ValueType != "" {
		parsed, err := domain.ParseValueType(req.ValueType)
		if err != nil {
			mapDomainError(c, err)
			return
		}
		valueType = parsed
	}

	entity, err := domain.NewEntity(h.project(c, req.Project), req.Name, req.JoinKey, valueType, req.Description)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	if len(req.Labels) > 0 {
		entity.Labels = req.Labels
	}

	applied, err := h.registrySvc.ApplyEntity(c.Request.Context(), entity)
	if err != nil {
		log.WithError(err).Error("apply entity failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEntityResponse(applied))
}

func (h *Handler) DeleteEntity(c *gin.Context) {
	if err := h.registrySvc.DeleteEntity(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete entity failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
