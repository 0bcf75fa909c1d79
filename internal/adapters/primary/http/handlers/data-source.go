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

func (h *Handler) ListDataSources(c *gin.Context) {
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

	sources, total, err := h.registrySvc.ListDataSources(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list data sources failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.DataSourceResponse, 0, len(sources))
	for _, s := range sources {
		items = append(items, dto.ToDataSourceResponse(s))
	}

	c.JSON(http.StatusOK, dto.ListDataSourcesResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetDataSource(c *gin.Context) {
	source, err := h.registrySvc.GetDataSource(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDataSourceResponse(source))
}

// ApplyDataSource upserts a data source by project and name.
func (h *Handler) ApplyDataSource(c *gin.Context) {
	var req dto.ApplyDataSourceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	source, err := domain.NewDataSource(h.project(c, req.Project), req.Name, req.Table, req.Query, req.EventTimestampColumn)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	source.CreatedTimestampColumn = req.CreatedTimestampColumn
	source.DatePartitionColumn = req.DatePartitionColumn
	source.Description = req.Description
	if len(req.FieldMapping) > 0 {
		source.FieldMapping = req.FieldMapping
	}
	if len(req.Labels) > 0 {
		source.Labels = req.Labels
	}

	applied, err := h.registrySvc.ApplyDataSource(c.Request.Context(), source)
	if err != nil {
		log.WithError(err).Error("apply data source failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToDataSourceResponse(applied))
}

func (h *Handler) DeleteDataSource(c *gin.Context) {
	if err := h.registrySvc.DeleteDataSource(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete data source failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
