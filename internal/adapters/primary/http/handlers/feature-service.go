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

func (h *Handler) ListFeatureServices(c *gin.Context) {
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

	servicesList, total, err := h.registrySvc.ListFeatureServices(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list feature services failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.FeatureServiceResponse, 0, len(servicesList))
	for _, s := range servicesList {
		items = append(items, dto.ToFeatureServiceResponse(s))
	}

	c.JSON(http.StatusOK, dto.ListFeatureServicesResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetFeatureService(c *gin.Context) {
	svc, err := h.registrySvc.GetFeatureService(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFeatureServiceResponse(svc))
}

// ApplyFeatureService upserts a feature service by project and name.
// Every projected view and feature must already be registered.
func (h *Handler) ApplyFeatureService(c *gin.Context) {
	var req dto.ApplyFeatureServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	projections := make([]domain.FeatureViewProjection, 0, len(req.Views))
	for _, p := range req.Views {
		projections = append(projections, domain.FeatureViewProjection{
			ViewName: p.View,
			Features: p.Features,
		})
	}

	svc, err := domain.NewFeatureService(h.project(c, req.Project), req.Name, projections)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	svc.Description = req.Description
	if len(req.Labels) > 0 {
		svc.Labels = req.Labels
	}

	applied, err := h.registrySvc.ApplyFeatureService(c.Request.Context(), svc)
	if err != nil {
		log.WithError(err).Error("apply feature service failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFeatureServiceResponse(applied))
}

func (h *Handler) DeleteFeatureService(c *gin.Context) {
	if err := h.registrySvc.DeleteFeatureService(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete feature service failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
