package handlers

import (
	"net/http"
	"strconv"
	"time"

	"feature-store-service/internal/adapters/primary/http/dto"
	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

func (h *Handler) ListFeatureViews(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	filter := output.RegistryFilter{
		Project:    h.project(c, ""),
		Search:     c.Query("search"),
		SortBy:     c.Query("sort_by"),
		Order:      c.Query("order"),
		Limit:      limit,
		Offset:     offset,
		OnlineOnly: c.Query("online") == "true",
	}

	views, total, err := h.registrySvc.ListFeatureViews(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("list feature views failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.FeatureViewResponse, 0, len(views))
	for _, v := range views {
		items = append(items, dto.ToFeatureViewResponse(v))
	}

	c.JSON(http.StatusOK, dto.ListFeatureViewsResponse{
		Items:      items,
		Total:      total,
		PageSize:   limit,
		NextOffset: offset + len(items),
	})
}

func (h *Handler) GetFeatureView(c *gin.Context) {
	view, err := h.registrySvc.GetFeatureView(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFeatureViewResponse(view))
}

// ApplyFeatureView upserts a feature view by project and name. The
// referenced entities and source must already be registered.
func (h *Handler) ApplyFeatureView(c *gin.Context) {
	var req dto.ApplyFeatureViewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ttl time.Duration
	if req.TTL != "" {
		parsed, err := time.ParseDuration(req.TTL)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid ttl: " + err.Error()})
			return
		}
		ttl = parsed
	}

	features := make([]domain.Feature, 0, len(req.Features))
	for _, f := range req.Features {
		valueType := domain.ValueTypeString
		if f.ValueType != "" {
			parsed, err := domain.ParseValueType(f.ValueType)
			if err != nil {
				mapDomainError(c, err)
				return
			}
			valueType = parsed
		}
		features = append(features, domain.Feature{
			Name:        f.Name,
			ValueType:   valueType,
			Description: f.Description,
		})
	}

	online := true
	if req.Online != nil {
		online = *req.Online
	}

	view, err := domain.NewFeatureView(h.project(c, req.Project), req.Name, req.Entities, features, req.Source, ttl, online)
	if err != nil {
		mapDomainError(c, err)
		return
	}
	view.Description = req.Description
	if len(req.Labels) > 0 {
		view.Labels = req.Labels
	}

	applied, err := h.registrySvc.ApplyFeatureView(c.Request.Context(), view)
	if err != nil {
		log.WithError(err).Error("apply feature view failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToFeatureViewResponse(applied))
}

func (h *Handler) DeleteFeatureView(c *gin.Context) {
	if err := h.registrySvc.DeleteFeatureView(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete feature view failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
