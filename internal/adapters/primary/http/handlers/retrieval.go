package handlers

import (
	"net/http"

	"feature-store-service/internal/adapters/primary/http/dto"
	"feature-store-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// GetOnlineFeatures serves the latest feature values for a batch of
// entity rows from the online store.
func (h *Handler) GetOnlineFeatures(c *gin.Context) {
	var req dto.OnlineFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.onlineSvc.GetOnlineFeatures(c.Request.Context(), services.OnlineRequest{
		Project:     h.project(c, req.Project),
		FeatureRefs: req.Features,
		ServiceName: req.Service,
		EntityRows:  req.EntityRows,
	})
	if err != nil {
		log.WithError(err).Error("get online features failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHistoricalFeatures builds a point-in-time correct dataset from
// the offline store. With ?format=csv the dataset streams back as CSV
// instead of JSON.
func (h *Handler) GetHistoricalFeatures(c *gin.Context) {
	var req dto.HistoricalFeaturesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	dataset, err := h.historicalSvc.GetHistoricalFeatures(c.Request.Context(), services.HistoricalRequest{
		Project:         h.project(c, req.Project),
		FeatureRefs:     req.Features,
		ServiceName:     req.Service,
		EntityRows:      dto.ToEntityRows(req.EntityRows),
		EntityQuery:     req.EntityQuery,
		TimestampColumn: req.TimestampColumn,
	})
	if err != nil {
		log.WithError(err).Error("get historical features failed")
		mapDomainError(c, err)
		return
	}

	if c.Query("format") == "csv" {
		c.Header("Content-Type", "text/csv")
		c.Header("Content-Disposition", `attachment; filename="features.csv"`)
		if err := dataset.WriteCSV(c.Writer); err != nil {
			log.WithError(err).Error("stream dataset csv failed")
		}
		return
	}

	c.JSON(http.StatusOK, dto.HistoricalFeaturesResponse{
		Columns:  dataset.Columns,
		Rows:     dataset.Rows,
		RowCount: len(dataset.Rows),
	})
}
