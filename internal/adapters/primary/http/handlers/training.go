package handlers

import (
	"net/http"

	"feature-store-service/internal/adapters/primary/http/dto"
	"feature-store-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Train builds a point-in-time dataset, fits a logistic regression
// model on it and registers the result as a new model version.
func (h *Handler) Train(c *gin.Context) {
	var req dto.TrainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.trainingSvc.Train(c.Request.Context(), services.TrainRequest{
		Project:         h.project(c, req.Project),
		ModelName:       req.ModelName,
		FeatureRefs:     req.Features,
		ServiceName:     req.Service,
		LabelColumn:     req.LabelColumn,
		EntityRows:      dto.ToEntityRows(req.EntityRows),
		EntityQuery:     req.EntityQuery,
		TimestampColumn: req.TimestampColumn,
		RunName:         req.RunName,
		Epochs:          req.Epochs,
		LearningRate:    req.LearningRate,
		L2:              req.L2,
		TestFraction:    req.TestFraction,
		Seed:            req.Seed,
		Threshold:       req.Threshold,
	})
	if err != nil {
		log.WithError(err).Error("train failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.TrainResponse{
		Model:       dto.ToRegisteredModelResponse(result.Model),
		Version:     dto.ToModelVersionResponse(result.Version),
		DatasetRows: result.DatasetRows,
		TrainRows:   result.TrainRows,
		TestRows:    result.TestRows,
		RunID:       result.RunID,
	})
}
