package handlers

import (
	"net/http"

	"feature-store-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Predict scores a batch of entity rows with the named model. Feature
// vectors come from the online store in training order. When the body
// names an endpoint the rows go to its deployed runtime, otherwise the
// model artifact is loaded and scored in process.
func (h *Handler) Predict(c *gin.Context) {
	var req dto.PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := h.project(c, req.Project)

	if req.Endpoint != "" {
		result, err := h.predictionSvc.PredictRemote(c.Request.Context(), project, req.Endpoint, req.EntityRows)
		if err != nil {
			log.WithError(err).Error("remote predict failed")
			mapDomainError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
		return
	}

	result, err := h.predictionSvc.PredictLocal(c.Request.Context(), project, c.Param("model"), req.Version, req.EntityRows)
	if err != nil {
		log.WithError(err).Error("local predict failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
