package handlers

import (
	"net/http"
	"time"

	"feature-store-service/internal/adapters/primary/http/dto"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Materialize loads a feature window from the offline store into the
// online store for the named views, or for every online view of the
// project when views is empty.
func (h *Handler) Materialize(c *gin.Context) {
	var req dto.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Start == nil || req.End == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start and end are required"})
		return
	}

	results, err := h.materializeSvc.Materialize(c.Request.Context(), h.project(c, req.Project), req.Views, *req.Start, *req.End, nil)
	if err != nil {
		log.WithError(err).Error("materialize failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

// MaterializeIncremental continues each view from where its last
// materialization stopped. End defaults to now.
func (h *Handler) MaterializeIncremental(c *gin.Context) {
	var req dto.MaterializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	end := time.Now()
	if req.End != nil {
		end = *req.End
	}

	results, err := h.materializeSvc.MaterializeIncremental(c.Request.Context(), h.project(c, req.Project), req.Views, end, nil)
	if err != nil {
		log.WithError(err).Error("materialize incremental failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}
