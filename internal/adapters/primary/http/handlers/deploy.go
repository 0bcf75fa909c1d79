package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"feature-store-service/internal/adapters/primary/http/dto"
	"feature-store-service/internal/core/services"
)

// Deploy rolls a model version out as an inference endpoint on the
// cluster. With wait=true the request blocks until the endpoint
// reports ready or the wait times out.
func (h *Handler) Deploy(c *gin.Context) {
	var req dto.DeployRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	project := h.project(c, req.Project)

	result, err := h.deploySvc.Deploy(c.Request.Context(), services.DeployRequest{
		Project:      project,
		Name:         req.Name,
		ModelName:    req.ModelName,
		Version:      req.Version,
		Namespace:    req.Namespace,
		RuntimeImage: req.RuntimeImage,
		Labels:       req.Labels,
	})
	if err != nil {
		log.WithError(err).Error("deploy failed")
		mapDomainError(c, err)
		return
	}

	endpoint := result.Endpoint
	if req.Wait {
		ready, err := h.deploySvc.WaitReady(c.Request.Context(), project, endpoint.Name, 2*time.Minute, 5*time.Second)
		if err != nil {
			log.WithError(err).Error("wait for endpoint failed")
			mapDomainError(c, err)
			return
		}
		endpoint = ready
		result.Status = string(ready.State)
	}

	c.JSON(http.StatusAccepted, dto.DeployResponse{
		Endpoint: dto.ToEndpointResponse(endpoint),
		Status:   result.Status,
		Message:  result.Message,
	})
}

func (h *Handler) ListEndpoints(c *gin.Context) {
	endpoints, err := h.deploySvc.List(c.Request.Context(), h.project(c, ""))
	if err != nil {
		log.WithError(err).Error("list endpoints failed")
		mapDomainError(c, err)
		return
	}

	items := make([]dto.EndpointResponse, 0, len(endpoints))
	for _, e := range endpoints {
		items = append(items, dto.ToEndpointResponse(e))
	}

	c.JSON(http.StatusOK, dto.ListEndpointsResponse{
		Items: items,
		Total: len(items),
	})
}

func (h *Handler) GetEndpoint(c *gin.Context) {
	endpoint, err := h.deploySvc.Get(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEndpointResponse(endpoint))
}

// SyncEndpoint refreshes the stored endpoint state from the cluster.
func (h *Handler) SyncEndpoint(c *gin.Context) {
	endpoint, err := h.deploySvc.SyncStatus(c.Request.Context(), h.project(c, ""), c.Param("name"))
	if err != nil {
		log.WithError(err).Error("sync endpoint failed")
		mapDomainError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToEndpointResponse(endpoint))
}

func (h *Handler) DeleteEndpoint(c *gin.Context) {
	if err := h.deploySvc.Delete(c.Request.Context(), h.project(c, ""), c.Param("name")); err != nil {
		log.WithError(err).Error("delete endpoint failed")
		mapDomainError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}
