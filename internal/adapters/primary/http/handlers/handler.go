package handlers

import (
	"feature-store-service/internal/core/services"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	registrySvc    *services.RegistryService
	historicalSvc  *services.HistoricalService
	onlineSvc      *services.OnlineService
	materializeSvc *services.MaterializeService
	trainingSvc    *services.TrainingService
	modelSvc       *services.ModelService
	deploySvc      *services.DeploymentService
	predictionSvc  *services.PredictionService

	defaultProject string
}

func New(
	registrySvc *services.RegistryService,
	historicalSvc *services.HistoricalService,
	onlineSvc *services.OnlineService,
	materializeSvc *services.MaterializeService,
	trainingSvc *services.TrainingService,
	modelSvc *services.ModelService,
	deploySvc *services.DeploymentService,
	predictionSvc *services.PredictionService,
	defaultProject string,
) *Handler {
	return &Handler{
		registrySvc:    registrySvc,
		historicalSvc:  historicalSvc,
		onlineSvc:      onlineSvc,
		materializeSvc: materializeSvc,
		trainingSvc:    trainingSvc,
		modelSvc:       modelSvc,
		deploySvc:      deploySvc,
		predictionSvc:  predictionSvc,
		defaultProject: defaultProject,
	}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	// Entities
	r.GET("/entities", h.ListEntities)
	r.GET("/entities/:name", h.GetEntity)
	r.POST("/entities", h.ApplyEntity)
	r.DELETE("/entities/:name", h.DeleteEntity)

	// Data Sources
	r.GET("/data-sources", h.ListDataSources)
	r.GET("/data-sources/:name", h.GetDataSource)
	r.POST("/data-sources", h.ApplyDataSource)
	r.DELETE("/data-sources/:name", h.DeleteDataSource)

	// Feature Views
	r.GET("/feature-views", h.ListFeatureViews)
	r.GET("/feature-views/:name", h.GetFeatureView)
	r.POST("/feature-views", h.ApplyFeatureView)
	r.DELETE("/feature-views/:name", h.DeleteFeatureView)

	// Feature Services
	r.GET("/feature-services", h.ListFeatureServices)
	r.GET("/feature-services/:name", h.GetFeatureService)
	r.POST("/feature-services", h.ApplyFeatureService)
	r.DELETE("/feature-services/:name", h.DeleteFeatureService)

	// Feature Retrieval
	r.POST("/get-online-features", h.GetOnlineFeatures)
	r.POST("/get-historical-features", h.GetHistoricalFeatures)

	// Materialization
	r.POST("/materialize", h.Materialize)
	r.POST("/materialize-incremental", h.MaterializeIncremental)

	// Model Catalog & Training
	r.POST("/train", h.Train)
	r.GET("/models", h.ListModels)
	r.GET("/models/:name", h.GetModel)
	r.GET("/models/:name/versions", h.ListModelVersions)
	r.GET("/models/:name/versions/:version", h.GetModelVersion)
	r.DELETE("/models/:name", h.DeleteModel)

	// Deploy Actions
	r.POST("/deploy", h.Deploy)
	r.GET("/endpoints", h.ListEndpoints)
	r.GET("/endpoints/:name", h.GetEndpoint)
	r.POST("/endpoints/:name/sync", h.SyncEndpoint)
	r.DELETE("/endpoints/:name", h.DeleteEndpoint)

	// Prediction
	r.POST("/predict/:model", h.Predict)
}

// project resolves the project scope of a request. A project named in
// the request body wins, then the query parameter, then the server's
// configured default.
func (h *Handler) project(c *gin.Context, override string) string {
	if override != "" {
		return override
	}
	if q := c.Query("project"); q != "" {
		return q
	}
	return h.defaultProject
}
