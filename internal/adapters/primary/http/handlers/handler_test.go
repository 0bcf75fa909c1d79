package handlers

import (
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	"feature-store-service/internal/core/services"
	"feature-store-service/internal/testutil"
)

// routerMocks bundles every mocked port behind the wired handler so
// tests can stub exactly the calls a route is expected to make.
type routerMocks struct {
	entityRepo   *testutil.MockEntityRepo
	sourceRepo   *testutil.MockDataSourceRepo
	viewRepo     *testutil.MockFeatureViewRepo
	serviceRepo  *testutil.MockFeatureServiceRepo
	offline      *testutil.MockOfflineStore
	store        *testutil.MockOnlineStore
	modelRepo    *testutil.MockModelRepo
	versionRepo  *testutil.MockVersionRepo
	endpointRepo *testutil.MockEndpointRepo
	artifacts    *testutil.MockArtifactStore
	tracking     *testutil.MockTrackingClient
	serving      *testutil.MockServingClient
	predictor    *testutil.MockInferencePredictor
}

func setupRouter() (*routerMocks, *gin.Engine) {
	gin.SetMode(gin.TestMode)
	m := &routerMocks{
		entityRepo:   new(testutil.MockEntityRepo),
		sourceRepo:   new(testutil.MockDataSourceRepo),
		viewRepo:     new(testutil.MockFeatureViewRepo),
		serviceRepo:  new(testutil.MockFeatureServiceRepo),
		offline:      new(testutil.MockOfflineStore),
		store:        new(testutil.MockOnlineStore),
		modelRepo:    new(testutil.MockModelRepo),
		versionRepo:  new(testutil.MockVersionRepo),
		endpointRepo: new(testutil.MockEndpointRepo),
		artifacts:    new(testutil.MockArtifactStore),
		tracking:     new(testutil.MockTrackingClient),
		serving:      new(testutil.MockServingClient),
		predictor:    new(testutil.MockInferencePredictor),
	}

	registry := services.NewRegistryService(m.entityRepo, m.sourceRepo, m.viewRepo, m.serviceRepo)
	historical := services.NewHistoricalService(registry, m.offline, nil)
	online := services.NewOnlineService(registry, m.store, nil)
	materialize := services.NewMaterializeService(registry, m.viewRepo, m.offline, m.store, nil)
	training := services.NewTrainingService(registry, historical, m.modelRepo, m.versionRepo, m.artifacts, m.tracking, nil)
	models := services.NewModelService(m.modelRepo, m.versionRepo)
	deployment := services.NewDeploymentService(m.endpointRepo, m.modelRepo, m.versionRepo, m.serving)
	prediction := services.NewPredictionService(online, m.endpointRepo, m.modelRepo, m.versionRepo, m.artifacts, m.predictor)

	h := New(registry, historical, online, materialize, training, models, deployment, prediction, "default")
	r := gin.New()
	api := r.Group("/api/v1/feature-store")
	h.RegisterRoutes(api)

	return m, r
}

// stubDriverStats registers a resolvable driver_stats view (trips
// INT64, rating FLOAT64, TTL 24h) on the mocked registry.
func stubDriverStats(t *testing.T, m *routerMocks) *domain.FeatureView {
	t.Helper()
	entity, err := domain.NewEntity("default", "driver", "driver_id", domain.ValueTypeInt64, "")
	assert.NoError(t, err)
	source, err := domain.NewDataSource("default", "driver_source", "warehouse.driver_stats", "", "event_timestamp")
	assert.NoError(t, err)
	view, err := domain.NewFeatureView("default", "driver_stats", []string{"driver"},
		[]domain.Feature{
			{Name: "trips", ValueType: domain.ValueTypeInt64},
			{Name: "rating", ValueType: domain.ValueTypeFloat64},
		}, "driver_source", 24*time.Hour, true)
	assert.NoError(t, err)

	m.entityRepo.On("GetByName", mock.Anything, "default", "driver").Return(entity, nil)
	m.sourceRepo.On("GetByName", mock.Anything, "default", "driver_source").Return(source, nil)
	m.viewRepo.On("GetByName", mock.Anything, "default", "driver_stats").Return(view, nil)
	return view
}
