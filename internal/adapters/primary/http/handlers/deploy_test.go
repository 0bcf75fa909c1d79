package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
	"feature-store-service/internal/core/services"
)

func TestDeploy(t *testing.T) {
	m, r := setupRouter()

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)
	version := domain.NewModelVersion(model.ID, 3, services.FrameworkLogReg)
	version.MarkReady("file:///artifacts/default/churn/v3/model.json")

	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("GetByNumber", mock.Anything, model.ID, 3).Return(version, nil)
	m.endpointRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.InferenceEndpoint")).Return(nil)
	m.serving.On("IsAvailable").Return(true)
	m.serving.On("Deploy", mock.Anything, mock.AnythingOfType("*domain.InferenceEndpoint"), version).
		Return(&output.ServingDeployment{ExternalID: "uid-1"}, nil)
	m.endpointRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.InferenceEndpoint")).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{
		"model_name": "churn",
		"version":    3,
	})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/deploy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusAccepted, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, string(domain.EndpointStatePending), resp["status"])
	endpoint, _ := resp["endpoint"].(map[string]interface{})
	assert.Equal(t, "churn-v3", endpoint["name"])
	m.serving.AssertExpectations(t)
}

func TestDeploy_MissingModelName(t *testing.T) {
	_, r := setupRouter()

	body, _ := json.Marshal(map[string]interface{}{"version": 3})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/deploy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeploy_NoReadyVersion(t *testing.T) {
	m, r := setupRouter()

	model, err := domain.NewRegisteredModel("default", "churn", "")
	assert.NoError(t, err)

	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(model, nil)
	m.versionRepo.On("LatestReady", mock.Anything, model.ID).Return(nil, domain.ErrVersionNotFound)

	body, _ := json.Marshal(map[string]interface{}{"model_name": "churn"})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/deploy", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListEndpoints(t *testing.T) {
	m, r := setupRouter()

	endpoint, err := domain.NewInferenceEndpoint("default", "churn-v3", "churn", 3, "serving", "")
	assert.NoError(t, err)
	m.endpointRepo.On("List", mock.Anything, "default").
		Return([]*domain.InferenceEndpoint{endpoint}, nil)

	req, _ := http.NewRequest("GET", "/api/v1/feature-store/endpoints", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(1), resp["total"])
}

func TestGetEndpoint_NotFound(t *testing.T) {
	m, r := setupRouter()

	m.endpointRepo.On("GetByName", mock.Anything, "default", "ghost").
		Return(nil, domain.ErrEndpointNotFound)

	req, _ := http.NewRequest("GET", "/api/v1/feature-store/endpoints/ghost", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteEndpoint(t *testing.T) {
	m, r := setupRouter()

	endpoint, err := domain.NewInferenceEndpoint("default", "churn-v3", "churn", 3, "serving", "")
	assert.NoError(t, err)
	m.endpointRepo.On("GetByName", mock.Anything, "default", "churn-v3").Return(endpoint, nil)
	m.serving.On("IsAvailable").Return(false)
	m.endpointRepo.On("Delete", mock.Anything, "default", "churn-v3").Return(nil)

	req, _ := http.NewRequest("DELETE", "/api/v1/feature-store/endpoints/churn-v3", nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	m.endpointRepo.AssertExpectations(t)
}
