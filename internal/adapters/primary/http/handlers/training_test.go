package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"feature-store-service/internal/core/domain"
)

func TestTrain(t *testing.T) {
	m, r := setupRouter()
	stubDriverStats(t, m)

	asOf := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	drivers := []struct {
		id     int64
		trips  int64
		rating float64
		label  int64
	}{
		{1, 28, 4.9, 1}, {2, 25, 4.7, 1}, {3, 31, 4.8, 1}, {4, 22, 4.6, 1},
		{5, 2, 2.1, 0}, {6, 4, 2.8, 0}, {7, 1, 1.9, 0}, {8, 3, 2.4, 0},
	}

	var entityRows []map[string]interface{}
	var featureRows []domain.FeatureRow
	for _, d := range drivers {
		entityRows = append(entityRows, map[string]interface{}{
			"join_keys":       map[string]interface{}{"driver_id": d.id, "label": d.label},
			"event_timestamp": asOf,
		})
		featureRows = append(featureRows, domain.FeatureRow{
			JoinKeyValues:  map[string]interface{}{"driver_id": d.id},
			EventTimestamp: asOf.Add(-1 * time.Hour),
			Values:         map[string]interface{}{"trips": d.trips, "rating": d.rating},
		})
	}

	m.offline.On("PullRows", mock.Anything, mock.AnythingOfType("ports.PullRequest")).
		Return(featureRows, nil)
	m.modelRepo.On("GetByName", mock.Anything, "default", "churn").Return(nil, domain.ErrModelNotFound)
	m.modelRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.RegisteredModel")).Return(nil)
	m.versionRepo.On("NextNumber", mock.Anything, mock.AnythingOfType("uuid.UUID")).Return(1, nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/model.json", mock.Anything).
		Return("file:///artifacts/default/churn/v1/model.json", nil)
	m.artifacts.On("Save", mock.Anything, "default/churn/v1/dataset.csv", mock.Anything).
		Return("file:///artifacts/default/churn/v1/dataset.csv", nil)
	m.tracking.On("IsAvailable").Return(false)
	m.versionRepo.On("Create", mock.Anything, mock.AnythingOfType("*domain.ModelVersion")).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{
		"model_name":   "churn",
		"features":     []string{"driver_stats:trips", "driver_stats:rating"},
		"label_column": "label",
		"entity_rows":  entityRows,
	})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/train", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	assert.Equal(t, float64(8), resp["dataset_rows"])
	version, _ := resp["version"].(map[string]interface{})
	assert.Equal(t, float64(1), version["version"])
	assert.Equal(t, string(domain.VersionStatusReady), version["status"])
	m.artifacts.AssertExpectations(t)
}

func TestTrain_MissingLabelColumn(t *testing.T) {
	_, r := setupRouter()

	body, _ := json.Marshal(map[string]interface{}{
		"model_name": "churn",
		"features":   []string{"driver_stats:trips"},
	})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/train", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}
