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

func TestMaterialize(t *testing.T) {
	m, r := setupRouter()
	stubDriverStats(t, m)

	start := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	m.offline.On("PullRows", mock.Anything, mock.AnythingOfType("ports.PullRequest")).
		Return([]domain.FeatureRow{
			{
				JoinKeyValues:  map[string]interface{}{"driver_id": int64(1001)},
				EventTimestamp: start.Add(6 * time.Hour),
				Values:         map[string]interface{}{"trips": int64(12), "rating": 4.6},
			},
		}, nil)
	m.store.On("Write", mock.Anything, "default", "driver_stats", mock.Anything).Return(1, nil)
	m.viewRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.FeatureView")).Return(nil)

	body, _ := json.Marshal(map[string]interface{}{
		"views": []string{"driver_stats"},
		"start": start,
		"end":   end,
	})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/materialize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results, _ := resp["results"].([]interface{})
	assert.Len(t, results, 1)
	result, _ := results[0].(map[string]interface{})
	assert.Equal(t, "driver_stats", result["view"])
	assert.Equal(t, float64(1), result["rows_written"])
	m.store.AssertExpectations(t)
}

func TestMaterialize_MissingWindow(t *testing.T) {
	_, r := setupRouter()

	body, _ := json.Marshal(map[string]interface{}{"views": []string{"driver_stats"}})

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/materialize", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMaterializeIncremental(t *testing.T) {
	m, r := setupRouter()
	view := stubDriverStats(t, m)

	m.viewRepo.On("ListOnline", mock.Anything, "default").
		Return([]*domain.FeatureView{view}, nil)
	m.offline.On("PullRows", mock.Anything, mock.AnythingOfType("ports.PullRequest")).
		Return([]domain.FeatureRow{}, nil)
	m.store.On("Write", mock.Anything, "default", "driver_stats", mock.Anything).Return(0, nil)
	m.viewRepo.On("Update", mock.Anything, mock.AnythingOfType("*domain.FeatureView")).Return(nil)

	req, _ := http.NewRequest("POST", "/api/v1/feature-store/materialize-incremental", bytes.NewReader([]byte("{}")))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	results, _ := resp["results"].([]interface{})
	assert.Len(t, results, 1)
}
