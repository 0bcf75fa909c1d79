package kserve

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	output "feature-store-service/internal/core/ports/output"
)

type predictor struct {
	client *http.Client
}

// NewPredictor creates an InferencePredictor speaking the KServe v1
// data plane protocol
func NewPredictor(timeout time.Duration) output.InferencePredictor {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &predictor{
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type predictRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictResponse struct {
	Predictions []float64 `json:"predictions"`
}

func (p *predictor) Predict(ctx context.Context, baseURL, modelName string, instances [][]float64) ([]float64, error) {
	payload, err := json.Marshal(predictRequest{Instances: instances})
	if err != nil {
		return nil, fmt.Errorf("marshal predict request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/models/%s:predict", strings.TrimSuffix(baseURL, "/"), modelName)
	req, err := http.NewRequestWithContext(ctx, "POST", reqURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build predict request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", reqURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("predict returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode predict response: %w", err)
	}
	return out.Predictions, nil
}

// Ensure interface compliance
var _ output.InferencePredictor = (*predictor)(nil)
