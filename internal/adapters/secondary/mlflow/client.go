package mlflow

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"feature-store-service/internal/config"
	output "feature-store-service/internal/core/ports/output"
)

const apiPrefix = "/api/2.0/mlflow"

type trackingClient struct {
	baseURL string
	token   string
	client  *http.Client
	enabled bool
}

// NewTrackingClient creates a tracking client adapter speaking the
// MLflow REST API
func NewTrackingClient(cfg *config.TrackingConfig) output.TrackingClient {
	if !cfg.Enabled || cfg.URL == "" {
		return &trackingClient{enabled: false}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &trackingClient{
		baseURL: strings.TrimSuffix(cfg.URL, "/"),
		token:   cfg.Token,
		enabled: true,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *trackingClient) IsAvailable() bool {
	return c.enabled
}

// MLflow API request/response structures
type apiError struct {
	Code    string `json:"error_code"`
	Message string `json:"message"`
}

func (e *apiError) Error() string {
	return fmt.Sprintf("mlflow: %s: %s", e.Code, e.Message)
}

type experimentInfo struct {
	ExperimentID string `json:"experiment_id"`
	Name         string `json:"name"`
}

type getExperimentResponse struct {
	Experiment experimentInfo `json:"experiment"`
}

type createExperimentRequest struct {
	Name string `json:"name"`
}

type createExperimentResponse struct {
	ExperimentID string `json:"experiment_id"`
}

type createRunRequest struct {
	ExperimentID string   `json:"experiment_id"`
	RunName      string   `json:"run_name,omitempty"`
	StartTime    int64    `json:"start_time"`
	Tags         []runTag `json:"tags,omitempty"`
}

type runTag struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type createRunResponse struct {
	Run struct {
		Info struct {
			RunID        string `json:"run_id"`
			ExperimentID string `json:"experiment_id"`
		} `json:"info"`
	} `json:"run"`
}

type logBatchRequest struct {
	RunID   string        `json:"run_id"`
	Params  []paramEntry  `json:"params,omitempty"`
	Metrics []metricEntry `json:"metrics,omitempty"`
}

type paramEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type metricEntry struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Timestamp int64   `json:"timestamp"`
	Step      int64   `json:"step"`
}

type updateRunRequest struct {
	RunID   string `json:"run_id"`
	Status  string `json:"status"`
	EndTime int64  `json:"end_time"`
}

type createRegisteredModelRequest struct {
	Name string `json:"name"`
}

type createModelVersionRequest struct {
	Name   string `json:"name"`
	Source string `json:"source"`
	RunID  string `json:"run_id,omitempty"`
}

type createModelVersionResponse struct {
	ModelVersion struct {
		Version string `json:"version"`
	} `json:"model_version"`
}

func (c *trackingClient) EnsureExperiment(ctx context.Context, name string) (string, error) {
	reqURL := fmt.Sprintf("%s%s/experiments/get-by-name?experiment_name=%s",
		c.baseURL, apiPrefix, url.QueryEscape(name))

	var got getExperimentResponse
	err := c.do(ctx, "GET", reqURL, nil, &got)
	if err == nil {
		return got.Experiment.ExperimentID, nil
	}
	var apiErr *apiError
	if !errors.As(err, &apiErr) || apiErr.Code != "RESOURCE_DOES_NOT_EXIST" {
		return "", fmt.Errorf("get experiment %s: %w", name, err)
	}

	var created createExperimentResponse
	createURL := c.baseURL + apiPrefix + "/experiments/create"
	if err := c.do(ctx, "POST", createURL, createExperimentRequest{Name: name}, &created); err != nil {
		return "", fmt.Errorf("create experiment %s: %w", name, err)
	}
	return created.ExperimentID, nil
}

func (c *trackingClient) StartRun(ctx context.Context, experimentID, runName string) (*output.TrackingRun, error) {
	body := createRunRequest{
		ExperimentID: experimentID,
		RunName:      runName,
		StartTime:    time.Now().UnixMilli(),
		Tags: []runTag{
			{Key: "mlflow.runName", Value: runName},
		},
	}

	var resp createRunResponse
	reqURL := c.baseURL + apiPrefix + "/runs/create"
	if err := c.do(ctx, "POST", reqURL, body, &resp); err != nil {
		return nil, fmt.Errorf("create run: %w", err)
	}

	return &output.TrackingRun{
		RunID:        resp.Run.Info.RunID,
		ExperimentID: resp.Run.Info.ExperimentID,
	}, nil
}

func (c *trackingClient) LogParams(ctx context.Context, runID string, params map[string]string) error {
	if len(params) == 0 {
		return nil
	}

	body := logBatchRequest{RunID: runID}
	for k, v := range params {
		body.Params = append(body.Params, paramEntry{Key: k, Value: v})
	}

	reqURL := c.baseURL + apiPrefix + "/runs/log-batch"
	if err := c.do(ctx, "POST", reqURL, body, nil); err != nil {
		return fmt.Errorf("log params: %w", err)
	}
	return nil
}

func (c *trackingClient) LogMetrics(ctx context.Context, runID string, metrics map[string]float64) error {
	if len(metrics) == 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	body := logBatchRequest{RunID: runID}
	for k, v := range metrics {
		body.Metrics = append(body.Metrics, metricEntry{Key: k, Value: v, Timestamp: now})
	}

	reqURL := c.baseURL + apiPrefix + "/runs/log-batch"
	if err := c.do(ctx, "POST", reqURL, body, nil); err != nil {
		return fmt.Errorf("log metrics: %w", err)
	}
	return nil
}

func (c *trackingClient) EndRun(ctx context.Context, runID, status string) error {
	body := updateRunRequest{
		RunID:   runID,
		Status:  status,
		EndTime: time.Now().UnixMilli(),
	}

	reqURL := c.baseURL + apiPrefix + "/runs/update"
	if err := c.do(ctx, "POST", reqURL, body, nil); err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

func (c *trackingClient) RegisterModel(ctx context.Context, name string) error {
	reqURL := c.baseURL + apiPrefix + "/registered-models/create"
	err := c.do(ctx, "POST", reqURL, createRegisteredModelRequest{Name: name}, nil)
	if err == nil {
		return nil
	}

	// Re-registering an existing model is fine
	var apiErr *apiError
	if errors.As(err, &apiErr) && apiErr.Code == "RESOURCE_ALREADY_EXISTS" {
		return nil
	}
	return fmt.Errorf("create registered model %s: %w", name, err)
}

func (c *trackingClient) CreateModelVersion(ctx context.Context, name, source, runID string) (string, error) {
	body := createModelVersionRequest{
		Name:   name,
		Source: source,
		RunID:  runID,
	}

	var resp createModelVersionResponse
	reqURL := c.baseURL + apiPrefix + "/model-versions/create"
	if err := c.do(ctx, "POST", reqURL, body, &resp); err != nil {
		return "", fmt.Errorf("create model version: %w", err)
	}
	return resp.ModelVersion.Version, nil
}

func (c *trackingClient) do(ctx context.Context, method, reqURL string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Code != "" {
			return &apiErr
		}
		return fmt.Errorf("tracking server returned %d", resp.StatusCode)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// Ensure interface compliance
var _ output.TrackingClient = (*trackingClient)(nil)
