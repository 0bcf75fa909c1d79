package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

// PredictionService turns entity keys into predictions: it assembles
// feature vectors from the online store in the order the model was
// trained with, then scores them either against a deployed endpoint
// or by loading the artifact locally.
type PredictionService struct {
	online       *OnlineService
	endpointRepo output.EndpointRepository
	modelRepo    output.ModelRepository
	versionRepo  output.VersionRepository
	artifacts    output.ArtifactStore
	predictor    output.InferencePredictor
}

func NewPredictionService(
	online *OnlineService,
	endpointRepo output.EndpointRepository,
	modelRepo output.ModelRepository,
	versionRepo output.VersionRepository,
	artifacts output.ArtifactStore,
	predictor output.InferencePredictor,
) *PredictionService {
	return &PredictionService{
		online:       online,
		endpointRepo: endpointRepo,
		modelRepo:    modelRepo,
		versionRepo:  versionRepo,
		artifacts:    artifacts,
		predictor:    predictor,
	}
}

// Prediction is one scored entity row
type Prediction struct {
	Label       int     `json:"label"`
	Probability float64 `json:"probability"`
}

// PredictResult is a batch of predictions with the features used
type PredictResult struct {
	ModelName   string       `json:"model_name"`
	Version     int          `json:"version"`
	Features    []string     `json:"features"`
	Predictions []Prediction `json:"predictions"`
}

// PredictRemote scores entity rows against a deployed endpoint. The
// endpoint's runtime returns positive-class probabilities; the
// decision threshold comes from the version's training parameters.
func (s *PredictionService) PredictRemote(ctx context.Context, project, endpointName string, entityRows []map[string]interface{}) (*PredictResult, error) {
	endpoint, err := s.endpointRepo.GetByName(ctx, project, endpointName)
	if err != nil {
		return nil, err
	}
	if !endpoint.IsReady() || endpoint.URL == "" {
		return nil, fmt.Errorf("%w: %s", domain.ErrEndpointNotReady, endpointName)
	}

	version, err := s.versionFor(ctx, project, endpoint.ModelName, endpoint.ModelVersion)
	if err != nil {
		return nil, err
	}

	vectors, err := s.featureVectors(ctx, project, version.FeatureRefs, entityRows)
	if err != nil {
		return nil, err
	}

	probs, err := s.predictor.Predict(ctx, endpoint.URL, endpoint.Name, vectors)
	if err != nil {
		return nil, fmt.Errorf("predict: %w", err)
	}
	if len(probs) != len(vectors) {
		return nil, fmt.Errorf("predict: got %d predictions for %d rows", len(probs), len(vectors))
	}

	threshold := thresholdFromParams(version.Params)
	result := &PredictResult{
		ModelName: endpoint.ModelName,
		Version:   version.Version,
		Features:  featureColumns(version.FeatureRefs),
	}
	for _, p := range probs {
		label := 0
		if p >= threshold {
			label = 1
		}
		result.Predictions = append(result.Predictions, Prediction{Label: label, Probability: p})
	}
	return result, nil
}

// PredictLocal loads the version's artifact and scores entity rows in
// process, without a deployed endpoint
func (s *PredictionService) PredictLocal(ctx context.Context, project, modelName string, number int, entityRows []map[string]interface{}) (*PredictResult, error) {
	version, err := s.versionFor(ctx, project, modelName, number)
	if err != nil {
		return nil, err
	}

	artifact, err := s.LoadArtifact(ctx, version)
	if err != nil {
		return nil, err
	}

	vectors, err := s.featureVectors(ctx, project, version.FeatureRefs, entityRows)
	if err != nil {
		return nil, err
	}

	result := &PredictResult{
		ModelName:   modelName,
		Version:     version.Version,
		Features:    artifact.FeatureNames,
		Predictions: make([]Prediction, len(vectors)),
	}
	for i, vec := range vectors {
		label, p := artifact.Predict(vec)
		result.Predictions[i] = Prediction{Label: label, Probability: p}
	}
	return result, nil
}

// LoadArtifact fetches and decodes a version's trained model
func (s *PredictionService) LoadArtifact(ctx context.Context, version *domain.ModelVersion) (*domain.TrainedModel, error) {
	if version.ArtifactURI == "" {
		return nil, domain.ErrArtifactNotFound
	}
	data, err := s.artifacts.Load(ctx, version.ArtifactURI)
	if err != nil {
		return nil, fmt.Errorf("load artifact: %w", err)
	}
	var artifact domain.TrainedModel
	if err := json.Unmarshal(data, &artifact); err != nil {
		return nil, fmt.Errorf("decode artifact: %w", err)
	}
	return &artifact, nil
}

func (s *PredictionService) versionFor(ctx context.Context, project, modelName string, number int) (*domain.ModelVersion, error) {
	model, err := s.modelRepo.GetByName(ctx, project, modelName)
	if err != nil {
		return nil, err
	}
	if number > 0 {
		return s.versionRepo.GetByNumber(ctx, model.ID, number)
	}
	version, err := s.versionRepo.LatestReady(ctx, model.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrNoReadyVersion, modelName)
	}
	return version, nil
}

// featureVectors reads online features for each entity row and lays
// them out in training order. A feature missing from the online store
// fails the request; stale values are served as-is.
func (s *PredictionService) featureVectors(ctx context.Context, project string, refs []string, entityRows []map[string]interface{}) ([][]float64, error) {
	result, err := s.online.GetOnlineFeatures(ctx, OnlineRequest{
		Project:     project,
		FeatureRefs: refs,
		EntityRows:  entityRows,
	})
	if err != nil {
		return nil, err
	}

	columns := featureColumns(refs)
	vectors := make([][]float64, len(result.Rows))
	for i, row := range result.Rows {
		vec := make([]float64, len(columns))
		for j, col := range columns {
			if row.Statuses[col] == FieldStatusMissing {
				return nil, fmt.Errorf("%w: row %d %s", domain.ErrFeatureValueMissing, i, col)
			}
			v, ok := domain.NumericValue(row.Values[col])
			if !ok {
				return nil, fmt.Errorf("%w: %s", domain.ErrNonNumericFeature, col)
			}
			vec[j] = v
		}
		vectors[i] = vec
	}
	return vectors, nil
}

func featureColumns(refs []string) []string {
	cols := make([]string, 0, len(refs))
	for _, raw := range refs {
		ref, err := domain.ParseFeatureRef(raw)
		if err != nil {
			continue
		}
		cols = append(cols, ref.ColumnName())
	}
	return cols
}

func thresholdFromParams(params map[string]string) float64 {
	if raw, ok := params["threshold"]; ok {
		if t, err := strconv.ParseFloat(raw, 64); err == nil && t > 0 && t < 1 {
			return t
		}
	}
	return 0.5
}
