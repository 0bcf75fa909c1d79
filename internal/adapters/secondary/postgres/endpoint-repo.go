package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type endpointRepo struct {
	pool *pgxpool.Pool
}

// NewEndpointRepository creates a new EndpointRepository
func NewEndpointRepository(pool *pgxpool.Pool) output.EndpointRepository {
	return &endpointRepo{pool: pool}
}

func (r *endpointRepo) Create(ctx context.Context, endpoint *domain.InferenceEndpoint) error {
	labelsJSON, err := json.Marshal(endpoint.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO inference_endpoint
			(id, created_at, updated_at, project, name, model_name, model_version,
			 namespace, runtime_image, external_id, url, state, last_error, labels)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = r.pool.Exec(ctx, query,
		endpoint.ID, endpoint.CreatedAt, endpoint.UpdatedAt,
		endpoint.Project, endpoint.Name, endpoint.ModelName, endpoint.ModelVersion,
		endpoint.Namespace, endpoint.RuntimeImage, endpoint.ExternalID,
		endpoint.URL, string(endpoint.State), endpoint.LastError, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEndpointNameConflict
		}
		return fmt.Errorf("create inference endpoint: %w", err)
	}
	return nil
}

func (r *endpointRepo) GetByName(ctx context.Context, project, name string) (*domain.InferenceEndpoint, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, model_name, model_version,
			   namespace, runtime_image, external_id, url, state, last_error, labels
		FROM inference_endpoint
		WHERE project = $1 AND name = $2
	`

	endpoint, err := scanEndpoint(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEndpointNotFound
		}
		return nil, fmt.Errorf("get inference endpoint by name: %w", err)
	}
	return endpoint, nil
}

func (r *endpointRepo) Update(ctx context.Context, endpoint *domain.InferenceEndpoint) error {
	labelsJSON, err := json.Marshal(endpoint.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		UPDATE inference_endpoint
		SET model_name = $1, model_version = $2, namespace = $3, runtime_image = $4,
			external_id = $5, url = $6, state = $7, last_error = $8, labels = $9,
			updated_at = NOW()
		WHERE id = $10
	`

	result, err := r.pool.Exec(ctx, query,
		endpoint.ModelName, endpoint.ModelVersion, endpoint.Namespace, endpoint.RuntimeImage,
		endpoint.ExternalID, endpoint.URL, string(endpoint.State), endpoint.LastError, labelsJSON,
		endpoint.ID,
	)
	if err != nil {
		return fmt.Errorf("update inference endpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEndpointNotFound
	}
	return nil
}

func (r *endpointRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM inference_endpoint WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete inference endpoint: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEndpointNotFound
	}
	return nil
}

func (r *endpointRepo) List(ctx context.Context, project string) ([]*domain.InferenceEndpoint, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, model_name, model_version,
			   namespace, runtime_image, external_id, url, state, last_error, labels
		FROM inference_endpoint
		WHERE project = $1
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("list inference endpoints: %w", err)
	}
	defer rows.Close()

	var endpoints []*domain.InferenceEndpoint
	for rows.Next() {
		endpoint, err := scanEndpointFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan inference endpoint row: %w", err)
		}
		endpoints = append(endpoints, endpoint)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate inference endpoint rows: %w", err)
	}

	return endpoints, nil
}

func scanEndpoint(row pgx.Row) (*domain.InferenceEndpoint, error) {
	e := &domain.InferenceEndpoint{}
	var state string
	var labelsJSON []byte
	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt,
		&e.Project, &e.Name, &e.ModelName, &e.ModelVersion,
		&e.Namespace, &e.RuntimeImage, &e.ExternalID,
		&e.URL, &state, &e.LastError, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EndpointState(state)
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &e.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return e, nil
}

func scanEndpointFromRows(rows pgx.Rows) (*domain.InferenceEndpoint, error) {
	e := &domain.InferenceEndpoint{}
	var state string
	var labelsJSON []byte
	err := rows.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt,
		&e.Project, &e.Name, &e.ModelName, &e.ModelVersion,
		&e.Namespace, &e.RuntimeImage, &e.ExternalID,
		&e.URL, &state, &e.LastError, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	e.State = domain.EndpointState(state)
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &e.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return e, nil
}
