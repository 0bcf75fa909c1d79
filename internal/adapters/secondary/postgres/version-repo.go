package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type versionRepo struct {
	pool *pgxpool.Pool
}

// NewVersionRepository creates a new VersionRepository
func NewVersionRepository(pool *pgxpool.Pool) output.VersionRepository {
	return &versionRepo{pool: pool}
}

func (r *versionRepo) Create(ctx context.Context, version *domain.ModelVersion) error {
	metricsJSON, err := json.Marshal(version.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	paramsJSON, err := json.Marshal(version.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	refs := version.FeatureRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("marshal feature refs: %w", err)
	}

	query := `
		INSERT INTO model_version
			(id, created_at, updated_at, model_id, version, run_id, artifact_uri,
			 framework, status, metrics, params, feature_refs, label_column)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		version.ID, version.CreatedAt, version.UpdatedAt,
		version.ModelID, version.Version, version.RunID, version.ArtifactURI,
		version.Framework, string(version.Status), metricsJSON, paramsJSON,
		refsJSON, version.LabelColumn,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrVersionConflict
		}
		return fmt.Errorf("create model version: %w", err)
	}
	return nil
}

func (r *versionRepo) GetByNumber(ctx context.Context, modelID uuid.UUID, number int) (*domain.ModelVersion, error) {
	query := `
		SELECT mv.id, mv.created_at, mv.updated_at, mv.model_id, mv.version,
			   mv.run_id, mv.artifact_uri, mv.framework, mv.status,
			   mv.metrics, mv.params, mv.feature_refs, mv.label_column,
			   rm.name AS model_name
		FROM model_version mv
		JOIN registered_model rm ON rm.id = mv.model_id
		WHERE mv.model_id = $1 AND mv.version = $2
	`

	version, err := scanVersion(r.pool.QueryRow(ctx, query, modelID, number))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrVersionNotFound
		}
		return nil, fmt.Errorf("get model version by number: %w", err)
	}
	return version, nil
}

func (r *versionRepo) LatestReady(ctx context.Context, modelID uuid.UUID) (*domain.ModelVersion, error) {
	query := `
		SELECT mv.id, mv.created_at, mv.updated_at, mv.model_id, mv.version,
			   mv.run_id, mv.artifact_uri, mv.framework, mv.status,
			   mv.metrics, mv.params, mv.feature_refs, mv.label_column,
			   rm.name AS model_name
		FROM model_version mv
		JOIN registered_model rm ON rm.id = mv.model_id
		WHERE mv.model_id = $1 AND mv.status = 'READY'
		ORDER BY mv.version DESC
		LIMIT 1
	`

	version, err := scanVersion(r.pool.QueryRow(ctx, query, modelID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNoReadyVersion
		}
		return nil, fmt.Errorf("get latest ready model version: %w", err)
	}
	return version, nil
}

func (r *versionRepo) NextNumber(ctx context.Context, modelID uuid.UUID) (int, error) {
	query := `SELECT COALESCE(MAX(version), 0) + 1 FROM model_version WHERE model_id = $1`

	var next int
	if err := r.pool.QueryRow(ctx, query, modelID).Scan(&next); err != nil {
		return 0, fmt.Errorf("allocate next version number: %w", err)
	}
	return next, nil
}

func (r *versionRepo) Update(ctx context.Context, version *domain.ModelVersion) error {
	metricsJSON, err := json.Marshal(version.Metrics)
	if err != nil {
		return fmt.Errorf("marshal metrics: %w", err)
	}
	paramsJSON, err := json.Marshal(version.Params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}
	refs := version.FeatureRefs
	if refs == nil {
		refs = []string{}
	}
	refsJSON, err := json.Marshal(refs)
	if err != nil {
		return fmt.Errorf("marshal feature refs: %w", err)
	}

	query := `
		UPDATE model_version
		SET run_id = $1, artifact_uri = $2, status = $3, metrics = $4,
			params = $5, feature_refs = $6, label_column = $7, updated_at = NOW()
		WHERE id = $8
	`

	result, err := r.pool.Exec(ctx, query,
		version.RunID, version.ArtifactURI, string(version.Status), metricsJSON,
		paramsJSON, refsJSON, version.LabelColumn, version.ID,
	)
	if err != nil {
		return fmt.Errorf("update model version: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrVersionNotFound
	}
	return nil
}

func (r *versionRepo) ListByModel(ctx context.Context, modelID uuid.UUID) ([]*domain.ModelVersion, error) {
	query := `
		SELECT mv.id, mv.created_at, mv.updated_at, mv.model_id, mv.version,
			   mv.run_id, mv.artifact_uri, mv.framework, mv.status,
			   mv.metrics, mv.params, mv.feature_refs, mv.label_column,
			   rm.name AS model_name
		FROM model_version mv
		JOIN registered_model rm ON rm.id = mv.model_id
		WHERE mv.model_id = $1
		ORDER BY mv.version DESC
	`

	rows, err := r.pool.Query(ctx, query, modelID)
	if err != nil {
		return nil, fmt.Errorf("list model versions: %w", err)
	}
	defer rows.Close()

	var versions []*domain.ModelVersion
	for rows.Next() {
		version, err := scanVersionFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan model version row: %w", err)
		}
		versions = append(versions, version)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model version rows: %w", err)
	}

	return versions, nil
}

func scanVersion(row pgx.Row) (*domain.ModelVersion, error) {
	v := &domain.ModelVersion{}
	var status string
	var metricsJSON, paramsJSON, refsJSON []byte
	err := row.Scan(
		&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.ModelID, &v.Version,
		&v.RunID, &v.ArtifactURI, &v.Framework, &status,
		&metricsJSON, &paramsJSON, &refsJSON, &v.LabelColumn,
		&v.ModelName,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalVersion(v, status, metricsJSON, paramsJSON, refsJSON)
}

func scanVersionFromRows(rows pgx.Rows) (*domain.ModelVersion, error) {
	v := &domain.ModelVersion{}
	var status string
	var metricsJSON, paramsJSON, refsJSON []byte
	err := rows.Scan(
		&v.ID, &v.CreatedAt, &v.UpdatedAt, &v.ModelID, &v.Version,
		&v.RunID, &v.ArtifactURI, &v.Framework, &status,
		&metricsJSON, &paramsJSON, &refsJSON, &v.LabelColumn,
		&v.ModelName,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalVersion(v, status, metricsJSON, paramsJSON, refsJSON)
}

func unmarshalVersion(v *domain.ModelVersion, status string, metricsJSON, paramsJSON, refsJSON []byte) (*domain.ModelVersion, error) {
	v.Status = domain.VersionStatus(status)
	if len(metricsJSON) > 0 {
		if err := json.Unmarshal(metricsJSON, &v.Metrics); err != nil {
			return nil, fmt.Errorf("unmarshal metrics: %w", err)
		}
	}
	if len(paramsJSON) > 0 {
		if err := json.Unmarshal(paramsJSON, &v.Params); err != nil {
			return nil, fmt.Errorf("unmarshal params: %w", err)
		}
	}
	if len(refsJSON) > 0 {
		if err := json.Unmarshal(refsJSON, &v.FeatureRefs); err != nil {
			return nil, fmt.Errorf("unmarshal feature refs: %w", err)
		}
	}
	return v, nil
}
