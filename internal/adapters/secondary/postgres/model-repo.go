package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type modelRepo struct {
	pool *pgxpool.Pool
}

// NewModelRepository creates a new ModelRepository
func NewModelRepository(pool *pgxpool.Pool) output.ModelRepository {
	return &modelRepo{pool: pool}
}

func (r *modelRepo) Create(ctx context.Context, model *domain.RegisteredModel) error {
	labelsJSON, err := json.Marshal(model.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO registered_model
			(id, created_at, updated_at, project, name, description, labels)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		model.ID, model.CreatedAt, model.UpdatedAt,
		model.Project, model.Name, model.Description, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrModelNameConflict
		}
		return fmt.Errorf("create registered model: %w", err)
	}
	return nil
}

func (r *modelRepo) GetByName(ctx context.Context, project, name string) (*domain.RegisteredModel, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, description, labels
		FROM registered_model
		WHERE project = $1 AND name = $2
	`

	model, err := scanModel(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrModelNotFound
		}
		return nil, fmt.Errorf("get registered model by name: %w", err)
	}
	return model, nil
}

func (r *modelRepo) Update(ctx context.Context, model *domain.RegisteredModel) error {
	labelsJSON, err := json.Marshal(model.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		UPDATE registered_model
		SET description = $1, labels = $2, updated_at = NOW()
		WHERE id = $3
	`

	result, err := r.pool.Exec(ctx, query, model.Description, labelsJSON, model.ID)
	if err != nil {
		return fmt.Errorf("update registered model: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrModelNotFound
	}
	return nil
}

func (r *modelRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM registered_model WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete registered model: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrModelNotFound
	}
	return nil
}

func (r *modelRepo) List(ctx context.Context, filter output.ModelFilter) ([]*domain.RegisteredModel, int, error) {
	conditions := []string{"project = $1"}
	args := []interface{}{filter.Project}
	argPos := 2

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM registered_model WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count registered models: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, project, name, description, labels
		FROM registered_model
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, whereClause, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registered models: %w", err)
	}
	defer rows.Close()

	var models []*domain.RegisteredModel
	for rows.Next() {
		model, err := scanModelFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan registered model row: %w", err)
		}
		models = append(models, model)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate registered model rows: %w", err)
	}

	return models, total, nil
}

func scanModel(row pgx.Row) (*domain.RegisteredModel, error) {
	m := &domain.RegisteredModel{}
	var labelsJSON []byte
	err := row.Scan(
		&m.ID, &m.CreatedAt, &m.UpdatedAt,
		&m.Project, &m.Name, &m.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return m, nil
}

func scanModelFromRows(rows pgx.Rows) (*domain.RegisteredModel, error) {
	m := &domain.RegisteredModel{}
	var labelsJSON []byte
	err := rows.Scan(
		&m.ID, &m.CreatedAt, &m.UpdatedAt,
		&m.Project, &m.Name, &m.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &m.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return m, nil
}
