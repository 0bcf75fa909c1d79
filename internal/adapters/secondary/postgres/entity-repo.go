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

type entityRepo struct {
	pool *pgxpool.Pool
}

// NewEntityRepository creates a new EntityRepository
func NewEntityRepository(pool *pgxpool.Pool) output.EntityRepository {
	return &entityRepo{pool: pool}
}

func (r *entityRepo) Create(ctx context.Context, entity *domain.Entity) error {
	labelsJSON, err := json.Marshal(entity.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO fs_entity
			(id, created_at, updated_at, project, name, join_key, value_type, description, labels)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err = r.pool.Exec(ctx, query,
		entity.ID, entity.CreatedAt, entity.UpdatedAt,
		entity.Project, entity.Name, entity.JoinKey, string(entity.ValueType),
		entity.Description, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrEntityNameConflict
		}
		return fmt.Errorf("create entity: %w", err)
	}
	return nil
}

func (r *entityRepo) GetByName(ctx context.Context, project, name string) (*domain.Entity, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, join_key, value_type, description, labels
		FROM fs_entity
		WHERE project = $1 AND name = $2
	`

	entity, err := scanEntity(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrEntityNotFound
		}
		return nil, fmt.Errorf("get entity by name: %w", err)
	}
	return entity, nil
}

func (r *entityRepo) Update(ctx context.Context, entity *domain.Entity) error {
	labelsJSON, err := json.Marshal(entity.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		UPDATE fs_entity
		SET join_key = $1, value_type = $2, description = $3, labels = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.pool.Exec(ctx, query,
		entity.JoinKey, string(entity.ValueType), entity.Description, labelsJSON,
		entity.ID,
	)
	if err != nil {
		return fmt.Errorf("update entity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (r *entityRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM fs_entity WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete entity: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrEntityNotFound
	}
	return nil
}

func (r *entityRepo) List(ctx context.Context, filter output.RegistryFilter) ([]*domain.Entity, int, error) {
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fs_entity WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count entities: %w", err)
	}

	// Order
	orderBy := "created_at DESC"
	if filter.SortBy != "" {
		dir := "DESC"
		if filter.Order == "asc" {
			dir = "ASC"
		}
		orderBy = fmt.Sprintf("%s %s", filter.SortBy, dir)
	}

	query := fmt.Sprintf(`
		SELECT id, created_at, updated_at, project, name, join_key, value_type, description, labels
		FROM fs_entity
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list entities: %w", err)
	}
	defer rows.Close()

	var entities []*domain.Entity
	for rows.Next() {
		entity, err := scanEntityFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan entity row: %w", err)
		}
		entities = append(entities, entity)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate entity rows: %w", err)
	}

	return entities, total, nil
}

func scanEntity(row pgx.Row) (*domain.Entity, error) {
	e := &domain.Entity{}
	var valueType string
	var labelsJSON []byte
	err := row.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt,
		&e.Project, &e.Name, &e.JoinKey, &valueType, &e.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	e.ValueType = domain.ValueType(valueType)
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &e.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return e, nil
}

func scanEntityFromRows(rows pgx.Rows) (*domain.Entity, error) {
	e := &domain.Entity{}
	var valueType string
	var labelsJSON []byte
	err := rows.Scan(
		&e.ID, &e.CreatedAt, &e.UpdatedAt,
		&e.Project, &e.Name, &e.JoinKey, &valueType, &e.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	e.ValueType = domain.ValueType(valueType)
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &e.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return e, nil
}
