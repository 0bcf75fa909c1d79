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

type featureServiceRepo struct {
	pool *pgxpool.Pool
}

// NewFeatureServiceRepository creates a new FeatureServiceRepository
func NewFeatureServiceRepository(pool *pgxpool.Pool) output.FeatureServiceRepository {
	return &featureServiceRepo{pool: pool}
}

func (r *featureServiceRepo) Create(ctx context.Context, service *domain.FeatureService) error {
	projectionsJSON, err := json.Marshal(service.Projections)
	if err != nil {
		return fmt.Errorf("marshal projections: %w", err)
	}
	labelsJSON, err := json.Marshal(service.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO fs_feature_service
			(id, created_at, updated_at, project, name, projections, description, labels)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err = r.pool.Exec(ctx, query,
		service.ID, service.CreatedAt, service.UpdatedAt,
		service.Project, service.Name, projectionsJSON, service.Description, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrServiceNameConflict
		}
		return fmt.Errorf("create feature service: %w", err)
	}
	return nil
}

func (r *featureServiceRepo) GetByName(ctx context.Context, project, name string) (*domain.FeatureService, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, projections, description, labels
		FROM fs_feature_service
		WHERE project = $1 AND name = $2
	`

	service, err := scanService(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeatureServiceNotFound
		}
		return nil, fmt.Errorf("get feature service by name: %w", err)
	}
	return service, nil
}

func (r *featureServiceRepo) Update(ctx context.Context, service *domain.FeatureService) error {
	projectionsJSON, err := json.Marshal(service.Projections)
	if err != nil {
		return fmt.Errorf("marshal projections: %w", err)
	}
	labelsJSON, err := json.Marshal(service.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		UPDATE fs_feature_service
		SET projections = $1, description = $2, labels = $3, updated_at = NOW()
		WHERE id = $4
	`

	result, err := r.pool.Exec(ctx, query,
		projectionsJSON, service.Description, labelsJSON, service.ID,
	)
	if err != nil {
		return fmt.Errorf("update feature service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFeatureServiceNotFound
	}
	return nil
}

func (r *featureServiceRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM fs_feature_service WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete feature service: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFeatureServiceNotFound
	}
	return nil
}

func (r *featureServiceRepo) List(ctx context.Context, filter output.RegistryFilter) ([]*domain.FeatureService, int, error) {
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fs_feature_service WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feature services: %w", err)
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
		SELECT id, created_at, updated_at, project, name, projections, description, labels
		FROM fs_feature_service
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feature services: %w", err)
	}
	defer rows.Close()

	var services []*domain.FeatureService
	for rows.Next() {
		service, err := scanServiceFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan feature service row: %w", err)
		}
		services = append(services, service)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate feature service rows: %w", err)
	}

	return services, total, nil
}

func scanService(row pgx.Row) (*domain.FeatureService, error) {
	s := &domain.FeatureService{}
	var projectionsJSON, labelsJSON []byte
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
		&s.Project, &s.Name, &projectionsJSON, &s.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(projectionsJSON, &s.Projections); err != nil {
		return nil, fmt.Errorf("unmarshal projections: %w", err)
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &s.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return s, nil
}

func scanServiceFromRows(rows pgx.Rows) (*domain.FeatureService, error) {
	s := &domain.FeatureService{}
	var projectionsJSON, labelsJSON []byte
	err := rows.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
		&s.Project, &s.Name, &projectionsJSON, &s.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(projectionsJSON, &s.Projections); err != nil {
		return nil, fmt.Errorf("unmarshal projections: %w", err)
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &s.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return s, nil
}
