package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"feature-store-service/internal/core/domain"
	output "feature-store-service/internal/core/ports/output"
)

type featureViewRepo struct {
	pool *pgxpool.Pool
}

// NewFeatureViewRepository creates a new FeatureViewRepository
func NewFeatureViewRepository(pool *pgxpool.Pool) output.FeatureViewRepository {
	return &featureViewRepo{pool: pool}
}

// viewJSON bundles the marshaled JSONB columns of a feature view
type viewJSON struct {
	entities  []byte
	features  []byte
	labels    []byte
	intervals []byte
}

func marshalView(view *domain.FeatureView) (viewJSON, error) {
	var vj viewJSON
	var err error
	if vj.entities, err = json.Marshal(view.Entities); err != nil {
		return vj, fmt.Errorf("marshal entities: %w", err)
	}
	if vj.features, err = json.Marshal(view.Features); err != nil {
		return vj, fmt.Errorf("marshal features: %w", err)
	}
	if vj.labels, err = json.Marshal(view.Labels); err != nil {
		return vj, fmt.Errorf("marshal labels: %w", err)
	}
	intervals := view.MaterializedIntervals
	if intervals == nil {
		intervals = []domain.Interval{}
	}
	if vj.intervals, err = json.Marshal(intervals); err != nil {
		return vj, fmt.Errorf("marshal materialized intervals: %w", err)
	}
	return vj, nil
}

func (r *featureViewRepo) Create(ctx context.Context, view *domain.FeatureView) error {
	vj, err := marshalView(view)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO fs_feature_view
			(id, created_at, updated_at, project, name, entities, features,
			 source_name, ttl_ns, online, description, labels, materialized_intervals)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		view.ID, view.CreatedAt, view.UpdatedAt,
		view.Project, view.Name, vj.entities, vj.features,
		view.SourceName, int64(view.TTL), view.Online,
		view.Description, vj.labels, vj.intervals,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrViewNameConflict
		}
		return fmt.Errorf("create feature view: %w", err)
	}
	return nil
}

func (r *featureViewRepo) GetByName(ctx context.Context, project, name string) (*domain.FeatureView, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, entities, features,
			   source_name, ttl_ns, online, description, labels, materialized_intervals
		FROM fs_feature_view
		WHERE project = $1 AND name = $2
	`

	view, err := scanView(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrFeatureViewNotFound
		}
		return nil, fmt.Errorf("get feature view by name: %w", err)
	}
	return view, nil
}

func (r *featureViewRepo) Update(ctx context.Context, view *domain.FeatureView) error {
	vj, err := marshalView(view)
	if err != nil {
		return err
	}

	query := `
		UPDATE fs_feature_view
		SET entities = $1, features = $2, source_name = $3, ttl_ns = $4,
			online = $5, description = $6, labels = $7,
			materialized_intervals = $8, updated_at = NOW()
		WHERE id = $9
	`

	result, err := r.pool.Exec(ctx, query,
		vj.entities, vj.features, view.SourceName, int64(view.TTL),
		view.Online, view.Description, vj.labels,
		vj.intervals, view.ID,
	)
	if err != nil {
		return fmt.Errorf("update feature view: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFeatureViewNotFound
	}
	return nil
}

func (r *featureViewRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM fs_feature_view WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete feature view: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrFeatureViewNotFound
	}
	return nil
}

func (r *featureViewRepo) List(ctx context.Context, filter output.RegistryFilter) ([]*domain.FeatureView, int, error) {
	conditions := []string{"project = $1"}
	args := []interface{}{filter.Project}
	argPos := 2

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("name ILIKE $%d", argPos))
		args = append(args, "%"+filter.Search+"%")
		argPos++
	}

	if filter.OnlineOnly {
		conditions = append(conditions, "online = TRUE")
	}

	whereClause := strings.Join(conditions, " AND ")

	// Count
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fs_feature_view WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count feature views: %w", err)
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
		SELECT id, created_at, updated_at, project, name, entities, features,
			   source_name, ttl_ns, online, description, labels, materialized_intervals
		FROM fs_feature_view
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list feature views: %w", err)
	}
	defer rows.Close()

	var views []*domain.FeatureView
	for rows.Next() {
		view, err := scanViewFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan feature view row: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate feature view rows: %w", err)
	}

	return views, total, nil
}

func (r *featureViewRepo) ListOnline(ctx context.Context, project string) ([]*domain.FeatureView, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, entities, features,
			   source_name, ttl_ns, online, description, labels, materialized_intervals
		FROM fs_feature_view
		WHERE project = $1 AND online
		ORDER BY name ASC
	`

	rows, err := r.pool.Query(ctx, query, project)
	if err != nil {
		return nil, fmt.Errorf("list online feature views: %w", err)
	}
	defer rows.Close()

	var views []*domain.FeatureView
	for rows.Next() {
		view, err := scanViewFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("scan feature view row: %w", err)
		}
		views = append(views, view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feature view rows: %w", err)
	}

	return views, nil
}

func scanView(row pgx.Row) (*domain.FeatureView, error) {
	v := &domain.FeatureView{}
	var ttlNS int64
	var entitiesJSON, featuresJSON, labelsJSON, intervalsJSON []byte
	err := row.Scan(
		&v.ID, &v.CreatedAt, &v.UpdatedAt,
		&v.Project, &v.Name, &entitiesJSON, &featuresJSON,
		&v.SourceName, &ttlNS, &v.Online, &v.Description, &labelsJSON, &intervalsJSON,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalView(v, ttlNS, entitiesJSON, featuresJSON, labelsJSON, intervalsJSON)
}

func scanViewFromRows(rows pgx.Rows) (*domain.FeatureView, error) {
	v := &domain.FeatureView{}
	var ttlNS int64
	var entitiesJSON, featuresJSON, labelsJSON, intervalsJSON []byte
	err := rows.Scan(
		&v.ID, &v.CreatedAt, &v.UpdatedAt,
		&v.Project, &v.Name, &entitiesJSON, &featuresJSON,
		&v.SourceName, &ttlNS, &v.Online, &v.Description, &labelsJSON, &intervalsJSON,
	)
	if err != nil {
		return nil, err
	}
	return unmarshalView(v, ttlNS, entitiesJSON, featuresJSON, labelsJSON, intervalsJSON)
}

func unmarshalView(v *domain.FeatureView, ttlNS int64, entitiesJSON, featuresJSON, labelsJSON, intervalsJSON []byte) (*domain.FeatureView, error) {
	v.TTL = time.Duration(ttlNS)
	if err := json.Unmarshal(entitiesJSON, &v.Entities); err != nil {
		return nil, fmt.Errorf("unmarshal entities: %w", err)
	}
	if err := json.Unmarshal(featuresJSON, &v.Features); err != nil {
		return nil, fmt.Errorf("unmarshal features: %w", err)
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &v.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	if len(intervalsJSON) > 0 {
		if err := json.Unmarshal(intervalsJSON, &v.MaterializedIntervals); err != nil {
			return nil, fmt.Errorf("unmarshal materialized intervals: %w", err)
		}
	}
	return v, nil
}
