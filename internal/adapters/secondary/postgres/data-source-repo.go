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

type dataSourceRepo struct {
	pool *pgxpool.Pool
}

// NewDataSourceRepository creates a new DataSourceRepository
func NewDataSourceRepository(pool *pgxpool.Pool) output.DataSourceRepository {
	return &dataSourceRepo{pool: pool}
}

func (r *dataSourceRepo) Create(ctx context.Context, source *domain.DataSource) error {
	mappingJSON, err := json.Marshal(source.FieldMapping)
	if err != nil {
		return fmt.Errorf("marshal field mapping: %w", err)
	}
	labelsJSON, err := json.Marshal(source.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		INSERT INTO fs_data_source
			(id, created_at, updated_at, project, name, table_ref, query,
			 event_timestamp_column, created_timestamp_column, date_partition_column,
			 field_mapping, description, labels)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`

	_, err = r.pool.Exec(ctx, query,
		source.ID, source.CreatedAt, source.UpdatedAt,
		source.Project, source.Name, source.TableRef, source.Query,
		source.EventTimestampColumn, source.CreatedTimestampColumn, source.DatePartitionColumn,
		mappingJSON, source.Description, labelsJSON,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return domain.ErrSourceNameConflict
		}
		return fmt.Errorf("create data source: %w", err)
	}
	return nil
}

func (r *dataSourceRepo) GetByName(ctx context.Context, project, name string) (*domain.DataSource, error) {
	query := `
		SELECT id, created_at, updated_at, project, name, table_ref, query,
			   event_timestamp_column, created_timestamp_column, date_partition_column,
			   field_mapping, description, labels
		FROM fs_data_source
		WHERE project = $1 AND name = $2
	`

	source, err := scanSource(r.pool.QueryRow(ctx, query, project, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrDataSourceNotFound
		}
		return nil, fmt.Errorf("get data source by name: %w", err)
	}
	return source, nil
}

func (r *dataSourceRepo) Update(ctx context.Context, source *domain.DataSource) error {
	mappingJSON, err := json.Marshal(source.FieldMapping)
	if err != nil {
		return fmt.Errorf("marshal field mapping: %w", err)
	}
	labelsJSON, err := json.Marshal(source.Labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	query := `
		UPDATE fs_data_source
		SET table_ref = $1, query = $2, event_timestamp_column = $3,
			created_timestamp_column = $4, date_partition_column = $5,
			field_mapping = $6, description = $7, labels = $8, updated_at = NOW()
		WHERE id = $9
	`

	result, err := r.pool.Exec(ctx, query,
		source.TableRef, source.Query, source.EventTimestampColumn,
		source.CreatedTimestampColumn, source.DatePartitionColumn,
		mappingJSON, source.Description, labelsJSON,
		source.ID,
	)
	if err != nil {
		return fmt.Errorf("update data source: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDataSourceNotFound
	}
	return nil
}

func (r *dataSourceRepo) Delete(ctx context.Context, project, name string) error {
	query := `DELETE FROM fs_data_source WHERE project = $1 AND name = $2`

	result, err := r.pool.Exec(ctx, query, project, name)
	if err != nil {
		return fmt.Errorf("delete data source: %w", err)
	}
	if result.RowsAffected() == 0 {
		return domain.ErrDataSourceNotFound
	}
	return nil
}

func (r *dataSourceRepo) List(ctx context.Context, filter output.RegistryFilter) ([]*domain.DataSource, int, error) {
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
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM fs_data_source WHERE %s", whereClause)
	var total int
	if err := r.pool.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count data sources: %w", err)
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
		SELECT id, created_at, updated_at, project, name, table_ref, query,
			   event_timestamp_column, created_timestamp_column, date_partition_column,
			   field_mapping, description, labels
		FROM fs_data_source
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d
	`, whereClause, orderBy, argPos, argPos+1)

	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list data sources: %w", err)
	}
	defer rows.Close()

	var sources []*domain.DataSource
	for rows.Next() {
		source, err := scanSourceFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan data source row: %w", err)
		}
		sources = append(sources, source)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate data source rows: %w", err)
	}

	return sources, total, nil
}

func scanSource(row pgx.Row) (*domain.DataSource, error) {
	s := &domain.DataSource{}
	var mappingJSON, labelsJSON []byte
	err := row.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
		&s.Project, &s.Name, &s.TableRef, &s.Query,
		&s.EventTimestampColumn, &s.CreatedTimestampColumn, &s.DatePartitionColumn,
		&mappingJSON, &s.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &s.FieldMapping); err != nil {
			return nil, fmt.Errorf("unmarshal field mapping: %w", err)
		}
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &s.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return s, nil
}

func scanSourceFromRows(rows pgx.Rows) (*domain.DataSource, error) {
	s := &domain.DataSource{}
	var mappingJSON, labelsJSON []byte
	err := rows.Scan(
		&s.ID, &s.CreatedAt, &s.UpdatedAt,
		&s.Project, &s.Name, &s.TableRef, &s.Query,
		&s.EventTimestampColumn, &s.CreatedTimestampColumn, &s.DatePartitionColumn,
		&mappingJSON, &s.Description, &labelsJSON,
	)
	if err != nil {
		return nil, err
	}
	if len(mappingJSON) > 0 {
		if err := json.Unmarshal(mappingJSON, &s.FieldMapping); err != nil {
			return nil, fmt.Errorf("unmarshal field mapping: %w", err)
		}
	}
	if len(labelsJSON) > 0 {
		if err := json.Unmarshal(labelsJSON, &s.Labels); err != nil {
			return nil, fmt.Errorf("unmarshal labels: %w", err)
		}
	}
	return s, nil
}
