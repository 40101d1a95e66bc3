// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/database/schema"
	"github.com/taibuivan/kanko/internal/platform/dberr"
)

// PostgresStore keeps series in kanko.series.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a [Store] backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var seriesColumns = strings.Join(schema.KankoSeries.Columns(), ", ")

// FindActive implements [Store].
func (store *PostgresStore) FindActive(ctx context.Context, name string) (*Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 AND %s = $2`,
		seriesColumns, schema.KankoSeries.Table, schema.KankoSeries.Name, schema.KankoSeries.Status)

	found, err := scanSeries(store.pool.QueryRow(ctx, query, name, StatusActive))
	if dberr.IsNoRows(err) {
		return nil, apperr.SeriesNotFound(name)
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_active_series")
	}
	return found, nil
}

// Create implements [Store].
func (store *PostgresStore) Create(ctx context.Context, series *Series) error {
	config, err := json.Marshal(series.Config)
	if err != nil {
		return apperr.Internal(fmt.Errorf("encode client config: %w", err))
	}

	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		schema.KankoSeries.Table, seriesColumns)

	_, err = store.pool.Exec(ctx, query,
		series.ID, series.Name, series.ClientID, series.RepoRef, series.PublicURL,
		series.Status, config, series.Note, series.IssueCount, series.CreatedAt,
	)
	if dberr.IsUniqueViolation(err, schema.KankoSeries.ActiveNameKey) {
		return apperr.Conflict(fmt.Sprintf("Series %q is already active", series.Name))
	}
	return dberr.Wrap(err, "create_series")
}

// SetStatus implements [Store].
func (store *PostgresStore) SetStatus(ctx context.Context, id string, status Status) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $2, %s = now() WHERE %s = $1`,
		schema.KankoSeries.Table, schema.KankoSeries.Status, schema.KankoSeries.UpdatedAt, schema.KankoSeries.ID)

	tag, err := store.pool.Exec(ctx, query, id, status)
	if err != nil {
		return dberr.Wrap(err, "set_series_status")
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("Series")
	}
	return nil
}

// UpdateIssueCount implements [Store].
func (store *PostgresStore) UpdateIssueCount(ctx context.Context, name string, count int) error {
	query := fmt.Sprintf(`
		UPDATE %s SET %s = GREATEST(%s, $2), %s = now()
		WHERE %s = $1 AND %s = $3
	`,
		schema.KankoSeries.Table,
		schema.KankoSeries.IssueCount, schema.KankoSeries.IssueCount, schema.KankoSeries.UpdatedAt,
		schema.KankoSeries.Name, schema.KankoSeries.Status,
	)

	tag, err := store.pool.Exec(ctx, query, name, count, StatusActive)
	if err != nil {
		return dberr.Wrap(err, "update_issue_count")
	}
	if tag.RowsAffected() == 0 {
		return apperr.SeriesNotFound(name)
	}
	return nil
}

// List implements [Store].
func (store *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Series, int, error) {
	var total int
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM %s`, schema.KankoSeries.Table)
	if err := store.pool.QueryRow(ctx, countQuery).Scan(&total); err != nil {
		return nil, 0, dberr.Wrap(err, "count_series")
	}

	query := fmt.Sprintf(`SELECT %s FROM %s ORDER BY %s DESC, %s ASC LIMIT $1 OFFSET $2`,
		seriesColumns, schema.KankoSeries.Table, schema.KankoSeries.CreatedAt, schema.KankoSeries.ID)

	rows, err := store.pool.Query(ctx, query, limit, offset)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_series")
	}

	list, err := collectSeries(rows)
	if err != nil {
		return nil, 0, dberr.Wrap(err, "list_series")
	}
	return list, total, nil
}

// ListActive implements [Store].
func (store *PostgresStore) ListActive(ctx context.Context) ([]*Series, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC`,
		seriesColumns, schema.KankoSeries.Table, schema.KankoSeries.Status, schema.KankoSeries.Name)

	rows, err := store.pool.Query(ctx, query, StatusActive)
	if err != nil {
		return nil, dberr.Wrap(err, "list_active_series")
	}

	list, err := collectSeries(rows)
	if err != nil {
		return nil, dberr.Wrap(err, "list_active_series")
	}
	return list, nil
}

func collectSeries(rows pgx.Rows) ([]*Series, error) {
	defer rows.Close()

	list := []*Series{}
	for rows.Next() {
		item, err := scanSeries(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

func scanSeries(row pgx.Row) (*Series, error) {
	var (
		item   Series
		config []byte
	)
	err := row.Scan(
		&item.ID, &item.Name, &item.ClientID, &item.RepoRef, &item.PublicURL,
		&item.Status, &config, &item.Note, &item.IssueCount, &item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(config, &item.Config); err != nil {
		return nil, fmt.Errorf("decode client config of %s: %w", item.ID, err)
	}
	return &item, nil
}
