// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schedule

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/kanko/internal/platform/database/schema"
	"github.com/taibuivan/kanko/internal/platform/dberr"
	"github.com/taibuivan/kanko/pkg/uuid"
)

// PostgresStore keeps schedules in kanko.schedule and kanko.issue.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a [Store] backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Init implements [Store].
func (store *PostgresStore) Init(ctx context.Context, schedule Schedule) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, 0)`,
		schema.KankoSchedule.Table, strings.Join(schema.KankoSchedule.Columns(), ", "))

	_, err := store.pool.Exec(ctx, query,
		schedule.SeriesID, schedule.CadenceMonths, schedule.VolumeStartYear, schedule.VolumeDurationYears)
	return dberr.Wrap(err, "init_schedule")
}

// Load implements [Store].
func (store *PostgresStore) Load(ctx context.Context, seriesID string) (*Schedule, error) {
	headerQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.KankoSchedule.Columns(), ", "),
		schema.KankoSchedule.Table, schema.KankoSchedule.SeriesID)

	loaded := &Schedule{}
	err := store.pool.QueryRow(ctx, headerQuery, seriesID).Scan(
		&loaded.SeriesID, &loaded.CadenceMonths, &loaded.VolumeStartYear,
		&loaded.VolumeDurationYears, &loaded.CurrentSerial,
	)
	if dberr.IsNoRows(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, dberr.Wrap(err, "load_schedule")
	}

	issueQuery := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1 ORDER BY %s ASC`,
		strings.Join(schema.KankoIssue.Columns(), ", "),
		schema.KankoIssue.Table, schema.KankoIssue.SeriesID, schema.KankoIssue.Serial)

	rows, err := store.pool.Query(ctx, issueQuery, seriesID)
	if err != nil {
		return nil, dberr.Wrap(err, "load_issues")
	}
	defer rows.Close()

	loaded.Issues = []Issue{}
	for rows.Next() {
		var (
			issue Issue
			date  time.Time
		)
		if err := rows.Scan(
			&date, &issue.Serial, &issue.Volume, &issue.Number, &issue.Status, &issue.Filename,
			&issue.SourceRef, &issue.Title, &issue.CommitRef, &issue.MergeRequestURL,
		); err != nil {
			return nil, dberr.Wrap(err, "scan_issue")
		}
		issue.Date = date.Format(DateLayout)
		loaded.Issues = append(loaded.Issues, issue)
	}
	if err := rows.Err(); err != nil {
		return nil, dberr.Wrap(err, "load_issues")
	}

	return loaded, nil
}

// Append implements [Store].
func (store *PostgresStore) Append(ctx context.Context, seriesID string, expectedSerial int, issue Issue) error {
	if issue.Serial != expectedSerial+1 {
		return ErrSerialConflict
	}

	date, err := time.Parse(DateLayout, issue.Date)
	if err != nil {
		return fmt.Errorf("schedule: issue date %q: %w", issue.Date, err)
	}

	tx, err := store.pool.Begin(ctx)
	if err != nil {
		return dberr.Wrap(err, "begin_append")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// ── 1. Compare-and-swap the counter ──
	advance := fmt.Sprintf(`UPDATE %s SET %s = $3, %s = now() WHERE %s = $1 AND %s = $2`,
		schema.KankoSchedule.Table,
		schema.KankoSchedule.CurrentSerial, schema.KankoSchedule.UpdatedAt,
		schema.KankoSchedule.SeriesID, schema.KankoSchedule.CurrentSerial,
	)
	tag, err := tx.Exec(ctx, advance, seriesID, expectedSerial, issue.Serial)
	if err != nil {
		return dberr.Wrap(err, "advance_serial")
	}
	if tag.RowsAffected() == 0 {
		return store.missOrConflict(ctx, tx, seriesID)
	}

	// ── 2. Record the issue ──
	insert := fmt.Sprintf(`INSERT INTO %s (%s, %s, %s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		schema.KankoIssue.Table, schema.KankoIssue.ID, schema.KankoIssue.SeriesID,
		strings.Join(schema.KankoIssue.Columns(), ", "))

	_, err = tx.Exec(ctx, insert,
		uuid.New(), seriesID,
		date, issue.Serial, issue.Volume, issue.Number, issue.Status,
		issue.Filename, issue.SourceRef, issue.Title, issue.CommitRef, issue.MergeRequestURL,
	)
	if dberr.IsUniqueViolation(err, "") {
		return ErrSerialConflict
	}
	if err != nil {
		return dberr.Wrap(err, "insert_issue")
	}

	if err := tx.Commit(ctx); err != nil {
		return dberr.Wrap(err, "commit_append")
	}
	return nil
}

// missOrConflict tells a missing schedule from a moved counter.
func (store *PostgresStore) missOrConflict(ctx context.Context, tx pgx.Tx, seriesID string) error {
	query := fmt.Sprintf(`SELECT 1 FROM %s WHERE %s = $1`, schema.KankoSchedule.Table, schema.KankoSchedule.SeriesID)

	var one int
	err := tx.QueryRow(ctx, query, seriesID).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return dberr.Wrap(err, "check_schedule")
	}
	return ErrSerialConflict
}

// SetMergeRequest implements [Store].
func (store *PostgresStore) SetMergeRequest(ctx context.Context, seriesID string, serial int, url string) error {
	query := fmt.Sprintf(`UPDATE %s SET %s = $3 WHERE %s = $1 AND %s = $2`,
		schema.KankoIssue.Table, schema.KankoIssue.MergeRequestURL,
		schema.KankoIssue.SeriesID, schema.KankoIssue.Serial)

	tag, err := store.pool.Exec(ctx, query, seriesID, serial, url)
	if err != nil {
		return dberr.Wrap(err, "set_merge_request")
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
