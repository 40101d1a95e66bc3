// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/database/schema"
	"github.com/taibuivan/kanko/internal/platform/dberr"
)

// PostgresStore keeps credit codes in kanko.creditcode.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore returns a [Store] backed by pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var codeColumns = strings.Join(schema.KankoCreditCode.Columns(), ", ")

// Register implements [Store].
func (store *PostgresStore) Register(ctx context.Context, code *Code) error {
	query := fmt.Sprintf(`INSERT INTO %s (%s) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		schema.KankoCreditCode.Table, codeColumns)

	_, err := store.pool.Exec(ctx, query,
		code.Code, code.Quantity, code.Kind, code.State, code.UsedAt, code.LinkedOrder, code.CreatedAt)

	if dberr.IsUniqueViolation(err, "") {
		return apperr.Conflict(fmt.Sprintf("Code %s is already registered", code.Code))
	}
	return dberr.Wrap(err, "register_code")
}

/*
Redeem implements [Store].

Description: The state guard lives in the WHERE clause, so two concurrent
redemptions of the same code cannot both update the row. When nothing was
updated, a follow-up read tells an unknown code from a used one.
*/
func (store *PostgresStore) Redeem(ctx context.Context, code string, order *string, at time.Time) (*Code, error) {
	query := fmt.Sprintf(`
		UPDATE %s
		SET %s = $2, %s = $3, %s = COALESCE($4, %s)
		WHERE %s = $1 AND %s = $5
		RETURNING %s
	`,
		schema.KankoCreditCode.Table,
		schema.KankoCreditCode.State, schema.KankoCreditCode.UsedAt,
		schema.KankoCreditCode.LinkedOrder, schema.KankoCreditCode.LinkedOrder,
		schema.KankoCreditCode.Code, schema.KankoCreditCode.State,
		codeColumns,
	)

	redeemed, err := scanCode(store.pool.QueryRow(ctx, query, code, StateUsed, at, order, StateUnused))
	if err == nil {
		return redeemed, nil
	}
	if !dberr.IsNoRows(err) {
		return nil, dberr.Wrap(err, "redeem_code")
	}

	if _, err := store.Find(ctx, code); err != nil {
		return nil, err
	}
	return nil, apperr.DuplicateCodeRedemption(code)
}

// Find implements [Store].
func (store *PostgresStore) Find(ctx context.Context, code string) (*Code, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		codeColumns, schema.KankoCreditCode.Table, schema.KankoCreditCode.Code)

	found, err := scanCode(store.pool.QueryRow(ctx, query, code))
	if dberr.IsNoRows(err) {
		return nil, apperr.NotFound("Credit code")
	}
	if err != nil {
		return nil, dberr.Wrap(err, "find_code")
	}
	return found, nil
}

func scanCode(row pgx.Row) (*Code, error) {
	code := &Code{}
	err := row.Scan(&code.Code, &code.Quantity, &code.Kind, &code.State, &code.UsedAt, &code.LinkedOrder, &code.CreatedAt)
	if err != nil {
		return nil, err
	}
	return code, nil
}
