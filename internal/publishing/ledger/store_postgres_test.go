// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/platform/postgres/pgtest"
	"github.com/taibuivan/kanko/internal/publishing/ledger"
	"github.com/taibuivan/kanko/pkg/uuid"
)

func TestPostgresStore_RedeemOnce(t *testing.T) {
	store := ledger.NewPostgresStore(pgtest.Pool(t))
	ctx := context.Background()

	code := &ledger.Code{
		Code:      "IT-" + uuid.New(),
		Quantity:  3,
		Kind:      ledger.KindMultiQR,
		State:     ledger.StateUnused,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, store.Register(ctx, code))
	assert.True(t, apperr.HasCode(store.Register(ctx, code), "CONFLICT"))

	order := "order-it"
	redeemedAt := time.Now().UTC().Truncate(time.Microsecond)
	redeemed, err := store.Redeem(ctx, code.Code, &order, redeemedAt)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateUsed, redeemed.State)
	require.NotNil(t, redeemed.UsedAt)
	assert.True(t, redeemedAt.Equal(*redeemed.UsedAt))

	_, err = store.Redeem(ctx, code.Code, nil, time.Now())
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateCodeRedemption))

	after, err := store.Find(ctx, code.Code)
	require.NoError(t, err)
	assert.True(t, redeemedAt.Equal(*after.UsedAt))
	assert.Equal(t, order, *after.LinkedOrder)

	_, err = store.Redeem(ctx, "IT-missing-"+uuid.New(), nil, time.Now())
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}
