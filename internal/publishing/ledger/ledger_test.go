// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/kanko/internal/platform/apperr"
	"github.com/taibuivan/kanko/internal/publishing/ledger"
)

func newService(t *testing.T, store ledger.Store) *ledger.Service {
	t.Helper()

	generator, err := ledger.NewGenerator()
	require.NoError(t, err)

	return ledger.NewService(store, generator, nil, slog.New(slog.NewJSONHandler(io.Discard, nil)))
}

func TestRegister_GeneratesStructuredToken(t *testing.T) {
	service := newService(t, ledger.NewMemoryStore())

	code, err := service.Register(context.Background(), ledger.RegisterInput{Kind: ledger.KindMultiQR, Quantity: 10})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(code.Code, "MQ-"))
	assert.Equal(t, ledger.StateUnused, code.State)
	assert.Nil(t, code.UsedAt)

	generator, err := ledger.NewGenerator()
	require.NoError(t, err)

	token, ok := generator.Decode(code.Code)
	require.True(t, ok)
	assert.Equal(t, ledger.KindMultiQR, token.Kind)
	assert.Equal(t, 10, token.Quantity)
}

func TestRegister_Validation(t *testing.T) {
	service := newService(t, ledger.NewMemoryStore())

	tests := []struct {
		name  string
		input ledger.RegisterInput
	}{
		{"unknown_kind", ledger.RegisterInput{Kind: "voucher", Quantity: 1}},
		{"zero_quantity", ledger.RegisterInput{Kind: ledger.KindTokushu, Quantity: 0}},
		{"code_too_long", ledger.RegisterInput{Code: strings.Repeat("X", 65), Kind: ledger.KindTokushu, Quantity: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := service.Register(context.Background(), tt.input)
			appError := apperr.As(err)
			require.NotNil(t, appError)
			assert.Equal(t, http.StatusBadRequest, appError.HTTPStatus)
		})
	}
}

func TestRegister_DuplicateCode(t *testing.T) {
	service := newService(t, ledger.NewMemoryStore())
	input := ledger.RegisterInput{Code: "ORDER-77", Kind: ledger.KindTokushu, Quantity: 1}

	_, err := service.Register(context.Background(), input)
	require.NoError(t, err)

	_, err = service.Register(context.Background(), input)
	assert.True(t, apperr.HasCode(err, "CONFLICT"))
}

func TestActivate(t *testing.T) {
	service := newService(t, ledger.NewMemoryStore())
	ctx := context.Background()

	registered, err := service.Register(ctx, ledger.RegisterInput{Kind: ledger.KindTokushu, Quantity: 1})
	require.NoError(t, err)

	order := "order-1001"
	first, err := service.Activate(ctx, registered.Code, &order)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateUsed, first.State)
	require.NotNil(t, first.UsedAt)
	require.NotNil(t, first.LinkedOrder)
	assert.Equal(t, order, *first.LinkedOrder)

	other := "order-2002"
	_, err = service.Activate(ctx, registered.Code, &other)
	assert.True(t, apperr.HasCode(err, apperr.CodeDuplicateCodeRedemption))

	_, err = service.Activate(ctx, "MQ-UNKNOWN", nil)
	assert.True(t, apperr.HasCode(err, "NOT_FOUND"))
}

func TestActivate_SecondAttemptLeavesStateUnchanged(t *testing.T) {
	store := ledger.NewMemoryStore()
	service := newService(t, store)
	ctx := context.Background()

	registered, err := service.Register(ctx, ledger.RegisterInput{Code: "TK-FIXED", Kind: ledger.KindTokushu, Quantity: 1})
	require.NoError(t, err)

	_, err = service.Activate(ctx, registered.Code, nil)
	require.NoError(t, err)
	before, err := store.Find(ctx, registered.Code)
	require.NoError(t, err)

	order := "late-order"
	_, err = service.Activate(ctx, registered.Code, &order)
	require.Error(t, err)

	after, err := store.Find(ctx, registered.Code)
	require.NoError(t, err)
	assert.Equal(t, before.State, after.State)
	assert.Equal(t, *before.UsedAt, *after.UsedAt)
	assert.Nil(t, after.LinkedOrder)
}

func TestActivate_ConcurrentRedemptionsSucceedOnce(t *testing.T) {
	service := newService(t, ledger.NewMemoryStore())
	ctx := context.Background()

	registered, err := service.Register(ctx, ledger.RegisterInput{Kind: ledger.KindMultiQR, Quantity: 5})
	require.NoError(t, err)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := service.Activate(ctx, registered.Code, nil); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
}

func TestGenerator_DecodeRejectsForeignCodes(t *testing.T) {
	generator, err := ledger.NewGenerator()
	require.NoError(t, err)

	for _, code := range []string{"", "ORDER-77", "MQ", "TK-" + strings.Repeat("A", 3)} {
		_, ok := generator.Decode(code)
		assert.False(t, ok, code)
	}
}
