// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/taibuivan/kanko/internal/platform/apperr"
)

// MemoryStore is the in-process [Store] used with STORE_DRIVER=memory and in tests.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]Code
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]Code)}
}

// Register implements [Store].
func (store *MemoryStore) Register(ctx context.Context, code *Code) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.codes[code.Code]; exists {
		return apperr.Conflict(fmt.Sprintf("Code %s is already registered", code.Code))
	}
	store.codes[code.Code] = *code
	return nil
}

// Redeem implements [Store].
func (store *MemoryStore) Redeem(ctx context.Context, code string, order *string, at time.Time) (*Code, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, exists := store.codes[code]
	if !exists {
		return nil, apperr.NotFound("Credit code")
	}
	if current.State == StateUsed {
		return nil, apperr.DuplicateCodeRedemption(code)
	}

	usedAt := at
	current.State = StateUsed
	current.UsedAt = &usedAt
	if order != nil {
		linked := *order
		current.LinkedOrder = &linked
	}
	store.codes[code] = current

	return &current, nil
}

// Find implements [Store].
func (store *MemoryStore) Find(ctx context.Context, code string) (*Code, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, exists := store.codes[code]
	if !exists {
		return nil, apperr.NotFound("Credit code")
	}
	return &current, nil
}
