// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package series

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/taibuivan/kanko/internal/platform/apperr"
)

// MemoryStore is the in-process [Store] used with STORE_DRIVER=memory and in tests.
type MemoryStore struct {
	mu     sync.Mutex
	series map[string]Series
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{series: make(map[string]Series)}
}

// FindActive implements [Store].
func (store *MemoryStore) FindActive(ctx context.Context, name string) (*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if found, ok := store.activeLocked(name); ok {
		return &found, nil
	}
	return nil, apperr.SeriesNotFound(name)
}

// Create implements [Store].
func (store *MemoryStore) Create(ctx context.Context, series *Series) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if series.Status == StatusActive {
		if _, exists := store.activeLocked(series.Name); exists {
			return apperr.Conflict(fmt.Sprintf("Series %q is already active", series.Name))
		}
	}
	store.series[series.ID] = *series
	return nil
}

// SetStatus implements [Store].
func (store *MemoryStore) SetStatus(ctx context.Context, id string, status Status) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	item, ok := store.series[id]
	if !ok {
		return apperr.NotFound("Series")
	}
	item.Status = status
	store.series[id] = item
	return nil
}

// UpdateIssueCount implements [Store].
func (store *MemoryStore) UpdateIssueCount(ctx context.Context, name string, count int) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	item, ok := store.activeLocked(name)
	if !ok {
		return apperr.SeriesNotFound(name)
	}
	if count > item.IssueCount {
		item.IssueCount = count
		store.series[item.ID] = item
	}
	return nil
}

// List implements [Store].
func (store *MemoryStore) List(ctx context.Context, limit, offset int) ([]*Series, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}

	store.mu.Lock()
	all := store.sortedLocked(func(a, b Series) bool {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	}, false)
	store.mu.Unlock()

	total := len(all)
	if offset >= total {
		return []*Series{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

// ListActive implements [Store].
func (store *MemoryStore) ListActive(ctx context.Context) ([]*Series, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	return store.sortedLocked(func(a, b Series) bool { return a.Name < b.Name }, true), nil
}

func (store *MemoryStore) activeLocked(name string) (Series, bool) {
	for _, item := range store.series {
		if item.Name == name && item.Status == StatusActive {
			return item, true
		}
	}
	return Series{}, false
}

func (store *MemoryStore) sortedLocked(less func(a, b Series) bool, activeOnly bool) []*Series {
	list := make([]*Series, 0, len(store.series))
	for _, item := range store.series {
		if activeOnly && item.Status != StatusActive {
			continue
		}
		copied := item
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return less(*list[i], *list[j]) })
	return list
}
