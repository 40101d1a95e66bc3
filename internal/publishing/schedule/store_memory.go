// Copyright (c) 2026 Kanko. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package schedule

import (
	"context"
	"sync"
)

// MemoryStore is the in-process [Store] used with STORE_DRIVER=memory and in tests.
type MemoryStore struct {
	mu        sync.Mutex
	schedules map[string]*Schedule
}

// NewMemoryStore returns an empty [MemoryStore].
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{schedules: make(map[string]*Schedule)}
}

// Init implements [Store].
func (store *MemoryStore) Init(ctx context.Context, schedule Schedule) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	if _, exists := store.schedules[schedule.SeriesID]; exists {
		return ErrSerialConflict
	}
	schedule.CurrentSerial = 0
	schedule.Issues = []Issue{}
	store.schedules[schedule.SeriesID] = &schedule
	return nil
}

// Load implements [Store].
func (store *MemoryStore) Load(ctx context.Context, seriesID string) (*Schedule, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.schedules[seriesID]
	if !ok {
		return nil, ErrNotFound
	}

	loaded := *current
	loaded.Issues = append([]Issue{}, current.Issues...)
	return &loaded, nil
}

// Append implements [Store].
func (store *MemoryStore) Append(ctx context.Context, seriesID string, expectedSerial int, issue Issue) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.schedules[seriesID]
	if !ok {
		return ErrNotFound
	}
	if current.CurrentSerial != expectedSerial || issue.Serial != expectedSerial+1 {
		return ErrSerialConflict
	}
	if current.FindBySourceRef(issue.SourceRef) != nil {
		return ErrSerialConflict
	}

	current.Issues = append(current.Issues, issue)
	current.CurrentSerial = issue.Serial
	return nil
}

// SetMergeRequest implements [Store].
func (store *MemoryStore) SetMergeRequest(ctx context.Context, seriesID string, serial int, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	store.mu.Lock()
	defer store.mu.Unlock()

	current, ok := store.schedules[seriesID]
	if !ok {
		return ErrNotFound
	}
	for i := range current.Issues {
		if current.Issues[i].Serial == serial {
			current.Issues[i].MergeRequestURL = url
			return nil
		}
	}
	return ErrNotFound
}
