package store

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"qtumor/internal/jobs"
)

// Memory is a bounded in-process HandleStore. When full, the least
// recently used handle is evicted; pollers then fall back to a remote
// lookup by id. It is the only store that keeps live remote job handles.
type Memory struct {
	// mu serializes read-modify-write on entries; the cache itself is
	// already safe for concurrent use.
	mu    sync.Mutex
	cache *lru.Cache[string, *jobs.Record]
}

// NewMemory creates a Memory store holding at most size handles.
func NewMemory(size int) (*Memory, error) {
	cache, err := lru.New[string, *jobs.Record](size)
	if err != nil {
		return nil, err
	}
	return &Memory{cache: cache}, nil
}

func (m *Memory) Put(_ context.Context, h jobs.Handle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.cache.Add(h.ID, &jobs.Record{Handle: h, Status: jobs.StatusPending, UpdatedAt: time.Now().UTC()})
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (jobs.Handle, bool, error) {
	rec, ok := m.cache.Get(id)
	if !ok {
		return jobs.Handle{}, false, nil
	}
	return rec.Handle, true, nil
}

func (m *Memory) Delete(_ context.Context, id string) error {
	if !m.cache.Remove(id) {
		return jobs.ErrHandleNotFound
	}
	return nil
}

// Len reports the number of handles held.
func (m *Memory) Len() int {
	return m.cache.Len()
}

func (m *Memory) RecordResult(_ context.Context, id string, status jobs.Status, result json.RawMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.cache.Peek(id)
	if !ok {
		return nil
	}
	updated := *rec
	updated.Status = status
	updated.Result = append(json.RawMessage(nil), result...)
	updated.UpdatedAt = time.Now().UTC()
	m.cache.Add(id, &updated)
	return nil
}

func (m *Memory) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range m.cache.Keys() {
		rec, ok := m.cache.Peek(id)
		if ok && rec.SubmittedAt.Before(before) {
			m.cache.Remove(id)
			n++
		}
	}
	return n, nil
}

// List returns records most recently used first. Live job handles are
// not included.
func (m *Memory) List(_ context.Context, limit, offset int) ([]jobs.Record, error) {
	keys := m.cache.Keys()
	out := make([]jobs.Record, 0, limit)
	skipped := 0
	for i := len(keys) - 1; i >= 0 && len(out) < limit; i-- {
		rec, ok := m.cache.Peek(keys[i])
		if !ok {
			continue
		}
		if skipped < offset {
			skipped++
			continue
		}
		r := *rec
		r.Job = nil
		out = append(out, r)
	}
	return out, nil
}
