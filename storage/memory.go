package storage

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
)

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	snapshots   map[string][]byte
	meta        map[string]SnapshotSummary
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.snapshots = make(map[string][]byte)
	s.meta = make(map[string]SnapshotSummary)
	return nil
}

// SaveSnapshot stores the encoded record so later mutation of the live
// simulation cannot leak into it.
func (s *MemoryStore) SaveSnapshot(_ context.Context, record SnapshotRecord) error {
	payload, err := EncodeSnapshotRecord(record)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.initialized {
		return errors.New("store is not initialized")
	}
	s.snapshots[record.ID] = payload
	s.meta[record.ID] = record.Summary()
	return nil
}

func (s *MemoryStore) GetSnapshot(_ context.Context, id string) (SnapshotRecord, bool, error) {
	s.mu.RLock()
	payload, ok := s.snapshots[id]
	s.mu.RUnlock()

	if !ok {
		return SnapshotRecord{}, false, nil
	}
	record, err := DecodeSnapshotRecord(payload)
	if err != nil {
		return SnapshotRecord{}, false, err
	}
	return record, true, nil
}

func (s *MemoryStore) LatestSnapshot(ctx context.Context, runID string) (SnapshotRecord, bool, error) {
	list, err := s.ListSnapshots(ctx, runID)
	if err != nil || len(list) == 0 {
		return SnapshotRecord{}, false, err
	}
	return s.GetSnapshot(ctx, list[len(list)-1].ID)
}

func (s *MemoryStore) ListSnapshots(_ context.Context, runID string) ([]SnapshotSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SnapshotSummary, 0, len(s.meta))
	for _, m := range s.meta {
		if runID == "" || m.RunID == runID {
			out = append(out, m)
		}
	}
	slices.SortFunc(out, func(a, b SnapshotSummary) int {
		if c := cmp.Compare(a.Tick, b.Tick); c != 0 {
			return c
		}
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) DeleteSnapshot(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.snapshots[id]; !ok {
		return fmt.Errorf("delete snapshot %s: %w", id, ErrNotFound)
	}
	delete(s.snapshots, id)
	delete(s.meta, id)
	return nil
}
