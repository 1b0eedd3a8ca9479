package cache

import (
	"context"
	"sync"

	"stock_alerts/internal/feature/alert/usecase"
	"stock_alerts/internal/feature/indicator/domain/entity"
)

// MemorySnapshotStore はRedisがない環境でプロセス内に最新スナップショットを保持します。
type MemorySnapshotStore struct {
	mu    sync.RWMutex
	snaps map[string]entity.Snapshot
}

var _ usecase.SnapshotStore = (*MemorySnapshotStore)(nil)

// NewMemorySnapshotStore は MemorySnapshotStore を生成します。
func NewMemorySnapshotStore() *MemorySnapshotStore {
	return &MemorySnapshotStore{snaps: make(map[string]entity.Snapshot)}
}

// Put は最新スナップショットを上書きします。
func (s *MemorySnapshotStore) Put(_ context.Context, snap entity.Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snaps[snap.Symbol+"|"+snap.Interval] = snap
	return nil
}

// Get は最新スナップショットを返します。存在しなければ nil, nil を返します。
func (s *MemorySnapshotStore) Get(_ context.Context, symbol, interval string) (*entity.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.snaps[symbol+"|"+interval]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}
