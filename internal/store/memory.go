package store

import (
	"context"
	"fmt"
	"sync"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
)

// MemoryStore keeps registry state in process. Writers are serialized by
// a single mutex and their effects are applied only after fn succeeds.
type MemoryStore struct {
	mu       sync.RWMutex
	subs     map[uint64]domain.Subscription
	indexes  map[indexKey][]uint64
	counters domain.Counters
	settings *domain.Settings
	balances map[domain.Principal]uint64
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		subs:     make(map[uint64]domain.Subscription),
		indexes:  make(map[indexKey][]uint64),
		balances: make(map[domain.Principal]uint64),
	}
}

func (s *MemoryStore) Update(ctx context.Context, fn func(tx registry.Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	tx := newStagedTx(memorySnapshot{s}, false)
	if err := fn(tx); err != nil {
		return err
	}
	s.apply(tx)
	return nil
}

func (s *MemoryStore) View(ctx context.Context, fn func(tx registry.Tx) error) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(newStagedTx(memorySnapshot{s}, true))
}

// Deposit credits amount to p on the in-process ledger.
func (s *MemoryStore) Deposit(_ context.Context, p domain.Principal, amount uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if amount > domain.MaxAmount-s.balances[p] {
		return fmt.Errorf("depositing %d to %s: %w", amount, p, domain.ErrInvalidParameters)
	}
	s.balances[p] += amount
	return nil
}

func (s *MemoryStore) apply(tx *stagedTx) {
	for id, sub := range tx.subs {
		s.subs[id] = sub
	}
	for k, ids := range tx.indexes {
		s.indexes[k] = ids
	}
	if tx.counters != nil {
		s.counters = *tx.counters
	}
	if tx.settings != nil {
		settings := *tx.settings
		s.settings = &settings
	}
	for p, b := range tx.balances {
		s.balances[p] = b
	}
}

// memorySnapshot reads committed state; callers hold the store lock.
type memorySnapshot struct {
	s *MemoryStore
}

func (m memorySnapshot) loadSubscription(_ context.Context, id uint64) (domain.Subscription, bool, error) {
	sub, ok := m.s.subs[id]
	return sub, ok, nil
}

func (m memorySnapshot) loadIndex(_ context.Context, kind registry.IndexKind, key domain.Principal) ([]uint64, error) {
	ids := m.s.indexes[indexKey{kind, key}]
	return append([]uint64(nil), ids...), nil
}

func (m memorySnapshot) loadCounters(context.Context) (domain.Counters, error) {
	return m.s.counters, nil
}

func (m memorySnapshot) loadSettings(context.Context) (domain.Settings, bool, error) {
	if m.s.settings == nil {
		return domain.Settings{}, false, nil
	}
	return *m.s.settings, true, nil
}

func (m memorySnapshot) loadBalance(_ context.Context, p domain.Principal) (uint64, error) {
	return m.s.balances[p], nil
}
