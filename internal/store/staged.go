package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
)

var errReadOnly = errors.New("write attempted in read-only transaction")

// snapshot is the committed state a staged transaction reads through to.
type snapshot interface {
	loadSubscription(ctx context.Context, id uint64) (domain.Subscription, bool, error)
	loadIndex(ctx context.Context, kind registry.IndexKind, key domain.Principal) ([]uint64, error)
	loadCounters(ctx context.Context) (domain.Counters, error)
	loadSettings(ctx context.Context) (domain.Settings, bool, error)
	loadBalance(ctx context.Context, p domain.Principal) (uint64, error)
}

type indexKey struct {
	kind registry.IndexKind
	key  domain.Principal
}

// stagedTx buffers writes on top of a snapshot. Nothing reaches the
// backend until the owning store applies the buffered changes.
type stagedTx struct {
	base     snapshot
	readOnly bool

	subs     map[uint64]domain.Subscription
	indexes  map[indexKey][]uint64
	counters *domain.Counters
	settings *domain.Settings
	balances map[domain.Principal]uint64
}

func newStagedTx(base snapshot, readOnly bool) *stagedTx {
	return &stagedTx{
		base:     base,
		readOnly: readOnly,
		subs:     make(map[uint64]domain.Subscription),
		indexes:  make(map[indexKey][]uint64),
		balances: make(map[domain.Principal]uint64),
	}
}

func (t *stagedTx) Subscription(ctx context.Context, id uint64) (domain.Subscription, error) {
	if sub, ok := t.subs[id]; ok {
		return sub, nil
	}
	sub, ok, err := t.base.loadSubscription(ctx, id)
	if err != nil {
		return domain.Subscription{}, fmt.Errorf("loading subscription %d: %w", id, err)
	}
	if !ok {
		return domain.Subscription{}, domain.ErrNotFound
	}
	return sub, nil
}

func (t *stagedTx) PutSubscription(_ context.Context, sub domain.Subscription) error {
	if t.readOnly {
		return errReadOnly
	}
	t.subs[sub.ID] = sub
	return nil
}

func (t *stagedTx) Index(ctx context.Context, kind registry.IndexKind, key domain.Principal) ([]uint64, error) {
	if ids, ok := t.indexes[indexKey{kind, key}]; ok {
		return append([]uint64(nil), ids...), nil
	}
	ids, err := t.base.loadIndex(ctx, kind, key)
	if err != nil {
		return nil, fmt.Errorf("loading %s index: %w", kind, err)
	}
	return ids, nil
}

func (t *stagedTx) AppendIndex(ctx context.Context, kind registry.IndexKind, key domain.Principal, id uint64) error {
	if t.readOnly {
		return errReadOnly
	}
	ids, err := t.Index(ctx, kind, key)
	if err != nil {
		return err
	}
	next, err := registry.AppendBounded(kind, ids, id)
	if err != nil {
		return err
	}
	t.indexes[indexKey{kind, key}] = next
	return nil
}

func (t *stagedTx) Counters(ctx context.Context) (domain.Counters, error) {
	if t.counters != nil {
		return *t.counters, nil
	}
	return t.base.loadCounters(ctx)
}

func (t *stagedTx) PutCounters(_ context.Context, c domain.Counters) error {
	if t.readOnly {
		return errReadOnly
	}
	t.counters = &c
	return nil
}

func (t *stagedTx) Settings(ctx context.Context) (domain.Settings, error) {
	if t.settings != nil {
		return *t.settings, nil
	}
	s, ok, err := t.base.loadSettings(ctx)
	if err != nil {
		return domain.Settings{}, fmt.Errorf("loading settings: %w", err)
	}
	if !ok {
		return domain.Settings{}, domain.ErrNotInitialized
	}
	return s, nil
}

func (t *stagedTx) PutSettings(_ context.Context, s domain.Settings) error {
	if t.readOnly {
		return errReadOnly
	}
	t.settings = &s
	return nil
}

func (t *stagedTx) Balance(ctx context.Context, p domain.Principal) (uint64, error) {
	if b, ok := t.balances[p]; ok {
		return b, nil
	}
	return t.base.loadBalance(ctx, p)
}

func (t *stagedTx) Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error {
	if t.readOnly {
		return errReadOnly
	}
	fromBalance, err := t.Balance(ctx, from)
	if err != nil {
		return fmt.Errorf("loading balance: %w", err)
	}
	if fromBalance < amount {
		return fmt.Errorf("%s holds %d, transfer needs %d: %w", from, fromBalance, amount, domain.ErrPaymentFailed)
	}
	if from == to || amount == 0 {
		return nil
	}
	toBalance, err := t.Balance(ctx, to)
	if err != nil {
		return fmt.Errorf("loading balance: %w", err)
	}
	if toBalance > domain.MaxAmount-amount {
		return fmt.Errorf("balance of %s would overflow: %w", to, domain.ErrPaymentFailed)
	}
	t.balances[from] = fromBalance - amount
	t.balances[to] = toBalance + amount
	return nil
}

func (t *stagedTx) Credit(ctx context.Context, p domain.Principal, amount uint64) error {
	if t.readOnly {
		return errReadOnly
	}
	b, err := t.Balance(ctx, p)
	if err != nil {
		return fmt.Errorf("loading balance: %w", err)
	}
	if b > domain.MaxAmount || amount > domain.MaxAmount-b {
		return fmt.Errorf("crediting %d to %s: %w", amount, p, domain.ErrInvalidParameters)
	}
	t.balances[p] = b + amount
	return nil
}
