package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/google/uuid"
)

// Notifier receives change events after a transition has committed.
type Notifier interface {
	Notify(ctx context.Context, event domain.Event)
}

// Registry owns the subscription lifecycle. Every mutating operation runs in
// a single Store transaction: either all of its effects persist or none do.
type Registry struct {
	store     Store
	clock     Clock
	notifiers []Notifier
	logger    *slog.Logger
}

func New(store Store, clock Clock, logger *slog.Logger, notifiers ...Notifier) *Registry {
	return &Registry{
		store:     store,
		clock:     clock,
		notifiers: notifiers,
		logger:    logger,
	}
}

// Bootstrap persists the initial settings unless the store already holds
// them. The stored settings win, so the privileged owner cannot be changed
// by restarting with a different configuration. Genesis grants are credited
// in the same transaction that first persists the settings and never again.
func (r *Registry) Bootstrap(ctx context.Context, initial domain.Settings, genesis ...domain.Grant) (domain.Settings, error) {
	if initial.Owner == "" || initial.Treasury == "" {
		return domain.Settings{}, fmt.Errorf("owner and treasury are required: %w", domain.ErrInvalidParameters)
	}
	if !validAmount(initial.Duration) || !validAmount(initial.Fee) {
		return domain.Settings{}, fmt.Errorf("duration and fee must be in 1..%d: %w", domain.MaxAmount, domain.ErrInvalidParameters)
	}

	var (
		settings domain.Settings
		seeded   bool
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		seeded = false
		current, err := tx.Settings(ctx)
		if err == nil {
			settings = current
			return nil
		}
		if !errors.Is(err, domain.ErrNotInitialized) {
			return err
		}
		settings = initial
		if err := tx.PutSettings(ctx, initial); err != nil {
			return err
		}
		for _, g := range genesis {
			if err := tx.Credit(ctx, g.Principal, g.Amount); err != nil {
				return fmt.Errorf("crediting genesis balance of %s: %w", g.Principal, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return domain.Settings{}, fmt.Errorf("bootstrapping registry: %w", err)
	}

	if seeded && len(genesis) > 0 {
		r.logger.Info("genesis balances credited", "grants", len(genesis))
	} else if len(genesis) > 0 {
		r.logger.Info("registry already bootstrapped, skipping genesis balances")
	}

	if settings.Owner != initial.Owner {
		r.logger.Warn("configured owner differs from persisted owner, keeping persisted",
			"configured", initial.Owner,
			"persisted", settings.Owner,
		)
	}
	return settings, nil
}

// Create registers a new subscription for caller on params.Address and
// charges the current fee. It returns the subscription as committed.
func (r *Registry) Create(ctx context.Context, caller domain.Principal, req domain.CreateSubscriptionRequest) (domain.Subscription, error) {
	var (
		sub domain.Subscription
		now uint64
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if !validAddress(settings, req.Address) {
			return domain.ErrInvalidAddress
		}
		if err := req.Params.Validate(); err != nil {
			return err
		}
		if err := checkBalance(ctx, tx, caller, settings.Fee); err != nil {
			return err
		}

		// fail on a full index before allocating an id or writing anything
		for _, ix := range []struct {
			kind IndexKind
			key  domain.Principal
		}{{IndexByAddress, req.Address}, {IndexByUser, caller}} {
			ids, err := tx.Index(ctx, ix.kind, ix.key)
			if err != nil {
				return fmt.Errorf("reading %s index: %w", ix.kind, err)
			}
			if len(ids) >= ix.kind.Capacity() {
				return fmt.Errorf("%s index holds %d ids: %w", ix.kind, ix.kind.Capacity(), domain.ErrIndexFull)
			}
		}

		expiry, err := expiryAfter(now, settings.Duration)
		if err != nil {
			return err
		}
		id, err := nextID(ctx, tx)
		if err != nil {
			return err
		}

		sub = domain.Subscription{
			ID:        id,
			Owner:     caller,
			Address:   req.Address,
			Expiry:    expiry,
			CreatedAt: now,
		}
		req.Params.Apply(&sub)

		if err := tx.PutSubscription(ctx, sub); err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
		if err := tx.AppendIndex(ctx, IndexByAddress, req.Address, id); err != nil {
			return err
		}
		if err := tx.AppendIndex(ctx, IndexByUser, caller, id); err != nil {
			return err
		}
		if err := tx.Transfer(ctx, caller, settings.Owner, settings.Fee); err != nil {
			return err
		}
		return updateCounters(ctx, tx, recordCreated)
	})
	if err != nil {
		return domain.Subscription{}, err
	}

	r.logger.Info("subscription created",
		"subscription_id", sub.ID,
		"owner", caller,
		"address", sub.Address,
		"expiry", sub.Expiry,
	)
	r.notify(ctx, domain.Event{
		Type:           domain.EventSubscriptionCreated,
		SubscriptionID: sub.ID,
		Caller:         caller,
		Address:        sub.Address,
		Expiry:         sub.Expiry,
		Height:         now,
	})
	return sub, nil
}

// Renew extends the subscription by the current duration, counting from its
// expiry when still active and from now when it has lapsed.
func (r *Registry) Renew(ctx context.Context, caller domain.Principal, id uint64) (uint64, error) {
	var (
		sub domain.Subscription
		now uint64
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		sub, err = ownedSubscription(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		if err := checkBalance(ctx, tx, caller, settings.Fee); err != nil {
			return err
		}

		wasActive := sub.ActiveAt(now)
		sub.Expiry, err = expiryAfter(max(sub.Expiry, now), settings.Duration)
		if err != nil {
			return err
		}

		if err := tx.PutSubscription(ctx, sub); err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
		if err := tx.Transfer(ctx, caller, settings.Owner, settings.Fee); err != nil {
			return err
		}
		if wasActive {
			return nil
		}
		return updateCounters(ctx, tx, recordReactivated)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("subscription renewed", "subscription_id", id, "expiry", sub.Expiry)
	r.notify(ctx, domain.Event{
		Type:           domain.EventSubscriptionRenewed,
		SubscriptionID: id,
		Caller:         caller,
		Address:        sub.Address,
		Expiry:         sub.Expiry,
		Height:         now,
	})
	return sub.Expiry, nil
}

// UpdateParameters replaces the monitoring parameters of an active
// subscription. Owner, address and expiry are left unchanged.
func (r *Registry) UpdateParameters(ctx context.Context, caller domain.Principal, id uint64, params domain.Params) error {
	var (
		sub domain.Subscription
		now uint64
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		sub, err = ownedSubscription(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		active, err := SubscriptionActive(ctx, tx, id, now)
		if err != nil {
			return err
		}
		if !active {
			return domain.ErrSubscriptionExpired
		}
		if err := params.Validate(); err != nil {
			return err
		}

		params.Apply(&sub)
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	r.logger.Info("subscription parameters updated", "subscription_id", id)
	r.notify(ctx, domain.Event{
		Type:           domain.EventSubscriptionUpdated,
		SubscriptionID: id,
		Caller:         caller,
		Address:        sub.Address,
		Expiry:         sub.Expiry,
		Height:         now,
	})
	return nil
}

// Cancel ends the subscription at the current height. The record and its
// index entries are kept.
func (r *Registry) Cancel(ctx context.Context, caller domain.Principal, id uint64) error {
	var (
		sub domain.Subscription
		now uint64
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		sub, err = ownedSubscription(ctx, tx, caller, id)
		if err != nil {
			return err
		}
		sub.Expiry = now
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return fmt.Errorf("writing subscription: %w", err)
		}
		return updateCounters(ctx, tx, recordCancelled)
	})
	if err != nil {
		return err
	}

	r.logger.Info("subscription cancelled", "subscription_id", id, "height", now)
	r.notify(ctx, domain.Event{
		Type:           domain.EventSubscriptionCancelled,
		SubscriptionID: id,
		Caller:         caller,
		Address:        sub.Address,
		Expiry:         sub.Expiry,
		Height:         now,
	})
	return nil
}

func (r *Registry) Get(ctx context.Context, id uint64) (domain.Subscription, error) {
	var sub domain.Subscription
	err := r.store.View(ctx, func(tx Tx) error {
		var err error
		sub, err = tx.Subscription(ctx, id)
		return err
	})
	return sub, err
}

// UserSubscriptions returns the ids created by user in creation order.
func (r *Registry) UserSubscriptions(ctx context.Context, user domain.Principal) ([]uint64, error) {
	return r.lookup(ctx, IndexByUser, user)
}

// AddressSubscriptions returns the ids targeting addr in creation order.
func (r *Registry) AddressSubscriptions(ctx context.Context, addr domain.Principal) ([]uint64, error) {
	return r.lookup(ctx, IndexByAddress, addr)
}

// IsAddressMonitored reports whether any subscription, active or not, was
// ever created for addr.
func (r *Registry) IsAddressMonitored(ctx context.Context, addr domain.Principal) (bool, error) {
	ids, err := r.lookup(ctx, IndexByAddress, addr)
	if err != nil {
		return false, err
	}
	return len(ids) > 0, nil
}

func (r *Registry) Stats(ctx context.Context) (domain.Stats, error) {
	now, err := r.clock.Now(ctx)
	if err != nil {
		return domain.Stats{}, fmt.Errorf("reading clock: %w", err)
	}
	var c domain.Counters
	err = r.store.View(ctx, func(tx Tx) error {
		var err error
		c, err = tx.Counters(ctx)
		return err
	})
	if err != nil {
		return domain.Stats{}, fmt.Errorf("reading counters: %w", err)
	}
	return domain.Stats{Total: c.TotalCreated, Active: c.TotalActive, Now: now}, nil
}

func (r *Registry) Settings(ctx context.Context) (domain.Settings, error) {
	var s domain.Settings
	err := r.store.View(ctx, func(tx Tx) error {
		var err error
		s, err = tx.Settings(ctx)
		return err
	})
	return s, err
}

// Balance returns the ledger balance of p.
func (r *Registry) Balance(ctx context.Context, p domain.Principal) (uint64, error) {
	var balance uint64
	err := r.store.View(ctx, func(tx Tx) error {
		var err error
		balance, err = tx.Balance(ctx, p)
		return err
	})
	return balance, err
}

func (r *Registry) lookup(ctx context.Context, kind IndexKind, key domain.Principal) ([]uint64, error) {
	var ids []uint64
	err := r.store.View(ctx, func(tx Tx) error {
		var err error
		ids, err = tx.Index(ctx, kind, key)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("reading %s index: %w", kind, err)
	}
	if ids == nil {
		ids = []uint64{}
	}
	return ids, nil
}

func (r *Registry) notify(ctx context.Context, event domain.Event) {
	event.ID = uuid.NewString()
	event.Timestamp = time.Now().UTC()
	for _, n := range r.notifiers {
		n.Notify(ctx, event)
	}
}

// readClock is called inside Update so the height observed by a transition
// follows the order in which transitions commit.
func (r *Registry) readClock(ctx context.Context) (uint64, error) {
	now, err := r.clock.Now(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading clock: %w", err)
	}
	return now, nil
}

func validAmount(v uint64) bool {
	return v > 0 && v <= domain.MaxAmount
}

// expiryAfter returns base+duration, rejecting expiries past MaxAmount.
func expiryAfter(base, duration uint64) (uint64, error) {
	if base > domain.MaxAmount || duration > domain.MaxAmount-base {
		return 0, fmt.Errorf("expiry past %d: %w", domain.MaxAmount, domain.ErrInvalidParameters)
	}
	return base + duration, nil
}

// checkBalance rejects callers that cannot cover fee before any transfer
// is attempted.
func checkBalance(ctx context.Context, tx Tx, caller domain.Principal, fee uint64) error {
	balance, err := tx.Balance(ctx, caller)
	if err != nil {
		return fmt.Errorf("reading balance: %w", err)
	}
	if balance < fee {
		return domain.ErrInsufficientFunds
	}
	return nil
}
