package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	"github.com/jackc/pgx/v5"
)

// pgTx implements registry.Tx on top of a pgx transaction.
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) Subscription(ctx context.Context, id uint64) (domain.Subscription, error) {
	var sub domain.Subscription
	var owner, address string
	var freq int64
	err := t.tx.QueryRow(ctx, `
		SELECT id, owner, address, expiry, alert_frequency, min_tx_value,
			   track_stx, track_assets, track_calls, notes, created_at
		FROM subscriptions WHERE id = $1
	`, int64(id)).Scan(
		&sub.ID, &owner, &address, &sub.Expiry, &freq, &sub.MinTxValue,
		&sub.TrackSTX, &sub.TrackAssets, &sub.TrackCalls, &sub.Notes, &sub.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Subscription{}, domain.ErrNotFound
		}
		return domain.Subscription{}, fmt.Errorf("querying subscription: %w", err)
	}
	sub.Owner = domain.Principal(owner)
	sub.Address = domain.Principal(address)
	sub.AlertFrequency = uint32(freq)
	return sub, nil
}

func (t *pgTx) PutSubscription(ctx context.Context, sub domain.Subscription) error {
	v, err := bigints(sub.ID, sub.Expiry, sub.MinTxValue, sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("subscription %d: %w", sub.ID, err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO subscriptions (id, owner, address, expiry, alert_frequency, min_tx_value,
			track_stx, track_assets, track_calls, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (id) DO UPDATE SET
			expiry = EXCLUDED.expiry,
			alert_frequency = EXCLUDED.alert_frequency,
			min_tx_value = EXCLUDED.min_tx_value,
			track_stx = EXCLUDED.track_stx,
			track_assets = EXCLUDED.track_assets,
			track_calls = EXCLUDED.track_calls,
			notes = EXCLUDED.notes,
			updated_at = NOW()
	`, v[0], string(sub.Owner), string(sub.Address), v[1], int64(sub.AlertFrequency),
		v[2], sub.TrackSTX, sub.TrackAssets, sub.TrackCalls, sub.Notes, v[3])
	if err != nil {
		return fmt.Errorf("upserting subscription: %w", err)
	}
	return nil
}

func (t *pgTx) Index(ctx context.Context, kind registry.IndexKind, key domain.Principal) ([]uint64, error) {
	rows, err := t.tx.Query(ctx, `
		SELECT subscription_id FROM subscription_index
		WHERE kind = $1 AND key = $2
		ORDER BY position
	`, kind.String(), string(key))
	if err != nil {
		return nil, fmt.Errorf("querying %s index: %w", kind, err)
	}
	defer rows.Close()

	ids := []uint64{}
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning %s index: %w", kind, err)
		}
		ids = append(ids, uint64(id))
	}
	return ids, rows.Err()
}

func (t *pgTx) AppendIndex(ctx context.Context, kind registry.IndexKind, key domain.Principal, id uint64) error {
	ids, err := t.Index(ctx, kind, key)
	if err != nil {
		return err
	}
	if _, err := registry.AppendBounded(kind, ids, id); err != nil {
		return err
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO subscription_index (kind, key, position, subscription_id)
		VALUES ($1, $2, $3, $4)
	`, kind.String(), string(key), len(ids), int64(id))
	if err != nil {
		return fmt.Errorf("appending to %s index: %w", kind, err)
	}
	return nil
}

func (t *pgTx) Counters(ctx context.Context) (domain.Counters, error) {
	var c domain.Counters
	err := t.tx.QueryRow(ctx, `
		SELECT last_id, total_created, total_active FROM registry_counters WHERE id = 1
	`).Scan(&c.LastID, &c.TotalCreated, &c.TotalActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Counters{}, nil
		}
		return domain.Counters{}, fmt.Errorf("querying counters: %w", err)
	}
	return c, nil
}

func (t *pgTx) PutCounters(ctx context.Context, c domain.Counters) error {
	v, err := bigints(c.LastID, c.TotalCreated, c.TotalActive)
	if err != nil {
		return fmt.Errorf("counters: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO registry_counters (id, last_id, total_created, total_active)
		VALUES (1, $1, $2, $3)
		ON CONFLICT (id) DO UPDATE SET
			last_id = EXCLUDED.last_id,
			total_created = EXCLUDED.total_created,
			total_active = EXCLUDED.total_active
	`, v[0], v[1], v[2])
	if err != nil {
		return fmt.Errorf("updating counters: %w", err)
	}
	return nil
}

func (t *pgTx) Settings(ctx context.Context) (domain.Settings, error) {
	var s domain.Settings
	var owner, treasury string
	err := t.tx.QueryRow(ctx, `
		SELECT owner, treasury, duration, fee FROM registry_settings WHERE id = 1
	`).Scan(&owner, &treasury, &s.Duration, &s.Fee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Settings{}, domain.ErrNotInitialized
		}
		return domain.Settings{}, fmt.Errorf("querying settings: %w", err)
	}
	s.Owner = domain.Principal(owner)
	s.Treasury = domain.Principal(treasury)
	return s, nil
}

func (t *pgTx) PutSettings(ctx context.Context, s domain.Settings) error {
	v, err := bigints(s.Duration, s.Fee)
	if err != nil {
		return fmt.Errorf("settings: %w", err)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO registry_settings (id, owner, treasury, duration, fee)
		VALUES (1, $1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			duration = EXCLUDED.duration,
			fee = EXCLUDED.fee,
			updated_at = NOW()
	`, string(s.Owner), string(s.Treasury), v[0], v[1])
	if err != nil {
		return fmt.Errorf("updating settings: %w", err)
	}
	return nil
}

func (t *pgTx) Balance(ctx context.Context, p domain.Principal) (uint64, error) {
	var amount int64
	err := t.tx.QueryRow(ctx, `
		SELECT amount FROM ledger_balances WHERE principal = $1
	`, string(p)).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("querying balance: %w", err)
	}
	return uint64(amount), nil
}

func (t *pgTx) Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error {
	if amount > domain.MaxAmount {
		return fmt.Errorf("transfer of %d: %w", amount, domain.ErrPaymentFailed)
	}
	toBalance, err := t.Balance(ctx, to)
	if err != nil {
		return err
	}
	if toBalance > domain.MaxAmount-amount {
		return fmt.Errorf("balance of %s would overflow: %w", to, domain.ErrPaymentFailed)
	}

	result, err := t.tx.Exec(ctx, `
		UPDATE ledger_balances SET amount = amount - $2
		WHERE principal = $1 AND amount >= $2
	`, string(from), int64(amount))
	if err != nil {
		return fmt.Errorf("debiting %s: %w", from, err)
	}
	if result.RowsAffected() == 0 && amount > 0 {
		return fmt.Errorf("%s cannot cover %d: %w", from, amount, domain.ErrPaymentFailed)
	}

	_, err = t.tx.Exec(ctx, `
		INSERT INTO ledger_balances (principal, amount)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET amount = ledger_balances.amount + EXCLUDED.amount
	`, string(to), int64(amount))
	if err != nil {
		return fmt.Errorf("crediting %s: %w", to, err)
	}
	return nil
}

func (t *pgTx) Credit(ctx context.Context, p domain.Principal, amount uint64) error {
	balance, err := t.Balance(ctx, p)
	if err != nil {
		return err
	}
	if amount > domain.MaxAmount-balance {
		return fmt.Errorf("crediting %d to %s: %w", amount, p, domain.ErrInvalidParameters)
	}
	_, err = t.tx.Exec(ctx, `
		INSERT INTO ledger_balances (principal, amount)
		VALUES ($1, $2)
		ON CONFLICT (principal) DO UPDATE SET amount = ledger_balances.amount + EXCLUDED.amount
	`, string(p), int64(amount))
	if err != nil {
		return fmt.Errorf("crediting %s: %w", p, err)
	}
	return nil
}

// bigints converts registry values to BIGINT parameters, rejecting any that
// do not fit.
func bigints(values ...uint64) ([]int64, error) {
	out := make([]int64, len(values))
	for i, v := range values {
		if v > domain.MaxAmount {
			return nil, fmt.Errorf("%d exceeds %d: %w", v, domain.MaxAmount, domain.ErrInvalidParameters)
		}
		out[i] = int64(v)
	}
	return out, nil
}
