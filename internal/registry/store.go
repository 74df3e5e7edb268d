package registry

import (
	"context"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// Store runs registry operations as serialized transactions. Update commits
// every staged effect when fn returns nil and discards all of them otherwise.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
}

// Tx is the view of registry state inside one transaction. The ledger
// methods are the payment rail: a Transfer commits or rolls back together
// with the rest of the transaction.
type Tx interface {
	// Subscription returns domain.ErrNotFound when id has no record.
	Subscription(ctx context.Context, id uint64) (domain.Subscription, error)
	PutSubscription(ctx context.Context, sub domain.Subscription) error

	Index(ctx context.Context, kind IndexKind, key domain.Principal) ([]uint64, error)
	// AppendIndex returns an error wrapping domain.ErrIndexFull once the
	// sequence holds kind.Capacity() ids.
	AppendIndex(ctx context.Context, kind IndexKind, key domain.Principal, id uint64) error

	Counters(ctx context.Context) (domain.Counters, error)
	PutCounters(ctx context.Context, c domain.Counters) error

	// Settings returns domain.ErrNotInitialized before Bootstrap has run.
	Settings(ctx context.Context) (domain.Settings, error)
	PutSettings(ctx context.Context, s domain.Settings) error

	Balance(ctx context.Context, p domain.Principal) (uint64, error)
	// Transfer returns an error wrapping domain.ErrPaymentFailed when from
	// cannot cover amount.
	Transfer(ctx context.Context, from, to domain.Principal, amount uint64) error
	// Credit mints amount to p. It is used only for genesis balances and
	// fails with domain.ErrInvalidParameters past domain.MaxAmount.
	Credit(ctx context.Context, p domain.Principal, amount uint64) error
}
