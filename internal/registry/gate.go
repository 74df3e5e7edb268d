package registry

import (
	"context"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// IsPrivilegedOwner reports whether caller is the registry owner fixed at bootstrap.
func IsPrivilegedOwner(settings domain.Settings, caller domain.Principal) bool {
	return caller != "" && caller == settings.Owner
}

// IsSubscriptionOwner loads the subscription and reports whether caller owns it.
func IsSubscriptionOwner(ctx context.Context, tx Tx, caller domain.Principal, id uint64) (bool, error) {
	sub, err := tx.Subscription(ctx, id)
	if err != nil {
		return false, err
	}
	return sub.Owner == caller, nil
}

// SubscriptionActive reports whether the subscription's expiry is strictly
// after now.
func SubscriptionActive(ctx context.Context, tx Tx, id, now uint64) (bool, error) {
	sub, err := tx.Subscription(ctx, id)
	if err != nil {
		return false, err
	}
	return sub.ActiveAt(now), nil
}

// validAddress is a placeholder check: the monitored address must be set
// and must not be the privileged owner. It is not a format validator.
func validAddress(settings domain.Settings, addr domain.Principal) bool {
	return addr != "" && addr != settings.Owner
}

// ownedSubscription loads id and checks that caller owns it.
func ownedSubscription(ctx context.Context, tx Tx, caller domain.Principal, id uint64) (domain.Subscription, error) {
	sub, err := tx.Subscription(ctx, id)
	if err != nil {
		return domain.Subscription{}, err
	}
	if sub.Owner != caller {
		return domain.Subscription{}, domain.ErrNotSubscriptionOwner
	}
	return sub, nil
}
