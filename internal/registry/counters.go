package registry

import (
	"context"
	"fmt"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// updateCounters applies fn to the usage counters inside tx.
func updateCounters(ctx context.Context, tx Tx, fn func(c *domain.Counters)) error {
	c, err := tx.Counters(ctx)
	if err != nil {
		return fmt.Errorf("reading counters: %w", err)
	}
	fn(&c)
	if err := tx.PutCounters(ctx, c); err != nil {
		return fmt.Errorf("writing counters: %w", err)
	}
	return nil
}

func recordCreated(c *domain.Counters) {
	c.TotalCreated++
	c.TotalActive++
}

func recordReactivated(c *domain.Counters) {
	c.TotalActive++
}

// recordCancelled decrements the active count. Cancelling a subscription
// that already lapsed still decrements, so the count saturates at zero.
func recordCancelled(c *domain.Counters) {
	if c.TotalActive > 0 {
		c.TotalActive--
	}
}
