package registry

import (
	"context"
	"fmt"
)

// nextID advances the persisted id counter inside tx and returns the new
// value. The first id issued is 1.
func nextID(ctx context.Context, tx Tx) (uint64, error) {
	c, err := tx.Counters(ctx)
	if err != nil {
		return 0, fmt.Errorf("reading counters: %w", err)
	}
	c.LastID++
	if err := tx.PutCounters(ctx, c); err != nil {
		return 0, fmt.Errorf("writing counters: %w", err)
	}
	return c.LastID, nil
}
