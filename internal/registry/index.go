package registry

import (
	"fmt"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// Index capacities. Both indexes are append-only; a full index rejects new
// subscriptions instead of evicting old ids.
const (
	AddressIndexCapacity = 20
	UserIndexCapacity    = 50
)

// IndexKind selects one of the two reverse-lookup indexes.
type IndexKind uint8

const (
	IndexByAddress IndexKind = iota + 1
	IndexByUser
)

func (k IndexKind) Capacity() int {
	switch k {
	case IndexByAddress:
		return AddressIndexCapacity
	case IndexByUser:
		return UserIndexCapacity
	default:
		return 0
	}
}

func (k IndexKind) String() string {
	switch k {
	case IndexByAddress:
		return "address"
	case IndexByUser:
		return "user"
	default:
		return fmt.Sprintf("index(%d)", uint8(k))
	}
}

// AppendBounded appends id to ids unless the sequence already holds
// capacity entries. The input slice is never modified.
func AppendBounded(kind IndexKind, ids []uint64, id uint64) ([]uint64, error) {
	capacity := kind.Capacity()
	if len(ids) >= capacity {
		return nil, fmt.Errorf("%s index holds %d ids: %w", kind, capacity, domain.ErrIndexFull)
	}
	out := make([]uint64, len(ids), len(ids)+1)
	copy(out, ids)
	return append(out, id), nil
}
