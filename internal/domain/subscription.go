package domain

import "math"

// Principal identifies an account: a subscription owner, a monitored
// address, the privileged owner or the registry treasury.
type Principal string

// MaxNotesLength is the maximum size of a subscription note in bytes.
const MaxNotesLength = 256

// MaxAmount bounds every fee, duration, withdrawal, balance and min_tx_value
// the registry accepts, and every expiry it computes. Backends persist them
// as signed 64-bit integers.
const MaxAmount uint64 = math.MaxInt64

type Subscription struct {
	ID             uint64    `json:"id"`
	Owner          Principal `json:"owner"`
	Address        Principal `json:"address"`
	Expiry         uint64    `json:"expiry"`
	AlertFrequency uint32    `json:"alert_frequency"`
	MinTxValue     uint64    `json:"min_tx_value"`
	TrackSTX       bool      `json:"track_stx"`
	TrackAssets    bool      `json:"track_assets"`
	TrackCalls     bool      `json:"track_calls"`
	Notes          string    `json:"notes"`
	CreatedAt      uint64    `json:"created_at"`
}

// ActiveAt reports whether the subscription is still inside its validity
// window at block height now.
func (s Subscription) ActiveAt(now uint64) bool {
	return s.Expiry > now
}

// Params holds the mutable monitoring parameters of a subscription.
type Params struct {
	AlertFrequency uint32 `json:"alert_frequency"`
	MinTxValue     uint64 `json:"min_tx_value"`
	TrackSTX       bool   `json:"track_stx"`
	TrackAssets    bool   `json:"track_assets"`
	TrackCalls     bool   `json:"track_calls"`
	Notes          string `json:"notes"`
}

// Validate checks frequency, tracking flags, note length and the
// min_tx_value bound.
func (p Params) Validate() error {
	if p.AlertFrequency == 0 {
		return ErrInvalidParameters
	}
	if p.MinTxValue > MaxAmount {
		return ErrInvalidParameters
	}
	if !p.TrackSTX && !p.TrackAssets && !p.TrackCalls {
		return ErrInvalidParameters
	}
	if len(p.Notes) > MaxNotesLength {
		return ErrInvalidParameters
	}
	return nil
}

// Apply copies the parameters onto sub, leaving owner, address and expiry untouched.
func (p Params) Apply(sub *Subscription) {
	sub.AlertFrequency = p.AlertFrequency
	sub.MinTxValue = p.MinTxValue
	sub.TrackSTX = p.TrackSTX
	sub.TrackAssets = p.TrackAssets
	sub.TrackCalls = p.TrackCalls
	sub.Notes = p.Notes
}

type CreateSubscriptionRequest struct {
	Address Principal `json:"address"`
	Params
}

type CreateSubscriptionResponse struct {
	ID     uint64 `json:"id"`
	Expiry uint64 `json:"expiry"`
}

type RenewSubscriptionResponse struct {
	ID        uint64 `json:"id"`
	NewExpiry uint64 `json:"new_expiry"`
}

// Counters is the aggregate usage state. TotalActive is maintained by the
// transitions and is not recomputed when a subscription lapses on its own.
type Counters struct {
	LastID       uint64 `json:"last_id"`
	TotalCreated uint64 `json:"total_created"`
	TotalActive  uint64 `json:"total_active"`
}

// Settings is the persisted registry configuration.
type Settings struct {
	Owner    Principal `json:"owner"`
	Treasury Principal `json:"treasury"`
	Duration uint64    `json:"duration"`
	Fee      uint64    `json:"fee"`
}

// Grant is a genesis balance credited when the registry is first bootstrapped.
type Grant struct {
	Principal Principal `json:"principal"`
	Amount    uint64    `json:"amount"`
}

type Stats struct {
	Total  uint64 `json:"total"`
	Active uint64 `json:"active"`
	Now    uint64 `json:"now"`
}
