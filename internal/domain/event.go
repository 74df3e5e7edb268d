package domain

import (
	"time"
)

// Event types published after a registry transition commits.
const (
	EventSubscriptionCreated   = "subscription_created"
	EventSubscriptionRenewed   = "subscription_renewed"
	EventSubscriptionUpdated   = "subscription_updated"
	EventSubscriptionCancelled = "subscription_cancelled"
	EventFeesWithdrawn         = "fees_withdrawn"
	EventSettingsUpdated       = "settings_updated"
)

// Event describes a committed change to registry state. It carries
// monitoring configuration only.
type Event struct {
	ID             string    `json:"id"`
	Type           string    `json:"type"`
	SubscriptionID uint64    `json:"subscription_id,omitempty"`
	Caller         Principal `json:"caller"`
	Address        Principal `json:"address,omitempty"`
	Expiry         uint64    `json:"expiry,omitempty"`
	Amount         uint64    `json:"amount,omitempty"`
	Recipient      Principal `json:"recipient,omitempty"`
	Settings       *Settings `json:"settings,omitempty"`
	Height         uint64    `json:"height"`
	Timestamp      time.Time `json:"timestamp"`
}
