package domain

import "errors"

var (
	ErrUnauthorized         = errors.New("unauthorized")
	ErrInvalidAddress       = errors.New("invalid address")
	ErrNotFound             = errors.New("subscription not found")
	ErrSubscriptionExpired  = errors.New("subscription expired")
	ErrInvalidParameters    = errors.New("invalid parameters")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrNotSubscriptionOwner = errors.New("caller is not the subscription owner")
	ErrInsufficientFunds    = errors.New("insufficient funds")
	ErrIndexFull            = errors.New("index capacity reached")
	ErrNotInitialized       = errors.New("registry settings not initialized")

	// ErrAlreadySubscribed is reserved for duplicate detection and is not
	// returned by any transition.
	ErrAlreadySubscribed = errors.New("already subscribed")
)
