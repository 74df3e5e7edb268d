package registry

import (
	"context"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
)

// WithdrawFees moves amount from the registry treasury to recipient. The
// ledger rejects withdrawals larger than the treasury balance.
func (r *Registry) WithdrawFees(ctx context.Context, caller domain.Principal, amount uint64, recipient domain.Principal) (uint64, error) {
	if !validAmount(amount) || recipient == "" {
		return 0, domain.ErrInvalidParameters
	}

	var now uint64
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		settings, err := tx.Settings(ctx)
		if err != nil {
			return err
		}
		if !IsPrivilegedOwner(settings, caller) {
			return domain.ErrUnauthorized
		}
		return tx.Transfer(ctx, settings.Treasury, recipient, amount)
	})
	if err != nil {
		return 0, err
	}

	r.logger.Info("fees withdrawn", "amount", amount, "recipient", recipient)
	r.notify(ctx, domain.Event{
		Type:      domain.EventFeesWithdrawn,
		Caller:    caller,
		Amount:    amount,
		Recipient: recipient,
		Height:    now,
	})
	return amount, nil
}

// SetDuration changes the subscription duration used by the next Create or Renew.
func (r *Registry) SetDuration(ctx context.Context, caller domain.Principal, duration uint64) error {
	return r.updateSettings(ctx, caller, func(s *domain.Settings) error {
		if !validAmount(duration) {
			return domain.ErrInvalidParameters
		}
		s.Duration = duration
		return nil
	})
}

// SetFee changes the fee charged by the next Create or Renew.
func (r *Registry) SetFee(ctx context.Context, caller domain.Principal, fee uint64) error {
	return r.updateSettings(ctx, caller, func(s *domain.Settings) error {
		if !validAmount(fee) {
			return domain.ErrInvalidParameters
		}
		s.Fee = fee
		return nil
	})
}

func (r *Registry) updateSettings(ctx context.Context, caller domain.Principal, fn func(s *domain.Settings) error) error {
	var (
		settings domain.Settings
		now      uint64
	)
	err := r.store.Update(ctx, func(tx Tx) error {
		var err error
		if now, err = r.readClock(ctx); err != nil {
			return err
		}
		settings, err = tx.Settings(ctx)
		if err != nil {
			return err
		}
		if !IsPrivilegedOwner(settings, caller) {
			return domain.ErrUnauthorized
		}
		if err := fn(&settings); err != nil {
			return err
		}
		return tx.PutSettings(ctx, settings)
	})
	if err != nil {
		return err
	}

	r.logger.Info("registry settings updated", "duration", settings.Duration, "fee", settings.Fee)
	r.notify(ctx, domain.Event{
		Type:     domain.EventSettingsUpdated,
		Caller:   caller,
		Settings: &settings,
		Height:   now,
	})
	return nil
}
