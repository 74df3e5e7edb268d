package store

import (
	"context"
	"errors"
	"testing"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testBackend is what every store under test offers.
type testBackend interface {
	registry.Store
	Deposit(ctx context.Context, p domain.Principal, amount uint64) error
}

var errAbort = errors.New("abort")

// runConformance checks the transactional contract every backend must meet.
func runConformance(t *testing.T, newBackend func(t *testing.T) testBackend) {
	t.Run("settings start uninitialized", func(t *testing.T) {
		s := newBackend(t)
		err := s.View(context.Background(), func(tx registry.Tx) error {
			_, err := tx.Settings(context.Background())
			return err
		})
		assert.ErrorIs(t, err, domain.ErrNotInitialized)
	})

	t.Run("committed writes are visible", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()
		settings := domain.Settings{Owner: "SP1OWNER", Treasury: "SP1OWNER", Duration: 10, Fee: 5}
		sub := domain.Subscription{
			ID: 1, Owner: "SP2ALICE", Address: "SP4TARGET", Expiry: 110,
			AlertFrequency: 3, MinTxValue: 9, TrackAssets: true, Notes: "n", CreatedAt: 100,
		}

		err := s.Update(ctx, func(tx registry.Tx) error {
			require.NoError(t, tx.PutSettings(ctx, settings))
			require.NoError(t, tx.PutSubscription(ctx, sub))
			require.NoError(t, tx.AppendIndex(ctx, registry.IndexByAddress, sub.Address, 1))
			require.NoError(t, tx.AppendIndex(ctx, registry.IndexByUser, sub.Owner, 1))
			return tx.PutCounters(ctx, domain.Counters{LastID: 1, TotalCreated: 1, TotalActive: 1})
		})
		require.NoError(t, err)

		err = s.View(ctx, func(tx registry.Tx) error {
			got, err := tx.Subscription(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, sub, got)

			gotSettings, err := tx.Settings(ctx)
			require.NoError(t, err)
			assert.Equal(t, settings, gotSettings)

			ids, err := tx.Index(ctx, registry.IndexByAddress, sub.Address)
			require.NoError(t, err)
			assert.Equal(t, []uint64{1}, ids)

			ids, err = tx.Index(ctx, registry.IndexByUser, "SP3NOBODY")
			require.NoError(t, err)
			assert.Empty(t, ids)

			c, err := tx.Counters(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.Counters{LastID: 1, TotalCreated: 1, TotalActive: 1}, c)

			_, err = tx.Subscription(ctx, 2)
			assert.ErrorIs(t, err, domain.ErrNotFound)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("failed update leaves no trace", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()
		require.NoError(t, s.Deposit(ctx, "SP2ALICE", 100))

		err := s.Update(ctx, func(tx registry.Tx) error {
			require.NoError(t, tx.PutSubscription(ctx, domain.Subscription{ID: 1, Owner: "SP2ALICE", AlertFrequency: 1}))
			require.NoError(t, tx.AppendIndex(ctx, registry.IndexByUser, "SP2ALICE", 1))
			require.NoError(t, tx.Transfer(ctx, "SP2ALICE", "SP1OWNER", 60))
			require.NoError(t, tx.PutCounters(ctx, domain.Counters{LastID: 1}))
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		err = s.View(ctx, func(tx registry.Tx) error {
			_, err := tx.Subscription(ctx, 1)
			assert.ErrorIs(t, err, domain.ErrNotFound)

			ids, err := tx.Index(ctx, registry.IndexByUser, "SP2ALICE")
			require.NoError(t, err)
			assert.Empty(t, ids)

			b, err := tx.Balance(ctx, "SP2ALICE")
			require.NoError(t, err)
			assert.Equal(t, uint64(100), b)

			c, err := tx.Counters(ctx)
			require.NoError(t, err)
			assert.Equal(t, domain.Counters{}, c)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("transfer moves funds and rejects overdraft", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()
		require.NoError(t, s.Deposit(ctx, "SP2ALICE", 100))

		err := s.Update(ctx, func(tx registry.Tx) error {
			return tx.Transfer(ctx, "SP2ALICE", "SP1OWNER", 40)
		})
		require.NoError(t, err)

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.Transfer(ctx, "SP2ALICE", "SP1OWNER", 61)
		})
		require.ErrorIs(t, err, domain.ErrPaymentFailed)

		err = s.View(ctx, func(tx registry.Tx) error {
			a, err := tx.Balance(ctx, "SP2ALICE")
			require.NoError(t, err)
			o, err := tx.Balance(ctx, "SP1OWNER")
			require.NoError(t, err)
			assert.Equal(t, uint64(60), a)
			assert.Equal(t, uint64(40), o)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("index rejects appends past capacity", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()

		err := s.Update(ctx, func(tx registry.Tx) error {
			for i := 1; i <= registry.AddressIndexCapacity; i++ {
				if err := tx.AppendIndex(ctx, registry.IndexByAddress, "SP4TARGET", uint64(i)); err != nil {
					return err
				}
			}
			return nil
		})
		require.NoError(t, err)

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.AppendIndex(ctx, registry.IndexByAddress, "SP4TARGET", 21)
		})
		require.ErrorIs(t, err, domain.ErrIndexFull)

		err = s.View(ctx, func(tx registry.Tx) error {
			ids, err := tx.Index(ctx, registry.IndexByAddress, "SP4TARGET")
			require.NoError(t, err)
			assert.Len(t, ids, registry.AddressIndexCapacity)
			assert.Equal(t, uint64(1), ids[0])
			assert.Equal(t, uint64(registry.AddressIndexCapacity), ids[len(ids)-1])
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("largest accepted values round trip", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()
		settings := domain.Settings{Owner: "SP1OWNER", Treasury: "SP1OWNER", Duration: domain.MaxAmount, Fee: domain.MaxAmount}
		sub := domain.Subscription{
			ID: 1, Owner: "SP2ALICE", Address: "SP4TARGET", Expiry: domain.MaxAmount,
			AlertFrequency: 1, MinTxValue: domain.MaxAmount, TrackSTX: true, CreatedAt: 100,
		}
		require.NoError(t, s.Deposit(ctx, "SP2ALICE", domain.MaxAmount))

		err := s.Update(ctx, func(tx registry.Tx) error {
			require.NoError(t, tx.PutSettings(ctx, settings))
			require.NoError(t, tx.PutSubscription(ctx, sub))
			return tx.Transfer(ctx, "SP2ALICE", "SP1OWNER", domain.MaxAmount)
		})
		require.NoError(t, err)

		err = s.View(ctx, func(tx registry.Tx) error {
			got, err := tx.Subscription(ctx, 1)
			require.NoError(t, err)
			assert.Equal(t, sub, got)

			gotSettings, err := tx.Settings(ctx)
			require.NoError(t, err)
			assert.Equal(t, settings, gotSettings)

			a, err := tx.Balance(ctx, "SP2ALICE")
			require.NoError(t, err)
			o, err := tx.Balance(ctx, "SP1OWNER")
			require.NoError(t, err)
			assert.Equal(t, uint64(0), a)
			assert.Equal(t, domain.MaxAmount, o)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("values past the range are rejected", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()

		err := s.Deposit(ctx, "SP2ALICE", domain.MaxAmount+1)
		require.ErrorIs(t, err, domain.ErrInvalidParameters)
		require.NoError(t, s.Deposit(ctx, "SP1OWNER", domain.MaxAmount))
		require.NoError(t, s.Deposit(ctx, "SP3BOB", 1))

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.Transfer(ctx, "SP3BOB", "SP1OWNER", 1)
		})
		require.ErrorIs(t, err, domain.ErrPaymentFailed, "credit would overflow")

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.Transfer(ctx, "SP1OWNER", "SP3BOB", domain.MaxAmount+1)
		})
		require.ErrorIs(t, err, domain.ErrPaymentFailed)

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.Credit(ctx, "SP1OWNER", 1)
		})
		require.ErrorIs(t, err, domain.ErrInvalidParameters)

		err = s.View(ctx, func(tx registry.Tx) error {
			o, err := tx.Balance(ctx, "SP1OWNER")
			require.NoError(t, err)
			b, err := tx.Balance(ctx, "SP3BOB")
			require.NoError(t, err)
			assert.Equal(t, domain.MaxAmount, o)
			assert.Equal(t, uint64(1), b)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("credit mints inside the transaction", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()

		err := s.Update(ctx, func(tx registry.Tx) error {
			require.NoError(t, tx.Credit(ctx, "SP2ALICE", 40))
			require.NoError(t, tx.Credit(ctx, "SP2ALICE", 2))
			return errAbort
		})
		require.ErrorIs(t, err, errAbort)

		err = s.Update(ctx, func(tx registry.Tx) error {
			return tx.Credit(ctx, "SP2ALICE", 42)
		})
		require.NoError(t, err)

		err = s.View(ctx, func(tx registry.Tx) error {
			b, err := tx.Balance(ctx, "SP2ALICE")
			require.NoError(t, err)
			assert.Equal(t, uint64(42), b)
			return nil
		})
		require.NoError(t, err)
	})

	t.Run("view rejects writes", func(t *testing.T) {
		s := newBackend(t)
		ctx := context.Background()
		err := s.View(ctx, func(tx registry.Tx) error {
			return tx.PutCounters(ctx, domain.Counters{LastID: 1})
		})
		assert.Error(t, err)
	})
}
