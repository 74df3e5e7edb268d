package worker

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/engine"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupPublisher(t *testing.T) (*engine.Publisher, *slog.Logger) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return engine.NewPublisher(client, logger), logger
}

func TestRetention_SweepDropsOldEvents(t *testing.T) {
	pub, logger := setupPublisher(t)
	ctx := context.Background()

	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	for i, age := range []time.Duration{3 * time.Hour, 2 * time.Hour, 10 * time.Minute} {
		require.NoError(t, pub.Publish(ctx, domain.Event{
			ID:             string(rune('a' + i)),
			Type:           domain.EventSubscriptionCreated,
			SubscriptionID: uint64(i + 1),
			Timestamp:      now.Add(-age),
		}))
	}

	r := NewRetention(pub, time.Hour, time.Minute, logger)
	r.now = func() time.Time { return now }
	r.sweep(ctx)

	depth, err := pub.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)

	left, err := pub.Recent(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, uint64(3), left[0].SubscriptionID)
}

type countingTrimmer struct {
	calls chan time.Time
}

func (c *countingTrimmer) Trim(_ context.Context, cutoff time.Time) (int64, error) {
	c.calls <- cutoff
	return 0, nil
}

func TestRetention_StartStopsWithContext(t *testing.T) {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	trimmer := &countingTrimmer{calls: make(chan time.Time, 10)}
	r := NewRetention(trimmer, time.Hour, 10*time.Millisecond, logger)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Start(ctx)
		close(done)
	}()

	select {
	case <-trimmer.calls:
	case <-time.After(2 * time.Second):
		t.Fatal("retention never swept")
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("retention did not stop")
	}
}
