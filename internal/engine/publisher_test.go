package engine

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func setupTestPublisher(t *testing.T) (*Publisher, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewPublisher(client, logger), mr, client
}

func TestQueueDepth_Empty(t *testing.T) {
	p, _, _ := setupTestPublisher(t)

	depth, err := p.QueueDepth(context.Background())
	if err != nil {
		t.Fatalf("failed to get queue depth: %v", err)
	}
	if depth != 0 {
		t.Errorf("expected empty queue, got depth %d", depth)
	}
}

func TestPublish_QueuesEvent(t *testing.T) {
	p, _, client := setupTestPublisher(t)
	ctx := context.Background()

	event := domain.Event{
		ID:             "evt-1",
		Type:           domain.EventSubscriptionCreated,
		SubscriptionID: 7,
		Caller:         "SP1OWNER",
		Address:        "SP2WATCHED",
		Expiry:         4420,
		Height:         100,
		Timestamp:      time.Now(),
	}
	if err := p.Publish(ctx, event); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	members, err := client.ZRange(ctx, EventQueueKey, 0, -1).Result()
	if err != nil {
		t.Fatalf("failed to read queue: %v", err)
	}
	if len(members) != 1 {
		t.Fatalf("expected 1 queued event, got %d", len(members))
	}

	var decoded domain.Event
	if err := json.Unmarshal([]byte(members[0]), &decoded); err != nil {
		t.Fatalf("failed to decode queued event: %v", err)
	}
	if decoded.SubscriptionID != 7 || decoded.Type != domain.EventSubscriptionCreated {
		t.Errorf("unexpected queued event: %+v", decoded)
	}
	if decoded.Address != "SP2WATCHED" {
		t.Errorf("Address: got %q, want %q", decoded.Address, "SP2WATCHED")
	}
}

func TestQueueDepth_AfterNotify(t *testing.T) {
	p, _, _ := setupTestPublisher(t)
	ctx := context.Background()

	base := time.Now()
	for i := 0; i < 3; i++ {
		p.Notify(ctx, domain.Event{
			ID:             string(rune('a' + i)),
			Type:           domain.EventSubscriptionRenewed,
			SubscriptionID: uint64(i + 1),
			Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
		})
	}

	depth, err := p.QueueDepth(ctx)
	if err != nil {
		t.Fatalf("failed to get queue depth: %v", err)
	}
	if depth != 3 {
		t.Errorf("expected queue depth 3, got %d", depth)
	}
}

func TestNotify_RedisDownDoesNotPanic(t *testing.T) {
	p, mr, _ := setupTestPublisher(t)
	mr.Close()

	p.Notify(context.Background(), domain.Event{ID: "evt-lost", Timestamp: time.Now()})
}

func TestEventQueueKey_Constant(t *testing.T) {
	if EventQueueKey != "subscription_events" {
		t.Errorf("expected EventQueueKey = %q, got %q", "subscription_events", EventQueueKey)
	}
}

func TestRecent_NewestFirstAndFiltered(t *testing.T) {
	p, _, _ := setupTestPublisher(t)
	ctx := context.Background()

	base := time.Now()
	types := []string{
		domain.EventSubscriptionCreated,
		domain.EventSubscriptionRenewed,
		domain.EventSubscriptionCreated,
	}
	for i, typ := range types {
		if err := p.Publish(ctx, domain.Event{
			ID:             string(rune('a' + i)),
			Type:           typ,
			SubscriptionID: uint64(i + 1),
			Timestamp:      base.Add(time.Duration(i) * time.Millisecond),
		}); err != nil {
			t.Fatalf("publish failed: %v", err)
		}
	}

	all, err := p.Recent(ctx, "", 10)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(all) != 3 || all[0].SubscriptionID != 3 {
		t.Fatalf("expected 3 events newest first, got %+v", all)
	}

	created, err := p.Recent(ctx, domain.EventSubscriptionCreated, 1)
	if err != nil {
		t.Fatalf("recent failed: %v", err)
	}
	if len(created) != 1 || created[0].SubscriptionID != 3 {
		t.Errorf("expected newest created event only, got %+v", created)
	}
}
