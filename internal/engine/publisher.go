package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/redis/go-redis/v9"
)

const EventQueueKey = "subscription_events"

// Publisher queues committed registry changes in a Redis sorted set, scored
// by publish time, for the downstream alert evaluator.
type Publisher struct {
	redisClient *redis.Client
	logger      *slog.Logger
}

func NewPublisher(redisClient *redis.Client, logger *slog.Logger) *Publisher {
	return &Publisher{
		redisClient: redisClient,
		logger:      logger,
	}
}

// Publish adds event to the queue.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}

	err = p.redisClient.ZAdd(ctx, EventQueueKey, redis.Z{
		Score:  float64(event.Timestamp.UnixMicro()),
		Member: string(data),
	}).Err()
	if err != nil {
		return fmt.Errorf("queuing event to redis: %w", err)
	}
	return nil
}

// Notify publishes event and logs failures. The registry change has already
// committed, so a lost event never undoes it.
func (p *Publisher) Notify(ctx context.Context, event domain.Event) {
	if err := p.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish registry event",
			"error", err,
			"event_type", event.Type,
			"subscription_id", event.SubscriptionID,
		)
		return
	}
	p.logger.Debug("registry event published", "event_id", event.ID, "event_type", event.Type)
}

// QueueDepth returns the number of events waiting in the queue.
func (p *Publisher) QueueDepth(ctx context.Context) (int64, error) {
	return p.redisClient.ZCard(ctx, EventQueueKey).Result()
}

// Recent returns up to limit queued events, newest first, optionally
// restricted to a single event type.
func (p *Publisher) Recent(ctx context.Context, eventType string, limit int) ([]domain.Event, error) {
	members, err := p.redisClient.ZRevRange(ctx, EventQueueKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("reading event queue: %w", err)
	}

	events := make([]domain.Event, 0, min(limit, len(members)))
	for _, m := range members {
		if len(events) == limit {
			break
		}
		var event domain.Event
		if err := json.Unmarshal([]byte(m), &event); err != nil {
			p.logger.Warn("skipping malformed queued event", "error", err)
			continue
		}
		if eventType != "" && event.Type != eventType {
			continue
		}
		events = append(events, event)
	}
	return events, nil
}

// Trim drops queued events published before cutoff and returns how many
// were removed.
func (p *Publisher) Trim(ctx context.Context, cutoff time.Time) (int64, error) {
	removed, err := p.redisClient.ZRemRangeByScore(ctx, EventQueueKey,
		"-inf", "("+strconv.FormatInt(cutoff.UnixMicro(), 10),
	).Result()
	if err != nil {
		return 0, fmt.Errorf("trimming event queue: %w", err)
	}
	return removed, nil
}
