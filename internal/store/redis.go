package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/Priya8975/address-monitor-registry/internal/domain"
	"github.com/Priya8975/address-monitor-registry/internal/registry"
	"github.com/redis/go-redis/v9"
)

const (
	redisVersionKey  = "registry:version"
	redisCountersKey = "registry:counters"
	redisSettingsKey = "registry:settings"

	// optimistic transaction attempts before giving up on contention
	redisMaxAttempts = 16
)

// ErrTxConflict is returned when a Redis transaction keeps losing the
// optimistic lock to concurrent writers.
var ErrTxConflict = errors.New("registry transaction conflict")

// RedisStore keeps registry state in Redis. Every commit bumps a version
// key that each writer WATCHes, which gives writers a single global order.
type RedisStore struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedis(ctx context.Context, redisURL string, logger *slog.Logger) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return NewRedisWithClient(client, logger), nil
}

func NewRedisWithClient(client *redis.Client, logger *slog.Logger) *RedisStore {
	return &RedisStore{client: client, logger: logger}
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Client() *redis.Client {
	return s.client
}

func (s *RedisStore) Update(ctx context.Context, fn func(tx registry.Tx) error) error {
	for attempt := 1; attempt <= redisMaxAttempts; attempt++ {
		err := s.client.Watch(ctx, func(rtx *redis.Tx) error {
			tx := newStagedTx(redisSnapshot{rtx}, false)
			if err := fn(tx); err != nil {
				return err
			}
			_, err := rtx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				return applyRedis(ctx, pipe, tx)
			})
			return err
		}, redisVersionKey)

		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("registry transaction lost optimistic lock, rerunning", "attempt", attempt)
			continue
		}
		return err
	}
	return ErrTxConflict
}

func (s *RedisStore) View(ctx context.Context, fn func(tx registry.Tx) error) error {
	return fn(newStagedTx(redisSnapshot{s.client}, true))
}

// Deposit credits amount to p on the Redis ledger.
func (s *RedisStore) Deposit(ctx context.Context, p domain.Principal, amount uint64) error {
	if amount > domain.MaxAmount {
		return fmt.Errorf("depositing %d to %s: %w", amount, p, domain.ErrInvalidParameters)
	}
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.IncrBy(ctx, balanceKey(p), int64(amount))
		pipe.Incr(ctx, redisVersionKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("depositing to %s: %w", p, err)
	}
	return nil
}

func applyRedis(ctx context.Context, pipe redis.Pipeliner, tx *stagedTx) error {
	for id, sub := range tx.subs {
		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshaling subscription %d: %w", id, err)
		}
		pipe.Set(ctx, subscriptionKey(id), data, 0)
	}
	for k, ids := range tx.indexes {
		key := indexRedisKey(k.kind, k.key)
		members := make([]interface{}, len(ids))
		for i, id := range ids {
			members[i] = id
		}
		pipe.Del(ctx, key)
		if len(members) > 0 {
			pipe.RPush(ctx, key, members...)
		}
	}
	if c := tx.counters; c != nil {
		pipe.HSet(ctx, redisCountersKey,
			"last_id", c.LastID,
			"total_created", c.TotalCreated,
			"total_active", c.TotalActive,
		)
	}
	if st := tx.settings; st != nil {
		pipe.HSet(ctx, redisSettingsKey,
			"owner", string(st.Owner),
			"treasury", string(st.Treasury),
			"duration", st.Duration,
			"fee", st.Fee,
		)
	}
	for p, b := range tx.balances {
		pipe.Set(ctx, balanceKey(p), b, 0)
	}
	pipe.Incr(ctx, redisVersionKey)
	return nil
}

func subscriptionKey(id uint64) string {
	return fmt.Sprintf("subscription:%d", id)
}

func indexRedisKey(kind registry.IndexKind, key domain.Principal) string {
	return fmt.Sprintf("index:%s:%s", kind, key)
}

func balanceKey(p domain.Principal) string {
	return fmt.Sprintf("ledger:balance:%s", p)
}

// redisReader is the read surface shared by *redis.Client and *redis.Tx.
type redisReader interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
}

type redisSnapshot struct {
	r redisReader
}

func (s redisSnapshot) loadSubscription(ctx context.Context, id uint64) (domain.Subscription, bool, error) {
	data, err := s.r.Get(ctx, subscriptionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.Subscription{}, false, nil
	}
	if err != nil {
		return domain.Subscription{}, false, err
	}
	var sub domain.Subscription
	if err := json.Unmarshal(data, &sub); err != nil {
		return domain.Subscription{}, false, fmt.Errorf("decoding subscription %d: %w", id, err)
	}
	return sub, true, nil
}

func (s redisSnapshot) loadIndex(ctx context.Context, kind registry.IndexKind, key domain.Principal) ([]uint64, error) {
	vals, err := s.r.LRange(ctx, indexRedisKey(kind, key), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(vals))
	for _, v := range vals {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decoding %s index entry %q: %w", kind, v, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (s redisSnapshot) loadCounters(ctx context.Context) (domain.Counters, error) {
	fields, err := s.r.HGetAll(ctx, redisCountersKey).Result()
	if err != nil {
		return domain.Counters{}, err
	}
	var c domain.Counters
	for name, dst := range map[string]*uint64{
		"last_id":       &c.LastID,
		"total_created": &c.TotalCreated,
		"total_active":  &c.TotalActive,
	} {
		if *dst, err = parseUintField(fields, name); err != nil {
			return domain.Counters{}, err
		}
	}
	return c, nil
}

func (s redisSnapshot) loadSettings(ctx context.Context) (domain.Settings, bool, error) {
	fields, err := s.r.HGetAll(ctx, redisSettingsKey).Result()
	if err != nil {
		return domain.Settings{}, false, err
	}
	if len(fields) == 0 {
		return domain.Settings{}, false, nil
	}
	st := domain.Settings{
		Owner:    domain.Principal(fields["owner"]),
		Treasury: domain.Principal(fields["treasury"]),
	}
	if st.Duration, err = parseUintField(fields, "duration"); err != nil {
		return domain.Settings{}, false, err
	}
	if st.Fee, err = parseUintField(fields, "fee"); err != nil {
		return domain.Settings{}, false, err
	}
	return st, true, nil
}

func (s redisSnapshot) loadBalance(ctx context.Context, p domain.Principal) (uint64, error) {
	v, err := s.r.Get(ctx, balanceKey(p)).Uint64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	return v, err
}

func parseUintField(fields map[string]string, name string) (uint64, error) {
	v, ok := fields[name]
	if !ok || v == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decoding field %s: %w", name, err)
	}
	return n, nil
}
