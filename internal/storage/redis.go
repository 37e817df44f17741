package storage

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/Sanny1998/Virtual-chef/internal/domain"
	"github.com/Sanny1998/Virtual-chef/internal/logger"
)

// Compile-time interface check.
var _ domain.TimerStore = (*RedisTimerStore)(nil)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	// Addr is the Redis server address (host:port).
	Addr string
	// Password is the Redis password (optional).
	Password string
	// DB is the Redis database number.
	DB int
	// Prefix is the key prefix (default: "virtualchef:").
	Prefix string
}

// RedisTimerStore keeps timers in Redis so several processes can share
// one schedule. Each timer is a hash; unfired timer IDs live in a sorted
// set scored by wake time. A poller claims a timer by removing it from
// that set: only the caller whose ZREM succeeds delivers it.
type RedisTimerStore struct {
	client *redis.Client
	prefix string
	log    *logger.Logger
}

// NewRedisTimerStore connects to Redis and verifies the connection.
func NewRedisTimerStore(cfg RedisConfig, log *logger.Logger) (*RedisTimerStore, error) {
	if cfg.Addr == "" {
		return nil, errors.New("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewRedisTimerStoreFromClient(client, cfg.Prefix, log), nil
}

// NewRedisTimerStoreFromClient wraps an existing client.
func NewRedisTimerStoreFromClient(client *redis.Client, prefix string, log *logger.Logger) *RedisTimerStore {
	if prefix == "" {
		prefix = "virtualchef:"
	}
	return &RedisTimerStore{client: client, prefix: prefix, log: log}
}

func (s *RedisTimerStore) seqKey() string     { return s.prefix + "timer:seq" }
func (s *RedisTimerStore) pendingKey() string { return s.prefix + "timers:pending" }
func (s *RedisTimerStore) timerKey(id int64) string {
	return s.prefix + "timer:" + strconv.FormatInt(id, 10)
}
func (s *RedisTimerStore) userKey(userID string) string {
	return s.prefix + "user:" + userID + ":timers"
}

// Schedule allocates an ID and stores the timer as pending.
func (s *RedisTimerStore) Schedule(ctx context.Context, userID, label string, wakeAt time.Time) (*domain.Timer, error) {
	id, err := s.client.Incr(ctx, s.seqKey()).Result()
	if err != nil {
		return nil, fmt.Errorf("allocating timer id: %w", err)
	}

	wake := wakeSecond(wakeAt).Unix()
	member := strconv.FormatInt(id, 10)
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.timerKey(id),
			"user_id", userID,
			"label", label,
			"wake_at", wake,
			"fired", 0,
		)
		pipe.ZAdd(ctx, s.pendingKey(), redis.Z{Score: float64(wake), Member: member})
		pipe.ZAdd(ctx, s.userKey(userID), redis.Z{Score: float64(wake), Member: member})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scheduling timer %d: %w", id, err)
	}

	s.log.Debug("redis: scheduled timer %d %q for %s", id, label, userID)
	return &domain.Timer{ID: id, UserID: userID, Label: label, WakeAt: time.Unix(wake, 0)}, nil
}

// PollDue claims and returns every pending timer due at or before now.
func (s *RedisTimerStore) PollDue(ctx context.Context, now time.Time) ([]domain.Timer, error) {
	ids, err := s.client.ZRangeByScore(ctx, s.pendingKey(), &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now.Unix(), 10),
	}).Result()
	if err != nil {
		return nil, fmt.Errorf("listing due timers: %w", err)
	}

	var due []domain.Timer
	for _, member := range ids {
		removed, err := s.client.ZRem(ctx, s.pendingKey(), member).Result()
		if err != nil {
			return due, fmt.Errorf("claiming timer %s: %w", member, err)
		}
		if removed == 0 {
			// Another poller got it first.
			continue
		}

		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			s.log.Warn("redis: skipping malformed timer id %q", member)
			continue
		}
		if err := s.client.HSet(ctx, s.timerKey(id), "fired", 1).Err(); err != nil {
			return due, fmt.Errorf("marking timer %d fired: %w", id, err)
		}
		t, err := s.load(ctx, id)
		if err != nil {
			return due, err
		}
		due = append(due, *t)
	}
	sortTimers(due)
	return due, nil
}

// Timers returns every timer scheduled for userID.
func (s *RedisTimerStore) Timers(ctx context.Context, userID string) ([]domain.Timer, error) {
	ids, err := s.client.ZRange(ctx, s.userKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("listing timers for %s: %w", userID, err)
	}

	out := make([]domain.Timer, 0, len(ids))
	for _, member := range ids {
		id, err := strconv.ParseInt(member, 10, 64)
		if err != nil {
			continue
		}
		t, err := s.load(ctx, id)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	sortTimers(out)
	return out, nil
}

// Close closes the Redis client.
func (s *RedisTimerStore) Close() error {
	return s.client.Close()
}

func (s *RedisTimerStore) load(ctx context.Context, id int64) (*domain.Timer, error) {
	fields, err := s.client.HGetAll(ctx, s.timerKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("loading timer %d: %w", id, err)
	}
	if len(fields) == 0 {
		return nil, domain.ErrNotFound
	}

	wake, err := strconv.ParseInt(fields["wake_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("timer %d: bad wake_at %q: %w", id, fields["wake_at"], err)
	}
	return &domain.Timer{
		ID:     id,
		UserID: fields["user_id"],
		Label:  fields["label"],
		WakeAt: time.Unix(wake, 0),
		Fired:  fields["fired"] == "1",
	}, nil
}
