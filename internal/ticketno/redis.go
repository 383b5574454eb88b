// Package ticketno keeps the daily ticket sequence in Redis.
package ticketno

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cloo-solutions/supporthub/internal/logger"
)

const (
	keyPrefix = "ticketno:"
	// KeyTTL keeps yesterday's counter around long enough for requests that
	// straddle midnight.
	KeyTTL = 48 * time.Hour
)

type Config struct {
	Addr     string
	Password string
	DB       int
}

// RedisSequence allocates per-day ticket sequence numbers with INCR.
type RedisSequence struct {
	rdb *goredis.Client
	log *logger.Logger
}

// Connect dials Redis and verifies the connection with a ping.
func Connect(ctx context.Context, cfg Config, log *logger.Logger) (*RedisSequence, error) {
	if cfg.Addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	if log == nil {
		log = logger.NewNop()
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        cfg.Addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Info("redis ticket sequence connected", "addr", cfg.Addr, "db", cfg.DB)
	return NewRedisSequence(rdb, log), nil
}

func NewRedisSequence(rdb *goredis.Client, log *logger.Logger) *RedisSequence {
	if log == nil {
		log = logger.NewNop()
	}
	return &RedisSequence{rdb: rdb, log: log.With("component", "ticket_sequence")}
}

// Key returns the counter key for day, e.g. ticketno:20260226.
func Key(day time.Time) string {
	return keyPrefix + day.Format("20060102")
}

// Next increments and returns the counter for day. The first call of a day
// returns 1.
func (s *RedisSequence) Next(ctx context.Context, day time.Time) (int64, error) {
	key := Key(day)

	pipe := s.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.Expire(ctx, key, KeyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis incr %s: %w", key, err)
	}

	seq := incr.Val()
	s.log.Debug("ticket sequence allocated", "key", key, "seq", seq)
	return seq, nil
}

func (s *RedisSequence) Close() error {
	return s.rdb.Close()
}
