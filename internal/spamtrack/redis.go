package spamtrack

import (
	"context"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// RedisStore keeps each window in a sorted set scored by observation time, so
// several bot shards share one view of a user's activity.
type RedisStore struct {
	client goredis.UniversalClient
	prefix string
}

func NewRedisClient(addr, password string, db int) *goredis.Client {
	return goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
}

func NewRedisStore(client goredis.UniversalClient, prefix string) *RedisStore {
	if prefix == "" {
		prefix = "guardian:spam:"
	}
	return &RedisStore{client: client, prefix: prefix}
}

func (s *RedisStore) Observe(ctx context.Context, key, member string, window time.Duration, now time.Time) (int, error) {
	if s.client == nil {
		return 0, fmt.Errorf("redis client is nil")
	}
	if key == "" || window <= 0 {
		return 0, fmt.Errorf("invalid spam window payload")
	}

	redisKey := s.prefix + key
	nowMs := now.UnixMilli()
	cutoff := nowMs - window.Milliseconds()

	var card *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.ZAdd(ctx, redisKey, goredis.Z{Score: float64(nowMs), Member: member})
		pipe.ZRemRangeByScore(ctx, redisKey, "-inf", strconv.FormatInt(cutoff, 10))
		card = pipe.ZCard(ctx, redisKey)
		pipe.PExpire(ctx, redisKey, window)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("observe spam window: %w", err)
	}
	return int(card.Val()), nil
}
