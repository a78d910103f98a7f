package escalation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/warden-chat/warden/event"
)

var redisHistoryPrefix = "warden/history/"

// RedisHistoryStore keeps violation history in redis, for deployments where
// several moderation workers share escalation state. Each actor key maps to a
// list of JSON-encoded records; retention is enforced server-side with key
// TTLs, so Sweep is a no-op.
type RedisHistoryStore struct {
	Client     *redis.Client
	MaxRecords int
	Retention  time.Duration
}

var _ HistoryStore = (*RedisHistoryStore)(nil)

func NewRedisHistoryStore(redisURL string, maxRecords int, retention time.Duration) (*RedisHistoryStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	if _, err := rdb.Ping(context.TODO()).Result(); err != nil {
		return nil, err
	}
	if maxRecords <= 0 {
		maxRecords = 50
	}
	if retention == 0 {
		retention = 14 * 24 * time.Hour
	}
	return &RedisHistoryStore{Client: rdb, MaxRecords: maxRecords, Retention: retention}, nil
}

func historyKey(key event.ActorKey) string {
	// length-prefixed parts, so IDs containing "/" cannot collide
	return fmt.Sprintf("%s%d:%s/%d:%s", redisHistoryPrefix, len(key.GuildID), key.GuildID, len(key.ActorID), key.ActorID)
}

func (s *RedisHistoryStore) Append(ctx context.Context, rec ActionRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	key := historyKey(rec.Key())

	// push, trim, and refresh expiry in a single round-trip
	multi := s.Client.Pipeline()
	multi.RPush(ctx, key, raw)
	multi.LTrim(ctx, key, int64(-s.MaxRecords), -1)
	multi.Expire(ctx, key, s.Retention)
	_, err = multi.Exec(ctx)
	return err
}

func (s *RedisHistoryStore) List(ctx context.Context, key event.ActorKey) ([]ActionRecord, error) {
	vals, err := s.Client.LRange(ctx, historyKey(key), 0, -1).Result()
	if err == redis.Nil {
		return nil, nil
	} else if err != nil {
		return nil, err
	}
	out := make([]ActionRecord, 0, len(vals))
	for _, v := range vals {
		var rec ActionRecord
		if err := json.Unmarshal([]byte(v), &rec); err != nil {
			return nil, fmt.Errorf("decoding history record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisHistoryStore) Clear(ctx context.Context, key event.ActorKey) error {
	return s.Client.Del(ctx, historyKey(key)).Err()
}

func (s *RedisHistoryStore) Sweep(ctx context.Context, cutoff time.Time) (int, error) {
	// key TTLs handle retention server-side
	return 0, nil
}
