package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore is a Redis-backed Store, used when multiple Responder
// replicas must share conversation history instead of each holding a
// private in-memory copy. Turns for one session are kept as a ZSET under
// a per-session key, scored by insertion order, trimmed to maxTurns on
// every Append — generalized from the teacher's own sorted-set message
// store (one global key there; one key per session_uid here).
type RedisStore struct {
	client    *redis.Client
	keyPrefix string
	maxTurns  int
	ttl       time.Duration
}

// RedisStoreConfig configures a RedisStore.
type RedisStoreConfig struct {
	Client *redis.Client
	// KeyPrefix namespaces session keys; defaults to "hey_raven:history:".
	KeyPrefix string
	// MaxTurns bounds the ring buffer length; defaults to 10.
	MaxTurns int
	// TTL refreshes on every Append so an abandoned session's history
	// eventually expires; zero means the 24h default. A negative value
	// disables expiry.
	TTL time.Duration
}

// NewRedisStore builds a RedisStore from cfg.
func NewRedisStore(cfg RedisStoreConfig) (*RedisStore, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("history: redis client is required")
	}
	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "hey_raven:history:"
	}
	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 10
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &RedisStore{client: cfg.Client, keyPrefix: prefix, maxTurns: maxTurns, ttl: ttl}, nil
}

func (s *RedisStore) key(sessionUID string) string {
	return s.keyPrefix + sessionUID
}

// Append stores turn for sessionUID, trimming to the configured ring
// buffer length and refreshing the session key's TTL.
func (s *RedisStore) Append(sessionUID string, turn Turn) {
	ctx := context.Background()
	data, err := json.Marshal(turn)
	if err != nil {
		return
	}

	key := s.key(sessionUID)
	score := float64(time.Now().UnixNano())
	pipe := s.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: score, Member: string(data)})
	pipe.ZRemRangeByRank(ctx, key, 0, int64(-s.maxTurns-1))
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	_, _ = pipe.Exec(ctx)
}

// Turns returns sessionUID's remembered turns, oldest first.
func (s *RedisStore) Turns(sessionUID string) []Turn {
	ctx := context.Background()
	members, err := s.client.ZRange(ctx, s.key(sessionUID), 0, -1).Result()
	if err != nil {
		return nil
	}

	turns := make([]Turn, 0, len(members))
	for _, m := range members {
		var t Turn
		if err := json.Unmarshal([]byte(m), &t); err == nil {
			turns = append(turns, t)
		}
	}
	return turns
}

// Clear discards all history for sessionUID.
func (s *RedisStore) Clear(sessionUID string) {
	_ = s.client.Del(context.Background(), s.key(sessionUID)).Err()
}

var _ Store = (*RedisStore)(nil)
