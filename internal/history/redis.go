package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	defaultTTL     = 24 * time.Hour
	defaultMaxKeep = 200
)

// RedisConfig describes the history cache connection.
type RedisConfig struct {
	Addr     string        `json:"addr" mapstructure:"addr"`
	Password string        `json:"password,omitempty" mapstructure:"password"`
	DB       int           `json:"db,omitempty" mapstructure:"db"`
	TTL      time.Duration `json:"ttl,omitempty" mapstructure:"ttl"`
}

// Redis stores session history as a capped redis list per session.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedis constructs a redis-backed history store.
func NewRedis(cfg RedisConfig) (*Redis, error) {
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("history redis addr is required")
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return &Redis{client: client, ttl: ttl}, nil
}

func sessionKey(sessionID string) string {
	return "quest:history:" + sessionID
}

// GetRecent implements Store. Messages are returned oldest first.
func (r *Redis) GetRecent(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	if limit <= 0 {
		return nil, nil
	}
	raw, err := r.client.LRange(ctx, sessionKey(sessionID), int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("history lrange: %w", err)
	}
	messages := make([]Message, 0, len(raw))
	for _, item := range raw {
		var m Message
		if err := json.Unmarshal([]byte(item), &m); err != nil {
			continue
		}
		messages = append(messages, m)
	}
	return messages, nil
}

// Save implements Store.
func (r *Redis) Save(ctx context.Context, sessionID, role, content string) error {
	data, err := json.Marshal(Message{Role: role, Content: content})
	if err != nil {
		return fmt.Errorf("marshal history message: %w", err)
	}
	key := sessionKey(sessionID)
	pipe := r.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.LTrim(ctx, key, int64(-defaultMaxKeep), -1)
	pipe.Expire(ctx, key, r.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history save: %w", err)
	}
	return nil
}

// Close releases the redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}
