package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sweetpotato0/ai-dispatch/memory"
)

// RedisArchive stores turns in one Redis list per agent, trimmed to MaxTurns.
type RedisArchive struct {
	client   redis.UniversalClient
	prefix   string
	maxTurns int
	ttl      time.Duration
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string        // Redis server address (e.g., "localhost:6379")
	Password string        // Redis password (if any)
	DB       int           // Redis database number
	Prefix   string        // Key prefix for namespacing
	MaxTurns int           // Turns kept per agent (0 keeps everything)
	TTL      time.Duration // Time-to-live for keys (0 means no expiration)
}

// NewRedisArchive creates a Redis-backed archive.
func NewRedisArchive(config *RedisConfig) *RedisArchive {
	if config == nil {
		config = &RedisConfig{
			Addr:   "localhost:6379",
			Prefix: DefaultRedisPrefix,
		}
	}

	client := redis.NewClient(&redis.Options{
		Addr:     config.Addr,
		Password: config.Password,
		DB:       config.DB,
	})
	return NewRedisArchiveWithClient(client, config)
}

// NewRedisArchiveWithClient wraps an existing client.
func NewRedisArchiveWithClient(client redis.UniversalClient, config *RedisConfig) *RedisArchive {
	a := &RedisArchive{client: client, prefix: DefaultRedisPrefix}
	if config != nil {
		if config.Prefix != "" {
			a.prefix = config.Prefix
		}
		a.maxTurns = config.MaxTurns
		a.ttl = config.TTL
	}
	return a
}

func (s *RedisArchive) key(agent string) string {
	return s.prefix + agent
}

// Record appends the turn to the agent's list.
func (s *RedisArchive) Record(ctx context.Context, turn *memory.Turn) error {
	if turn == nil {
		return fmt.Errorf("turn cannot be nil")
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	key := s.key(turn.Agent)
	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, key, data)
	if s.maxTurns > 0 {
		pipe.LTrim(ctx, key, int64(-s.maxTurns), -1)
	}
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store turn in Redis: %w", err)
	}
	return nil
}

// History returns the newest limit turns for the agent, oldest first.
func (s *RedisArchive) History(ctx context.Context, agent string, limit int) ([]*memory.Turn, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}
	items, err := s.client.LRange(ctx, s.key(agent), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read turns: %w", err)
	}

	turns := make([]*memory.Turn, 0, len(items))
	for _, item := range items {
		var turn memory.Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			return nil, fmt.Errorf("failed to unmarshal turn: %w", err)
		}
		turns = append(turns, &turn)
	}
	return turns, nil
}

// Clear removes the agent's turns.
func (s *RedisArchive) Clear(ctx context.Context, agent string) error {
	if err := s.client.Del(ctx, s.key(agent)).Err(); err != nil {
		return fmt.Errorf("failed to delete turns: %w", err)
	}
	return nil
}

// Close closes the Redis connection
func (s *RedisArchive) Close() error {
	return s.client.Close()
}

// Ping checks if Redis connection is alive
func (s *RedisArchive) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
