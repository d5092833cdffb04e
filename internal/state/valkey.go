package state

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const valkeyKeyPrefix = "nexo-alert:"

// ValkeyBackend keeps each store as a Valkey/Redis list.
type ValkeyBackend struct {
	client *redis.Client
}

func NewValkeyBackend(addr, password string) (*ValkeyBackend, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to connect to valkey: %w", err)
	}

	return &ValkeyBackend{client: rdb}, nil
}

func (b *ValkeyBackend) Store(name string) Store {
	return &valkeyList{client: b.client, key: valkeyKeyPrefix + name}
}

func (b *ValkeyBackend) Close() error {
	return b.client.Close()
}

type valkeyList struct {
	client *redis.Client
	key    string
}

func (s *valkeyList) Load(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	lines, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", s.key, err)
	}
	return lines, nil
}

// Append is a single RPUSH, which Valkey applies atomically.
func (s *valkeyList) Append(ctx context.Context, lines []string) error {
	if len(lines) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := s.client.RPush(ctx, s.key, toArgs(lines)...).Err(); err != nil {
		return fmt.Errorf("failed to append to %s: %w", s.key, err)
	}
	return nil
}

func (s *valkeyList) Save(ctx context.Context, lines []string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, s.key)
		if len(lines) > 0 {
			pipe.RPush(ctx, s.key, toArgs(lines)...)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", s.key, err)
	}
	return nil
}

func toArgs(lines []string) []interface{} {
	args := make([]interface{}, len(lines))
	for i, l := range lines {
		args[i] = l
	}
	return args
}
