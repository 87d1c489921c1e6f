package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/levenlabs/go-lflag"
	"github.com/redis/go-redis/v9"
	"github.com/sunnyrelay/sunnyrelay/pkg/log"
	"github.com/sunnyrelay/sunnyrelay/pkg/types"
)

const (
	// same key layout the host uses for its redis objects/states databases
	redisObjectPrefix = "cfg.o."
	redisStatePrefix  = "io."

	redisDialTimeout  = 5 * time.Second
	redisReadTimeout  = 3 * time.Second
	redisWriteTimeout = 3 * time.Second
)

// RedisProvider implements Database on top of a redis server.
type RedisProvider struct {
	client   *redis.Client
	addr     string
	password string
	db       int
}

// configuredRedis sets up the redis provider.
// It registers flags for configuration.
func configuredRedis() *RedisProvider {
	addr := lflag.String("redis-addr", "127.0.0.1:6379", "Address (host:port) of the redis states database")
	password := lflag.String("redis-password", "", "Password for the redis states database")
	db := lflag.Int("redis-db", 0, "Redis database number")

	r := &RedisProvider{}

	lflag.Do(func() {
		r.addr = strings.TrimSpace(*addr)
		r.password = *password
		r.db = *db
	})

	return r
}

// Validate checks if the provider is properly configured.
func (r *RedisProvider) Validate() error {
	if r.addr == "" {
		return errors.New("redis-addr is required")
	}
	if r.db < 0 {
		return fmt.Errorf("invalid redis-db: %d", r.db)
	}
	return nil
}

// Init connects to redis and validates the connection with PING.
func (r *RedisProvider) Init(ctx context.Context) error {
	client := redis.NewClient(&redis.Options{
		Addr:         r.addr,
		Password:     r.password,
		DB:           r.db,
		DialTimeout:  redisDialTimeout,
		ReadTimeout:  redisReadTimeout,
		WriteTimeout: redisWriteTimeout,
	})

	ctx, cancel := context.WithTimeout(ctx, redisDialTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return fmt.Errorf("failed to ping redis (addr=%s): %w", r.addr, err)
	}
	r.client = client
	return nil
}

// Close closes the redis connection pool.
func (r *RedisProvider) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// EnsureObject stores the object with SETNX so an existing object is kept.
func (r *RedisProvider) EnsureObject(ctx context.Context, obj types.StateObject) error {
	data, err := json.Marshal(obj)
	if err != nil {
		return fmt.Errorf("failed to marshal object: %w", err)
	}
	created, err := r.client.SetNX(ctx, redisObjectPrefix+obj.ID, data, 0).Result()
	if err != nil {
		return fmt.Errorf("failed to ensure object %s: %w", obj.ID, err)
	}
	if created {
		log.Ctx(ctx).DebugContext(ctx, "created state object", slog.String("id", obj.ID))
	}
	return nil
}

// SetState implements Database.
func (r *RedisProvider) SetState(ctx context.Context, id string, state types.State) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if err := r.client.Set(ctx, redisStatePrefix+id, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to set state %s: %w", id, err)
	}
	return nil
}

// GetState implements Database.
func (r *RedisProvider) GetState(ctx context.Context, id string) (types.State, error) {
	res, err := r.client.Get(ctx, redisStatePrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return types.State{}, ErrStateNotFound
	}
	if err != nil {
		return types.State{}, fmt.Errorf("failed to get state %s: %w", id, err)
	}
	var s types.State
	if err := json.Unmarshal([]byte(res), &s); err != nil {
		return types.State{}, fmt.Errorf("failed to unmarshal state %s: %w", id, err)
	}
	return s, nil
}

// escapeGlob escapes the characters redis treats specially in a MATCH pattern.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, c := range s {
		switch c {
		case '*', '?', '[', ']', '\\':
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

// ListStates scans the state keys under prefix.
func (r *RedisProvider) ListStates(ctx context.Context, prefix string) ([]types.StateEntry, error) {
	var entries []types.StateEntry
	iter := r.client.Scan(ctx, 0, escapeGlob(redisStatePrefix+prefix)+"*", 100).Iterator()
	for iter.Next(ctx) {
		id := strings.TrimPrefix(iter.Val(), redisStatePrefix)
		s, err := r.GetState(ctx, id)
		if errors.Is(err, ErrStateNotFound) {
			// deleted between SCAN and GET
			continue
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, types.StateEntry{ID: id, State: s})
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("error scanning states: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}
