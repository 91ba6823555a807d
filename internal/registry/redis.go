// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RedisConfig holds Redis connection configuration.
type RedisConfig struct {
	Addr      string // Redis server address (host:port)
	Password  string // Redis password (optional)
	DB        int    // Redis database number
	KeyPrefix string // prefix for collection hashes (default "settings")
}

// Redis is a Registry shared between processes through Redis.
// Each collection is a hash whose fields are leaf item paths holding JSON.
// Map keys inside a value are escaped in field names (see fieldName).
type Redis struct {
	client *redis.Client
	prefix string
	logger zerolog.Logger
}

var _ Registry = (*Redis)(nil)

// NewRedis connects to Redis and verifies the connection.
func NewRedis(config RedisConfig, logger zerolog.Logger) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         config.Addr,
		Password:     config.Password,
		DB:           config.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 2,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	logger.Info().
		Str("addr", config.Addr).
		Int("db", config.DB).
		Msg("connected to Redis registry")

	return newRedisWithClient(client, config.KeyPrefix, logger), nil
}

func newRedisWithClient(client *redis.Client, prefix string, logger zerolog.Logger) *Redis {
	if prefix == "" {
		prefix = "settings"
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

func (r *Redis) key(collection string) string {
	return r.prefix + ":" + collection
}

func (r *Redis) Get(ctx context.Context, collection, item string) (any, bool, error) {
	if err := validate(collection, item); err != nil {
		return nil, false, err
	}
	key := r.key(collection)
	field := fieldName(splitPath(item))

	if item != "" {
		raw, err := r.client.HGet(ctx, key, field).Result()
		switch {
		case err == nil:
			v, err := decode(raw)
			if err != nil {
				return nil, false, fmt.Errorf("decode %s.%s: %w", collection, item, err)
			}
			return v, true, nil
		case err != redis.Nil:
			return nil, false, fmt.Errorf("redis hget: %w", err)
		}
	}

	// Not a leaf: reassemble the subtree from fields below item.
	fields, err := r.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, false, fmt.Errorf("redis hgetall: %w", err)
	}
	sub, err := assemble(fields, field)
	if err != nil {
		return nil, false, fmt.Errorf("decode %s: %w", collection, err)
	}
	if len(sub) == 0 {
		return nil, false, nil
	}
	return sub, true, nil
}

func (r *Redis) Set(ctx context.Context, collection, item string, value any) error {
	if err := validate(collection, item); err != nil {
		return err
	}
	key := r.key(collection)

	leaves := make(map[string]any)
	if item == "" {
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: replacing collection %q requires a map, got %T", ErrInvalidPath, collection, value)
		}
		if len(m) > 0 {
			flatten(nil, m, leaves)
		}
	} else {
		flatten(splitPath(item), value, leaves)
	}

	encoded := make(map[string]any, len(leaves))
	for field, v := range leaves {
		buf, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("encode %s.%s: %w", collection, field, err)
		}
		encoded[field] = string(buf)
	}

	stale, err := r.replacedFields(ctx, key, item)
	if err != nil {
		return err
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if item == "" {
			pipe.Del(ctx, key)
		} else if len(stale) > 0 {
			pipe.HDel(ctx, key, stale...)
		}
		if len(encoded) > 0 {
			pipe.HSet(ctx, key, encoded)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis set %s: %w", collection, err)
	}
	return nil
}

// replacedFields lists the fields a write at item overwrites: the item
// itself, every field below it, and every scalar ancestor.
func (r *Redis) replacedFields(ctx context.Context, key, item string) ([]string, error) {
	if item == "" {
		return nil, nil
	}
	names, err := r.client.HKeys(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hkeys: %w", err)
	}
	segs := splitPath(item)
	field := fieldName(segs)
	ancestors := make(map[string]struct{}, len(segs))
	for i := 1; i < len(segs); i++ {
		ancestors[fieldName(segs[:i])] = struct{}{}
	}

	var out []string
	for _, name := range names {
		if _, ok := ancestors[name]; ok || name == field || strings.HasPrefix(name, field+".") {
			out = append(out, name)
		}
	}
	return out, nil
}

func (r *Redis) Forget(ctx context.Context, collection, item string) error {
	if err := validate(collection, item); err != nil {
		return err
	}
	key := r.key(collection)
	if item == "" {
		if err := r.client.Del(ctx, key).Err(); err != nil {
			return fmt.Errorf("redis del: %w", err)
		}
		return nil
	}

	names, err := r.client.HKeys(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("redis hkeys: %w", err)
	}
	field := fieldName(splitPath(item))
	var doomed []string
	for _, name := range names {
		if name == field || strings.HasPrefix(name, field+".") {
			doomed = append(doomed, name)
		}
	}
	if len(doomed) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, key, doomed...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}

func (r *Redis) Collection(ctx context.Context, collection string) (map[string]any, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}
	fields, err := r.client.HGetAll(ctx, r.key(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis hgetall: %w", err)
	}
	out, err := assemble(fields, "")
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", collection, err)
	}
	return out, nil
}

func (r *Redis) Collections(ctx context.Context) ([]string, error) {
	var (
		out    []string
		cursor uint64
	)
	pattern := r.prefix + ":*"
	for {
		keys, next, err := r.client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan: %w", err)
		}
		for _, k := range keys {
			out = append(out, strings.TrimPrefix(k, r.prefix+":"))
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	sort.Strings(out)
	return out, nil
}

// Close closes the Redis connection.
func (r *Redis) Close() error {
	return r.client.Close()
}

// HealthCheck checks if Redis is available.
func (r *Redis) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func decode(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// assemble rebuilds the nested map for the fields below the field name
// parent, or for every field when parent is empty.
func assemble(fields map[string]string, parent string) (map[string]any, error) {
	out := make(map[string]any)
	prefix := ""
	if parent != "" {
		prefix = parent + "."
	}
	for name, raw := range fields {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		segs := fieldSegments(strings.TrimPrefix(name, prefix))
		if len(segs) == 0 {
			continue
		}
		v, err := decode(raw)
		if err != nil {
			return nil, err
		}
		setPath(out, segs, v)
	}
	return out, nil
}
