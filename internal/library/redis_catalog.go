package library

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vrplayer/vrprobe/internal/logger"
)

const defaultCatalogPrefix = "vrprobe:library:"

var (
	putScript = redis.NewScript(`
		local key = KEYS[1]
		local active_key = KEYS[2]
		local data = ARGV[1]
		local ttl = tonumber(ARGV[2])
		local id = ARGV[3]
		if ttl > 0 then
			redis.call('SET', key, data, 'PX', ttl)
		else
			redis.call('SET', key, data)
		end
		redis.call('SADD', active_key, id)
		return 1
	`)

	// listScript returns every live entry and prunes IDs whose key expired.
	listScript = redis.NewScript(`
		local active_key = KEYS[1]
		local prefix = ARGV[1]
		local active = redis.call('SMEMBERS', active_key)
		local result = {}
		local to_remove = {}

		for i, id in ipairs(active) do
			local entry = redis.call('GET', prefix .. id)
			if entry then
				table.insert(result, entry)
			else
				table.insert(to_remove, id)
			end
		end

		for i, id in ipairs(to_remove) do
			redis.call('SREM', active_key, id)
		end

		return result
	`)
)

// RedisCatalog is a Catalog shared between processes through Redis. Entries
// are JSON values under prefix+ID; an "active" set indexes them.
type RedisCatalog struct {
	client *redis.Client
	logger logger.Logger
	prefix string
	ttl    time.Duration
}

// NewRedisCatalog creates a Redis-backed catalog. A ttl of zero keeps
// entries until deleted.
func NewRedisCatalog(client *redis.Client, log logger.Logger, ttl time.Duration) *RedisCatalog {
	if log == nil {
		log = logger.NewNullLogger()
	}
	return &RedisCatalog{
		client: client,
		logger: log.WithField("component", "redis_catalog"),
		prefix: defaultCatalogPrefix,
		ttl:    ttl,
	}
}

func (r *RedisCatalog) activeKey() string { return r.prefix + "active" }

func (r *RedisCatalog) Put(ctx context.Context, e *Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal entry: %w", err)
	}

	err = putScript.Run(ctx, r.client,
		[]string{r.prefix + e.ID, r.activeKey()},
		data, r.ttl.Milliseconds(), e.ID).Err()
	if err != nil {
		return fmt.Errorf("failed to store entry: %w", err)
	}

	r.logger.WithFields(map[string]interface{}{
		"entry_id": e.ID,
		"path":     e.Path,
	}).Debug("Catalog entry stored")
	return nil
}

func (r *RedisCatalog) Get(ctx context.Context, id string) (*Entry, error) {
	data, err := r.client.Get(ctx, r.prefix+id).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to get entry: %w", err)
	}

	var e Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to unmarshal entry: %w", err)
	}
	return &e, nil
}

func (r *RedisCatalog) List(ctx context.Context) ([]*Entry, error) {
	res, err := listScript.Run(ctx, r.client, []string{r.activeKey()}, r.prefix).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	values, ok := res.([]interface{})
	if !ok {
		return nil, fmt.Errorf("unexpected result type from list script")
	}

	entries := make([]*Entry, 0, len(values))
	for _, val := range values {
		data, ok := val.(string)
		if !ok {
			r.logger.Warn("Invalid data type in list result")
			continue
		}

		var e Entry
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			r.logger.WithError(err).Warn("Failed to unmarshal catalog entry")
			continue
		}
		entries = append(entries, &e)
	}

	sortEntries(entries)
	return entries, nil
}

func (r *RedisCatalog) Delete(ctx context.Context, id string) error {
	deleted, err := r.client.Del(ctx, r.prefix+id).Result()
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}

	if err := r.client.SRem(ctx, r.activeKey(), id).Err(); err != nil {
		r.logger.WithError(err).Warnf("Failed to remove %s from active set", id)
	}

	if deleted == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// Close closes the underlying client.
func (r *RedisCatalog) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}
