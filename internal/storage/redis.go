package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"scrapbook/internal/domain"
)

// RedisStore keeps each page as a JSON string under its own key, plus one
// sorted set per user indexing slugs by save time.
// SET XX updates an existing page; SETNX creates one and loses races as ErrConflict.
type RedisStore struct {
	rdb         *redis.Client
	prefix      string
	indexPrefix string
	now         func() time.Time
}

func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return newRedisStore(rdb), nil
}

func newRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{
		rdb:         rdb,
		prefix:      "scrapbook:page:",
		indexPrefix: "scrapbook:pages:",
		now:         time.Now,
	}
}

func (r *RedisStore) key(k domain.PageKey) string {
	return r.prefix + k.UserID + ":" + k.Slug
}

func (r *RedisStore) indexKey(userID string) string {
	return r.indexPrefix + userID
}

func (r *RedisStore) Get(ctx context.Context, key domain.PageKey) (domain.Collection, bool, error) {
	raw, err := r.rdb.Get(ctx, r.key(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get page: %w", err)
	}
	blocks, err := decodeBlocks(raw)
	if err != nil {
		return nil, false, err
	}
	return blocks, true, nil
}

func (r *RedisStore) Upsert(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	data, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}
	updated, err := r.setExisting(ctx, key, data)
	if err != nil || updated {
		return err
	}
	return r.create(ctx, key, data)
}

// create writes a new page. Losing to another writer is ErrConflict.
func (r *RedisStore) create(ctx context.Context, key domain.PageKey, data string) error {
	created, err := r.rdb.SetNX(ctx, r.key(key), data, 0).Result()
	if err != nil {
		return fmt.Errorf("create page: %w", err)
	}
	if !created {
		return fmt.Errorf("create page: %w", domain.ErrConflict)
	}
	return r.touch(ctx, key)
}

func (r *RedisStore) Update(ctx context.Context, key domain.PageKey, blocks domain.Collection) error {
	data, err := encodeBlocks(blocks)
	if err != nil {
		return err
	}
	updated, err := r.setExisting(ctx, key, data)
	if err != nil {
		return err
	}
	if !updated {
		return fmt.Errorf("update page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (r *RedisStore) setExisting(ctx context.Context, key domain.PageKey, data string) (bool, error) {
	err := r.rdb.SetArgs(ctx, r.key(key), data, redis.SetArgs{Mode: "XX"}).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("update page: %w", err)
	}
	return true, r.touch(ctx, key)
}

// touch records the save time of key in the user's page index.
func (r *RedisStore) touch(ctx context.Context, key domain.PageKey) error {
	score := float64(r.now().UnixMilli())
	if err := r.rdb.ZAdd(ctx, r.indexKey(key.UserID), redis.Z{Score: score, Member: key.Slug}).Err(); err != nil {
		return fmt.Errorf("index page: %w", err)
	}
	return nil
}

func (r *RedisStore) List(ctx context.Context, userID string) ([]domain.PageSummary, error) {
	entries, err := r.rdb.ZRevRangeWithScores(ctx, r.indexKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	pages := []domain.PageSummary{}
	if len(entries) == 0 {
		return pages, nil
	}

	keys := make([]string, len(entries))
	for i, z := range entries {
		keys[i] = r.key(domain.PageKey{UserID: userID, Slug: fmt.Sprint(z.Member)})
	}
	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// indexed but gone
			continue
		}
		blocks, err := decodeBlocks([]byte(raw))
		if err != nil {
			return nil, err
		}
		pages = append(pages, domain.PageSummary{
			Slug:      fmt.Sprint(entries[i].Member),
			Blocks:    len(blocks),
			UpdatedAt: time.UnixMilli(int64(entries[i].Score)).UTC(),
		})
	}
	domain.SortSummaries(pages)
	return pages, nil
}

func (r *RedisStore) Delete(ctx context.Context, key domain.PageKey) error {
	var removed *redis.IntCmd
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		removed = pipe.Del(ctx, r.key(key))
		pipe.ZRem(ctx, r.indexKey(key.UserID), key.Slug)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if removed.Val() == 0 {
		return fmt.Errorf("delete page %s: %w", key, domain.ErrNotFound)
	}
	return nil
}

func (r *RedisStore) Close() error {
	return r.rdb.Close()
}
