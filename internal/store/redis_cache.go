package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/serroba/shortlink/internal/shortener"
)

// fillGuardTTL bounds how long write markers outlive the write. It only has
// to cover a lookup that was in flight while the write committed.
const fillGuardTTL = time.Minute

var errStaleFill = errors.New("cache fill raced a write")

// RedisCacheRepository wraps a Repository with Redis caching for lookups.
// Writes go to the underlying store first and then evict the affected keys,
// so cached click counts are never older than the last redirect.
//
// A lookup that read the store before a write committed must not put its
// result back after the eviction. Writes bump a generation per lookup key and
// deletes leave a tombstone per id; a fill is dropped when either changed.
type RedisCacheRepository struct {
	store    shortener.Repository
	client   *redis.Client
	keyPfx   string // lookup key -> cached entity (hash)
	indexPfx string // url id -> lookup keys of that url (hash)
	genPfx   string // lookup key -> write generation
	tombPfx  string // url id -> deleted marker
	ttl      time.Duration
}

// NewRedisCacheRepository creates a new Redis-cached repository decorator.
func NewRedisCacheRepository(
	store shortener.Repository, client *redis.Client, ttl time.Duration,
) *RedisCacheRepository {
	return &RedisCacheRepository{
		store:    store,
		client:   client,
		keyPfx:   "shorturl:key:",
		indexPfx: "shorturl:id:",
		genPfx:   "shorturl:gen:",
		tombPfx:  "shorturl:deleted:",
		ttl:      ttl,
	}
}

// Create stores a short URL and drops cached lookups its code or alias may shadow.
func (r *RedisCacheRepository) Create(ctx context.Context, shortURL *shortener.ShortURL) error {
	if err := r.store.Create(ctx, shortURL); err != nil {
		return err
	}

	r.evict(ctx, shortURL)

	return nil
}

// FindByKey retrieves a short URL by code or alias, checking cache first.
func (r *RedisCacheRepository) FindByKey(ctx context.Context, key string) (*shortener.ShortURL, error) {
	if url, err := r.getFromCache(ctx, key); err == nil {
		return url, nil
	}

	gen := r.generation(ctx, r.client, key)

	url, err := r.store.FindByKey(ctx, key)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, key, gen, url)

	return url, nil
}

// FindByCode serves from the cache only when the cached entry owns the code.
func (r *RedisCacheRepository) FindByCode(ctx context.Context, code shortener.Code) (*shortener.ShortURL, error) {
	if url, err := r.getFromCache(ctx, string(code)); err == nil && url.Code == code {
		return url, nil
	}

	gen := r.generation(ctx, r.client, string(code))

	url, err := r.store.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	r.cacheURL(ctx, string(code), gen, url)

	return url, nil
}

func (r *RedisCacheRepository) FindByOriginalURL(
	ctx context.Context, originalURL string,
) (*shortener.ShortURL, error) {
	return r.store.FindByOriginalURL(ctx, originalURL)
}

// ResolveAndTrack always hits the store and evicts the entity afterwards.
func (r *RedisCacheRepository) ResolveAndTrack(
	ctx context.Context, key string, click *shortener.ClickEvent,
) (*shortener.ShortURL, error) {
	url, err := r.store.ResolveAndTrack(ctx, key, click)
	if err != nil {
		return nil, err
	}

	r.evict(ctx, url)

	return url, nil
}

func (r *RedisCacheRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.store.Delete(ctx, id); err != nil {
		return err
	}

	// Cache maintenance is best effort from here on, the row is already gone.
	_ = r.client.Set(ctx, r.tombPfx+id.String(), 1, fillGuardTTL).Err()

	indexKey := r.indexPfx + id.String()

	keys, err := r.client.HKeys(ctx, indexKey).Result()
	if err != nil {
		return nil //nolint:nilerr // cache eviction is best effort
	}

	toDelete := []string{indexKey}
	for _, k := range keys {
		toDelete = append(toDelete, r.keyPfx+k)
	}

	_ = r.client.Del(ctx, toDelete...).Err()

	return nil
}

func (r *RedisCacheRepository) RecentClicks(
	ctx context.Context, urlID uuid.UUID, limit int,
) ([]shortener.ClickEvent, error) {
	return r.store.RecentClicks(ctx, urlID, limit)
}

func (r *RedisCacheRepository) getFromCache(ctx context.Context, key string) (*shortener.ShortURL, error) {
	result, err := r.client.HGetAll(ctx, r.keyPfx+key).Result()
	if err != nil {
		return nil, err
	}

	if len(result) == 0 {
		return nil, shortener.ErrNotFound
	}

	id, err := uuid.Parse(result["id"])
	if err != nil {
		return nil, err
	}

	url := &shortener.ShortURL{
		ID:          id,
		OriginalURL: result["original_url"],
		Code:        shortener.Code(result["code"]),
		CustomAlias: result["custom_alias"],
	}

	if n, err := strconv.ParseInt(result["click_count"], 10, 64); err == nil {
		url.ClickCount = n
	}

	if nanos, err := strconv.ParseInt(result["created_at"], 10, 64); err == nil {
		url.CreatedAt = time.Unix(0, nanos).UTC()
	}

	if nanos, err := strconv.ParseInt(result["expires_at"], 10, 64); err == nil && nanos != 0 {
		expiresAt := time.Unix(0, nanos).UTC()
		url.ExpiresAt = &expiresAt
	}

	return url, nil
}

// generation returns the write generation of key, zero when none was recorded.
func (r *RedisCacheRepository) generation(ctx context.Context, c redis.Cmdable, key string) int64 {
	gen, err := c.Get(ctx, r.genPfx+key).Int64()
	if err != nil {
		return 0
	}

	return gen
}

// cacheURL stores url under key unless a write touched key after gen was read
// or url was deleted meanwhile.
func (r *RedisCacheRepository) cacheURL(ctx context.Context, key string, gen int64, url *shortener.ShortURL) {
	var expiresAt int64
	if url.ExpiresAt != nil {
		expiresAt = url.ExpiresAt.UnixNano()
	}

	genKey := r.genPfx + key
	tombKey := r.tombPfx + url.ID.String()
	cacheKey := r.keyPfx + key
	indexKey := r.indexPfx + url.ID.String()

	_ = r.client.Watch(ctx, func(tx *redis.Tx) error {
		if r.generation(ctx, tx, key) != gen {
			return errStaleFill
		}

		if n, err := tx.Exists(ctx, tombKey).Result(); err != nil || n > 0 {
			return errStaleFill
		}

		_, err := tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, cacheKey, map[string]interface{}{
				"id":           url.ID.String(),
				"original_url": url.OriginalURL,
				"code":         string(url.Code),
				"custom_alias": url.CustomAlias,
				"click_count":  url.ClickCount,
				"created_at":   url.CreatedAt.UnixNano(),
				"expires_at":   expiresAt,
			})
			pipe.HSet(ctx, indexKey, key, 1)

			if r.ttl > 0 {
				pipe.Expire(ctx, cacheKey, r.ttl)
				pipe.Expire(ctx, indexKey, r.ttl)
			}

			return nil
		})

		return err
	}, genKey, tombKey)
}

// evict bumps the generation of every lookup key that can resolve to url,
// then drops the cached entries.
func (r *RedisCacheRepository) evict(ctx context.Context, url *shortener.ShortURL) {
	keys := []string{string(url.Code)}
	if url.CustomAlias != "" {
		keys = append(keys, url.CustomAlias)
	}

	pipe := r.client.TxPipeline()
	cacheKeys := make([]string, 0, len(keys))

	for _, k := range keys {
		pipe.Incr(ctx, r.genPfx+k)
		pipe.Expire(ctx, r.genPfx+k, fillGuardTTL)

		cacheKeys = append(cacheKeys, r.keyPfx+k)
	}

	pipe.Del(ctx, cacheKeys...)

	_, _ = pipe.Exec(ctx)
}

// Shutdown is a no-op for RedisCacheRepository (client managed externally).
func (r *RedisCacheRepository) Shutdown() error {
	return nil
}

// Compile-time check.
var _ shortener.Repository = (*RedisCacheRepository)(nil)
