package search

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

const (
	KeyPrefix  = "search-"
	DefaultTTL = 24 * time.Hour
)

// ResultCache stores search results by normalized query for a fixed TTL.
//
// Expired entries are deleted when read and reported as a miss.
type ResultCache struct {
	store  kvstore.Store
	ttl    time.Duration
	now    func() time.Time
	logger *log.Logger
}

// NewResultCache creates a result cache over store. A non-positive ttl uses [DefaultTTL].
func NewResultCache(store kvstore.Store, ttl time.Duration, now func() time.Time, logger *log.Logger) *ResultCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &ResultCache{store: store, ttl: ttl, now: now, logger: shared.WithLogger(logger, "component", "results")}
}

// Key returns the storage key for query.
func Key(query string) string {
	return KeyPrefix + shared.NormalizeQuery(query)
}

// Get returns the cached results for query. Store faults are logged and reported
// as a miss.
func (c *ResultCache) Get(ctx context.Context, query string) ([]models.Track, bool) {
	entry, ok := c.entry(ctx, Key(query))
	if !ok {
		return nil, false
	}
	return entry.Results, true
}

// Put writes results for query, replacing any earlier entry.
func (c *ResultCache) Put(ctx context.Context, query string, results []models.Track) error {
	if results == nil {
		results = []models.Track{}
	}
	raw, err := json.Marshal(models.QueryCacheEntry{
		Query:     shared.NormalizeQuery(query),
		Results:   results,
		Timestamp: c.now(),
	})
	if err != nil {
		return err
	}
	return c.store.Put(ctx, Key(query), raw)
}

// PurgeExpired deletes every expired or unreadable entry and returns how many
// were removed.
func (c *ResultCache) PurgeExpired(ctx context.Context) int {
	removed := 0
	for _, key := range c.keys(ctx) {
		raw, err := c.store.Get(ctx, key)
		if err != nil {
			continue
		}

		var entry models.QueryCacheEntry
		if json.Unmarshal(raw, &entry) == nil && !c.expired(entry) {
			continue
		}
		if c.delete(ctx, key) {
			removed++
		}
	}

	if removed > 0 {
		c.logger.Info("purged expired searches", "removed", removed)
	}
	return removed
}

// Find returns a track from any unexpired cached search.
func (c *ResultCache) Find(ctx context.Context, trackID string) (models.Track, bool) {
	for _, key := range c.keys(ctx) {
		entry, ok := c.entry(ctx, key)
		if !ok {
			continue
		}
		for _, tr := range entry.Results {
			if tr.ID == trackID {
				return tr, true
			}
		}
	}
	return models.Track{}, false
}

// Len returns the number of stored searches, expired or not.
func (c *ResultCache) Len(ctx context.Context) int {
	return len(c.keys(ctx))
}

func (c *ResultCache) keys(ctx context.Context) []string {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		c.logger.Error("failed to list cached searches", "err", err)
		return nil
	}

	out := keys[:0]
	for _, key := range keys {
		if strings.HasPrefix(key, KeyPrefix) {
			out = append(out, key)
		}
	}
	return out
}

// entry reads key, deleting it when it has expired or cannot be decoded.
func (c *ResultCache) entry(ctx context.Context, key string) (models.QueryCacheEntry, bool) {
	var entry models.QueryCacheEntry

	raw, err := c.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, shared.ErrNotFound) {
			c.logger.Warn("failed to read cached search", "key", key, "err", err)
		}
		return entry, false
	}

	if err := json.Unmarshal(raw, &entry); err != nil {
		c.logger.Warn("dropping unreadable cached search", "key", key, "err", err)
		c.delete(ctx, key)
		return entry, false
	}

	if c.expired(entry) {
		c.logger.Debug("cached search expired", "key", key)
		c.delete(ctx, key)
		return entry, false
	}
	return entry, true
}

func (c *ResultCache) expired(entry models.QueryCacheEntry) bool {
	return c.now().Sub(entry.Timestamp) >= c.ttl
}

func (c *ResultCache) delete(ctx context.Context, key string) bool {
	if err := c.store.Delete(ctx, key); err != nil {
		c.logger.Warn("failed to delete cached search", "key", key, "err", err)
		return false
	}
	return true
}
