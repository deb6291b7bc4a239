// package cache manages the offline content cache: insertion with a status
// lifecycle, FIFO eviction at a fixed capacity, and aggregate info.
//
// Every failure is absorbed here. Callers get a boolean, a status or an empty
// value, and the cause is logged.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

const (
	KeyPrefix       = "content-"
	DefaultMaxItems = 50
)

// Options configures a [Manager].
type Options struct {
	MaxItems int              // Capacity ceiling (default: 50)
	Now      func() time.Time // Clock (default: time.Now)
	Logger   *log.Logger
}

// Info summarizes the cache contents.
type Info struct {
	Items   int                 `json:"items"`
	Size    int64               `json:"size"`
	Entries []models.CacheEntry `json:"entries"`
}

// Manager owns every cache entry in its store.
type Manager struct {
	store    kvstore.Store
	maxItems int
	now      func() time.Time
	logger   *log.Logger

	mu        sync.Mutex
	lastStamp time.Time
}

// NewManager creates a cache manager over store.
func NewManager(store kvstore.Store, opts Options) *Manager {
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Manager{
		store:    store,
		maxItems: opts.MaxItems,
		now:      opts.Now,
		logger:   shared.WithLogger(opts.Logger, "component", "cache"),
	}
}

// Key returns the storage key for a track id.
func Key(trackID string) string {
	return KeyPrefix + trackID
}

// MaxItems returns the capacity ceiling.
func (m *Manager) MaxItems() int {
	return m.maxItems
}

// Add stores track with status caching, evicts the oldest entries if the cache is
// at capacity, then marks the entry cached.
//
// On any write failure the entry is rewritten with status error and Add returns
// false. Adding a track that is already present starts a fresh entry.
func (m *Manager) Add(ctx context.Context, track models.Track) bool {
	if track.ID == "" {
		m.logger.Warn("refusing to cache track without id")
		return false
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	entry := models.CacheEntry{
		Track:     track,
		Timestamp: m.stamp(),
		Status:    models.StatusCaching,
	}
	raw, err := json.Marshal(track)
	if err != nil {
		m.fail(ctx, entry, err)
		return false
	}
	entry.Size = int64(len(raw))

	if err := m.put(ctx, entry); err != nil {
		m.fail(ctx, entry, err)
		return false
	}

	m.evict(ctx, Key(track.ID))

	entry.Status = models.StatusCached
	if err := m.put(ctx, entry); err != nil {
		m.fail(ctx, entry, err)
		return false
	}

	m.logger.Debug("cached track", "track", track.ID, "size", entry.Size)
	return true
}

// Get returns the cached track, or false when no entry exists.
func (m *Manager) Get(ctx context.Context, trackID string) (models.Track, bool) {
	entry, ok := m.entry(ctx, trackID)
	if !ok {
		return models.Track{}, false
	}
	return entry.Track, true
}

// Status returns the entry status, or [models.StatusAbsent].
func (m *Manager) Status(ctx context.Context, trackID string) models.CacheStatus {
	entry, ok := m.entry(ctx, trackID)
	if !ok {
		return models.StatusAbsent
	}
	return entry.Status
}

// Has reports whether an entry exists for trackID, whatever its status.
func (m *Manager) Has(ctx context.Context, trackID string) bool {
	_, ok := m.entry(ctx, trackID)
	return ok
}

// Remove deletes the entry for trackID. Removing an absent entry succeeds.
func (m *Manager) Remove(ctx context.Context, trackID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx, Key(trackID)); err != nil {
		m.logger.Error("failed to remove cache entry", "track", trackID, "err", err)
		return false
	}
	return true
}

// Clear removes every entry with a single store purge.
func (m *Manager) Clear(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Purge(ctx); err != nil {
		m.logger.Error("failed to clear cache", "err", err)
		return false
	}
	return true
}

// Info returns the entry count, the sum of recorded sizes and every entry.
func (m *Manager) Info(ctx context.Context) Info {
	entries := m.Entries(ctx)
	info := Info{Items: len(entries), Entries: entries}
	for _, e := range entries {
		info.Size += e.Size
	}
	return info
}

// Entries returns every readable entry ordered by insertion time, oldest first.
// A store failure is logged and yields an empty list.
func (m *Manager) Entries(ctx context.Context) []models.CacheEntry {
	entries, err := m.List(ctx)
	if err != nil {
		m.logger.Error("failed to list cache entries", "err", err)
		return []models.CacheEntry{}
	}
	return entries
}

// List is [Manager.Entries] for callers that must tell an empty cache from an
// unreadable one. Individual corrupt entries are skipped.
func (m *Manager) List(ctx context.Context) ([]models.CacheEntry, error) {
	keys, err := m.store.Keys(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]models.CacheEntry, 0, len(keys))
	for _, k := range keys {
		id, ok := strings.CutPrefix(k, KeyPrefix)
		if !ok {
			continue
		}
		if e, ok := m.entry(ctx, id); ok {
			entries = append(entries, e)
		}
	}

	sortByAge(entries)
	return entries, nil
}

// IDs returns the track ids of every entry.
func (m *Manager) IDs(ctx context.Context) []string {
	entries := m.Entries(ctx)
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.Track.ID
	}
	return ids
}

// evict deletes the oldest entries, other than keep, so that the cache holds at
// most maxItems entries including keep. Failures are logged.
func (m *Manager) evict(ctx context.Context, keep string) {
	var others []models.CacheEntry
	for _, e := range m.Entries(ctx) {
		if Key(e.Track.ID) != keep {
			others = append(others, e)
		}
	}

	if len(others) < m.maxItems {
		return
	}

	for _, e := range others[:len(others)-m.maxItems+1] {
		if err := m.store.Delete(ctx, Key(e.Track.ID)); err != nil {
			m.logger.Warn("failed to evict cache entry", "track", e.Track.ID, "err", err)
			continue
		}
		m.logger.Debug("evicted cache entry", "track", e.Track.ID)
	}
}

func (m *Manager) entry(ctx context.Context, trackID string) (models.CacheEntry, bool) {
	raw, err := m.store.Get(ctx, Key(trackID))
	if errors.Is(err, shared.ErrNotFound) {
		return models.CacheEntry{}, false
	}
	if err != nil {
		m.logger.Error("failed to read cache entry", "track", trackID, "err", err)
		return models.CacheEntry{}, false
	}

	var e models.CacheEntry
	if err := json.Unmarshal(raw, &e); err != nil {
		m.logger.Warn("unreadable cache entry", "track", trackID, "err", err)
		return models.CacheEntry{}, false
	}
	return e, true
}

func (m *Manager) put(ctx context.Context, e models.CacheEntry) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return m.store.Put(ctx, Key(e.Track.ID), raw)
}

// fail records the entry with status error on a best-effort basis.
func (m *Manager) fail(ctx context.Context, e models.CacheEntry, cause error) {
	m.logger.Error("failed to cache track", "track", e.Track.ID, "err", cause)

	e.Status = models.StatusError
	if err := m.put(ctx, e); err != nil {
		m.logger.Error("failed to record cache error status", "track", e.Track.ID, "err", err)
	}
}

// stamp returns the current time, nudged forward so that insertion timestamps
// are strictly increasing even when the clock does not advance between calls.
func (m *Manager) stamp() time.Time {
	now := m.now()
	if !now.After(m.lastStamp) {
		now = m.lastStamp.Add(time.Nanosecond)
	}
	m.lastStamp = now
	return now
}

func sortByAge(entries []models.CacheEntry) {
	slices.SortStableFunc(entries, func(a, b models.CacheEntry) int {
		if c := a.Timestamp.Compare(b.Timestamp); c != 0 {
			return c
		}
		return strings.Compare(a.Track.ID, b.Track.ID)
	})
}
