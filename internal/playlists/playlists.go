// package playlists persists named track collections, including the reserved
// favorites, recently-played and offline playlists.
//
// The whole collection is stored as one JSON document and is re-read and
// rewritten on every mutation. Store faults are logged and reported as a false
// return value.
package playlists

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
	StorageKey          = "ytune-playlists"
	RecentlyPlayedLimit = 20
)

var reservedNames = map[string]string{
	models.FavoritesID:      "Favorites",
	models.RecentlyPlayedID: "Recently Played",
	models.OfflineID:        "Offline",
}

// ContentCache is the part of the offline content cache the store drives when
// the offline playlist changes.
type ContentCache interface {
	Add(ctx context.Context, track models.Track) bool
	Remove(ctx context.Context, trackID string) bool
	List(ctx context.Context) ([]models.CacheEntry, error)
}

// Options configures a [Store].
type Options struct {
	Cache  ContentCache     // Mirrors the offline playlist; nil disables mirroring
	Now    func() time.Time // Clock (default: time.Now)
	NewID  func() string    // ID generator (default: shared.GenerateID)
	Logger *log.Logger
}

// PlaylistUpdate holds the editable playlist fields. Nil fields are left unchanged.
type PlaylistUpdate struct {
	Name        *string
	Description *string
}

// Store owns every playlist and playlist item.
type Store struct {
	store  kvstore.Store
	cache  ContentCache
	now    func() time.Time
	newID  func() string
	logger *log.Logger
	mu     sync.Mutex
}

// New creates a playlist store over store.
func New(store kvstore.Store, opts Options) *Store {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = shared.GenerateID
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Store{
		store:  store,
		cache:  opts.Cache,
		now:    opts.Now,
		newID:  opts.NewID,
		logger: shared.WithLogger(opts.Logger, "component", "playlists"),
	}
}

// List returns every playlist in stored order. Reserved playlists that are missing
// from storage are included.
func (s *Store) List(ctx context.Context) []models.Playlist {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		s.logger.Error("failed to load playlists", "err", err)
		return s.defaults()
	}
	return all
}

// Get returns the playlist with id.
func (s *Store) Get(ctx context.Context, id string) (models.Playlist, bool) {
	for _, p := range s.List(ctx) {
		if p.ID == id {
			return p, true
		}
	}
	return models.Playlist{}, false
}

// Create adds an empty playlist and returns its id.
func (s *Store) Create(ctx context.Context, name string) (string, bool) {
	return s.CreateWithDescription(ctx, name, "")
}

// CreateWithDescription adds an empty playlist with a description and returns its id.
func (s *Store) CreateWithDescription(ctx context.Context, name, description string) (string, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		s.logger.Warn("refusing to create playlist without a name")
		return "", false
	}

	var id string
	ok := s.mutate(ctx, "create", func(all []models.Playlist) ([]models.Playlist, bool) {
		now := s.now()
		id = s.newID()
		return append(all, models.Playlist{
			ID:          id,
			Name:        name,
			Description: strings.TrimSpace(description),
			Items:       []models.PlaylistItem{},
			CreatedAt:   now,
			UpdatedAt:   now,
		}), true
	})
	if !ok {
		return "", false
	}
	return id, true
}

// Delete removes a user playlist. Reserved and unknown ids return false.
func (s *Store) Delete(ctx context.Context, id string) bool {
	if models.IsReserved(id) {
		s.logger.Warn("refusing to delete reserved playlist", "playlist", id)
		return false
	}

	return s.mutate(ctx, "delete", func(all []models.Playlist) ([]models.Playlist, bool) {
		i := index(all, id)
		if i < 0 {
			return all, false
		}
		return slices.Delete(all, i, i+1), true
	})
}

// Rename changes a user playlist's name.
func (s *Store) Rename(ctx context.Context, id, name string) bool {
	return s.Update(ctx, id, PlaylistUpdate{Name: &name})
}

// Update edits a user playlist's name or description. Reserved playlists cannot be edited.
func (s *Store) Update(ctx context.Context, id string, upd PlaylistUpdate) bool {
	if models.IsReserved(id) {
		s.logger.Warn("refusing to edit reserved playlist", "playlist", id)
		return false
	}
	if upd.Name != nil && strings.TrimSpace(*upd.Name) == "" {
		return false
	}

	return s.mutate(ctx, "update", func(all []models.Playlist) ([]models.Playlist, bool) {
		i := index(all, id)
		if i < 0 {
			return all, false
		}
		if upd.Name != nil {
			all[i].Name = strings.TrimSpace(*upd.Name)
		}
		if upd.Description != nil {
			all[i].Description = strings.TrimSpace(*upd.Description)
		}
		all[i].UpdatedAt = s.now()
		return all, true
	})
}

// Add appends track to the playlist. A track already in the playlist is a no-op
// that returns false. Adding to the offline playlist also caches the track, and
// adding to recently played behaves like [Store.AddToRecentlyPlayed].
func (s *Store) Add(ctx context.Context, playlistID string, track models.Track) bool {
	if track.ID == "" {
		return false
	}
	if playlistID == models.RecentlyPlayedID {
		return s.AddToRecentlyPlayed(ctx, track)
	}

	added := s.mutate(ctx, "add", func(all []models.Playlist) ([]models.Playlist, bool) {
		i := index(all, playlistID)
		if i < 0 || all[i].IndexOfTrack(track.ID) >= 0 {
			return all, false
		}
		all[i].Items = append(all[i].Items, s.item(track))
		all[i].UpdatedAt = s.now()
		return all, true
	})

	if added && playlistID == models.OfflineID && s.cache != nil {
		if !s.cache.Add(ctx, track) {
			s.logger.Warn("offline item added but caching failed", "track", track.ID)
		}
	}
	return added
}

// Remove deletes an item by its item id. Removing from the offline playlist also
// removes the cached track.
func (s *Store) Remove(ctx context.Context, playlistID, itemID string) bool {
	var trackID string
	removed := s.mutate(ctx, "remove", func(all []models.Playlist) ([]models.Playlist, bool) {
		i := index(all, playlistID)
		if i < 0 {
			return all, false
		}
		j := all[i].IndexOfItem(itemID)
		if j < 0 {
			return all, false
		}
		trackID = all[i].Items[j].TrackID
		all[i].Items = slices.Delete(all[i].Items, j, j+1)
		all[i].UpdatedAt = s.now()
		return all, true
	})

	if removed && playlistID == models.OfflineID && s.cache != nil {
		if !s.cache.Remove(ctx, trackID) {
			s.logger.Warn("offline item removed but cache removal failed", "track", trackID)
		}
	}
	return removed
}

// RemoveTrack deletes the item holding trackID from the playlist.
func (s *Store) RemoveTrack(ctx context.Context, playlistID, trackID string) bool {
	p, ok := s.Get(ctx, playlistID)
	if !ok {
		return false
	}
	i := p.IndexOfTrack(trackID)
	if i < 0 {
		return false
	}
	return s.Remove(ctx, playlistID, p.Items[i].ID)
}

// AddToRecentlyPlayed moves track to the front of the recently-played playlist
// and keeps only the most recent [RecentlyPlayedLimit] items.
func (s *Store) AddToRecentlyPlayed(ctx context.Context, track models.Track) bool {
	if track.ID == "" {
		return false
	}

	return s.mutate(ctx, "recently played", func(all []models.Playlist) ([]models.Playlist, bool) {
		i := index(all, models.RecentlyPlayedID)
		items := slices.DeleteFunc(all[i].Items, func(it models.PlaylistItem) bool {
			return it.TrackID == track.ID
		})
		items = append([]models.PlaylistItem{s.item(track)}, items...)
		if len(items) > RecentlyPlayedLimit {
			items = items[:RecentlyPlayedLimit]
		}
		all[i].Items = items
		all[i].UpdatedAt = s.now()
		return all, true
	})
}

// Membership returns the ids of every playlist that contains trackID.
func (s *Store) Membership(ctx context.Context, trackID string) []string {
	var ids []string
	for _, p := range s.List(ctx) {
		if p.IndexOfTrack(trackID) >= 0 {
			ids = append(ids, p.ID)
		}
	}
	return ids
}

// mutate runs fn over a freshly loaded collection and saves the result when fn
// reports a change.
func (s *Store) mutate(ctx context.Context, op string, fn func([]models.Playlist) ([]models.Playlist, bool)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		s.logger.Error("failed to load playlists", "op", op, "err", err)
		return false
	}

	all, changed := fn(all)
	if !changed {
		return false
	}

	if err := s.save(ctx, all); err != nil {
		s.logger.Error("failed to save playlists", "op", op, "err", err)
		return false
	}
	return true
}

func (s *Store) load(ctx context.Context) ([]models.Playlist, error) {
	raw, err := s.store.Get(ctx, StorageKey)
	if errors.Is(err, shared.ErrNotFound) {
		return s.defaults(), nil
	}
	if err != nil {
		return nil, err
	}

	var all []models.Playlist
	if err := json.Unmarshal(raw, &all); err != nil {
		s.logger.Warn("unreadable playlist collection, starting fresh", "err", err)
		return s.defaults(), nil
	}
	return s.withReserved(all), nil
}

func (s *Store) save(ctx context.Context, all []models.Playlist) error {
	raw, err := json.Marshal(all)
	if err != nil {
		return err
	}
	return s.store.Put(ctx, StorageKey, raw)
}

func (s *Store) defaults() []models.Playlist {
	return s.withReserved(nil)
}

// withReserved inserts any missing reserved playlist ahead of user playlists.
func (s *Store) withReserved(all []models.Playlist) []models.Playlist {
	var missing []models.Playlist
	for _, id := range models.ReservedIDs {
		if index(all, id) < 0 {
			now := s.now()
			missing = append(missing, models.Playlist{
				ID:        id,
				Name:      reservedNames[id],
				Items:     []models.PlaylistItem{},
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
	}
	return append(missing, all...)
}

func (s *Store) item(track models.Track) models.PlaylistItem {
	return models.PlaylistItem{
		ID:           s.newID(),
		TrackID:      track.ID,
		Title:        track.Title,
		Artist:       track.Artist,
		ThumbnailURL: track.ThumbnailURL,
		AddedAt:      s.now(),
	}
}

func index(all []models.Playlist, id string) int {
	return slices.IndexFunc(all, func(p models.Playlist) bool { return p.ID == id })
}
