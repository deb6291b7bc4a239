// package models defines the data model shared by the cache, playlist and search packages
package models

import (
	"slices"
	"time"
)

// Reserved playlist IDs. These always exist and cannot be deleted or renamed.
const (
	FavoritesID      = "favorites"
	RecentlyPlayedID = "recently-played"
	OfflineID        = "offline"
)

// ReservedIDs lists the reserved playlists in display order.
var ReservedIDs = []string{FavoritesID, RecentlyPlayedID, OfflineID}

// IsReserved reports whether id names one of the reserved playlists.
func IsReserved(id string) bool {
	return slices.Contains(ReservedIDs, id)
}

// Track is a provider-scoped reference to a song or video.
//
// Tracks are copied into playlist items and cache entries and never mutated locally.
type Track struct {
	ID           string `json:"id"`
	Title        string `json:"title"`
	Artist       string `json:"artist"`
	ThumbnailURL string `json:"thumbnailUrl"`
	PreviewURL   string `json:"previewUrl,omitempty"`
	Duration     int    `json:"duration,omitempty"` // Duration in seconds
	Source       string `json:"source,omitempty"`   // Provider that returned the track
}

// CacheStatus is the lifecycle state of a cached track.
type CacheStatus string

const (
	StatusAbsent  CacheStatus = "absent"
	StatusCaching CacheStatus = "caching"
	StatusCached  CacheStatus = "cached"
	StatusError   CacheStatus = "error"
)

// CacheEntry pairs a track with its caching metadata.
type CacheEntry struct {
	Track     Track       `json:"track"`
	Timestamp time.Time   `json:"timestamp"`
	Size      int64       `json:"size"` // Serialized track size in bytes
	Status    CacheStatus `json:"status"`
}

// PlaylistItem is a track's membership record within a single playlist.
type PlaylistItem struct {
	ID           string    `json:"id"`
	TrackID      string    `json:"trackId"`
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	ThumbnailURL string    `json:"thumbnailUrl"`
	AddedAt      time.Time `json:"addedAt"`
}

// Track rebuilds the track reference carried by the item.
func (i PlaylistItem) Track() Track {
	return Track{ID: i.TrackID, Title: i.Title, Artist: i.Artist, ThumbnailURL: i.ThumbnailURL}
}

// Playlist is a named, ordered collection of items.
type Playlist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Items       []PlaylistItem `json:"items"`
	CreatedAt   time.Time      `json:"createdAt"`
	UpdatedAt   time.Time      `json:"updatedAt"`
}

// Reserved reports whether the playlist is one of the reserved playlists.
func (p Playlist) Reserved() bool {
	return IsReserved(p.ID)
}

// IndexOfTrack returns the position of the item holding trackID, or -1.
func (p Playlist) IndexOfTrack(trackID string) int {
	return slices.IndexFunc(p.Items, func(it PlaylistItem) bool { return it.TrackID == trackID })
}

// IndexOfItem returns the position of the item with itemID, or -1.
func (p Playlist) IndexOfItem(itemID string) int {
	return slices.IndexFunc(p.Items, func(it PlaylistItem) bool { return it.ID == itemID })
}

// QuotaSlot is one API credential with usage tracked against a ceiling.
type QuotaSlot struct {
	Key       string    `json:"key"`
	Domain    string    `json:"domain"`
	Used      int       `json:"used"`
	Limit     int       `json:"limit"`
	LastReset time.Time `json:"lastReset"`
}

// Headroom returns the remaining quota units.
func (s QuotaSlot) Headroom() int {
	return s.Limit - s.Used
}

// QueryCacheEntry is a snapshot of provider results for a normalized query.
type QueryCacheEntry struct {
	Query     string    `json:"query"`
	Results   []Track   `json:"results"`
	Timestamp time.Time `json:"timestamp"`
}
