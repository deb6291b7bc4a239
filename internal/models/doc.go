// Package models defines the entities persisted by ytune's local stores.
//
// The package contains three groups of types:
//
// 1. Provider data
//   - [Track] : Song or video reference returned by a search provider
//
// 2. Local collections
//   - [CacheEntry] : Offline content record with [CacheStatus] lifecycle
//   - [Playlist] : Named collection of [PlaylistItem], including the reserved
//     [FavoritesID], [RecentlyPlayedID] and [OfflineID] playlists
//
// 3. Search bookkeeping
//   - [QuotaSlot] : API key usage against a ceiling
//   - [QueryCacheEntry] : Cached results for a normalized query
//
// All types serialize to JSON for storage in the key-value backends.
package models
