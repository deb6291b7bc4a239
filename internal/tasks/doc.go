// Package tasks wires ytune's components into a single [Engine] and runs the
// longer operations that span more than one of them.
//
// # Engine
//
// [Open] builds the offline content cache, the playlist store, the search result
// cache, the quota tracker and the searcher over one [kvstore.Backend]. Opening an
// engine restores persisted quota usage and reconciles the offline playlist with
// the content cache, so drift left by an interrupted run is repaired before the
// first operation. [OpenConfig] does the same from a [shared.Config], selecting the
// storage driver and search provider ([NewProvider]).
//
// The single-track operations map onto the reserved playlists:
//   - [Engine.Play] : prepend to recently-played
//   - [Engine.Download] : add to offline, which caches the content
//   - [Engine.RemoveDownload] : remove from offline and the cache
//   - [Engine.ToggleFavorite] : add to or remove from favorites
//
// # Long-running operations
//
//  1. [Engine.DownloadPlaylist] : copy a playlist into offline with a paced
//     worker pool, then reconcile
//  2. [Engine.ExportPlaylists] : write playlists with the formatter package and
//     record the outcome in a manifest
//
// # Progress Reporting
//
// Long-running operations take an optional channel of [ProgressUpdate]. Updates
// are sent with select and default, so a slow or absent reader never blocks the
// operation.
package tasks
