package playlists

import (
	"context"
	"fmt"
	"slices"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

// ReconcileResult lists the track ids changed by [Store.Reconcile].
type ReconcileResult struct {
	Added   []string `json:"added"`
	Removed []string `json:"removed"`
}

// Changed reports whether reconciliation modified the offline playlist.
func (r ReconcileResult) Changed() bool {
	return len(r.Added) > 0 || len(r.Removed) > 0
}

// Reconcile makes the offline playlist mirror the content cache.
//
// Only entries with status cached count. Items whose track has no cached entry
// are dropped, and cached entries without an item are appended in cache
// insertion order. The cache is never modified.
func (s *Store) Reconcile(ctx context.Context) (ReconcileResult, error) {
	var res ReconcileResult
	if s.cache == nil {
		return res, fmt.Errorf("%w: no content cache configured", shared.ErrServiceUnavailable)
	}

	entries, err := s.cache.List(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: reading cache: %w", shared.ErrStorage, err)
	}

	entries = slices.DeleteFunc(entries, func(e models.CacheEntry) bool {
		return e.Status != models.StatusCached
	})
	cached := make(map[string]models.CacheEntry, len(entries))
	for _, e := range entries {
		cached[e.Track.ID] = e
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	all, err := s.load(ctx)
	if err != nil {
		return res, fmt.Errorf("%w: loading playlists: %w", shared.ErrStorage, err)
	}

	i := index(all, models.OfflineID)
	offline := all[i]

	offline.Items = slices.DeleteFunc(offline.Items, func(it models.PlaylistItem) bool {
		if _, ok := cached[it.TrackID]; ok {
			return false
		}
		res.Removed = append(res.Removed, it.TrackID)
		return true
	})

	for _, e := range entries {
		if offline.IndexOfTrack(e.Track.ID) >= 0 {
			continue
		}
		offline.Items = append(offline.Items, s.item(e.Track))
		res.Added = append(res.Added, e.Track.ID)
	}

	if !res.Changed() {
		return res, nil
	}

	offline.UpdatedAt = s.now()
	all[i] = offline
	if err := s.save(ctx, all); err != nil {
		return ReconcileResult{}, fmt.Errorf("%w: saving playlists: %w", shared.ErrStorage, err)
	}

	s.logger.Info("reconciled offline playlist", "added", len(res.Added), "removed", len(res.Removed))
	return res, nil
}
