package tasks

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/cache"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/playlists"
	"github.com/desertthunder/ytune/internal/quota"
	"github.com/desertthunder/ytune/internal/search"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
)

// Options configures an [Engine]. Backend and Provider are required.
type Options struct {
	Backend  kvstore.Backend
	Provider services.Provider
	Search   shared.SearchConfig
	MaxItems int              // Cache ceiling (default: 50)
	Now      func() time.Time // Clock shared by every component (default: time.Now)
	Logger   *log.Logger
}

// Engine wires the offline cache, playlist store, quota tracker and searcher
// over a single storage backend.
type Engine struct {
	backend   kvstore.Backend
	cache     *cache.Manager
	playlists *playlists.Store
	results   *search.ResultCache
	tracker   *quota.Tracker
	searcher  *search.Searcher
	logger    *log.Logger
}

// Open builds an engine from opts, restores persisted quota usage and
// reconciles the offline playlist with the content cache.
func Open(ctx context.Context, opts Options) (*Engine, error) {
	if opts.Backend == nil {
		return nil, fmt.Errorf("%w: no storage backend", shared.ErrServiceUnavailable)
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("%w: no search provider", shared.ErrServiceUnavailable)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	e := &Engine{backend: opts.Backend, logger: shared.WithLogger(opts.Logger, "component", "engine")}

	e.cache = cache.NewManager(opts.Backend.Bucket(kvstore.BucketContent), cache.Options{
		MaxItems: opts.MaxItems,
		Now:      opts.Now,
		Logger:   opts.Logger,
	})
	e.playlists = playlists.New(opts.Backend.Bucket(kvstore.BucketPlaylists), playlists.Options{
		Cache:  e.cache,
		Now:    opts.Now,
		Logger: opts.Logger,
	})
	e.results = search.NewResultCache(opts.Backend.Bucket(kvstore.BucketSearch), opts.Search.CacheTTL.Duration, opts.Now, opts.Logger)

	if len(opts.Search.Keys) > 0 {
		tracker, err := quota.NewTracker(quota.Config{
			Slots:  slots(opts.Search.Keys),
			Window: opts.Search.QuotaWindow.Duration,
			Cost:   opts.Search.CostPerCall,
			Now:    opts.Now,
			Store:  opts.Backend.Bucket(kvstore.BucketQuota),
			Logger: opts.Logger,
		})
		if err != nil {
			return nil, err
		}
		if err := tracker.Load(ctx); err != nil {
			e.logger.Warn("discarding persisted quota usage", "err", err)
		}
		e.tracker = tracker
	}

	var throttle *quota.Throttle
	if opts.Search.Cooldown.Duration > 0 {
		throttle = quota.NewThrottle(opts.Search.Cooldown.Duration, opts.Now)
	}

	e.searcher = search.New(search.Options{
		Provider:   opts.Provider,
		Cache:      e.results,
		Throttle:   throttle,
		Tracker:    e.tracker,
		Domain:     opts.Search.Domain,
		Referer:    referer(opts.Search.Domain),
		MaxResults: opts.Search.MaxResults,
		Logger:     opts.Logger,
	})

	if _, err := e.playlists.Reconcile(ctx); err != nil {
		e.logger.Warn("reconciliation failed", "err", err)
	}
	return e, nil
}

// OpenConfig opens the storage backend and search provider described by cfg.
func OpenConfig(ctx context.Context, cfg *shared.Config, logger *log.Logger) (*Engine, error) {
	backend, err := kvstore.Open(ctx, cfg.Storage)
	if err != nil {
		return nil, err
	}

	provider, err := NewProvider(cfg, logger)
	if err != nil {
		backend.Close()
		return nil, err
	}

	e, err := Open(ctx, Options{
		Backend:  backend,
		Provider: provider,
		Search:   cfg.Search,
		MaxItems: cfg.Cache.MaxItems,
		Logger:   logger,
	})
	if err != nil {
		backend.Close()
		return nil, err
	}
	return e, nil
}

func slots(keys []shared.KeyConfig) []models.QuotaSlot {
	out := make([]models.QuotaSlot, len(keys))
	for i, k := range keys {
		out[i] = models.QuotaSlot{Key: k.Key, Domain: k.Domain, Limit: k.Limit}
	}
	return out
}

func referer(domain string) string {
	if domain == "" || domain == "*" {
		return ""
	}
	if strings.Contains(domain, "://") {
		return domain
	}
	return "https://" + domain + "/"
}

// Close releases the storage backend.
func (e *Engine) Close() error {
	return e.backend.Close()
}

func (e *Engine) Cache() *cache.Manager        { return e.cache }
func (e *Engine) Playlists() *playlists.Store  { return e.playlists }
func (e *Engine) Results() *search.ResultCache { return e.results }
func (e *Engine) Tracker() *quota.Tracker      { return e.tracker }
func (e *Engine) Searcher() *search.Searcher   { return e.searcher }
func (e *Engine) Metered() bool                { return e.tracker != nil }

// Search runs a query through the searcher.
func (e *Engine) Search(ctx context.Context, query string) (search.Result, error) {
	return e.searcher.Search(ctx, query)
}

// Lookup finds a track by id in the content cache, then in any playlist, then
// in unexpired search results.
func (e *Engine) Lookup(ctx context.Context, trackID string) (models.Track, bool) {
	if tr, ok := e.cache.Get(ctx, trackID); ok {
		return tr, true
	}
	for _, p := range e.playlists.List(ctx) {
		if i := p.IndexOfTrack(trackID); i >= 0 {
			return p.Items[i].Track(), true
		}
	}
	return e.results.Find(ctx, trackID)
}

// Play records track as the most recently played.
func (e *Engine) Play(ctx context.Context, track models.Track) bool {
	return e.playlists.AddToRecentlyPlayed(ctx, track)
}

// Download adds track to the offline playlist, which caches its content.
func (e *Engine) Download(ctx context.Context, track models.Track) bool {
	return e.playlists.Add(ctx, models.OfflineID, track)
}

// RemoveDownload removes an item from the offline playlist and its cached content.
func (e *Engine) RemoveDownload(ctx context.Context, itemID string) bool {
	return e.playlists.Remove(ctx, models.OfflineID, itemID)
}

// ToggleFavorite adds track to favorites, or removes it when already present.
// It reports whether the track is a favorite afterwards.
func (e *Engine) ToggleFavorite(ctx context.Context, track models.Track) (bool, error) {
	if slices.Contains(e.playlists.Membership(ctx, track.ID), models.FavoritesID) {
		if !e.playlists.RemoveTrack(ctx, models.FavoritesID, track.ID) {
			return true, fmt.Errorf("%w: could not remove %s from favorites", shared.ErrStorage, track.ID)
		}
		return false, nil
	}
	if !e.playlists.Add(ctx, models.FavoritesID, track) {
		return false, fmt.Errorf("%w: could not add %s to favorites", shared.ErrStorage, track.ID)
	}
	return true, nil
}

// Reconcile repairs drift between the offline playlist and the content cache.
func (e *Engine) Reconcile(ctx context.Context, progress chan<- ProgressUpdate) (playlists.ReconcileResult, error) {
	sendProgress(progress, reconcileUpdate(nil))
	res, err := e.playlists.Reconcile(ctx)
	if err != nil {
		return res, err
	}
	sendProgress(progress, reconcileUpdate(&res))
	return res, nil
}

// playlist returns a user or reserved playlist, or [shared.ErrPlaylistNotFound].
func (e *Engine) playlist(ctx context.Context, id string) (models.Playlist, error) {
	p, ok := e.playlists.Get(ctx, id)
	if !ok {
		return p, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	return p, nil
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
		// Channel full, skip this update
	}
}

// canceled reports whether err came from ctx ending.
func canceled(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
