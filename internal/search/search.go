// package search answers track searches from the result cache when it can and
// from the configured provider when it must, keeping provider calls inside the
// throttle and quota limits.
package search

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/quota"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
)

// Options configures a [Searcher].
type Options struct {
	Provider   services.Provider
	Cache      *ResultCache
	Throttle   *quota.Throttle // Nil disables throttling
	Tracker    *quota.Tracker  // Nil leaves provider calls unmetered
	Domain     string          // Domain the API keys are used from
	Referer    string
	MaxResults int
	Logger     *log.Logger
}

// Result is the outcome of a single search.
type Result struct {
	Seq    uint64
	Query  string // Normalized query
	Tracks []models.Track
	Cached bool   // Served from the result cache
	Source string // Provider name, or "cache"

	// Warning is set when a quota fault was answered from the result cache or
	// by a fallback provider.
	Warning error
}

// Searcher runs searches. It is safe for concurrent use.
type Searcher struct {
	provider   services.Provider
	cache      *ResultCache
	throttle   *quota.Throttle
	tracker    *quota.Tracker
	domain     string
	referer    string
	maxResults int
	logger     *log.Logger

	seq atomic.Uint64
}

// New creates a searcher. Provider and Cache are required.
func New(opts Options) *Searcher {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	return &Searcher{
		provider:   opts.Provider,
		cache:      opts.Cache,
		throttle:   opts.Throttle,
		tracker:    opts.Tracker,
		domain:     opts.Domain,
		referer:    opts.Referer,
		maxResults: opts.MaxResults,
		logger:     shared.WithLogger(opts.Logger, "component", "search"),
	}
}

// IsLatest reports whether seq belongs to the most recently issued search.
func (s *Searcher) IsLatest(seq uint64) bool {
	return s.seq.Load() == seq
}

// Search returns tracks for query.
//
// Cached results bypass the throttle and quota tracker. When a newer search was
// issued while this one was running, its results are still cached but the
// call returns [shared.ErrSuperseded] along with them.
func (s *Searcher) Search(ctx context.Context, query string) (Result, error) {
	q := shared.NormalizeQuery(query)
	if q == "" {
		return Result{}, shared.ErrEmptyQuery
	}

	seq := s.seq.Add(1)
	res := Result{Seq: seq, Query: q}

	if tracks, ok := s.cache.Get(ctx, q); ok {
		s.logger.Debug("search served from cache", "query", q, "results", len(tracks))
		res.Tracks, res.Cached, res.Source = tracks, true, "cache"
		return s.latest(res)
	}

	if s.throttle != nil && !s.throttle.Allow() {
		s.logger.Debug("search throttled", "query", q)
		return res, shared.ErrThrottled
	}

	var lease quota.Lease
	if s.tracker != nil {
		l, err := s.tracker.Acquire(ctx, s.domain)
		if err != nil {
			s.logger.Warn("no API key available", "domain", s.domain)
			return res, err
		}
		lease = l
	}

	tracks, err := s.provider.Search(ctx, services.SearchRequest{
		Query:      q,
		APIKey:     lease.Key,
		MaxResults: s.maxResults,
		Referer:    s.referer,
	})
	var fb *services.FallbackError
	if errors.As(err, &fb) {
		kind := services.KindOf(fb.Err)
		if kind != services.KindTransient {
			s.retire(ctx, lease, kind)
			res.Warning = fb.Err
		}
		return s.served(ctx, res, tracks, fb.Provider)
	}
	if err != nil {
		return s.failed(ctx, res, lease, err)
	}

	if s.tracker != nil {
		s.tracker.Record(ctx, lease)
	}
	return s.served(ctx, res, tracks, s.provider.Name())
}

// served caches tracks fetched from source and completes res.
func (s *Searcher) served(ctx context.Context, res Result, tracks []models.Track, source string) (Result, error) {
	if err := s.cache.Put(ctx, res.Query, tracks); err != nil {
		s.logger.Warn("failed to cache search results", "query", res.Query, "err", err)
	}

	s.logger.Info("search", "query", res.Query, "provider", source, "results", len(tracks))
	res.Tracks, res.Source = tracks, source
	return s.latest(res)
}

// retire marks the lease's slot, or every slot of the domain, as used up.
func (s *Searcher) retire(ctx context.Context, lease quota.Lease, kind services.ErrorKind) {
	if s.tracker == nil {
		return
	}
	if kind == services.KindDomainQuota {
		s.tracker.ExhaustDomain(ctx, s.domain)
	} else {
		s.tracker.Exhaust(ctx, lease)
	}
}

// failed handles a provider error. Quota faults retire the key or domain and
// fall back to any cached results for the same query.
func (s *Searcher) failed(ctx context.Context, res Result, lease quota.Lease, err error) (Result, error) {
	kind := services.KindOf(err)
	if kind == services.KindTransient {
		s.logger.Error("search failed", "query", res.Query, "err", err)
		return res, fmt.Errorf("search %q: %w", res.Query, err)
	}

	s.retire(ctx, lease, kind)

	if tracks, ok := s.cache.Get(ctx, res.Query); ok {
		s.logger.Warn("quota exceeded, serving cached results", "query", res.Query, "kind", kind)
		res.Tracks, res.Cached, res.Source, res.Warning = tracks, true, "cache", err
		return s.latest(res)
	}

	s.logger.Error("quota exceeded", "query", res.Query, "kind", kind, "err", err)
	return res, fmt.Errorf("search %q: %w", res.Query, err)
}

func (s *Searcher) latest(res Result) (Result, error) {
	if !s.IsLatest(res.Seq) {
		return res, shared.ErrSuperseded
	}
	return res, nil
}
