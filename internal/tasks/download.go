package tasks

import (
	"context"
	"fmt"
	"sync"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/playlists"
	"github.com/desertthunder/ytune/internal/shared"
	"golang.org/x/time/rate"
)

// DownloadOpts configures [Engine.DownloadPlaylist].
type DownloadOpts struct {
	NumWorkers int     // Concurrent workers (default: 3, max: 10)
	RateLimit  float64 // Downloads per second (default: 5)
}

// DownloadResult summarizes a playlist download.
type DownloadResult struct {
	PlaylistID string                    `json:"playlistId"`
	Total      int                       `json:"total"`
	Downloaded []string                  `json:"downloaded"`
	Skipped    []string                  `json:"skipped"` // Already in the offline playlist
	Failed     []string                  `json:"failed"`
	Reconciled playlists.ReconcileResult `json:"reconciled"`
}

type downloadResult struct {
	track models.Track
	ok    bool
}

// DownloadPlaylist copies every track of a playlist into the offline playlist,
// caching its content.
//
// Downloads are paced with a rate limiter and spread over a small worker pool.
// When the playlist holds more tracks than the cache ceiling, the oldest cached
// tracks are evicted as usual and the offline playlist is reconciled afterwards.
func (e *Engine) DownloadPlaylist(ctx context.Context, progress chan<- ProgressUpdate, playlistID string, opts DownloadOpts) (*DownloadResult, error) {
	if playlistID == models.OfflineID {
		return nil, fmt.Errorf("%w: cannot download the offline playlist into itself", shared.ErrInvalidArgument)
	}

	p, err := e.playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	offline, err := e.playlist(ctx, models.OfflineID)
	if err != nil {
		return nil, err
	}

	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	result := &DownloadResult{PlaylistID: p.ID, Total: len(p.Items), Downloaded: []string{}, Skipped: []string{}, Failed: []string{}}

	var pending []models.Track
	for _, it := range p.Items {
		if offline.IndexOfTrack(it.TrackID) >= 0 {
			result.Skipped = append(result.Skipped, it.TrackID)
			continue
		}
		pending = append(pending, it.Track())
	}
	sendProgress(progress, foundPlaylistUpdate(p, len(pending)))

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Track, len(pending))
	results := make(chan downloadResult, len(pending))

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.downloadWorker(ctx, &wg, limiter, jobs, results)
	}

	for _, tr := range pending {
		jobs <- tr
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.ok {
			result.Downloaded = append(result.Downloaded, res.track.ID)
		} else {
			result.Failed = append(result.Failed, res.track.ID)
		}
		sendProgress(progress, downloadUpdate(completed, len(pending), res.track, res.ok))
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	if rec, err := e.Reconcile(ctx, progress); err != nil {
		e.logger.Warn("reconciliation after download failed", "playlist", p.ID, "err", err)
	} else {
		result.Reconciled = rec
	}

	e.logger.Info("downloaded playlist", "playlist", p.ID, "downloaded", len(result.Downloaded), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

// downloadWorker adds tracks from jobs to the offline playlist until jobs is
// drained or ctx ends.
func (e *Engine) downloadWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	limiter *rate.Limiter,
	jobs <-chan models.Track,
	results chan<- downloadResult,
) {
	defer wg.Done()

	for tr := range jobs {
		if err := limiter.Wait(ctx); err != nil {
			if !canceled(err) {
				e.logger.Warn("rate limiter failed", "err", err)
			}
			return
		}
		results <- downloadResult{track: tr, ok: e.Download(ctx, tr)}
	}
}
