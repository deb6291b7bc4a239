package tasks

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/models"
	"golang.org/x/time/rate"
)

// ExportOpts configures [Engine.ExportPlaylists].
type ExportOpts struct {
	Format     formatter.Format
	OutputDir  string       // Base output directory (default: ytune_export_{epoch})
	NumWorkers int          // Concurrent workers (default: 5, max: 10)
	RateLimit  float64      // Exports per second (default: 5)
	Client     *http.Client // Fetches Markdown cover art; nil skips covers
}

// ExportResult summarizes a multi-playlist export.
type ExportResult struct {
	OutputDirectory string
	ManifestPath    string
	Manifest        formatter.Manifest
}

type exportOutcome struct {
	playlist models.Playlist
	result   *formatter.ExportResult
	err      error
}

// ExportPlaylists writes the given playlists, or every playlist when ids is
// empty, to opts.OutputDir and records the outcome in export_manifest.json.
//
// Unknown ids and failed writes are reported in the manifest without stopping
// the remaining exports.
func (e *Engine) ExportPlaylists(ctx context.Context, prog chan<- ProgressUpdate, ids []string, opts ExportOpts) (*ExportResult, error) {
	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("ytune_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 5
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	manifest := formatter.Manifest{
		ExportedAt: time.Now().UTC(),
		Format:     opts.Format,
		Exports:    []formatter.ExportResult{},
	}

	var selected []models.Playlist
	if len(ids) == 0 {
		selected = e.playlists.List(ctx)
	}
	for _, id := range ids {
		p, err := e.playlist(ctx, id)
		if err != nil {
			manifest.Failed++
			manifest.Errors = append(manifest.Errors, err.Error())
			continue
		}
		selected = append(selected, p)
	}

	total := len(selected)
	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan models.Playlist, total)
	results := make(chan exportOutcome, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, p := range selected {
			if err := limiter.Wait(ctx); err != nil {
				return
			}
			sendProgress(prog, exportingPlaylistUpdate(i+1, total, p.Name))
			jobs <- p
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		if res.err != nil {
			manifest.Failed++
			manifest.Errors = append(manifest.Errors, fmt.Sprintf("%s: %v", res.playlist.ID, res.err))
			sendProgress(prog, exportFailedUpdate(completed, total, res.playlist.Name, res.err))
			continue
		}
		manifest.Succeeded++
		manifest.Exports = append(manifest.Exports, *res.result)
		sendProgress(prog, exportCompletedUpdate(completed, total, res.playlist.Name, len(res.result.Files)))
	}

	result := &ExportResult{OutputDirectory: opts.OutputDir, Manifest: manifest}
	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(manifest, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	e.logger.Info("exported playlists", "dir", opts.OutputDir, "format", opts.Format, "succeeded", manifest.Succeeded, "failed", manifest.Failed)
	return result, nil
}

// exportWorker is a worker goroutine that exports playlists from the jobs channel.
func (e *Engine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan models.Playlist,
	results chan<- exportOutcome,
	opts ExportOpts,
) {
	defer wg.Done()

	for p := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		res, err := formatter.WriteExport(ctx, p, formatter.ExportOptions{
			Format:    opts.Format,
			OutputDir: opts.OutputDir,
			Client:    opts.Client,
		})
		results <- exportOutcome{playlist: p, result: res, err: err}
	}
}
