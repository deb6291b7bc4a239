package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/ytune/internal/cache"
	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/urfave/cli/v3"
)

// CacheAdd downloads a track by adding it to the offline playlist.
func (r *Runner) CacheAdd(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	track, err := r.resolveTrack(ctx, e, cmd)
	if err != nil {
		return err
	}

	if !e.Download(ctx, track) {
		status := e.Cache().Status(ctx, track.ID)
		if status == models.StatusCached {
			r.writePlain("Already offline: %s - %s\n", track.Artist, track.Title)
			return nil
		}
		return fmt.Errorf("%w: could not cache %s (status: %s)", shared.ErrStorage, track.ID, status)
	}

	r.logger.Info("cached track", "track", track.ID)
	r.writePlain("%s %s - %s\n", formatter.Styles.Badge(e.Cache().Status(ctx, track.ID)), track.Artist, track.Title)
	return nil
}

// CacheStatus prints the cache status of a track.
func (r *Runner) CacheStatus(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	status := e.Cache().Status(ctx, id)
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"id": id, "status": status}, true)
	}
	return r.writePlain("%s %s\n", id, formatter.Styles.Badge(status))
}

// CacheInfo lists cached tracks, optionally filtered and sorted.
func (r *Runner) CacheInfo(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	info := e.Cache().Info(ctx)
	info.Entries = cache.Browse(info.Entries, cache.BrowseOptions{
		Query:      cmd.String("query"),
		SortBy:     cache.ParseSortField(cmd.String("sort")),
		Descending: cmd.Bool("desc"),
	})

	if cmd.Bool("json") {
		return r.writeJSON(info, true)
	}
	return formatter.RenderCacheInfo(r.output, info, e.Cache().MaxItems())
}

// CacheRemove removes a track's offline content. When the track is in the
// offline playlist its item is removed too.
func (r *Runner) CacheRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	ok := false
	if offline, found := e.Playlists().Get(ctx, models.OfflineID); found {
		if i := offline.IndexOfTrack(id); i >= 0 {
			ok = e.RemoveDownload(ctx, offline.Items[i].ID)
		}
	}
	if !ok {
		ok = e.Cache().Remove(ctx, id)
	}
	if !ok {
		return fmt.Errorf("%w: could not remove %s", shared.ErrStorage, id)
	}

	return r.writePlain("✓ Removed from offline content: %s\n", id)
}

// CacheClear removes all offline content and empties the offline playlist.
func (r *Runner) CacheClear(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	if !e.Cache().Clear(ctx) {
		return fmt.Errorf("%w: could not clear the cache", shared.ErrStorage)
	}
	res, err := e.Reconcile(ctx, nil)
	if err != nil {
		return err
	}

	return r.writePlain("✓ Cache cleared (%d offline items removed)\n", len(res.Removed))
}
