package main

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/playlists"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/desertthunder/ytune/internal/tasks"
	"github.com/urfave/cli/v3"
)

// PlaylistList lists every playlist.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	all := e.Playlists().List(ctx)
	if cmd.Bool("json") {
		return r.writeJSON(all, true)
	}
	return formatter.RenderPlaylists(r.output, all)
}

// PlaylistShow prints one playlist with its items.
func (r *Runner) PlaylistShow(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	p, ok := e.Playlists().Get(ctx, id)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
	}
	if cmd.Bool("json") {
		return r.writeJSON(p, true)
	}
	return formatter.RenderPlaylist(r.output, p)
}

// PlaylistCreate creates a user playlist.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	name := strings.Join(cmd.Args().Slice(), " ")
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	id, ok := e.Playlists().CreateWithDescription(ctx, name, cmd.String("description"))
	if !ok {
		return fmt.Errorf("%w: playlist name must not be empty", shared.ErrInvalidArgument)
	}
	if cmd.Bool("json") {
		return r.writeJSON(map[string]string{"id": id, "name": name}, true)
	}
	return r.writePlain("✓ Created playlist %q (ID: %s)\n", name, id)
}

// PlaylistRename renames a user playlist and optionally replaces its description.
func (r *Runner) PlaylistRename(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: playlist id and new name", shared.ErrMissingArgument)
	}
	id := cmd.Args().First()
	name := strings.Join(cmd.Args().Tail(), " ")

	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	upd := playlists.PlaylistUpdate{Name: &name}
	if cmd.IsSet("description") {
		desc := cmd.String("description")
		upd.Description = &desc
	}
	if !e.Playlists().Update(ctx, id, upd) {
		return r.playlistError(id, "rename")
	}
	return r.writePlain("✓ Renamed %s to %q\n", id, name)
}

// PlaylistDelete deletes a user playlist.
func (r *Runner) PlaylistDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	if !e.Playlists().Delete(ctx, id) {
		return r.playlistError(id, "delete")
	}
	return r.writePlain("✓ Deleted playlist %s\n", id)
}

// PlaylistAdd adds a track to a playlist.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: playlist id and track id", shared.ErrMissingArgument)
	}
	playlistID := cmd.Args().First()

	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	track, err := r.resolveTrackArg(ctx, e, cmd, cmd.Args().Get(1))
	if err != nil {
		return err
	}

	p, ok := e.Playlists().Get(ctx, playlistID)
	if !ok {
		return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
	}
	if p.IndexOfTrack(track.ID) >= 0 {
		return r.writePlain("Already in %s: %s - %s\n", p.Name, track.Artist, track.Title)
	}
	if !e.Playlists().Add(ctx, playlistID, track) {
		return fmt.Errorf("%w: could not add %s to %s", shared.ErrStorage, track.ID, playlistID)
	}
	return r.writePlain("✓ Added to %s: %s - %s\n", p.Name, track.Artist, track.Title)
}

// PlaylistRemove removes an item from a playlist. A track id is accepted in place
// of an item id.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	if cmd.Args().Len() < 2 {
		return fmt.Errorf("%w: playlist id and item id", shared.ErrMissingArgument)
	}
	playlistID, id := cmd.Args().First(), cmd.Args().Get(1)

	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	if !e.Playlists().Remove(ctx, playlistID, id) && !e.Playlists().RemoveTrack(ctx, playlistID, id) {
		return fmt.Errorf("%w: %s is not in playlist %s", shared.ErrTrackNotFound, id, playlistID)
	}
	return r.writePlain("✓ Removed %s from %s\n", id, playlistID)
}

// PlaylistExport writes playlists to files and a manifest.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	format, err := formatter.ParseFormat(cmd.String("format"))
	if err != nil {
		return err
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	var client *http.Client
	if cmd.Bool("covers") {
		client = r.httpClient
	}

	progress, done := r.progress(cmd)
	res, err := e.ExportPlaylists(ctx, progress, cmd.Args().Slice(), tasks.ExportOpts{
		Format:     format,
		OutputDir:  cmd.String("output"),
		NumWorkers: cmd.Int("workers"),
		Client:     client,
	})
	r.wait(progress, done)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(res.Manifest, true)
	}
	r.writePlainHeader("Export complete")
	r.writePlain("Exported: %d, failed: %d\n", res.Manifest.Succeeded, res.Manifest.Failed)
	r.writePlain("Directory: %s\n", res.OutputDirectory)
	r.writePlain("Manifest: %s\n", res.ManifestPath)
	for _, msg := range res.Manifest.Errors {
		r.writePlain("%s %s\n", formatter.Styles.Err("✗"), msg)
	}
	return nil
}

// PlaylistReconcile repairs drift between the offline playlist and the cache.
func (r *Runner) PlaylistReconcile(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := e.Reconcile(ctx, nil)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	if !res.Changed() {
		return r.writePlain("✓ Offline playlist matches the cache\n")
	}
	return r.writePlain("✓ Offline playlist repaired: %d added, %d removed\n", len(res.Added), len(res.Removed))
}

// PlaylistDownload caches every track of a playlist.
func (r *Runner) PlaylistDownload(ctx context.Context, cmd *cli.Command) error {
	id := cmd.Args().First()
	if id == "" {
		return fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	progress, done := r.progress(cmd)
	res, err := e.DownloadPlaylist(ctx, progress, id, tasks.DownloadOpts{
		NumWorkers: cmd.Int("workers"),
		RateLimit:  cmd.Float("rate"),
	})
	r.wait(progress, done)
	if err != nil {
		return fmt.Errorf("download failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(res, true)
	}
	r.writePlainHeader("Download complete")
	r.writePlain("Downloaded: %d, already offline: %d, failed: %d\n", len(res.Downloaded), len(res.Skipped), len(res.Failed))
	if n := len(res.Reconciled.Removed); n > 0 {
		r.writePlain("%s\n", formatter.Styles.Warn(fmt.Sprintf("%d older tracks were evicted to stay within the cache limit", n)))
	}
	return nil
}

// progress starts a printer for progress updates unless JSON output was requested.
func (r *Runner) progress(cmd *cli.Command) (chan tasks.ProgressUpdate, chan struct{}) {
	if cmd.Bool("json") {
		return nil, nil
	}
	progress := make(chan tasks.ProgressUpdate, 32)
	done := make(chan struct{})
	go r.printProgress(progress, done)
	return progress, done
}

func (r *Runner) wait(progress chan tasks.ProgressUpdate, done chan struct{}) {
	if progress == nil {
		return
	}
	close(progress)
	<-done
}

func (r *Runner) playlistError(id, op string) error {
	if models.IsReserved(id) {
		return fmt.Errorf("%w: cannot %s %s", shared.ErrReservedPlaylist, op, id)
	}
	return fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, id)
}
