package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/desertthunder/ytune/internal/tasks"
	"github.com/urfave/cli/v3"
)

type searchOutput struct {
	Query   string         `json:"query"`
	Source  string         `json:"source"`
	Cached  bool           `json:"cached"`
	Warning string         `json:"warning,omitempty"`
	Tracks  []models.Track `json:"tracks"`
}

// Search runs a query and lists the results with their offline status.
func (r *Runner) Search(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}

	res, err := e.Search(ctx, strings.Join(cmd.Args().Slice(), " "))
	if err != nil && !errors.Is(err, shared.ErrSuperseded) {
		r.writePlain("%s\n", formatter.Styles.Err(services.UserMessage(err)))
		return fmt.Errorf("search failed: %w", err)
	}

	out := searchOutput{Query: res.Query, Source: res.Source, Cached: res.Cached, Tracks: res.Tracks}
	if res.Warning != nil {
		out.Warning = services.UserMessage(res.Warning)
	}
	if cmd.Bool("json") {
		return r.writeJSON(out, true)
	}

	if out.Warning != "" {
		r.writePlain("%s\n", formatter.Styles.Warn(out.Warning))
	}
	r.writePlain("%s %s\n", formatter.Styles.Title(fmt.Sprintf("Results for %q", res.Query)), formatter.Styles.Muted("("+res.Source+")"))
	return formatter.RenderTracks(r.output, res.Tracks, func(id string) models.CacheStatus {
		return e.Cache().Status(ctx, id)
	})
}

// Play records a track in the recently played playlist.
func (r *Runner) Play(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	track, err := r.resolveTrack(ctx, e, cmd)
	if err != nil {
		return err
	}

	if !e.Play(ctx, track) {
		return fmt.Errorf("%w: could not record %s as played", shared.ErrStorage, track.ID)
	}
	if cmd.Bool("json") {
		return r.writeJSON(track, true)
	}

	r.writePlain("▶ %s - %s\n", track.Artist, track.Title)
	if e.Cache().Status(ctx, track.ID) == models.StatusCached {
		r.writePlain("  %s\n", formatter.Styles.Badge(models.StatusCached))
	} else if track.PreviewURL != "" {
		r.writePlain("  Preview: %s\n", track.PreviewURL)
	}
	return nil
}

// Favorite toggles a track's membership in the favorites playlist.
func (r *Runner) Favorite(ctx context.Context, cmd *cli.Command) error {
	e, err := r.open(ctx, cmd)
	if err != nil {
		return err
	}
	track, err := r.resolveTrack(ctx, e, cmd)
	if err != nil {
		return err
	}

	fav, err := e.ToggleFavorite(ctx, track)
	if err != nil {
		return err
	}
	if cmd.Bool("json") {
		return r.writeJSON(map[string]any{"id": track.ID, "favorite": fav}, true)
	}
	if fav {
		r.writePlain("♥ Added to favorites: %s - %s\n", track.Artist, track.Title)
	} else {
		r.writePlain("♡ Removed from favorites: %s - %s\n", track.Artist, track.Title)
	}
	return nil
}

// resolveTrack finds the track named by the first argument, or builds one from
// --title and --artist when it is not known locally.
func (r *Runner) resolveTrack(ctx context.Context, e *tasks.Engine, cmd *cli.Command) (models.Track, error) {
	return r.resolveTrackArg(ctx, e, cmd, cmd.Args().First())
}

func (r *Runner) resolveTrackArg(ctx context.Context, e *tasks.Engine, cmd *cli.Command, id string) (models.Track, error) {
	if id == "" {
		return models.Track{}, fmt.Errorf("%w: track id", shared.ErrMissingArgument)
	}
	if tr, ok := e.Lookup(ctx, id); ok {
		return tr, nil
	}

	title := cmd.String("title")
	if title == "" {
		return models.Track{}, fmt.Errorf("%w: %s (search for it first or pass --title)", shared.ErrTrackNotFound, id)
	}
	return models.Track{ID: id, Title: title, Artist: cmd.String("artist")}, nil
}
