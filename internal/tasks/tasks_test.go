package tasks

import (
	"context"
	"errors"
	"io"
	"slices"
	"testing"
	"time"

	"github.com/desertthunder/ytune/internal/cache"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
	tu "github.com/desertthunder/ytune/internal/testing"
)

type fixture struct {
	engine  *Engine
	backend *kvstore.MemoryBackend
	clock   *tu.Clock
}

func catalog(n int) []models.Track {
	tracks := make([]models.Track, n)
	for i := range tracks {
		tracks[i] = tu.Track(i + 1)
	}
	return tracks
}

func searchConfig(keys ...shared.KeyConfig) shared.SearchConfig {
	cfg := shared.DefaultConfig().Search
	cfg.Keys = keys
	return cfg
}

func openEngine(t *testing.T, backend *kvstore.MemoryBackend, cfg shared.SearchConfig, maxItems int) fixture {
	t.Helper()
	if backend == nil {
		backend = kvstore.NewMemoryBackend()
	}
	clock := tu.NewClock(time.Time{})

	e, err := Open(context.Background(), Options{
		Backend:  backend,
		Provider: services.NewDemoService(catalog(5)...),
		Search:   cfg,
		MaxItems: maxItems,
		Now:      clock.Now,
		Logger:   shared.NewLogger(io.Discard),
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return fixture{engine: e, backend: backend, clock: clock}
}

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("requires backend and provider", func(t *testing.T) {
		if _, err := Open(ctx, Options{Provider: services.NewDemoService()}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
		if _, err := Open(ctx, Options{Backend: kvstore.NewMemoryBackend()}); !errors.Is(err, shared.ErrServiceUnavailable) {
			t.Errorf("expected ErrServiceUnavailable, got %v", err)
		}
	})

	t.Run("rejects invalid key limits", func(t *testing.T) {
		_, err := Open(ctx, Options{
			Backend:  kvstore.NewMemoryBackend(),
			Provider: services.NewDemoService(),
			Search:   searchConfig(shared.KeyConfig{Key: "k"}),
			Logger:   shared.NewLogger(io.Discard),
		})
		if !errors.Is(err, shared.ErrInvalidConfig) {
			t.Errorf("expected ErrInvalidConfig, got %v", err)
		}
	})

	t.Run("reconciles offline playlist", func(t *testing.T) {
		backend := kvstore.NewMemoryBackend()
		cm := cache.NewManager(backend.Bucket(kvstore.BucketContent), cache.Options{Logger: shared.NewLogger(io.Discard)})
		cm.Add(ctx, tu.Track(1))

		f := openEngine(t, backend, searchConfig(), 0)
		offline, _ := f.engine.Playlists().Get(ctx, models.OfflineID)
		if offline.IndexOfTrack(tu.Track(1).ID) < 0 {
			t.Errorf("cached track should be restored to offline playlist, got %+v", offline.Items)
		}
	})

	t.Run("restores quota usage", func(t *testing.T) {
		cfg := searchConfig(shared.KeyConfig{Key: "k", Domain: "*", Limit: 1000})
		f := openEngine(t, nil, cfg, 0)
		if _, err := f.engine.Search(ctx, "song"); err != nil {
			t.Fatalf("Search() error = %v", err)
		}

		again := openEngine(t, f.backend, cfg, 0)
		if used := again.engine.Tracker().Slots()[0].Used; used != cfg.CostPerCall {
			t.Errorf("restored usage = %d, want %d", used, cfg.CostPerCall)
		}
	})
}

func TestEngineSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("metered", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(shared.KeyConfig{Key: "k", Domain: "*", Limit: 1000}), 0)
		if !f.engine.Metered() {
			t.Fatal("engine with keys should be metered")
		}

		res, err := f.engine.Search(ctx, "Song 3")
		if err != nil {
			t.Fatalf("Search() error = %v", err)
		}
		if len(res.Tracks) != 1 || res.Tracks[0].ID != tu.Track(3).ID || res.Source != "demo" {
			t.Errorf("unexpected result %+v", res)
		}

		res, err = f.engine.Search(ctx, "song 3")
		if err != nil || !res.Cached {
			t.Errorf("expected cached repeat, got %+v %v", res, err)
		}
		if used := f.engine.Tracker().Slots()[0].Used; used != 100 {
			t.Errorf("used = %d, want 100", used)
		}
	})

	t.Run("unmetered without keys", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)
		if f.engine.Metered() || f.engine.Tracker() != nil {
			t.Error("engine without keys should be unmetered")
		}
		if _, err := f.engine.Search(ctx, "artist"); err != nil {
			t.Errorf("Search() error = %v", err)
		}
	})

	t.Run("throttled", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)
		f.engine.Search(ctx, "song 1")
		if _, err := f.engine.Search(ctx, "song 2"); !errors.Is(err, shared.ErrThrottled) {
			t.Errorf("expected ErrThrottled, got %v", err)
		}
	})
}

func TestTrackOperations(t *testing.T) {
	ctx := context.Background()
	track := tu.Track(1)

	t.Run("Play", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)
		f.engine.Play(ctx, tu.Track(2))
		f.engine.Play(ctx, track)

		recent, _ := f.engine.Playlists().Get(ctx, models.RecentlyPlayedID)
		if len(recent.Items) != 2 || recent.Items[0].TrackID != track.ID {
			t.Errorf("unexpected recently played %+v", recent.Items)
		}
	})

	t.Run("Download and RemoveDownload", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)
		if !f.engine.Download(ctx, track) {
			t.Fatal("Download() = false")
		}
		if f.engine.Cache().Status(ctx, track.ID) != models.StatusCached {
			t.Error("downloaded track should be cached")
		}

		offline, _ := f.engine.Playlists().Get(ctx, models.OfflineID)
		if !f.engine.RemoveDownload(ctx, offline.Items[0].ID) {
			t.Fatal("RemoveDownload() = false")
		}
		if f.engine.Cache().Has(ctx, track.ID) {
			t.Error("removed download should leave the cache")
		}
		if f.engine.RemoveDownload(ctx, "missing") {
			t.Error("RemoveDownload() of unknown item should fail")
		}
	})

	t.Run("ToggleFavorite", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)

		fav, err := f.engine.ToggleFavorite(ctx, track)
		if err != nil || !fav {
			t.Fatalf("first toggle = %v, %v", fav, err)
		}
		if !slices.Contains(f.engine.Playlists().Membership(ctx, track.ID), models.FavoritesID) {
			t.Error("track should be a favorite")
		}

		fav, err = f.engine.ToggleFavorite(ctx, track)
		if err != nil || fav {
			t.Fatalf("second toggle = %v, %v", fav, err)
		}
		favorites, _ := f.engine.Playlists().Get(ctx, models.FavoritesID)
		if len(favorites.Items) != 0 {
			t.Errorf("favorites should be empty, got %+v", favorites.Items)
		}
	})

	t.Run("Lookup", func(t *testing.T) {
		f := openEngine(t, nil, searchConfig(), 0)
		f.engine.Download(ctx, track)
		f.engine.Play(ctx, tu.Track(2))

		if got, ok := f.engine.Lookup(ctx, track.ID); !ok || got.Title != track.Title {
			t.Errorf("Lookup(cached) = %+v, %v", got, ok)
		}
		if got, ok := f.engine.Lookup(ctx, tu.Track(2).ID); !ok || got.Artist != tu.Track(2).Artist {
			t.Errorf("Lookup(playlist) = %+v, %v", got, ok)
		}
		f.engine.Search(ctx, "song 4")
		if got, ok := f.engine.Lookup(ctx, tu.Track(4).ID); !ok || got.Source != "demo" {
			t.Errorf("Lookup(search result) = %+v, %v", got, ok)
		}
		if _, ok := f.engine.Lookup(ctx, "nope"); ok {
			t.Error("Lookup(unknown) should miss")
		}
	})
}

func TestNewProvider(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		fallback string
		keys     []shared.KeyConfig
		spotify  shared.SpotifyConfig
		want     string
		wantErr  error
	}{
		{name: "demo", source: "demo", want: "demo"},
		{name: "youtube without keys", source: "youtube", want: "demo"},
		{name: "youtube", source: "youtube", keys: []shared.KeyConfig{{Key: "k", Limit: 1}}, want: "youtube"},
		{name: "youtube with fallback", source: "youtube", fallback: "demo", keys: []shared.KeyConfig{{Key: "k", Limit: 1}}, want: "youtube+demo"},
		{name: "spotify", source: "spotify", spotify: shared.SpotifyConfig{ClientID: "id", ClientSecret: "secret"}, want: "spotify"},
		{name: "spotify without credentials", source: "spotify", wantErr: shared.ErrMissingCredentials},
		{name: "unusable fallback is skipped", source: "demo", fallback: "spotify", want: "demo"},
		{name: "unknown source", source: "vinyl", wantErr: shared.ErrInvalidConfig},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := shared.DefaultConfig()
			cfg.Search.Source = tt.source
			cfg.Search.Fallback = tt.fallback
			cfg.Search.Keys = tt.keys
			cfg.Credentials.Spotify = tt.spotify

			p, err := NewProvider(cfg, shared.NewLogger(io.Discard))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("expected %v, got %v", tt.wantErr, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("NewProvider() error = %v", err)
			}
			if p.Name() != tt.want {
				t.Errorf("Name() = %q, want %q", p.Name(), tt.want)
			}
		})
	}
}

func TestReferer(t *testing.T) {
	tests := map[string]string{
		"":                      "",
		"*":                     "",
		"music.example":         "https://music.example/",
		"http://localhost:3000": "http://localhost:3000",
	}
	for in, want := range tests {
		if got := referer(in); got != want {
			t.Errorf("referer(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPhaseString(t *testing.T) {
	for phase, want := range map[Phase]string{
		FetchPlaylist:    "fetch_playlist",
		DownloadTracks:   "download_tracks",
		ReconcileOffline: "reconcile",
		ExportPlaylist:   "export_playlist",
		Phase(99):        "",
	} {
		if got := phase.String(); got != want {
			t.Errorf("Phase(%d).String() = %q, want %q", phase, got, want)
		}
	}
}
