package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/ytune/internal/formatter"
	"github.com/desertthunder/ytune/internal/kvstore"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/desertthunder/ytune/internal/tasks"
	tu "github.com/desertthunder/ytune/internal/testing"
)

type harness struct {
	runner *Runner
	engine *tasks.Engine
	output *bytes.Buffer
}

func newHarness(t *testing.T) harness {
	t.Helper()

	tracks := make([]models.Track, 5)
	for i := range tracks {
		tracks[i] = tu.Track(i + 1)
	}

	cfg := shared.DefaultConfig()
	cfg.Cache.MaxItems = 3
	cfg.Search.Cooldown.Duration = 0
	logger := shared.NewLogger(io.Discard)

	e, err := tasks.Open(context.Background(), tasks.Options{
		Backend:  kvstore.NewMemoryBackend(),
		Provider: services.NewDemoService(tracks...),
		Search:   cfg.Search,
		MaxItems: cfg.Cache.MaxItems,
		Logger:   logger,
	})
	if err != nil {
		t.Fatalf("tasks.Open() error = %v", err)
	}
	t.Cleanup(func() { e.Close() })

	output := &bytes.Buffer{}
	runner := NewRunner(RunnerOpts{Config: cfg, Engine: e, Logger: logger, Output: output})
	return harness{runner: runner, engine: e, output: output}
}

func (h harness) run(t *testing.T, args ...string) error {
	t.Helper()
	h.output.Reset()
	return h.runner.app().Run(context.Background(), append([]string{"ytune"}, args...))
}

func (h harness) mustRun(t *testing.T, args ...string) string {
	t.Helper()
	if err := h.run(t, args...); err != nil {
		t.Fatalf("ytune %s: %v", strings.Join(args, " "), err)
	}
	return h.output.String()
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			httpClient := &http.Client{}

			runner := NewRunner(RunnerOpts{
				Config:     config,
				Logger:     logger,
				Output:     output,
				HTTPClient: httpClient,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.httpClient != httpClient {
				t.Error("expected httpClient to be set")
			}
		})

		t.Run("with nil config defers loading", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{})

			if runner.config != nil {
				t.Error("expected config to be loaded on first use")
			}
			if runner.engine != nil {
				t.Error("expected engine to be opened on first use")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})

		t.Run("with nil httpClient uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{HTTPClient: nil})

			if runner.httpClient != http.DefaultClient {
				t.Error("expected httpClient to default to http.DefaultClient")
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, true); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writeJSON(map[string]string{"key": "value"}, false); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			expected := `{"key":"value"}` + "\n"
			if result := output.String(); result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &bytes.Buffer{}})

			err := runner.writeJSON(make(chan int), false)
			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(map[string]string{"key": "value"}, false)
			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlain("hello %s", "world"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("writePlainln surrounds text with newlines", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			if err := runner.writePlainln("Next %s:", "steps"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if result := output.String(); result != "\nNext steps:\n" {
				t.Errorf("expected surrounding newlines, got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: &tu.FWriter{}})

			err := runner.writePlain("test")
			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		names := map[string]bool{}
		for i, cmd := range commands {
			if cmd == nil {
				t.Fatalf("command at index %d is nil", i)
			}
			names[cmd.Name] = true
		}
		for _, want := range []string{"setup", "search", "play", "favorite", "cache", "playlist", "quota"} {
			if !names[want] {
				t.Errorf("expected %q to be registered", want)
			}
		}
	})

	t.Run("loadConfig", func(t *testing.T) {
		t.Run("missing file uses defaults", func(t *testing.T) {
			h := newHarness(t)
			h.runner.config = nil

			path := filepath.Join(t.TempDir(), "missing.toml")
			if err := h.run(t, "--config", path, "quota"); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if h.runner.config == nil || h.runner.config.Search.Source != "demo" {
				t.Errorf("expected default config, got %+v", h.runner.config)
			}
		})

		t.Run("invalid file is an error", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: &bytes.Buffer{}})
			path := filepath.Join(t.TempDir(), "config.toml")
			if err := os.WriteFile(path, []byte("[storage]\ndriver = \"floppy\"\n"), 0644); err != nil {
				t.Fatal(err)
			}

			err := runner.app().Run(context.Background(), []string{"ytune", "--config", path, "quota"})
			if !errors.Is(err, shared.ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	})
}

func TestSearchCommands(t *testing.T) {
	t.Run("search lists results", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "search", "Song", "3")
		if !strings.Contains(out, "Song 3") {
			t.Errorf("expected result in output, got %q", out)
		}
		if !strings.Contains(out, "demo") {
			t.Errorf("expected source in output, got %q", out)
		}
	})

	t.Run("search as JSON", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "--json", "search", "Song 2")
		var got searchOutput
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if got.Query != "song 2" || len(got.Tracks) != 1 || got.Tracks[0].ID != "track-002" {
			t.Errorf("unexpected search output: %+v", got)
		}

		out = h.mustRun(t, "--json", "search", "Song 2")
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatal(err)
		}
		if !got.Cached {
			t.Error("expected the repeated search to be served from cache")
		}
	})

	t.Run("play records recently played", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song 1")

		out := h.mustRun(t, "play", "track-001")
		if !strings.Contains(out, "▶ Artist 1 - Song 1") {
			t.Errorf("unexpected play output %q", out)
		}

		p, _ := h.engine.Playlists().Get(context.Background(), models.RecentlyPlayedID)
		if p.IndexOfTrack("track-001") != 0 {
			t.Errorf("expected track at the head of recently played, got %+v", p.Items)
		}
	})

	t.Run("play unknown track", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "play", "nope"); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound, got %v", err)
		}
		if err := h.run(t, "play"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("play with explicit title", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "play", "--title", "Ad Hoc", "--artist", "Someone", "adhoc-1")
		if !strings.Contains(out, "Someone - Ad Hoc") {
			t.Errorf("unexpected play output %q", out)
		}
	})

	t.Run("favorite toggles", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song 4")

		if out := h.mustRun(t, "favorite", "track-004"); !strings.Contains(out, "♥") {
			t.Errorf("expected added marker, got %q", out)
		}
		if out := h.mustRun(t, "fav", "track-004"); !strings.Contains(out, "♡") {
			t.Errorf("expected removed marker, got %q", out)
		}
	})
}

func TestCacheCommands(t *testing.T) {
	ctx := context.Background()

	t.Run("add, status, info and rm", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song")

		h.mustRun(t, "cache", "add", "track-001")
		h.mustRun(t, "cache", "add", "track-002")

		if out := h.mustRun(t, "cache", "status", "track-001"); !strings.Contains(out, formatter.Styles.Badge(models.StatusCached)) {
			t.Errorf("expected cached badge, got %q", out)
		}

		out := h.mustRun(t, "--json", "cache", "info", "--sort", "title", "--desc")
		var info struct {
			Items   int                 `json:"items"`
			Entries []models.CacheEntry `json:"entries"`
		}
		if err := json.Unmarshal([]byte(out), &info); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if info.Items != 2 || len(info.Entries) != 2 || info.Entries[0].Track.ID != "track-002" {
			t.Errorf("unexpected cache info: %+v", info)
		}

		if out := h.mustRun(t, "cache", "info"); !strings.Contains(out, "2/3 tracks") {
			t.Errorf("expected usage line, got %q", out)
		}

		h.mustRun(t, "cache", "rm", "track-001")
		if h.engine.Cache().Has(ctx, "track-001") {
			t.Error("expected track-001 to be removed from the cache")
		}
		offline, _ := h.engine.Playlists().Get(ctx, models.OfflineID)
		if offline.IndexOfTrack("track-001") >= 0 {
			t.Error("expected track-001 to leave the offline playlist")
		}
	})

	t.Run("status as JSON", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "--json", "cache", "status", "track-009")
		if !strings.Contains(out, `"status": "absent"`) {
			t.Errorf("unexpected status output %q", out)
		}
	})

	t.Run("clear empties offline playlist", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song")
		h.mustRun(t, "cache", "add", "track-001")
		h.mustRun(t, "cache", "add", "track-002")

		out := h.mustRun(t, "cache", "clear")
		if !strings.Contains(out, "2 offline items removed") {
			t.Errorf("unexpected clear output %q", out)
		}
		if n := h.engine.Cache().Info(ctx).Items; n != 0 {
			t.Errorf("expected empty cache, got %d items", n)
		}
	})

	t.Run("rm without id", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "cache", "rm"); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})
}

func TestPlaylistCommands(t *testing.T) {
	ctx := context.Background()

	create := func(t *testing.T, h harness, name string) string {
		t.Helper()
		out := h.mustRun(t, "--json", "playlist", "create", "-d", "for testing", name)
		var got map[string]string
		if err := json.Unmarshal([]byte(out), &got); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		return got["id"]
	}

	t.Run("create, add, show and remove", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song")
		id := create(t, h, "Road Trip")

		h.mustRun(t, "playlist", "add", id, "track-003")
		if out := h.mustRun(t, "playlist", "add", id, "track-003"); !strings.Contains(out, "Already in Road Trip") {
			t.Errorf("expected duplicate notice, got %q", out)
		}

		out := h.mustRun(t, "playlist", "show", id)
		if !strings.Contains(out, "Road Trip") || !strings.Contains(out, "Song 3") {
			t.Errorf("unexpected show output %q", out)
		}

		h.mustRun(t, "playlist", "remove", id, "track-003")
		p, _ := h.engine.Playlists().Get(ctx, id)
		if len(p.Items) != 0 {
			t.Errorf("expected empty playlist, got %+v", p.Items)
		}
	})

	t.Run("ls includes built-in playlists", func(t *testing.T) {
		h := newHarness(t)

		out := h.mustRun(t, "--json", "playlist", "ls")
		var all []models.Playlist
		if err := json.Unmarshal([]byte(out), &all); err != nil {
			t.Fatalf("invalid JSON %q: %v", out, err)
		}
		if len(all) != len(models.ReservedIDs) {
			t.Errorf("expected %d playlists, got %d", len(models.ReservedIDs), len(all))
		}
	})

	t.Run("rename and delete", func(t *testing.T) {
		h := newHarness(t)
		id := create(t, h, "Draft")

		h.mustRun(t, "playlist", "rename", "--description", "final", id, "Final", "Mix")
		p, _ := h.engine.Playlists().Get(ctx, id)
		if p.Name != "Final Mix" || p.Description != "final" {
			t.Errorf("unexpected playlist after rename: %+v", p)
		}

		h.mustRun(t, "playlist", "rm", id)
		if _, ok := h.engine.Playlists().Get(ctx, id); ok {
			t.Error("expected playlist to be deleted")
		}
	})

	t.Run("reserved playlists cannot be deleted", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "playlist", "rm", models.FavoritesID); !errors.Is(err, shared.ErrReservedPlaylist) {
			t.Errorf("expected ErrReservedPlaylist, got %v", err)
		}
		if err := h.run(t, "playlist", "rm", "missing"); !errors.Is(err, shared.ErrPlaylistNotFound) {
			t.Errorf("expected ErrPlaylistNotFound, got %v", err)
		}
	})

	t.Run("create requires a name", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "playlist", "create"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("export writes files and manifest", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song")
		id := create(t, h, "Export Me")
		h.mustRun(t, "playlist", "add", id, "track-001")

		dir := filepath.Join(t.TempDir(), "out")
		out := h.mustRun(t, "playlist", "export", "--format", "csv", "--output", dir, id)
		if !strings.Contains(out, "Exported: 1, failed: 0") {
			t.Errorf("unexpected export output %q", out)
		}
		tu.AssertFileExists(t, filepath.Join(dir, "export_manifest.json"))
	})

	t.Run("export rejects unknown format", func(t *testing.T) {
		h := newHarness(t)

		if err := h.run(t, "playlist", "export", "--format", "xml"); !errors.Is(err, shared.ErrInvalidArgument) {
			t.Errorf("expected ErrInvalidArgument, got %v", err)
		}
	})

	t.Run("download caches playlist tracks", func(t *testing.T) {
		h := newHarness(t)
		h.mustRun(t, "search", "Song")
		id := create(t, h, "Offline")
		h.mustRun(t, "playlist", "add", id, "track-001")
		h.mustRun(t, "playlist", "add", id, "track-002")

		out := h.mustRun(t, "playlist", "download", "--rate", "100", id)
		if !strings.Contains(out, "Downloaded: 2") {
			t.Errorf("unexpected download output %q", out)
		}
		if !h.engine.Cache().Has(ctx, "track-002") {
			t.Error("expected track-002 to be cached")
		}
	})

	t.Run("reconcile reports no drift", func(t *testing.T) {
		h := newHarness(t)

		if out := h.mustRun(t, "playlist", "reconcile"); !strings.Contains(out, "matches the cache") {
			t.Errorf("unexpected reconcile output %q", out)
		}
	})
}

func TestQuotaCommand(t *testing.T) {
	h := newHarness(t)
	h.mustRun(t, "search", "Song")

	out := h.mustRun(t, "quota")
	if !strings.Contains(out, "unmetered") || !strings.Contains(out, "Cached searches: 1") {
		t.Errorf("unexpected quota output %q", out)
	}

	out = h.mustRun(t, "--json", "quota", "--purge")
	var got quotaOutput
	if err := json.Unmarshal([]byte(out), &got); err != nil {
		t.Fatalf("invalid JSON %q: %v", out, err)
	}
	if got.Metered || got.Searches != 1 || got.Purged != 0 {
		t.Errorf("unexpected quota output: %+v", got)
	}
}

func TestSetupCommand(t *testing.T) {
	for _, driver := range []string{"bolt", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			dir := t.TempDir()
			configPath := filepath.Join(dir, "config.toml")
			dbPath := filepath.Join(dir, "ytune.db")
			conf := "[storage]\ndriver = \"" + driver + "\"\npath = \"" + filepath.ToSlash(dbPath) + "\"\n\n[logging]\nlevel = \"error\"\n"
			if err := os.WriteFile(configPath, []byte(conf), 0644); err != nil {
				t.Fatal(err)
			}

			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})
			if err := runner.app().Run(context.Background(), []string{"ytune", "--config", configPath, "setup"}); err != nil {
				t.Fatalf("setup: %v", err)
			}

			out := output.String()
			if !strings.Contains(out, "Using existing config") || !strings.Contains(out, "("+driver+")") {
				t.Errorf("unexpected setup output %q", out)
			}
			tu.AssertFileExists(t, dbPath)
			if runner.engine != nil {
				t.Error("expected the engine to be closed after the command")
			}
		})
	}

	t.Run("creates config when missing", func(t *testing.T) {
		configPath := filepath.Join(t.TempDir(), "config.toml")
		cfg := shared.DefaultConfig()
		cfg.Storage.Driver = "memory"

		output := &bytes.Buffer{}
		runner := NewRunner(RunnerOpts{Logger: shared.NewLogger(io.Discard), Output: output})
		runner.config = cfg

		if err := runner.app().Run(context.Background(), []string{"ytune", "--config", configPath, "setup"}); err != nil {
			t.Fatalf("setup: %v", err)
		}
		tu.AssertFileExists(t, configPath)
		if !strings.Contains(output.String(), "Config file created") {
			t.Errorf("unexpected setup output %q", output.String())
		}
	})
}
