package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/desertthunder/ytune/internal/shared"
	tu "github.com/desertthunder/ytune/internal/testing"
)

// spotifyServer serves the token endpoint and hands search requests to handler.
func spotifyServer(t *testing.T, tokenCalls *atomic.Int32, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/token", func(w http.ResponseWriter, r *http.Request) {
		tokenCalls.Add(1)
		if user, pass, ok := r.BasicAuth(); !ok || user != "client" || pass != "secret" {
			t.Errorf("expected client credentials in basic auth, got %q %q", user, pass)
		}
		if err := r.ParseForm(); err != nil || r.Form.Get("grant_type") != "client_credentials" {
			t.Errorf("expected client_credentials grant, got %v", r.Form)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token":"tok","token_type":"bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/v1/search", handler)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestSpotify(t *testing.T, server *httptest.Server) *SpotifyService {
	t.Helper()
	svc, err := NewSpotifyService(SpotifyOptions{
		ClientID:     "client",
		ClientSecret: "secret",
		TokenURL:     server.URL + "/api/token",
		BaseURL:      server.URL + "/v1",
		HTTPClient:   server.Client(),
	})
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	return svc
}

func TestSpotifyService(t *testing.T) {
	ctx := context.Background()

	t.Run("NewSpotifyService", func(t *testing.T) {
		tests := []struct {
			name string
			opts SpotifyOptions
			err  bool
		}{
			{"valid credentials", SpotifyOptions{ClientID: "id", ClientSecret: "secret"}, false},
			{"missing client id", SpotifyOptions{ClientSecret: "secret"}, true},
			{"missing client secret", SpotifyOptions{ClientID: "id"}, true},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc, err := NewSpotifyService(tt.opts)
				if tt.err {
					if !errors.Is(err, shared.ErrMissingCredentials) {
						t.Errorf("expected ErrMissingCredentials, got %v", err)
					}
					return
				}
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				if svc.Name() != "spotify" {
					t.Errorf("expected service name 'spotify', got %s", svc.Name())
				}
				if svc.baseURL != spotifyBaseURL {
					t.Errorf("expected default base URL, got %s", svc.baseURL)
				}
			})
		}
	})

	t.Run("Search", func(t *testing.T) {
		var tokenCalls atomic.Int32
		server := spotifyServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("expected bearer token, got %q", got)
			}
			q := r.URL.Query()
			if q.Get("type") != "track" || q.Get("q") != "blue" || q.Get("limit") != "10" {
				t.Errorf("unexpected query %v", q)
			}
			w.Write([]byte(`{"tracks":{"items":[
				{"id":"sp1","name":"Blue Monday","artists":[{"name":"New Order"},{"name":"Other"}],
				 "album":{"images":[{"url":"https://img/large"},{"url":"https://img/small"}]},
				 "preview_url":"https://p.scdn.co/mp3-preview/sp1","duration_ms":449000},
				{"id":"sp2","name":"Untitled","artists":[],"album":{"images":[]},"duration_ms":999}
			]}}`))
		})

		svc := newTestSpotify(t, server)
		tracks, err := svc.Search(ctx, SearchRequest{Query: "blue", APIKey: "ignored"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 {
			t.Fatalf("expected 2 tracks, got %d", len(tracks))
		}

		got := tracks[0]
		if got.Artist != "New Order" || got.ThumbnailURL != "https://img/large" || got.Duration != 449 || got.Source != "spotify" {
			t.Errorf("unexpected track: %+v", got)
		}
		if got.PreviewURL != "https://p.scdn.co/mp3-preview/sp1" {
			t.Errorf("expected preview URL, got %s", got.PreviewURL)
		}
		if tracks[1].Artist != "" || tracks[1].ThumbnailURL != "" || tracks[1].Duration != 0 {
			t.Errorf("expected empty optional fields, got %+v", tracks[1])
		}

		if _, err := svc.Search(ctx, SearchRequest{Query: "blue"}); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if n := tokenCalls.Load(); n != 1 {
			t.Errorf("expected token to be reused, fetched %d times", n)
		}
	})

	t.Run("rate limited", func(t *testing.T) {
		var tokenCalls atomic.Int32
		server := spotifyServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Retry-After", "30")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"status":429,"message":"API rate limit exceeded"}}`))
		})

		_, err := newTestSpotify(t, server).Search(ctx, SearchRequest{Query: "q"})
		if !errors.Is(err, shared.ErrQuotaExceeded) {
			t.Fatalf("expected ErrQuotaExceeded, got %v", err)
		}

		var pe *ProviderError
		if errors.As(err, &pe) && pe.Reason != "API rate limit exceeded" {
			t.Errorf("expected reason from body, got %q", pe.Reason)
		}
	})

	t.Run("server error", func(t *testing.T) {
		var tokenCalls atomic.Int32
		server := spotifyServer(t, &tokenCalls, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
		})

		_, err := newTestSpotify(t, server).Search(ctx, SearchRequest{Query: "q"})
		if !errors.Is(err, shared.ErrAPIRequest) || KindOf(err) != KindTransient {
			t.Errorf("expected transient error, got %v", err)
		}
	})

	t.Run("token failure", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error":"invalid_client"}`))
		}))
		defer server.Close()

		svc, _ := NewSpotifyService(SpotifyOptions{
			ClientID: "client", ClientSecret: "wrong",
			TokenURL: server.URL, BaseURL: server.URL, HTTPClient: server.Client(),
		})
		_, err := svc.Search(ctx, SearchRequest{Query: "q"})
		if !errors.Is(err, shared.ErrAPIRequest) {
			t.Errorf("expected ErrAPIRequest, got %v", err)
		}
	})

	t.Run("unreadable body", func(t *testing.T) {
		var tokenCalls atomic.Int32
		server := spotifyServer(t, &tokenCalls, func(http.ResponseWriter, *http.Request) {})
		svc := newTestSpotify(t, server)

		resp := &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(&tu.FCloser{}), Header: http.Header{}}
		svc.httpClient = &http.Client{Transport: tu.NewMockRoundTripper(resp, nil)}

		if _, err := svc.Search(ctx, SearchRequest{Query: "q"}); err == nil {
			t.Error("expected decode error")
		}
	})
}
