// Spotify Web API implementation of [Provider]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
	spotifyBaseURL  = "https://api.spotify.com/v1"
	spotifyName     = "spotify"
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// SpotifyArtist represents a simplified Spotify artist.
type SpotifyArtist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// SpotifyAlbum represents a simplified Spotify album.
type SpotifyAlbum struct {
	ID     string         `json:"id"`
	Name   string         `json:"name"`
	Images []SpotifyImage `json:"images"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Artists    []SpotifyArtist `json:"artists"`
	Album      SpotifyAlbum    `json:"album"`
	DurationMS int             `json:"duration_ms"`
	PreviewURL string          `json:"preview_url"`
}

type spotifySearchResponse struct {
	Tracks struct {
		Items []SpotifyTrack `json:"items"`
	} `json:"tracks"`
}

type spotifyErrorResponse struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// Track converts a Spotify track to a track reference.
func (t SpotifyTrack) Track() models.Track {
	track := models.Track{
		ID:         t.ID,
		Title:      t.Name,
		PreviewURL: t.PreviewURL,
		Duration:   t.DurationMS / 1000,
		Source:     spotifyName,
	}
	if len(t.Artists) > 0 {
		track.Artist = t.Artists[0].Name
	}
	if len(t.Album.Images) > 0 {
		track.ThumbnailURL = t.Album.Images[0].URL
	}
	return track
}

// SpotifyOptions configures a [SpotifyService].
type SpotifyOptions struct {
	ClientID     string
	ClientSecret string
	TokenURL     string       // Default: Spotify accounts service
	BaseURL      string       // Default: Spotify Web API
	HTTPClient   *http.Client // Used for token and API requests (default: http.DefaultClient)
}

// SpotifyService searches tracks with the Spotify Web API using the client
// credentials flow. Tokens are cached and refreshed by [oauth2.TokenSource].
type SpotifyService struct {
	baseURL    string
	tokens     oauth2.TokenSource
	httpClient *http.Client
}

// NewSpotifyService creates a new Spotify search provider.
func NewSpotifyService(opts SpotifyOptions) (*SpotifyService, error) {
	if opts.ClientID == "" {
		return nil, fmt.Errorf("%w: missing spotify client_id", shared.ErrMissingCredentials)
	}
	if opts.ClientSecret == "" {
		return nil, fmt.Errorf("%w: missing spotify client_secret", shared.ErrMissingCredentials)
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyTokenURL
	}
	if opts.BaseURL == "" {
		opts.BaseURL = spotifyBaseURL
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	config := &clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     opts.TokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}

	tokenCtx := context.WithValue(context.Background(), oauth2.HTTPClient, opts.HTTPClient)
	return &SpotifyService{
		baseURL:    opts.BaseURL,
		tokens:     config.TokenSource(tokenCtx),
		httpClient: opts.HTTPClient,
	}, nil
}

func (s *SpotifyService) Name() string {
	return spotifyName
}

// Search calls GET /search?type=track. The request's API key is ignored.
func (s *SpotifyService) Search(ctx context.Context, req SearchRequest) ([]models.Track, error) {
	params := url.Values{}
	params.Set("q", req.Query)
	params.Set("type", "track")
	params.Set("limit", strconv.Itoa(maxResults(req.MaxResults)))

	var resp spotifySearchResponse
	if err := s.doRequest(ctx, "/search?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(resp.Tracks.Items))
	for _, t := range resp.Tracks.Items {
		tracks = append(tracks, t.Track())
	}
	return tracks, nil
}

// doRequest performs an authenticated GET request to the Spotify API.
func (s *SpotifyService) doRequest(ctx context.Context, endpoint string, result any) error {
	token, err := s.tokens.Token()
	if err != nil {
		return &ProviderError{Kind: KindTransient, Provider: spotifyName, Reason: "token request failed", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+endpoint, nil)
	if err != nil {
		return &ProviderError{Kind: KindTransient, Provider: spotifyName, Err: fmt.Errorf("failed to create request: %w", err)}
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Kind: KindTransient, Provider: spotifyName, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		pe := &ProviderError{Kind: KindTransient, Provider: spotifyName, Status: resp.StatusCode}
		if resp.StatusCode == http.StatusTooManyRequests {
			pe.Kind = KindQuota
		}

		var errResp spotifyErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&errResp); err == nil {
			pe.Reason = errResp.Error.Message
		}
		return pe
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &ProviderError{Kind: KindTransient, Provider: spotifyName, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}
