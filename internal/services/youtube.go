// YouTube Data API v3 implementation of [Provider]
//
// Only the search.list endpoint is used. Each call is charged against the API
// key chosen by the caller.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/desertthunder/ytune/internal/models"
)

const (
	defaultYTBaseURL  = "https://www.googleapis.com/youtube/v3"
	defaultMaxResults = 10
	youtubeName       = "youtube"
)

// Error reasons reported in the YouTube error body that exhaust quota.
var (
	youtubeKeyQuotaReasons    = []string{"quotaExceeded"}
	youtubeDomainQuotaReasons = []string{"dailyLimitExceeded", "dailyLimitExceededUnreg", "rateLimitExceeded"}
)

// YouTubeThumbnail is a single thumbnail rendition.
type YouTubeThumbnail struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

type youtubeThumbnails struct {
	Default *YouTubeThumbnail `json:"default"`
	Medium  *YouTubeThumbnail `json:"medium"`
	High    *YouTubeThumbnail `json:"high"`
}

// YouTubeSearchItem is one entry of a search.list response.
type YouTubeSearchItem struct {
	ID struct {
		Kind    string `json:"kind"`
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string            `json:"title"`
		ChannelTitle string            `json:"channelTitle"`
		Thumbnails   youtubeThumbnails `json:"thumbnails"`
	} `json:"snippet"`
}

type youtubeSearchResponse struct {
	Items []YouTubeSearchItem `json:"items"`
}

// youtubeErrorResponse is the Google API error envelope.
type youtubeErrorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Errors  []struct {
			Reason  string `json:"reason"`
			Domain  string `json:"domain"`
			Message string `json:"message"`
		} `json:"errors"`
	} `json:"error"`
}

// YouTubeService searches videos with the YouTube Data API.
type YouTubeService struct {
	baseURL    string
	httpClient *http.Client
}

// NewYouTubeService creates a new YouTube search provider.
func NewYouTubeService(baseURL string) *YouTubeService {
	if baseURL == "" {
		baseURL = defaultYTBaseURL
	}

	return &YouTubeService{
		baseURL:    baseURL,
		httpClient: http.DefaultClient,
	}
}

// Name returns the provider name.
func (y *YouTubeService) Name() string {
	return youtubeName
}

// Search calls GET /search?part=snippet&type=video with the request's API key.
func (y *YouTubeService) Search(ctx context.Context, req SearchRequest) ([]models.Track, error) {
	if req.APIKey == "" {
		return nil, &ProviderError{Kind: KindTransient, Provider: youtubeName, Reason: "missing API key"}
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("type", "video")
	params.Set("q", req.Query)
	params.Set("maxResults", strconv.Itoa(maxResults(req.MaxResults)))
	params.Set("key", req.APIKey)

	var resp youtubeSearchResponse
	if err := y.doRequest(ctx, "/search?"+params.Encode(), req.Referer, &resp); err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item.ID.VideoID == "" {
			continue
		}
		tracks = append(tracks, item.Track())
	}
	return tracks, nil
}

// Track converts a search item to a track, preferring the high resolution thumbnail.
func (item YouTubeSearchItem) Track() models.Track {
	return models.Track{
		ID:           item.ID.VideoID,
		Title:        html.UnescapeString(item.Snippet.Title),
		Artist:       html.UnescapeString(item.Snippet.ChannelTitle),
		ThumbnailURL: item.Snippet.Thumbnails.best(),
		Source:       youtubeName,
	}
}

func (t youtubeThumbnails) best() string {
	for _, th := range []*YouTubeThumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.URL != "" {
			return th.URL
		}
	}
	return ""
}

func (y *YouTubeService) doRequest(ctx context.Context, endpoint, referer string, result any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, y.baseURL+endpoint, nil)
	if err != nil {
		return &ProviderError{Kind: KindTransient, Provider: youtubeName, Err: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Accept", "application/json")
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := y.httpClient.Do(req)
	if err != nil {
		return &ProviderError{Kind: KindTransient, Provider: youtubeName, Err: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return classifyYouTubeError(resp.StatusCode, resp.Body)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return &ProviderError{Kind: KindTransient, Provider: youtubeName, Status: resp.StatusCode, Err: fmt.Errorf("failed to decode response: %w", err)}
	}
	return nil
}

// classifyYouTubeError maps an error response to a [ProviderError] using the
// first reason in the error body.
func classifyYouTubeError(status int, body io.Reader) *ProviderError {
	pe := &ProviderError{Kind: KindTransient, Provider: youtubeName, Status: status}

	var errResp youtubeErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		if status == http.StatusTooManyRequests {
			pe.Kind = KindDomainQuota
		}
		return pe
	}

	for _, e := range errResp.Error.Errors {
		if e.Reason == "" {
			continue
		}
		pe.Reason = e.Reason
		switch {
		case slices.Contains(youtubeKeyQuotaReasons, e.Reason):
			pe.Kind = KindQuota
		case slices.Contains(youtubeDomainQuotaReasons, e.Reason):
			pe.Kind = KindDomainQuota
		}
		break
	}

	if pe.Reason == "" && errResp.Error.Message != "" {
		pe.Reason = errResp.Error.Message
	}
	return pe
}

func maxResults(n int) int {
	if n <= 0 {
		return defaultMaxResults
	}
	return min(n, 50)
}
