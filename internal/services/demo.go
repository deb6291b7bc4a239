package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

const demoName = "demo"

// demoCatalog is served when no provider credentials are configured.
var demoCatalog = []models.Track{
	{ID: "dQw4w9WgXcQ", Title: "Rick Astley - Never Gonna Give You Up", Artist: "Rick Astley", ThumbnailURL: "https://i.ytimg.com/vi/dQw4w9WgXcQ/mqdefault.jpg", Duration: 213},
	{ID: "4NRXx6U8ABQ", Title: "The Weeknd - Blinding Lights", Artist: "The Weeknd", ThumbnailURL: "https://i.ytimg.com/vi/4NRXx6U8ABQ/mqdefault.jpg", Duration: 202},
	{ID: "JGwWNGJdvx8", Title: "Ed Sheeran - Shape of You", Artist: "Ed Sheeran", ThumbnailURL: "https://i.ytimg.com/vi/JGwWNGJdvx8/mqdefault.jpg", Duration: 263},
	{ID: "kJQP7kiw5Fk", Title: "Luis Fonsi - Despacito ft. Daddy Yankee", Artist: "Luis Fonsi", ThumbnailURL: "https://i.ytimg.com/vi/kJQP7kiw5Fk/mqdefault.jpg", Duration: 281},
	{ID: "RgKAFK5djSk", Title: "Wiz Khalifa - See You Again ft. Charlie Puth", Artist: "Wiz Khalifa", ThumbnailURL: "https://i.ytimg.com/vi/RgKAFK5djSk/mqdefault.jpg", Duration: 237},
}

// DemoService searches a small built-in catalog. Matching is a case-insensitive
// substring test against title and artist.
type DemoService struct {
	catalog []models.Track
}

// NewDemoService returns a provider over tracks, or the built-in catalog when
// tracks is empty.
func NewDemoService(tracks ...models.Track) *DemoService {
	if len(tracks) == 0 {
		tracks = demoCatalog
	}
	return &DemoService{catalog: tracks}
}

func (d *DemoService) Name() string {
	return demoName
}

func (d *DemoService) Search(ctx context.Context, req SearchRequest) ([]models.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ProviderError{Kind: KindTransient, Provider: demoName, Err: err}
	}

	q := shared.NormalizeQuery(req.Query)
	limit := maxResults(req.MaxResults)
	tracks := []models.Track{}
	for _, t := range d.catalog {
		if len(tracks) == limit {
			break
		}
		if strings.Contains(shared.NormalizeQuery(t.Title), q) || strings.Contains(shared.NormalizeQuery(t.Artist), q) {
			t.Source = demoName
			tracks = append(tracks, t)
		}
	}
	return tracks, nil
}

// Fallback tries Primary and, when it fails, Secondary.
type Fallback struct {
	Primary   Provider
	Secondary Provider
	Logger    *log.Logger
}

// NewFallback returns primary alone when secondary is nil.
func NewFallback(primary, secondary Provider, logger *log.Logger) Provider {
	if secondary == nil {
		return primary
	}
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fallback{Primary: primary, Secondary: secondary, Logger: shared.WithLogger(logger, "component", "search")}
}

func (f *Fallback) Name() string {
	return f.Primary.Name() + "+" + f.Secondary.Name()
}

// Search returns the primary's results. When the primary fails and the secondary
// succeeds, the secondary's tracks are returned together with a [*FallbackError]
// carrying the primary's failure, so callers can still retire an exhausted key.
// The key is not forwarded to the secondary after a quota fault.
func (f *Fallback) Search(ctx context.Context, req SearchRequest) ([]models.Track, error) {
	tracks, err := f.Primary.Search(ctx, req)
	if err == nil || ctx.Err() != nil {
		return tracks, err
	}

	f.Logger.Warn("search failed, falling back", "provider", f.Primary.Name(), "fallback", f.Secondary.Name(), "err", err)
	if KindOf(err) != KindTransient {
		req.APIKey = ""
	}

	tracks, ferr := f.Secondary.Search(ctx, req)
	if ferr != nil {
		return nil, fmt.Errorf("%w; %s fallback: %w", err, f.Secondary.Name(), ferr)
	}
	return tracks, &FallbackError{Provider: f.Secondary.Name(), Err: err}
}
