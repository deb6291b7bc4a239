package tasks

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/ytune/internal/services"
	"github.com/desertthunder/ytune/internal/shared"
)

// NewProvider builds the configured search provider, wrapped with the
// configured fallback when one is set.
//
// A YouTube source without any API key falls back to the demo catalog.
func NewProvider(cfg *shared.Config, logger *log.Logger) (services.Provider, error) {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}

	primary, err := provider(cfg, cfg.Search.Source, cfg.Search.BaseURL)
	if err != nil {
		return nil, err
	}
	if cfg.Search.Source == "youtube" && len(cfg.Search.Keys) == 0 {
		logger.Warn("no YouTube API keys configured, using the demo catalog")
		primary = services.NewDemoService()
	}

	if cfg.Search.Fallback == "" || cfg.Search.Fallback == cfg.Search.Source {
		return primary, nil
	}
	secondary, err := provider(cfg, cfg.Search.Fallback, "")
	if err != nil {
		logger.Warn("fallback provider unavailable", "provider", cfg.Search.Fallback, "err", err)
		return primary, nil
	}
	return services.NewFallback(primary, secondary, logger), nil
}

func provider(cfg *shared.Config, source, baseURL string) (services.Provider, error) {
	switch source {
	case "youtube":
		return services.NewYouTubeService(baseURL), nil
	case "spotify":
		return services.NewSpotifyService(services.SpotifyOptions{
			ClientID:     cfg.Credentials.Spotify.ClientID,
			ClientSecret: cfg.Credentials.Spotify.ClientSecret,
			BaseURL:      baseURL,
		})
	case "demo":
		return services.NewDemoService(), nil
	default:
		return nil, fmt.Errorf("%w: unknown search source %q", shared.ErrInvalidConfig, source)
	}
}
