package shared

import "fmt"

var (
	ErrNotImplemented = fmt.Errorf("not implemented")

	// Configuration errors
	ErrMissingConfig      = fmt.Errorf("configuration not found")
	ErrInvalidConfig      = fmt.Errorf("invalid configuration")
	ErrMissingCredentials = fmt.Errorf("missing credentials")

	// Storage errors
	ErrStorage          = fmt.Errorf("storage failure")
	ErrNotFound         = fmt.Errorf("key not found")
	ErrCapacityExceeded = fmt.Errorf("storage capacity exceeded")

	// Search errors
	ErrEmptyQuery          = fmt.Errorf("empty search query")
	ErrThrottled           = fmt.Errorf("search throttled")
	ErrNoKeysAvailable     = fmt.Errorf("no API keys available")
	ErrQuotaExceeded       = fmt.Errorf("API quota exceeded")
	ErrDomainQuotaExceeded = fmt.Errorf("daily quota exceeded for this domain")
	ErrSuperseded          = fmt.Errorf("search superseded by a newer query")

	// API and service errors
	ErrAPIRequest         = fmt.Errorf("API request failed")
	ErrServiceUnavailable = fmt.Errorf("service unavailable")
	ErrPlaylistNotFound   = fmt.Errorf("playlist not found")
	ErrReservedPlaylist   = fmt.Errorf("reserved playlist")
	ErrTrackNotFound      = fmt.Errorf("track not found")

	// Input validation errors
	ErrInvalidInput    = fmt.Errorf("invalid input")
	ErrMissingArgument = fmt.Errorf("missing required argument")
	ErrInvalidArgument = fmt.Errorf("invalid argument")
)
