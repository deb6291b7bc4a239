package cache

import (
	"slices"
	"strings"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
	"github.com/lithammer/fuzzysearch/fuzzy"
)

// SortField selects the ordering of [Browse] results.
type SortField string

const (
	SortTimestamp SortField = "timestamp"
	SortTitle     SortField = "title"
	SortArtist    SortField = "artist"
)

// ParseSortField maps user input to a [SortField], defaulting to timestamp.
func ParseSortField(s string) SortField {
	switch SortField(strings.ToLower(s)) {
	case SortTitle:
		return SortTitle
	case SortArtist:
		return SortArtist
	default:
		return SortTimestamp
	}
}

// BrowseOptions filters and orders an offline listing.
type BrowseOptions struct {
	Query      string             // Fuzzy, case-insensitive match on title or artist
	Status     models.CacheStatus // Only entries with this status; empty keeps all
	SortBy     SortField
	Descending bool
}

// Browse returns a filtered, sorted copy of entries. The input is not modified.
func Browse(entries []models.CacheEntry, opts BrowseOptions) []models.CacheEntry {
	query := shared.NormalizeQuery(opts.Query)

	out := make([]models.CacheEntry, 0, len(entries))
	for _, e := range entries {
		if opts.Status != "" && e.Status != opts.Status {
			continue
		}
		if query != "" && !fuzzy.MatchFold(query, e.Track.Title) && !fuzzy.MatchFold(query, e.Track.Artist) {
			continue
		}
		out = append(out, e)
	}

	cmp := compareBy(opts.SortBy)
	slices.SortStableFunc(out, func(a, b models.CacheEntry) int {
		if opts.Descending {
			return cmp(b, a)
		}
		return cmp(a, b)
	})
	return out
}

func compareBy(field SortField) func(a, b models.CacheEntry) int {
	switch field {
	case SortTitle:
		return func(a, b models.CacheEntry) int {
			return strings.Compare(shared.NormalizeQuery(a.Track.Title), shared.NormalizeQuery(b.Track.Title))
		}
	case SortArtist:
		return func(a, b models.CacheEntry) int {
			return strings.Compare(shared.NormalizeQuery(a.Track.Artist), shared.NormalizeQuery(b.Track.Artist))
		}
	default:
		return func(a, b models.CacheEntry) int {
			return a.Timestamp.Compare(b.Timestamp)
		}
	}
}
