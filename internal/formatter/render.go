package formatter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/desertthunder/ytune/internal/cache"
	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

const maxCell = 48

func newTable(headers ...string) *table.Table {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		})
}

func truncate(s string) string {
	r := []rune(s)
	if len(r) <= maxCell {
		return s
	}
	return string(r[:maxCell-1]) + "…"
}

// RenderTracks writes search results as a numbered table. status, when set,
// supplies the offline badge for each track.
func RenderTracks(w io.Writer, tracks []models.Track, status func(id string) models.CacheStatus) error {
	if len(tracks) == 0 {
		_, err := fmt.Fprintln(w, Styles.Muted("No results."))
		return err
	}

	t := newTable("#", "ID", "Title", "Artist", "Length", "Offline")
	for i, tr := range tracks {
		badge := ""
		if status != nil {
			badge = Styles.Badge(status(tr.ID))
		}
		length := ""
		if tr.Duration > 0 {
			length = shared.FormatDuration(tr.Duration)
		}
		t.Row(strconv.Itoa(i+1), tr.ID, truncate(tr.Title), truncate(tr.Artist), length, badge)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderCacheInfo writes the cache summary followed by its entries, oldest first.
func RenderCacheInfo(w io.Writer, info cache.Info, maxItems int) error {
	fmt.Fprintf(w, "%s %d/%d tracks, %s\n", Styles.Title("Offline cache:"), info.Items, maxItems, shared.FormatBytes(info.Size))
	return RenderCacheEntries(w, info.Entries)
}

// RenderCacheEntries writes cache entries in the given order.
func RenderCacheEntries(w io.Writer, entries []models.CacheEntry) error {
	if len(entries) == 0 {
		_, err := fmt.Fprintln(w, Styles.Muted("Cache is empty."))
		return err
	}

	t := newTable("ID", "Title", "Artist", "Status", "Size", "Cached")
	for _, e := range entries {
		t.Row(
			e.Track.ID,
			truncate(e.Track.Title),
			truncate(e.Track.Artist),
			Styles.Badge(e.Status),
			shared.FormatBytes(e.Size),
			e.Timestamp.Local().Format("2006-01-02 15:04"),
		)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderPlaylists writes one row per playlist. Reserved playlists are marked.
func RenderPlaylists(w io.Writer, playlists []models.Playlist) error {
	t := newTable("ID", "Name", "Tracks", "Updated")
	for _, p := range playlists {
		name := p.Name
		if p.Reserved() {
			name += " " + Styles.Muted("(built-in)")
		}
		updated := ""
		if !p.UpdatedAt.IsZero() {
			updated = p.UpdatedAt.Local().Format("2006-01-02")
		}
		t.Row(p.ID, truncate(name), strconv.Itoa(len(p.Items)), updated)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderPlaylist writes a playlist header and its items.
func RenderPlaylist(w io.Writer, p models.Playlist) error {
	fmt.Fprintln(w, Styles.Title(p.Name))
	if p.Description != "" {
		fmt.Fprintln(w, p.Description)
	}
	fmt.Fprintln(w, Styles.Muted(fmt.Sprintf("%s · %d tracks", p.ID, len(p.Items))))

	if len(p.Items) == 0 {
		_, err := fmt.Fprintln(w, Styles.Muted("No tracks."))
		return err
	}

	t := newTable("#", "Item", "Track", "Title", "Artist", "Added")
	for i, it := range p.Items {
		t.Row(strconv.Itoa(i+1), it.ID, it.TrackID, truncate(it.Title), truncate(it.Artist), it.AddedAt.Local().Format("2006-01-02"))
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// RenderQuota writes usage for every API key slot.
func RenderQuota(w io.Writer, slots []models.QuotaSlot, window time.Duration, now time.Time) error {
	t := newTable("#", "Key", "Domain", "Used", "Limit", "Resets in")
	for i, s := range slots {
		domain := s.Domain
		if domain == "" {
			domain = "*"
		}
		used := strconv.Itoa(s.Used)
		if s.Headroom() <= 0 {
			used = Styles.Err(used)
		}
		resets := s.LastReset.Add(window).Sub(now).Truncate(time.Minute)
		if resets < 0 {
			resets = 0
		}
		t.Row(strconv.Itoa(i+1), MaskKey(s.Key), domain, used, strconv.Itoa(s.Limit), resets.String())
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	switch {
	case key == "":
		return "(none)"
	case len(key) <= 4:
		return strings.Repeat("*", len(key))
	default:
		return strings.Repeat("*", min(len(key)-4, 8)) + key[len(key)-4:]
	}
}
