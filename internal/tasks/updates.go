package tasks

import (
	"fmt"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/playlists"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data
}

// Operation phase enumeration
type Phase int

const (
	FetchPlaylist Phase = iota
	DownloadTracks
	ReconcileOffline
	ExportPlaylist
)

func (p Phase) String() string {
	switch p {
	case FetchPlaylist:
		return "fetch_playlist"
	case DownloadTracks:
		return "download_tracks"
	case ReconcileOffline:
		return "reconcile"
	case ExportPlaylist:
		return "export_playlist"
	default:
		return ""
	}
}

func foundPlaylistUpdate(p models.Playlist, pending int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchPlaylist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Found playlist: %s (%d tracks, %d to download)", p.Name, len(p.Items), pending),
		Data:    p,
	}
}

func downloadUpdate(step, total int, tr models.Track, ok bool) ProgressUpdate {
	mark := "✓"
	if !ok {
		mark = "✗"
	}
	return ProgressUpdate{
		Phase:   DownloadTracks,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %s - %s", step, total, mark, tr.Artist, tr.Title),
		Data:    tr,
	}
}

func reconcileUpdate(res *playlists.ReconcileResult) ProgressUpdate {
	if res == nil {
		return ProgressUpdate{Phase: ReconcileOffline, Step: 0, Total: 1, Message: "Reconciling offline playlist..."}
	}
	return ProgressUpdate{
		Phase:   ReconcileOffline,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Offline playlist: %d added, %d removed", len(res.Added), len(res.Removed)),
		Data:    *res,
	}
}

func exportingPlaylistUpdate(step, total int, name string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Exporting: %s...", step, total, name),
	}
}

func exportCompletedUpdate(step, total int, name string, filesCount int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d files)", step, total, name, filesCount),
	}
}

func exportFailedUpdate(step, total int, name string, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportPlaylist,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, name, err),
	}
}
