// package formatter renders playlists, cache contents and search results for the
// terminal and exports playlists to files (JSON, CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/ytune/internal/models"
	"github.com/desertthunder/ytune/internal/shared"
)

// Format is a playlist export format.
type Format string

const (
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatText     Format = "txt"
)

// ParseFormat accepts a format name or one of its common aliases.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	case "markdown", "md":
		return FormatMarkdown, nil
	case "txt", "text":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q (use json, csv, markdown or txt)", shared.ErrInvalidArgument, s)
	}
}

// PlaylistMetadata is a playlist without its items.
type PlaylistMetadata struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	TrackCount  int       `json:"trackCount"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ExportToCSV converts a playlist to CSV with columns: Position, TrackID, Title, Artist, AddedAt
func ExportToCSV(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"Position", "TrackID", "Title", "Artist", "AddedAt"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for i, item := range p.Items {
		record := []string{
			strconv.Itoa(i + 1),
			item.TrackID,
			item.Title,
			item.Artist,
			item.AddedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportToMarkdown converts a playlist to Markdown with an optional cover image
func ExportToMarkdown(p models.Playlist, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(p.Items))
	fmt.Fprintf(&buf, "**Updated**: %s\n\n", p.UpdatedAt.UTC().Format("2006-01-02"))

	buf.WriteString("## Tracks\n\n")
	for i, item := range p.Items {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, item.Artist, item.Title)
	}
	return buf.Bytes(), nil
}

// ExportToText converts a playlist to plain text
func ExportToText(p models.Playlist) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", p.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(p.Items))

	for i, item := range p.Items {
		fmt.Fprintf(&buf, "%d. %s - %s\n", i+1, item.Artist, item.Title)
	}
	return buf.Bytes(), nil
}

// ExportToJSON converts a playlist, including its items, to indented JSON
func ExportToJSON(p models.Playlist) ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without items)
func ToMetadataJSON(p models.Playlist) ([]byte, error) {
	return json.MarshalIndent(PlaylistMetadata{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		TrackCount:  len(p.Items),
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}, "", "  ")
}

// DownloadImage downloads an image from url and returns the raw bytes
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty URL provided", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// ExportResult lists the files written for one playlist.
type ExportResult struct {
	PlaylistID string   `json:"playlistId"`
	Name       string   `json:"name"`
	Format     Format   `json:"format"`
	Files      []string `json:"files"`
}

// ExportOptions configures [WriteExport].
type ExportOptions struct {
	Format    Format
	OutputDir string       // Default: current directory
	Client    *http.Client // Used to fetch Markdown cover art; nil skips the cover
}

// WriteExport writes p to opts.OutputDir in the chosen format. File names are
// derived from the playlist id.
func WriteExport(ctx context.Context, p models.Playlist, opts ExportOptions) (*ExportResult, error) {
	if opts.OutputDir == "" {
		opts.OutputDir = "."
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	result := &ExportResult{PlaylistID: p.ID, Name: p.Name, Format: opts.Format}
	base := filepath.Join(opts.OutputDir, p.ID)

	switch opts.Format {
	case FormatCSV:
		files, err := WriteCSVExport(p, base)
		if err != nil {
			return nil, err
		}
		result.Files = files

	case FormatMarkdown:
		imageURL := ""
		if opts.Client != nil && len(p.Items) > 0 {
			imageURL = p.Items[0].ThumbnailURL
		}
		files, err := WriteMarkdownExport(ctx, opts.Client, p, base, imageURL)
		if err != nil {
			return nil, err
		}
		result.Files = files

	case FormatText:
		path, err := WriteTextExport(p, base+"_tracks.txt")
		if err != nil {
			return nil, err
		}
		result.Files = []string{path}

	case FormatJSON, "":
		result.Format = FormatJSON
		path, err := WriteJSONExport(p, base+".json")
		if err != nil {
			return nil, err
		}
		result.Files = []string{path}

	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidArgument, opts.Format)
	}
	return result, nil
}

// WriteCSVExport creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(p models.Playlist, base string) ([]string, error) {
	if base == "" {
		base = p.ID
	}

	csvData, err := ExportToCSV(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}
	tracksFile := base + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadata, err := ToMetadataJSON(p)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}
	metadataFile := base + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadata, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return []string{tracksFile, metadataFile}, nil
}

// WriteMarkdownExport exports a playlist to {dir}/README.md.
//
// When imageURL is set the cover is saved as {dir}/cover.jpg. A failed download
// leaves the cover out rather than failing the export.
func WriteMarkdownExport(ctx context.Context, client *http.Client, p models.Playlist, dir, imageURL string) ([]string, error) {
	if dir == "" {
		dir = p.ID
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	files := []string{}
	cover := ""
	if imageURL != "" {
		if data, err := DownloadImage(ctx, client, imageURL); err == nil {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err == nil {
				cover = "cover.jpg"
				files = append(files, path)
			}
		}
	}

	md, err := ExportToMarkdown(p, cover)
	if err != nil {
		return nil, fmt.Errorf("failed to generate Markdown: %w", err)
	}
	mdFile := filepath.Join(dir, "README.md")
	if err := os.WriteFile(mdFile, md, 0644); err != nil {
		return nil, fmt.Errorf("failed to write Markdown file: %w", err)
	}
	return append(files, mdFile), nil
}

// WriteTextExport exports a playlist to plain text. Defaults to {playlist.ID}_tracks.txt.
func WriteTextExport(p models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + "_tracks.txt"
	}

	data, err := ExportToText(p)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}
	return path, nil
}

// WriteJSONExport exports a playlist to JSON. Defaults to {playlist.ID}.json.
func WriteJSONExport(p models.Playlist, path string) (string, error) {
	if path == "" {
		path = p.ID + ".json"
	}

	data, err := ExportToJSON(p)
	if err != nil {
		return "", fmt.Errorf("JSON marshal failed: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("JSON write failed: %w", err)
	}
	return path, nil
}

// Manifest summarises a multi-playlist export.
type Manifest struct {
	ExportedAt time.Time      `json:"exportedAt"`
	Format     Format         `json:"format"`
	Succeeded  int            `json:"succeeded"`
	Failed     int            `json:"failed"`
	Exports    []ExportResult `json:"exports"`
	Errors     []string       `json:"errors,omitempty"`
}

// WriteManifest writes m as indented JSON to path.
func WriteManifest(m Manifest, path string) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}
	return nil
}
