// package formatter exports Tidal playlists to files (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"

	"github.com/desertthunder/harmoniq/internal/tidal"
)

// PlaylistExport is a playlist with every track fetched.
type PlaylistExport struct {
	Playlist tidal.Playlist `json:"playlist"`
	Tracks   []tidal.Track  `json:"tracks"`
}

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?(?:(\d+)(?:\.\d+)?S)?$`)

// FormatDuration renders an ISO 8601 duration (PT3M20S) as 3:20, or 1:02:03 past an hour.
//
// Values it cannot parse are returned unchanged.
func FormatDuration(iso string) string {
	m := isoDuration.FindStringSubmatch(iso)
	if m == nil || iso == "PT" {
		return iso
	}

	var parts [3]int
	for i := range parts {
		if m[i+1] != "" {
			parts[i], _ = strconv.Atoi(m[i+1])
		}
	}
	hours, mins, secs := parts[0], parts[1], parts[2]
	mins, secs = mins+secs/60, secs%60
	hours, mins = hours+mins/60, mins%60

	if hours > 0 {
		return fmt.Sprintf("%d:%02d:%02d", hours, mins, secs)
	}
	return fmt.Sprintf("%d:%02d", mins, secs)
}

// ExportToCSV converts a PlaylistExport to CSV format with columns: ID, Title, Duration, ISRC, Explicit
func ExportToCSV(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Duration", "ISRC", "Explicit"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			FormatDuration(track.Duration),
			track.ISRC,
			strconv.FormatBool(track.Explicit),
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

// ExportToMarkdown converts a PlaylistExport to Markdown format
func ExportToMarkdown(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	pl := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", pl.Name)

	if pl.Description != "" {
		fmt.Fprintf(&buf, "**Description**: %s\n\n", pl.Description)
	}

	fmt.Fprintf(&buf, "**Tracks**: %d\n", len(export.Tracks))
	if pl.Duration != "" {
		fmt.Fprintf(&buf, "**Length**: %s\n", FormatDuration(pl.Duration))
	}
	if pl.Privacy != "" {
		fmt.Fprintf(&buf, "**Visibility**: %s\n", pl.Privacy)
	}
	buf.WriteString("\n## Tracks\n\n")

	for i, track := range export.Tracks {
		explicit := ""
		if track.Explicit {
			explicit = " (explicit)"
		}
		fmt.Fprintf(&buf, "%d. %s%s [%s]\n", i+1, track.Title, explicit, FormatDuration(track.Duration))
	}

	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to plain text format
func ExportToText(export *PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s\n", i+1, track.Title)
	}

	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist tidal.Playlist) ([]byte, error) {
	return json.MarshalIndent(playlist, "", "  ")
}

// CSVExportResult contains the paths of files created by WriteCSVExport
type CSVExportResult struct {
	TracksFile   string
	MetadataFile string
}

// WriteCSVExport exports a playlist to CSV format with accompanying metadata JSON file.
//
// Defaults to playlist ID as the base filename & creates {base}_tracks.csv and {base}_metadata.json
func WriteCSVExport(export *PlaylistExport, baseFilepath string) (*CSVExportResult, error) {
	if baseFilepath == "" {
		baseFilepath = export.Playlist.ID
	}

	csvData, err := ExportToCSV(export)
	if err != nil {
		return nil, fmt.Errorf("failed to generate CSV: %w", err)
	}

	tracksFile := baseFilepath + "_tracks.csv"
	if err := os.WriteFile(tracksFile, csvData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write CSV file: %w", err)
	}

	metadataJSON, err := ToMetadataJSON(export.Playlist)
	if err != nil {
		return nil, fmt.Errorf("failed to generate metadata JSON: %w", err)
	}

	metadataFile := baseFilepath + "_metadata.json"
	if err := os.WriteFile(metadataFile, metadataJSON, 0644); err != nil {
		return nil, fmt.Errorf("failed to write metadata file: %w", err)
	}

	return &CSVExportResult{TracksFile: tracksFile, MetadataFile: metadataFile}, nil
}

// WriteMarkdownExport writes {dir}/README.md, creating dir (default: the playlist ID) as needed.
func WriteMarkdownExport(export *PlaylistExport, outputDir string) (string, error) {
	if outputDir == "" {
		outputDir = export.Playlist.ID
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	mdData, err := ExportToMarkdown(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate Markdown: %w", err)
	}

	mdFile := filepath.Join(outputDir, "README.md")
	if err := os.WriteFile(mdFile, mdData, 0644); err != nil {
		return "", fmt.Errorf("failed to write Markdown file: %w", err)
	}

	return mdFile, nil
}

// WriteTextExport exports a playlist to plain text format.
//
// Defaults to {playlist.ID}_tracks.txt as the filename.
func WriteTextExport(export *PlaylistExport, path string) (string, error) {
	if path == "" {
		path = fmt.Sprintf("%s_tracks.txt", export.Playlist.ID)
	}

	textData, err := ExportToText(export)
	if err != nil {
		return "", fmt.Errorf("failed to generate text: %w", err)
	}

	if err := os.WriteFile(path, textData, 0644); err != nil {
		return "", fmt.Errorf("failed to write text file: %w", err)
	}

	return path, nil
}
