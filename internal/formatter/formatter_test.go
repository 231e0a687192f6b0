package formatter

import (
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/harmoniq/internal/tidal"
	th "github.com/desertthunder/harmoniq/internal/testing"
)

func testExport() *PlaylistExport {
	return &PlaylistExport{
		Playlist: tidal.Playlist{
			ID: "test123",
			PlaylistAttributes: tidal.PlaylistAttributes{
				Name:          "Test Playlist",
				Description:   "A test playlist",
				NumberOfItems: 2,
				Duration:      "PT7M",
				Privacy:       "PUBLIC",
			},
		},
		Tracks: []tidal.Track{
			{ID: "track1", TrackAttributes: tidal.TrackAttributes{Title: "Song One", ISRC: "USRC12345678", Duration: "PT3M", Explicit: true}},
			{ID: "track2", TrackAttributes: tidal.TrackAttributes{Title: "Song, Two", ISRC: "USRC87654321", Duration: "PT4M"}},
		},
	}
}

func TestFormatDuration(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PT3M20S", "3:20"},
		{"PT45S", "0:45"},
		{"PT1H2M3S", "1:02:03"},
		{"PT75M", "1:15:00"},
		{"PT2M30.5S", "2:30"},
		{"PT90S", "1:30"},
		{"", ""},
		{"PT", "PT"},
		{"3 minutes", "3 minutes"},
	}

	for _, tt := range tests {
		if got := FormatDuration(tt.in); got != tt.want {
			t.Errorf("FormatDuration(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(testExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		output := string(data)
		if !strings.HasPrefix(output, "ID,Title,Duration,ISRC,Explicit\n") {
			t.Errorf("CSV missing headers, got: %s", output)
		}
		if !strings.Contains(output, "track1,Song One,3:00,USRC12345678,true") {
			t.Errorf("CSV missing track1 row, got: %s", output)
		}
		if !strings.Contains(output, `"Song, Two"`) {
			t.Errorf("CSV should quote titles with commas, got: %s", output)
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		data, err := ExportToMarkdown(testExport())
		if err != nil {
			t.Fatalf("ExportToMarkdown failed: %v", err)
		}

		output := string(data)
		for _, want := range []string{
			"# Test Playlist",
			"**Description**: A test playlist",
			"**Tracks**: 2",
			"**Length**: 7:00",
			"**Visibility**: PUBLIC",
			"1. Song One (explicit) [3:00]",
			"2. Song, Two [4:00]",
		} {
			if !strings.Contains(output, want) {
				t.Errorf("Markdown missing %q, got: %s", want, output)
			}
		}
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(testExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}

		output := string(data)
		if !strings.Contains(output, "Playlist: Test Playlist") || !strings.Contains(output, "2. Song, Two") {
			t.Errorf("unexpected text export: %s", output)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(testExport().Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}

		var meta map[string]any
		if err := json.Unmarshal(data, &meta); err != nil {
			t.Fatalf("metadata is not valid JSON: %v", err)
		}
		if meta["id"] != "test123" || meta["name"] != "Test Playlist" {
			t.Errorf("unexpected metadata: %v", meta)
		}
		if _, ok := meta["tracks"]; ok {
			t.Error("metadata should not include tracks")
		}
	})
}

func TestWriters(t *testing.T) {
	t.Run("WriteCSVExport", func(t *testing.T) {
		t.Run("WithDefaultPath", func(t *testing.T) {
			tempDir := t.TempDir()
			originalDir := th.MustGetwd(t)
			th.MustChdir(t, tempDir)
			defer th.MustChdir(t, originalDir)

			result, err := WriteCSVExport(testExport(), "")
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}

			if result.TracksFile != "test123_tracks.csv" {
				t.Errorf("expected test123_tracks.csv, got %s", result.TracksFile)
			}
			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)

			if content := th.MustReadFile(t, result.TracksFile); !strings.Contains(content, "Song One") {
				t.Errorf("tracks file missing content: %s", content)
			}
		})

		t.Run("WithCustomPath", func(t *testing.T) {
			base := filepath.Join(t.TempDir(), "custom_export")

			result, err := WriteCSVExport(testExport(), base)
			if err != nil {
				t.Fatalf("WriteCSVExport failed: %v", err)
			}
			if result.MetadataFile != base+"_metadata.json" {
				t.Errorf("unexpected metadata file %s", result.MetadataFile)
			}
			th.AssertFileExists(t, result.TracksFile)
			th.AssertFileExists(t, result.MetadataFile)
		})
	})

	t.Run("WriteMarkdownExport", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "export")

		path, err := WriteMarkdownExport(testExport(), dir)
		if err != nil {
			t.Fatalf("WriteMarkdownExport failed: %v", err)
		}

		th.AssertDirExists(t, dir)
		if content := th.MustReadFile(t, path); !strings.HasPrefix(content, "# Test Playlist") {
			t.Errorf("unexpected README: %s", content)
		}
	})

	t.Run("WriteTextExport", func(t *testing.T) {
		tempDir := t.TempDir()
		originalDir := th.MustGetwd(t)
		th.MustChdir(t, tempDir)
		defer th.MustChdir(t, originalDir)

		path, err := WriteTextExport(testExport(), "")
		if err != nil {
			t.Fatalf("WriteTextExport failed: %v", err)
		}
		if path != "test123_tracks.txt" {
			t.Errorf("expected test123_tracks.txt, got %s", path)
		}
		th.AssertFileExists(t, path)
	})
}
