package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
	th "github.com/desertthunder/unison/internal/testing"
)

// sampleEntries returns two tracks read at global indices 10 and 12; slot 11 belonged to a
// source that failed.
func sampleEntries() []merge.Change[models.Track] {
	one := merge.NewItem(
		merge.Facet[models.Track]{SourceID: "spotify", Index: 0, Item: models.Track{ID: "track1", Title: "Song One", Artist: "Artist One", Album: "Album One", Duration: 180, ISRC: "USRC12345678"}},
		merge.Facet[models.Track]{SourceID: "youtube", Index: 3, Item: models.Track{ID: "yt1", Title: "Song One"}},
	)
	two := merge.NewItem(
		merge.Facet[models.Track]{SourceID: "files", Index: 1, Item: models.Track{ID: "track2", Title: "Song, Two", Artist: "Artist Two", Duration: 3725}},
	)
	return []merge.Change[models.Track]{{Item: one, Index: 10}, {Item: two, Index: 12}}
}

func TestRows(t *testing.T) {
	entries := sampleEntries()
	rows := Rows(entries)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].Index != 10 || rows[1].Index != 12 {
		t.Errorf("expected indexes 10 and 12, got %d and %d", rows[0].Index, rows[1].Index)
	}
	if rows[0].ID != entries[0].Item.ID() {
		t.Errorf("expected merged id %s, got %s", entries[0].Item.ID(), rows[0].ID)
	}
	if rows[0].Title != "Song One" || rows[0].ISRC != "USRC12345678" {
		t.Errorf("expected preferred facet values, got %+v", rows[0])
	}
	if strings.Join(rows[0].Sources, ",") != "spotify,youtube" {
		t.Errorf("expected both sources, got %v", rows[0].Sources)
	}
}

func TestExporters(t *testing.T) {
	entries := sampleEntries()

	t.Run("ToCSV", func(t *testing.T) {
		data, err := ToCSV(entries)
		if err != nil {
			t.Fatalf("ToCSV failed: %v", err)
		}

		records, err := csv.NewReader(bytes.NewReader(data)).ReadAll()
		if err != nil {
			t.Fatalf("output is not valid CSV: %v", err)
		}
		if len(records) != 3 {
			t.Fatalf("expected header and 2 records, got %d", len(records))
		}
		if strings.Join(records[0], ",") != "Index,ID,Title,Artist,Album,Duration,ISRC,Sources" {
			t.Errorf("unexpected headers %v", records[0])
		}
		if records[1][2] != "Song One" || records[1][7] != "spotify;youtube" {
			t.Errorf("unexpected first record %v", records[1])
		}
		if records[2][2] != "Song, Two" {
			t.Errorf("expected quoted title to round trip, got %q", records[2][2])
		}
	})

	t.Run("ToJSON", func(t *testing.T) {
		data, err := ToJSON(entries)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}

		var rows []Row
		if err := json.Unmarshal(data, &rows); err != nil {
			t.Fatalf("output is not valid JSON: %v", err)
		}
		if len(rows) != 2 || rows[1].Index != 12 || rows[1].Title != "Song, Two" {
			t.Errorf("unexpected rows %+v", rows)
		}
	})

	t.Run("RenderTable", func(t *testing.T) {
		out := RenderTable(entries)
		for _, want := range []string{"Title", "Song One", "Artist Two", "3:00", "1:02:05", "spotify,youtube"} {
			if !strings.Contains(out, want) {
				t.Errorf("table missing %q:\n%s", want, out)
			}
		}
	})

	t.Run("empty page", func(t *testing.T) {
		data, err := ToJSON(nil)
		if err != nil {
			t.Fatalf("ToJSON failed: %v", err)
		}
		if string(data) != "[]" {
			t.Errorf("expected empty array, got %s", data)
		}
	})
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", FormatTable, false},
		{"table", FormatTable, false},
		{"CSV", FormatCSV, false},
		{" json ", FormatJSON, false},
		{"markdown", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				if !errors.Is(err, shared.ErrInvalidFlag) {
					t.Errorf("expected ErrInvalidFlag, got %v", err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
		})
	}
}

func TestWrite(t *testing.T) {
	t.Run("write failure", func(t *testing.T) {
		if err := Write(&th.FWriter{}, FormatCSV, sampleEntries()); err == nil {
			t.Error("expected error from failing writer")
		}
	})

	t.Run("WriteFile", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "tracks.json")
		if err := WriteFile(path, FormatJSON, sampleEntries()); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		th.AssertFileExists(t, path)
		if content := th.MustReadFile(t, path); !strings.Contains(content, `"title": "Song One"`) {
			t.Errorf("unexpected file content %s", content)
		}
	})

	t.Run("WriteFile bad path", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "tracks.csv")
		if err := WriteFile(path, FormatCSV, sampleEntries()); err == nil {
			t.Error("expected error for missing directory")
		}
	})
}

func TestPageWriter(t *testing.T) {
	entries := sampleEntries()

	t.Run("csv shares one header", func(t *testing.T) {
		var buf bytes.Buffer
		pw := NewPageWriter(&buf, FormatCSV)
		if err := pw.WritePage(entries[:1]); err != nil {
			t.Fatal(err)
		}
		if err := pw.WritePage(entries[1:]); err != nil {
			t.Fatal(err)
		}
		if err := pw.Close(); err != nil {
			t.Fatal(err)
		}
		if n := strings.Count(buf.String(), "Index,ID"); n != 1 {
			t.Errorf("expected 1 header, got %d", n)
		}
		records, err := csv.NewReader(&buf).ReadAll()
		if err != nil || len(records) != 3 {
			t.Errorf("expected 3 records, got %d (%v)", len(records), err)
		}
	})

	t.Run("json joins pages", func(t *testing.T) {
		var buf bytes.Buffer
		pw := NewPageWriter(&buf, FormatJSON)
		pw.WritePage(nil)
		pw.WritePage(entries[:1])
		pw.WritePage(entries[1:])
		if err := pw.Close(); err != nil {
			t.Fatal(err)
		}

		var rows []Row
		if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
			t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
		}
		if len(rows) != 2 || rows[1].Index != 12 {
			t.Errorf("unexpected rows %+v", rows)
		}
	})

	t.Run("fails mid export", func(t *testing.T) {
		var buf bytes.Buffer
		lw := th.NewLimitedWriter(1, 0, &buf)
		pw := NewPageWriter(&lw, FormatJSON)
		if err := pw.WritePage(entries); err == nil {
			t.Error("expected error once the writer is exhausted")
		}
	})

	t.Run("json without rows", func(t *testing.T) {
		var buf bytes.Buffer
		pw := NewPageWriter(&buf, FormatJSON)
		pw.Close()
		if buf.String() != "[]\n" {
			t.Errorf("expected empty array, got %q", buf.String())
		}
	})
}
