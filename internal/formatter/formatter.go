// package formatter renders merged track pages as a terminal table, CSV or JSON
package formatter

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/desertthunder/unison/internal/merge"
	"github.com/desertthunder/unison/internal/models"
	"github.com/desertthunder/unison/internal/shared"
)

// Row is the flat view of one merged track at a global index.
type Row struct {
	Index    int      `json:"index"`
	ID       string   `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Album    string   `json:"album"`
	Duration int      `json:"duration"`
	ISRC     string   `json:"isrc,omitempty"`
	Sources  []string `json:"sources"`
}

// Rows flattens entries, keeping the global index each one was read at.
func Rows(entries []merge.Change[models.Track]) []Row {
	rows := make([]Row, len(entries))
	for i, e := range entries {
		item := e.Item
		t := item.Value()
		rows[i] = Row{
			Index:    e.Index,
			ID:       item.ID(),
			Title:    t.Title,
			Artist:   t.Artist,
			Album:    t.Album,
			Duration: t.Duration,
			ISRC:     t.ISRC,
			Sources:  item.Sources(),
		}
	}
	return rows
}

var headers = []string{"#", "Title", "Artist", "Album", "Duration", "Sources"}

// RenderTable draws the rows as a bordered table.
func RenderTable(entries []merge.Change[models.Track]) string {
	header := lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cell := lipgloss.NewStyle().Padding(0, 1)

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(NewStyle("#626262")).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return header
			}
			return cell
		}).
		Headers(headers...)

	for _, r := range Rows(entries) {
		t.Row(
			strconv.Itoa(r.Index),
			r.Title,
			r.Artist,
			r.Album,
			shared.FormatDuration(r.Duration),
			strings.Join(r.Sources, ","),
		)
	}
	return t.String()
}

// ToCSV converts entries to CSV with columns: Index, ID, Title, Artist, Album, Duration, ISRC, Sources
func ToCSV(entries []merge.Change[models.Track]) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeCSV(&buf, entries, true); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeCSV(w io.Writer, entries []merge.Change[models.Track], withHeader bool) error {
	writer := csv.NewWriter(w)

	if withHeader {
		if err := writer.Write([]string{"Index", "ID", "Title", "Artist", "Album", "Duration", "ISRC", "Sources"}); err != nil {
			return fmt.Errorf("failed to write CSV headers: %w", err)
		}
	}

	for _, r := range Rows(entries) {
		record := []string{
			strconv.Itoa(r.Index),
			r.ID,
			r.Title,
			r.Artist,
			r.Album,
			strconv.Itoa(r.Duration),
			r.ISRC,
			strings.Join(r.Sources, ";"),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("CSV writer error: %w", err)
	}
	return nil
}

// ToJSON converts entries to an indented JSON array of [Row].
func ToJSON(entries []merge.Change[models.Track]) ([]byte, error) {
	data, err := json.MarshalIndent(Rows(entries), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return data, nil
}

// Format names an output format.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat accepts table, csv and json; empty means table.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FormatTable, nil
	case FormatTable, FormatCSV, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("%w: format %q", shared.ErrInvalidFlag, s)
	}
}

// Write renders entries in format to w.
func Write(w io.Writer, format Format, entries []merge.Change[models.Track]) error {
	var data []byte
	var err error
	switch format {
	case FormatCSV:
		data, err = ToCSV(entries)
	case FormatJSON:
		data, err = ToJSON(entries)
		data = append(data, '\n')
	default:
		data = []byte(RenderTable(entries) + "\n")
	}
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// WriteFile renders entries in format to path.
func WriteFile(path string, format Format, entries []merge.Change[models.Track]) error {
	var buf bytes.Buffer
	if err := Write(&buf, format, entries); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}

// PageWriter streams pages of a long export. CSV pages share one header; JSON pages are
// joined into a single array.
type PageWriter struct {
	w      io.Writer
	format Format
	pages  int
	rows   int
}

func NewPageWriter(w io.Writer, format Format) *PageWriter {
	return &PageWriter{w: w, format: format}
}

// WritePage appends one page.
func (p *PageWriter) WritePage(entries []merge.Change[models.Track]) error {
	first := p.pages == 0
	p.pages++

	switch p.format {
	case FormatCSV:
		return writeCSV(p.w, entries, first)
	case FormatJSON:
		for _, r := range Rows(entries) {
			data, err := json.Marshal(r)
			if err != nil {
				return fmt.Errorf("failed to marshal JSON: %w", err)
			}
			sep := ",\n  "
			if p.rows == 0 {
				sep = "[\n  "
			}
			if _, err := io.WriteString(p.w, sep+string(data)); err != nil {
				return fmt.Errorf("failed to write output: %w", err)
			}
			p.rows++
		}
		return nil
	default:
		return Write(p.w, FormatTable, entries)
	}
}

// Close finishes the output.
func (p *PageWriter) Close() error {
	if p.format != FormatJSON {
		return nil
	}
	end := "\n]\n"
	if p.rows == 0 {
		end = "[]\n"
	}
	if _, err := io.WriteString(p.w, end); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
