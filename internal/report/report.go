package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// Format is a report output format.
type Format string

// Supported formats.
const (
	FormatText  Format = "text"
	FormatTable Format = "table"
	FormatJSON  Format = "json"
)

// errUnknownFormat is returned for unsupported format names.
var errUnknownFormat = errors.New("unknown report format")

// ParseFormat converts a name into a Format.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatTable, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("%w: %q", errUnknownFormat, s)
	}
}

// Row is one probed file.
type Row struct {
	// Path is the probed file.
	Path string
	// Expected is the library version as queried independently.
	Expected string
	// Value is the string read back; empty on failure.
	Value string
	// Err is the failure, if any.
	Err error
}

// Match reports whether the probe succeeded and returned the expected string.
func (r Row) Match() bool {
	return r.Err == nil && r.Value == r.Expected
}

// Render writes rows to w in format.
func Render(w io.Writer, format Format, rows []Row) error {
	switch format {
	case FormatText, "":
		return renderText(w, rows)
	case FormatTable:
		renderTable(w, rows)

		return nil
	case FormatJSON:
		return renderJSON(w, rows)
	default:
		return fmt.Errorf("%w: %q", errUnknownFormat, format)
	}
}

// renderText prints one read-back value per line, or the error for failed rows.
func renderText(w io.Writer, rows []Row) error {
	for _, row := range rows {
		line := row.Value
		if row.Err != nil {
			line = "error: " + row.Err.Error()
		}

		if len(rows) > 1 {
			line = row.Path + ": " + line
		}

		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
	}

	return nil
}

func renderTable(w io.Writer, rows []Row) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Path", "Expected", "Read", "Match", "Error"})

	for _, row := range rows {
		errText := ""
		if row.Err != nil {
			errText = row.Err.Error()
		}

		t.AppendRow(table.Row{row.Path, row.Expected, row.Value, row.Match(), errText})
	}

	t.SetStyle(table.StyleRounded)
	t.Render()
}

// renderJSON writes {"results": [...]} through protojson.
func renderJSON(w io.Writer, rows []Row) error {
	results := make([]any, 0, len(rows))

	for _, row := range rows {
		entry := map[string]any{
			"path":     row.Path,
			"expected": row.Expected,
			"value":    row.Value,
			"match":    row.Match(),
		}

		if row.Err != nil {
			entry["error"] = row.Err.Error()
		}

		results = append(results, entry)
	}

	doc, err := structpb.NewStruct(map[string]any{"results": results})
	if err != nil {
		return fmt.Errorf("build report: %w", err)
	}

	data, err := protojson.MarshalOptions{Multiline: true, Indent: "  "}.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if _, err = w.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	return nil
}
