// Package output renders API records in one of three presentation
// formats. Only json is stable for machine parsing; table and compact
// are discretionary human formats.
package output

import (
	"encoding/json"
	"fmt"
	"io"
)

// Format selects the presentation format.
type Format string

const (
	// FormatTable is a human-readable table.
	FormatTable Format = "table"
	// FormatJSON is stable machine-parseable JSON.
	FormatJSON Format = "json"
	// FormatCompact is one line per record.
	FormatCompact Format = "compact"
)

// ParseFormat validates a format selector.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatTable, FormatJSON, FormatCompact:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unsupported output format: %s (supported: table, json, compact)", s)
	}
}

// Renderer writes records to w in the selected format.
type Renderer struct {
	format Format
	w      io.Writer
}

// NewRenderer creates a renderer for the given format.
func NewRenderer(format Format, w io.Writer) *Renderer {
	return &Renderer{format: format, w: w}
}

// Format returns the renderer's format.
func (r *Renderer) Format() Format { return r.format }

// JSON writes v as indented JSON. Used directly by commands whose
// payload has no table shape.
func (r *Renderer) JSON(v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal to JSON: %w", err)
	}
	_, err = fmt.Fprintln(r.w, string(data))
	return err
}

// truncateID shortens long VM identifiers for display, keeping both
// ends so records stay distinguishable.
func truncateID(id string) string {
	if len(id) <= 16 {
		return id
	}
	return id[:6] + "..." + id[len(id)-6:]
}
