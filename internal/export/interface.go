// Package export writes the visible message log and the raw discovery
// packets to files.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/flexapi/explorer/internal/model"
)

// Exporter defines the interface for all export formats
type Exporter interface {
	Export(msgs []model.Message, w io.Writer) error
	Extension() string
}

// Formats lists the supported format names
func Formats() []string {
	return []string{"txt", "jsonl", "yaml"}
}

// NewExporter creates a new exporter based on format
func NewExporter(format string) (Exporter, error) {
	switch strings.ToLower(format) {
	case "", "txt", "text":
		return &TextExporter{}, nil
	case "jsonl":
		return &JSONLExporter{}, nil
	case "yaml", "yml":
		return &YAMLExporter{}, nil
	default:
		return nil, fmt.Errorf("unsupported format: %s (supported: txt, jsonl, yaml)", format)
	}
}
