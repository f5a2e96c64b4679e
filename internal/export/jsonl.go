package export

import (
	"fmt"
	"io"
	"time"

	"github.com/goccy/go-json"

	"github.com/flexapi/explorer/internal/model"
)

type record struct {
	Timestamp string  `json:"timestamp" yaml:"timestamp"`
	Interval  float64 `json:"interval" yaml:"interval"`
	Direction string  `json:"direction" yaml:"direction"`
	Text      string  `json:"text" yaml:"text"`
}

func toRecord(m model.Message) record {
	return record{
		Timestamp: m.Timestamp.Format(time.RFC3339Nano),
		Interval:  m.Interval,
		Direction: m.Direction(),
		Text:      m.Text,
	}
}

// JSONLExporter writes one JSON object per message
type JSONLExporter struct{}

// Export writes msgs as JSON lines
func (e *JSONLExporter) Export(msgs []model.Message, w io.Writer) error {
	enc := json.NewEncoder(w)
	for _, m := range msgs {
		if err := enc.Encode(toRecord(m)); err != nil {
			return fmt.Errorf("failed to encode message: %w", err)
		}
	}
	return nil
}

// Extension returns the file extension for this format
func (e *JSONLExporter) Extension() string {
	return "jsonl"
}
