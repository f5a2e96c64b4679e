package export

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/flexapi/explorer/internal/model"
)

// YAMLExporter writes the messages as a YAML sequence
type YAMLExporter struct{}

// Export writes msgs as YAML
func (e *YAMLExporter) Export(msgs []model.Message, w io.Writer) error {
	records := make([]record, len(msgs))
	for i, m := range msgs {
		records[i] = toRecord(m)
	}

	enc := yaml.NewEncoder(w)
	if err := enc.Encode(records); err != nil {
		enc.Close()
		return fmt.Errorf("failed to encode messages: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to flush messages: %w", err)
	}
	return nil
}

// Extension returns the file extension for this format
func (e *YAMLExporter) Extension() string {
	return "yaml"
}
