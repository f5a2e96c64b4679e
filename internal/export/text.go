package export

import (
	"io"

	"github.com/flexapi/explorer/internal/model"
	"github.com/flexapi/explorer/internal/msglog"
)

// TextExporter writes "<interval> <text>" lines, the same block the log
// itself exports
type TextExporter struct{}

// Export writes msgs as text
func (e *TextExporter) Export(msgs []model.Message, w io.Writer) error {
	_, err := io.WriteString(w, msglog.FormatText(msgs))
	return err
}

// Extension returns the file extension for this format
func (e *TextExporter) Extension() string {
	return "txt"
}
