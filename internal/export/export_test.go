package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/flexapi/explorer/internal/model"
)

func testMessages() []model.Message {
	start := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return []model.Message{
		model.NewMessage("C1|info", false, start, start.Add(250*time.Millisecond)),
		model.NewMessage("R1|0|model=FLEX-6600", true, start, start.Add(1500*time.Millisecond)),
	}
}

func TestNewExporter(t *testing.T) {
	tests := []struct {
		format  string
		ext     string
		wantErr bool
	}{
		{"txt", "txt", false},
		{"", "txt", false},
		{"JSONL", "jsonl", false},
		{"yml", "yaml", false},
		{"csv", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			exp, err := NewExporter(tt.format)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.ext, exp.Extension())
		})
	}
}

func TestTextExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&TextExporter{}).Export(testMessages(), &buf))
	assert.Equal(t, "0.250000 C1|info\n1.500000 R1|0|model=FLEX-6600", buf.String())

	buf.Reset()
	require.NoError(t, (&TextExporter{}).Export(nil, &buf))
	assert.Empty(t, buf.String())
}

func TestJSONLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&JSONLExporter{}).Export(testMessages(), &buf))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)

	var first record
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &first))
	assert.Equal(t, "C1|info", first.Text)
	assert.Equal(t, "->", first.Direction)
	assert.InDelta(t, 0.25, first.Interval, 1e-9)

	var second record
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &second))
	assert.Equal(t, "<-", second.Direction)
}

func TestYAMLExporter_Export(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, (&YAMLExporter{}).Export(testMessages(), &buf))

	var records []record
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &records))
	require.Len(t, records, 2)
	assert.Equal(t, "R1|0|model=FLEX-6600", records[1].Text)
	assert.Equal(t, "2024-05-01T12:00:01.5Z", records[1].Timestamp)
}

type failingWriter struct{}

func (failingWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestExporters_ReportWriteErrors(t *testing.T) {
	for _, format := range Formats() {
		t.Run(format, func(t *testing.T) {
			exporter, err := NewExporter(format)
			require.NoError(t, err)
			assert.Error(t, exporter.Export(testMessages(), failingWriter{}))
		})
	}
}

func TestWriteBroadcastDump(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	packets := []model.Packet{
		{Received: at, From: "10.0.0.1:4992", Data: []byte{0x38, 0x52, 0xff}},
		{Received: at.Add(time.Second), From: "10.0.0.2:4992", Data: nil},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteBroadcastDump(packets, &buf))
	assert.Equal(t,
		"2024-05-01T12:00:00Z 10.0.0.1:4992 3 3852ff\n2024-05-01T12:00:01Z 10.0.0.2:4992 0 \n",
		buf.String())
}
