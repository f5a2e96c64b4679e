package discovery

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/flexapi/explorer/internal/model"
)

// HeaderSize is the VITA-49 header preceding the announcement payload
const HeaderSize = 28

var (
	ErrShortPacket = errors.New("packet shorter than header")
	ErrNoSerial    = errors.New("announcement has no serial")
)

// ParseAnnouncement decodes the space separated key=value payload that
// follows the VITA-49 header. Spaces inside values are sent as 0x7f.
func ParseAnnouncement(data []byte, seen time.Time) (*model.Radio, error) {
	if len(data) < HeaderSize {
		return nil, ErrShortPacket
	}
	payload := strings.TrimRight(string(data[HeaderSize:]), "\x00")
	fields := ParsePairs(payload)

	r := &model.Radio{
		Serial:    fields["serial"],
		Model:     fields["model"],
		Nickname:  fields["nickname"],
		Callsign:  fields["callsign"],
		IP:        fields["ip"],
		Version:   fields["version"],
		Status:    fields["status"],
		InUseHost: fields["inuse_host"],
		Source:    model.SourceLocal,
		LastSeen:  seen,
	}
	if r.Serial == "" {
		return nil, ErrNoSerial
	}

	r.Port = 4992
	if p, ok := fields["port"]; ok {
		port, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid port %q: %w", p, err)
		}
		r.Port = port
	}
	if stations := fields["gui_client_stations"]; stations != "" {
		r.GuiClients = strings.Split(stations, ",")
	}
	return r, nil
}

// ParsePairs splits "k=v k2=v2" into a map. Tokens without '=' are skipped.
func ParsePairs(payload string) map[string]string {
	fields := make(map[string]string)
	for _, tok := range strings.Fields(payload) {
		key, value, ok := strings.Cut(tok, "=")
		if !ok || key == "" {
			continue
		}
		fields[key] = strings.ReplaceAll(value, "\x7f", " ")
	}
	return fields
}
