package model

import (
	"sort"
	"strconv"
	"time"
)

// Radio sources
const (
	SourceLocal     = "local"
	SourceSmartlink = "smartlink"
)

// Radio is the latest discovery announcement seen for one radio
type Radio struct {
	Serial     string    `json:"serial"`
	Model      string    `json:"model"`
	Nickname   string    `json:"nickname"`
	Callsign   string    `json:"callsign"`
	IP         string    `json:"ip"`
	Port       int       `json:"port"`
	Version    string    `json:"version"`
	Status     string    `json:"status"`
	GuiClients []string  `json:"gui_clients,omitempty"` // station names
	InUseHost  string    `json:"in_use_host,omitempty"`
	Source     string    `json:"source"`
	LastSeen   time.Time `json:"last_seen"`
}

// Address returns host:port for the radio's API
func (r *Radio) Address() string {
	return r.IP + ":" + strconv.Itoa(r.Port)
}

// Selection returns the persisted form of choosing this radio
func (r *Radio) Selection(station string) Selection {
	return Selection{
		Serial:   r.Serial,
		Nickname: r.Nickname,
		Host:     r.IP,
		Port:     r.Port,
		Source:   r.Source,
		Station:  station,
	}
}

// Selection identifies the radio (and optionally the GUI station) to connect to.
// It is stored JSON encoded in settings.
type Selection struct {
	Serial   string `json:"serial"`
	Nickname string `json:"nickname"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Source   string `json:"source"`
	Station  string `json:"station,omitempty"`
}

// IsZero reports whether nothing has been selected
func (s Selection) IsZero() bool {
	return s.Host == "" && s.Serial == ""
}

// RadioTable keeps the last announcement per serial number
type RadioTable struct {
	radios map[string]*Radio
}

// NewRadioTable creates an empty table
func NewRadioTable() *RadioTable {
	return &RadioTable{radios: make(map[string]*Radio)}
}

// Upsert stores the announcement, replacing any earlier one for the same
// serial. It reports whether the radio was new.
func (t *RadioTable) Upsert(r *Radio) bool {
	_, existed := t.radios[r.Serial]
	t.radios[r.Serial] = r
	return !existed
}

// Remove drops radios not seen since cutoff and returns how many were removed
func (t *RadioTable) Remove(cutoff time.Time) int {
	removed := 0
	for serial, r := range t.radios {
		if r.LastSeen.Before(cutoff) {
			delete(t.radios, serial)
			removed++
		}
	}
	return removed
}

// Get returns a radio by serial
func (t *RadioTable) Get(serial string) (*Radio, bool) {
	r, ok := t.radios[serial]
	return r, ok
}

// Len returns the number of radios
func (t *RadioTable) Len() int {
	return len(t.radios)
}

// Sorted returns copies of all radios ordered by nickname, then serial
func (t *RadioTable) Sorted() []Radio {
	out := make([]Radio, 0, len(t.radios))
	for _, r := range t.radios {
		out = append(out, *r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nickname != out[j].Nickname {
			return out[i].Nickname < out[j].Nickname
		}
		return out[i].Serial < out[j].Serial
	})
	return out
}

// Tokens holds the smartlink login result
type Tokens struct {
	IDToken      string    `json:"id_token"`
	RefreshToken string    `json:"refresh_token"`
	Expires      time.Time `json:"expires"`
}

// Packet is one raw discovery datagram
type Packet struct {
	Received time.Time `json:"received"`
	From     string    `json:"from"`
	Data     []byte    `json:"data"`
}
