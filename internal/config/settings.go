package config

import (
	"encoding/json"
	"sync"

	"fyne.io/fyne/v2"
	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/model"
	"github.com/flexapi/explorer/internal/platform"
)

// Settings keys. Values are stored flat in the preferences store.
const (
	KeyFilterKind            = "messages_filter"
	KeyFilterText            = "messages_filter_text"
	KeyShowReplies           = "show_replies"
	KeyShowPings             = "show_pings"
	KeyIgnoreIdleStatus      = "ignore_idle_status"
	KeyClearOnStart          = "clear_on_start"
	KeyClearOnStop           = "clear_on_stop"
	KeyClearOnSend           = "clear_on_send"
	KeyFontSize              = "font_size"
	KeyIsGui                 = "is_gui"
	KeyStation               = "station"
	KeyProgram               = "program"
	KeyKeepAlive             = "keepalive"
	KeyLocalEnabled          = "local_enabled"
	KeySmartlinkEnabled      = "smartlink_enabled"
	KeySmartlinkUser         = "smartlink_user"
	KeySmartlinkRefreshToken = "smartlink_refresh_token"
	KeyDiscoveryPort         = "discovery_port"
	KeyUseDefault            = "use_default"
	KeyDefaultSelection      = "default_selection"
	KeyExportDir             = "export_directory"
)

// Default values
const (
	DefaultFilterKind       = model.FilterAll
	DefaultShowReplies      = false
	DefaultShowPings        = false
	DefaultIgnoreIdleStatus = false
	DefaultClearOnStart     = true
	DefaultClearOnStop      = false
	DefaultClearOnSend      = false
	DefaultFontSize         = 12
	DefaultIsGui            = true
	DefaultStation          = "FlexExplorer"
	DefaultProgram          = "FlexExplorer"
	DefaultKeepAlive        = true
	DefaultLocalEnabled     = true
	DefaultSmartlinkEnabled = false
	DefaultDiscoveryPort    = 4992
	DefaultUseDefault       = false

	MinFontSize = 8
	MaxFontSize = 24
)

// Store is the subset of fyne.Preferences the settings need. FileStore
// implements it for the headless CLI.
type Store interface {
	BoolWithFallback(key string, fallback bool) bool
	SetBool(key string, value bool)
	IntWithFallback(key string, fallback int) int
	SetInt(key string, value int)
	StringWithFallback(key, fallback string) string
	SetString(key, value string)
	RemoveValue(key string)
}

var _ Store = fyne.Preferences(nil)

// ChangeListener is told which key was written. An empty key means the
// whole store may have changed.
type ChangeListener func(key string)

// Settings manages application configuration
type Settings struct {
	store Store

	mu        sync.RWMutex
	listeners []ChangeListener
}

// NewSettings creates a settings manager backed by the app preferences
func NewSettings(app fyne.App) *Settings {
	return NewSettingsWithStore(app.Preferences())
}

// NewSettingsWithStore creates a settings manager over any store
func NewSettingsWithStore(store Store) *Settings {
	return &Settings{store: store}
}

// AddChangeListener registers fn to run after every write
func (s *Settings) AddChangeListener(fn ChangeListener) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// NotifyExternalChange tells listeners the backing store was replaced or reloaded
func (s *Settings) NotifyExternalChange() {
	s.notify("")
}

func (s *Settings) notify(key string) {
	s.mu.RLock()
	listeners := append([]ChangeListener(nil), s.listeners...)
	s.mu.RUnlock()

	for _, fn := range listeners {
		fn(key)
	}
}

// IsFilterKey reports whether a change to key affects the message filter
func IsFilterKey(key string) bool {
	switch key {
	case "", KeyFilterKind, KeyFilterText, KeyShowReplies, KeyShowPings, KeyIgnoreIdleStatus:
		return true
	}
	return false
}

// FilterSettings assembles the current message filter rules
func (s *Settings) FilterSettings() model.FilterSettings {
	return model.FilterSettings{
		Kind:             s.GetFilterKind(),
		Text:             s.GetFilterText(),
		ShowReplies:      s.GetShowReplies(),
		ShowPings:        s.GetShowPings(),
		IgnoreIdleStatus: s.GetIgnoreIdleStatus(),
	}
}

// GetFilterKind returns the selected filter kind
func (s *Settings) GetFilterKind() model.FilterKind {
	name := s.store.StringWithFallback(KeyFilterKind, "")
	if name == "" {
		return DefaultFilterKind
	}
	kind, ok := model.ParseFilterKind(name)
	if !ok {
		return DefaultFilterKind
	}
	return kind
}

// SetFilterKind sets the filter kind
func (s *Settings) SetFilterKind(kind model.FilterKind) {
	s.store.SetString(KeyFilterKind, kind.String())
	s.notify(KeyFilterKind)
}

// GetFilterText returns the filter text
func (s *Settings) GetFilterText() string {
	return s.store.StringWithFallback(KeyFilterText, "")
}

// SetFilterText sets the filter text
func (s *Settings) SetFilterText(text string) {
	s.store.SetString(KeyFilterText, text)
	s.notify(KeyFilterText)
}

// GetShowReplies returns whether empty success replies are kept
func (s *Settings) GetShowReplies() bool {
	return s.store.BoolWithFallback(KeyShowReplies, DefaultShowReplies)
}

// SetShowReplies sets whether empty success replies are kept
func (s *Settings) SetShowReplies(show bool) {
	s.setBool(KeyShowReplies, show)
}

// GetShowPings returns whether keep-alive traffic is kept
func (s *Settings) GetShowPings() bool {
	return s.store.BoolWithFallback(KeyShowPings, DefaultShowPings)
}

// SetShowPings sets whether keep-alive traffic is kept
func (s *Settings) SetShowPings(show bool) {
	s.setBool(KeyShowPings, show)
}

// GetIgnoreIdleStatus returns whether idle status lines are dropped
func (s *Settings) GetIgnoreIdleStatus() bool {
	return s.store.BoolWithFallback(KeyIgnoreIdleStatus, DefaultIgnoreIdleStatus)
}

// SetIgnoreIdleStatus sets whether idle status lines are dropped
func (s *Settings) SetIgnoreIdleStatus(ignore bool) {
	s.setBool(KeyIgnoreIdleStatus, ignore)
}

// GetClearOnStart returns whether starting a session clears the log
func (s *Settings) GetClearOnStart() bool {
	return s.store.BoolWithFallback(KeyClearOnStart, DefaultClearOnStart)
}

// SetClearOnStart sets whether starting a session clears the log
func (s *Settings) SetClearOnStart(clear bool) {
	s.setBool(KeyClearOnStart, clear)
}

// GetClearOnStop returns whether stopping a session clears the log
func (s *Settings) GetClearOnStop() bool {
	return s.store.BoolWithFallback(KeyClearOnStop, DefaultClearOnStop)
}

// SetClearOnStop sets whether stopping a session clears the log
func (s *Settings) SetClearOnStop(clear bool) {
	s.setBool(KeyClearOnStop, clear)
}

// GetClearOnSend returns whether the command field is cleared after sending
func (s *Settings) GetClearOnSend() bool {
	return s.store.BoolWithFallback(KeyClearOnSend, DefaultClearOnSend)
}

// SetClearOnSend sets whether the command field is cleared after sending
func (s *Settings) SetClearOnSend(clear bool) {
	s.setBool(KeyClearOnSend, clear)
}

// GetFontSize returns the message list font size
func (s *Settings) GetFontSize() int {
	size := s.store.IntWithFallback(KeyFontSize, 0)
	if size <= 0 {
		s.SetFontSize(DefaultFontSize)
		return DefaultFontSize
	}
	return size
}

// SetFontSize sets the message list font size
func (s *Settings) SetFontSize(size int) {
	if size < MinFontSize {
		size = MinFontSize
	}
	if size > MaxFontSize {
		size = MaxFontSize
	}
	s.store.SetInt(KeyFontSize, size)
	s.notify(KeyFontSize)
}

// GetIsGui returns whether connections register as a GUI client
func (s *Settings) GetIsGui() bool {
	return s.store.BoolWithFallback(KeyIsGui, DefaultIsGui)
}

// SetIsGui sets whether connections register as a GUI client
func (s *Settings) SetIsGui(isGui bool) {
	s.setBool(KeyIsGui, isGui)
}

// GetStation returns the station name announced to the radio
func (s *Settings) GetStation() string {
	return s.stringWithDefault(KeyStation, DefaultStation)
}

// SetStation sets the station name
func (s *Settings) SetStation(station string) {
	s.setStringOrDefault(KeyStation, station, DefaultStation)
}

// GetProgram returns the program name announced to the radio
func (s *Settings) GetProgram() string {
	return s.stringWithDefault(KeyProgram, DefaultProgram)
}

// SetProgram sets the program name
func (s *Settings) SetProgram(program string) {
	s.setStringOrDefault(KeyProgram, program, DefaultProgram)
}

// GetKeepAlive returns whether the connection sends keep-alive pings
func (s *Settings) GetKeepAlive() bool {
	return s.store.BoolWithFallback(KeyKeepAlive, DefaultKeepAlive)
}

// SetKeepAlive sets whether the connection sends keep-alive pings
func (s *Settings) SetKeepAlive(enabled bool) {
	s.setBool(KeyKeepAlive, enabled)
}

// GetLocalEnabled returns whether local discovery is enabled
func (s *Settings) GetLocalEnabled() bool {
	return s.store.BoolWithFallback(KeyLocalEnabled, DefaultLocalEnabled)
}

// SetLocalEnabled sets whether local discovery is enabled
func (s *Settings) SetLocalEnabled(enabled bool) {
	s.setBool(KeyLocalEnabled, enabled)
}

// GetSmartlinkEnabled returns whether smartlink login is enabled
func (s *Settings) GetSmartlinkEnabled() bool {
	return s.store.BoolWithFallback(KeySmartlinkEnabled, DefaultSmartlinkEnabled)
}

// SetSmartlinkEnabled sets whether smartlink login is enabled
func (s *Settings) SetSmartlinkEnabled(enabled bool) {
	s.setBool(KeySmartlinkEnabled, enabled)
}

// GetSmartlinkUser returns the smartlink account email
func (s *Settings) GetSmartlinkUser() string {
	return s.store.StringWithFallback(KeySmartlinkUser, "")
}

// SetSmartlinkUser sets the smartlink account email
func (s *Settings) SetSmartlinkUser(user string) {
	s.store.SetString(KeySmartlinkUser, user)
	s.notify(KeySmartlinkUser)
}

// GetSmartlinkRefreshToken returns the stored refresh token
func (s *Settings) GetSmartlinkRefreshToken() string {
	return s.store.StringWithFallback(KeySmartlinkRefreshToken, "")
}

// SetSmartlinkRefreshToken stores the refresh token; empty removes it
func (s *Settings) SetSmartlinkRefreshToken(token string) {
	if token == "" {
		s.store.RemoveValue(KeySmartlinkRefreshToken)
	} else {
		s.store.SetString(KeySmartlinkRefreshToken, token)
	}
	s.notify(KeySmartlinkRefreshToken)
}

// GetDiscoveryPort returns the UDP port discovery listens on
func (s *Settings) GetDiscoveryPort() int {
	port := s.store.IntWithFallback(KeyDiscoveryPort, 0)
	if port <= 0 || port > 65535 {
		s.SetDiscoveryPort(DefaultDiscoveryPort)
		return DefaultDiscoveryPort
	}
	return port
}

// SetDiscoveryPort sets the discovery port
func (s *Settings) SetDiscoveryPort(port int) {
	if port <= 0 || port > 65535 {
		port = DefaultDiscoveryPort
	}
	s.store.SetInt(KeyDiscoveryPort, port)
	s.notify(KeyDiscoveryPort)
}

// GetUseDefault returns whether the saved radio is reconnected on launch and
// used when nothing is picked
func (s *Settings) GetUseDefault() bool {
	return s.store.BoolWithFallback(KeyUseDefault, DefaultUseDefault)
}

// SetUseDefault sets whether the saved radio is reconnected on launch
func (s *Settings) SetUseDefault(use bool) {
	s.setBool(KeyUseDefault, use)
}

// GetDefaultSelection returns the saved radio selection. A missing or
// undecodable value yields the zero selection.
func (s *Settings) GetDefaultSelection() model.Selection {
	var sel model.Selection
	raw := s.store.StringWithFallback(KeyDefaultSelection, "")
	if raw == "" {
		return sel
	}
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		log.Debug().Err(err).Msg("Ignoring undecodable default selection")
		return model.Selection{}
	}
	return sel
}

// SetDefaultSelection saves the radio selection; the zero selection removes it
func (s *Settings) SetDefaultSelection(sel model.Selection) {
	if sel.IsZero() {
		s.store.RemoveValue(KeyDefaultSelection)
		s.notify(KeyDefaultSelection)
		return
	}
	data, err := json.Marshal(sel)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to encode default selection")
		return
	}
	s.store.SetString(KeyDefaultSelection, string(data))
	s.notify(KeyDefaultSelection)
}

// GetExportDirectory returns the directory export dialogs start in
func (s *Settings) GetExportDirectory() string {
	dir := s.store.StringWithFallback(KeyExportDir, "")
	if dir == "" {
		defaultDir, err := platform.GetDefaultExportDir()
		if err != nil {
			defaultDir = "/tmp"
		}
		s.SetExportDirectory(defaultDir)
		return defaultDir
	}
	return dir
}

// SetExportDirectory sets the export directory
func (s *Settings) SetExportDirectory(dir string) {
	s.store.SetString(KeyExportDir, dir)
	s.notify(KeyExportDir)
}

// GetFilterKindOptions returns the filter kinds in picker order
func (s *Settings) GetFilterKindOptions() []model.FilterKind {
	return model.FilterKinds()
}

func (s *Settings) setBool(key string, value bool) {
	s.store.SetBool(key, value)
	s.notify(key)
}

func (s *Settings) stringWithDefault(key, fallback string) string {
	value := s.store.StringWithFallback(key, "")
	if value == "" {
		s.store.SetString(key, fallback)
		return fallback
	}
	return value
}

func (s *Settings) setStringOrDefault(key, value, fallback string) {
	if value == "" {
		value = fallback
	}
	s.store.SetString(key, value)
	s.notify(key)
}
