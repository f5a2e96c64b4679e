package config

import (
	"testing"

	"fyne.io/fyne/v2/test"

	"github.com/flexapi/explorer/internal/model"
)

func TestNewSettings(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.store == nil {
		t.Error("Settings store should be the app preferences")
	}
}

func TestFilterSettingsDefaults(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	fs := settings.FilterSettings()
	expected := model.FilterSettings{
		Kind:             DefaultFilterKind,
		Text:             "",
		ShowReplies:      DefaultShowReplies,
		ShowPings:        DefaultShowPings,
		IgnoreIdleStatus: DefaultIgnoreIdleStatus,
	}
	if fs != expected {
		t.Errorf("Expected default filter settings %+v, got %+v", expected, fs)
	}
}

func TestFilterSettingsRoundTrip(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	settings.SetFilterKind(model.FilterIncludes)
	settings.SetFilterText("slice")
	settings.SetShowReplies(true)
	settings.SetShowPings(true)
	settings.SetIgnoreIdleStatus(true)

	fs := settings.FilterSettings()
	expected := model.FilterSettings{
		Kind:             model.FilterIncludes,
		Text:             "slice",
		ShowReplies:      true,
		ShowPings:        true,
		IgnoreIdleStatus: true,
	}
	if fs != expected {
		t.Errorf("Expected filter settings %+v, got %+v", expected, fs)
	}

	// Last write wins
	settings.SetFilterKind(model.FilterReply)
	if settings.GetFilterKind() != model.FilterReply {
		t.Errorf("Expected filter kind reply, got %s", settings.GetFilterKind())
	}
}

func TestFilterKindUnknownValue(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	app.Preferences().SetString(KeyFilterKind, "bogus")
	if settings.GetFilterKind() != DefaultFilterKind {
		t.Errorf("Expected unknown filter kind to fall back to %s, got %s", DefaultFilterKind, settings.GetFilterKind())
	}
}

func TestFontSize(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	if settings.GetFontSize() != DefaultFontSize {
		t.Errorf("Expected default font size %d, got %d", DefaultFontSize, settings.GetFontSize())
	}

	settings.SetFontSize(16)
	if settings.GetFontSize() != 16 {
		t.Errorf("Expected font size 16, got %d", settings.GetFontSize())
	}

	// Test boundary values
	settings.SetFontSize(2)
	if settings.GetFontSize() != MinFontSize {
		t.Errorf("Font size should be clamped to minimum %d", MinFontSize)
	}

	settings.SetFontSize(99)
	if settings.GetFontSize() != MaxFontSize {
		t.Errorf("Font size should be clamped to maximum %d", MaxFontSize)
	}
}

func TestSessionToggles(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.GetClearOnStart() != DefaultClearOnStart {
		t.Errorf("Expected default clear on start %v", DefaultClearOnStart)
	}
	if settings.GetClearOnStop() != DefaultClearOnStop {
		t.Errorf("Expected default clear on stop %v", DefaultClearOnStop)
	}
	if settings.GetClearOnSend() != DefaultClearOnSend {
		t.Errorf("Expected default clear on send %v", DefaultClearOnSend)
	}

	settings.SetClearOnStart(false)
	settings.SetClearOnStop(true)
	settings.SetClearOnSend(true)

	if settings.GetClearOnStart() || !settings.GetClearOnStop() || !settings.GetClearOnSend() {
		t.Error("Session toggles did not round trip")
	}
}

func TestStationAndProgram(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.GetStation() != DefaultStation {
		t.Errorf("Expected default station %s, got %s", DefaultStation, settings.GetStation())
	}

	settings.SetStation("Laptop")
	if settings.GetStation() != "Laptop" {
		t.Errorf("Expected station 'Laptop', got %s", settings.GetStation())
	}

	// Empty value defaults back
	settings.SetProgram("")
	if settings.GetProgram() != DefaultProgram {
		t.Errorf("Empty program should default to %s, got %s", DefaultProgram, settings.GetProgram())
	}
}

func TestDiscoveryPort(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.GetDiscoveryPort() != DefaultDiscoveryPort {
		t.Errorf("Expected default discovery port %d, got %d", DefaultDiscoveryPort, settings.GetDiscoveryPort())
	}

	settings.SetDiscoveryPort(5000)
	if settings.GetDiscoveryPort() != 5000 {
		t.Errorf("Expected discovery port 5000, got %d", settings.GetDiscoveryPort())
	}

	settings.SetDiscoveryPort(70000)
	if settings.GetDiscoveryPort() != DefaultDiscoveryPort {
		t.Errorf("Invalid port should reset to %d, got %d", DefaultDiscoveryPort, settings.GetDiscoveryPort())
	}
}

func TestDefaultSelection(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	// Test default value
	if !settings.GetDefaultSelection().IsZero() {
		t.Error("Expected zero default selection")
	}

	sel := model.Selection{Serial: "1234", Nickname: "Shack", Host: "10.0.0.5", Port: 4992, Source: model.SourceLocal, Station: "Laptop"}
	settings.SetDefaultSelection(sel)

	if got := settings.GetDefaultSelection(); got != sel {
		t.Errorf("Expected selection %+v, got %+v", sel, got)
	}

	settings.SetDefaultSelection(model.Selection{})
	if !settings.GetDefaultSelection().IsZero() {
		t.Error("Expected zero selection after clearing")
	}
}

func TestDefaultSelectionDecodeFailure(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	app.Preferences().SetString(KeyDefaultSelection, "{not json")
	if !settings.GetDefaultSelection().IsZero() {
		t.Error("Undecodable selection should fall back to zero value")
	}
}

func TestSmartlinkRefreshToken(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	settings.SetSmartlinkUser("op@example.com")
	settings.SetSmartlinkRefreshToken("refresh-1")

	if settings.GetSmartlinkUser() != "op@example.com" {
		t.Errorf("Expected user 'op@example.com', got %s", settings.GetSmartlinkUser())
	}
	if settings.GetSmartlinkRefreshToken() != "refresh-1" {
		t.Errorf("Expected refresh token 'refresh-1', got %s", settings.GetSmartlinkRefreshToken())
	}

	settings.SetSmartlinkRefreshToken("")
	if settings.GetSmartlinkRefreshToken() != "" {
		t.Error("Expected refresh token to be removed")
	}
}

func TestExportDirectory(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	if settings.GetExportDirectory() == "" {
		t.Error("Export directory should not be empty")
	}

	settings.SetExportDirectory("/custom/exports")
	if settings.GetExportDirectory() != "/custom/exports" {
		t.Errorf("Expected export directory /custom/exports, got %s", settings.GetExportDirectory())
	}
}

func TestChangeListeners(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	var keys []string
	settings.AddChangeListener(func(key string) {
		keys = append(keys, key)
	})

	settings.SetShowPings(true)
	settings.SetClearOnStop(true)
	settings.NotifyExternalChange()

	expected := []string{KeyShowPings, KeyClearOnStop, ""}
	if len(keys) != len(expected) {
		t.Fatalf("Expected %d notifications, got %d", len(expected), len(keys))
	}
	for i, key := range expected {
		if keys[i] != key {
			t.Errorf("Notification %d: expected %q, got %q", i, key, keys[i])
		}
	}
}

func TestIsFilterKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"", true},
		{KeyFilterKind, true},
		{KeyFilterText, true},
		{KeyShowReplies, true},
		{KeyShowPings, true},
		{KeyIgnoreIdleStatus, true},
		{KeyClearOnStart, false},
		{KeyFontSize, false},
	}

	for _, test := range tests {
		if result := IsFilterKey(test.key); result != test.expected {
			t.Errorf("IsFilterKey(%q) = %v, expected %v", test.key, result, test.expected)
		}
	}
}

func TestGetFilterKindOptions(t *testing.T) {
	app := test.NewApp()
	settings := NewSettings(app)

	options := settings.GetFilterKindOptions()
	if len(options) != 8 {
		t.Fatalf("Expected 8 filter options, got %d", len(options))
	}
	if options[0] != model.FilterAll {
		t.Errorf("Expected first option to be all, got %s", options[0])
	}
}
