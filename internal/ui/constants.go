package ui

import "time"

// UI-wide constants to avoid magic numbers/strings scattered across the codebase.

// Icons (emojis/symbols)
const (
	IconSettings = "⚙"
	IconExport   = "💾"
	IconCloud    = "☁"
)

// Text fragments
const (
	MiddleDotSeparator = " · "
	MessageCountFormat = "%d messages"
	NoRadioPlaceholder = "Select a radio"
)

// Window sizing
const (
	WindowWidth  float32 = 900
	WindowHeight float32 = 640

	SettingsDialogWidth  float32 = 520
	SettingsDialogHeight float32 = 480

	FilterSelectWidth float32 = 130
)

// Discovery housekeeping
const (
	RadioPruneInterval = 5 * time.Second
	RadioTimeout       = 15 * time.Second
)

// Export file name prefixes
const (
	MessagesExportPrefix  = "messages"
	BroadcastExportPrefix = "broadcasts"
	BroadcastExportExt    = "txt"
)

// Timeouts for background calls started from the UI
const (
	ConnectTimeout   = 10 * time.Second
	SmartlinkTimeout = 20 * time.Second
	QueryTimeout     = 2 * time.Second
)
