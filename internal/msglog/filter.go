package msglog

import (
	"strings"

	"github.com/flexapi/explorer/internal/model"
)

// Line classification tags
const (
	CommandTag    = "C"
	StatusTag     = "S"
	IdleStatusTag = "S0|"
	ReplyTag      = "R"

	// PingMarker identifies keep-alive traffic in either direction
	PingMarker = "ping"
)

// Suppression reasons
const (
	ReasonEmptyReply = "empty reply"
	ReasonIdleStatus = "idle status"
	ReasonPing       = "ping"
)

// IsCommand reports whether text is a command line
func IsCommand(text string) bool {
	return strings.HasPrefix(text, CommandTag)
}

// IsIdleStatus reports whether text is status published under the reserved handle
func IsIdleStatus(text string) bool {
	return strings.HasPrefix(text, IdleStatusTag)
}

// IsStatus reports whether text is status for a client handle. Idle status
// is excluded.
func IsStatus(text string) bool {
	return strings.HasPrefix(text, StatusTag) && !IsIdleStatus(text)
}

// IsReply reports whether text is a reply line
func IsReply(text string) bool {
	return strings.HasPrefix(text, ReplyTag)
}

// IsEmptyReply reports whether text is a reply carrying a zero error code and
// no payload, e.g. "R21|0|". Lines that do not split into at least sequence
// and error code are not replies for this purpose.
func IsEmptyReply(text string) bool {
	if !IsReply(text) {
		return false
	}
	parts := strings.SplitN(text, "|", 3)
	if len(parts) < 2 {
		return false
	}
	code := strings.TrimSpace(parts[1])
	if code == "" || strings.Trim(code, "0") != "" {
		return false
	}
	return len(parts) == 2 || strings.TrimSpace(parts[2]) == ""
}

// Suppress applies the retention rules to an incoming line. The first rule
// that matches wins and its reason is returned.
func Suppress(text string, isInput bool, s model.FilterSettings) (bool, string) {
	if isInput && !s.ShowReplies && IsEmptyReply(text) {
		return true, ReasonEmptyReply
	}
	if isInput && s.IgnoreIdleStatus && IsIdleStatus(text) {
		return true, ReasonIdleStatus
	}
	if !s.ShowPings && strings.Contains(text, PingMarker) {
		return true, ReasonPing
	}
	return false, ""
}

// Match reports whether a message belongs to the visible set. Text based
// kinds with an empty filter text match everything.
func Match(m model.Message, s model.FilterSettings) bool {
	switch s.Kind {
	case model.FilterAll:
		return true
	case model.FilterPrefix:
		return s.Text == "" || strings.HasPrefix(m.Text, s.Text)
	case model.FilterIncludes:
		return s.Text == "" || strings.Contains(m.Text, s.Text)
	case model.FilterExcludes:
		return s.Text == "" || !strings.Contains(m.Text, s.Text)
	case model.FilterCommand:
		return IsCommand(m.Text)
	case model.FilterStatus:
		return IsStatus(m.Text)
	case model.FilterReply:
		return IsReply(m.Text)
	case model.FilterIdleStatus:
		return IsIdleStatus(m.Text)
	default:
		return true
	}
}

// Apply computes the visible set from scratch. The result never aliases history.
func Apply(history []model.Message, s model.FilterSettings) []model.Message {
	visible := make([]model.Message, 0, len(history))
	for _, m := range history {
		if Match(m, s) {
			visible = append(visible, m)
		}
	}
	return visible
}
