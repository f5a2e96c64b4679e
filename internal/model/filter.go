package model

import "strings"

// FilterKind selects which rule decides the visible subset of the message log.
type FilterKind int

const (
	FilterAll FilterKind = iota
	FilterPrefix
	FilterIncludes
	FilterExcludes
	FilterCommand
	FilterStatus
	FilterReply
	FilterIdleStatus
)

var filterKindNames = map[FilterKind]string{
	FilterAll:        "all",
	FilterPrefix:     "prefix",
	FilterIncludes:   "includes",
	FilterExcludes:   "excludes",
	FilterCommand:    "command",
	FilterStatus:     "status",
	FilterReply:      "reply",
	FilterIdleStatus: "idleStatus",
}

// String returns the persisted name of the filter kind
func (fk FilterKind) String() string {
	if name, ok := filterKindNames[fk]; ok {
		return name
	}
	return "unknown"
}

// UsesText reports whether the kind compares against the filter text
func (fk FilterKind) UsesText() bool {
	return fk == FilterPrefix || fk == FilterIncludes || fk == FilterExcludes
}

// FilterKinds returns every kind in picker order
func FilterKinds() []FilterKind {
	return []FilterKind{
		FilterAll,
		FilterPrefix,
		FilterIncludes,
		FilterExcludes,
		FilterCommand,
		FilterStatus,
		FilterReply,
		FilterIdleStatus,
	}
}

// ParseFilterKind maps a persisted name back to its kind. Matching is case
// insensitive so hand-edited settings files still load.
func ParseFilterKind(name string) (FilterKind, bool) {
	for kind, n := range filterKindNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return kind, true
		}
	}
	return FilterAll, false
}

// FilterSettings is the user-controlled rule set read on every re-filter.
type FilterSettings struct {
	Kind             FilterKind
	Text             string
	ShowReplies      bool
	ShowPings        bool
	IgnoreIdleStatus bool
}
