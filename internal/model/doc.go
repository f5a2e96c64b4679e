package model

// Package model defines the domain data structures shared across the app:
// protocol log messages, filter settings, discovered radios and the
// persisted radio selection. Structures are plain values meant to be copied
// into UI bindings; none of them carry behavior that mutates shared state.
