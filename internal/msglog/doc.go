package msglog

// Package msglog captures the line-oriented protocol traffic of a radio
// session and maintains the filtered view shown to the user.
//
// A Log is owned by a single goroutine (Run). Transport callbacks, UI
// handlers and queries all enqueue work onto one channel, so history and the
// visible set are only ever touched by that goroutine. Every change to the
// visible set is a full recompute over history.
