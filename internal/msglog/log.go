package msglog

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/flexapi/explorer/internal/model"
)

const defaultQueueSize = 1024

// ErrStopped is returned by queries once Run has exited
var ErrStopped = errors.New("message log stopped")

// SettingsSource supplies the filter settings. It is read on every re-filter.
type SettingsSource interface {
	FilterSettings() model.FilterSettings
}

// SettingsFunc adapts a function to SettingsSource
type SettingsFunc func() model.FilterSettings

// FilterSettings implements SettingsSource
func (f SettingsFunc) FilterSettings() model.FilterSettings {
	return f()
}

// Publisher receives the visible set after every change. It runs on the
// Log goroutine and must not call back into the Log synchronously.
type Publisher func(visible []model.Message)

// Option configures a Log
type Option func(*Log)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// WithPublisher sets the change publisher
func WithPublisher(p Publisher) Option {
	return func(l *Log) { l.publish = p }
}

// Log is the message history plus its filtered view
type Log struct {
	settings SettingsSource
	publish  Publisher
	now      func() time.Time

	ops  chan func()
	done chan struct{}

	// owned by the Run goroutine
	history []model.Message
	visible []model.Message
	start   *time.Time
}

// New creates a Log. Nothing is processed until Run is called.
func New(settings SettingsSource, opts ...Option) *Log {
	l := &Log{
		settings: settings,
		now:      time.Now,
		ops:      make(chan func(), defaultQueueSize),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Run processes queued operations until ctx is cancelled
func (l *Log) Run(ctx context.Context) error {
	defer close(l.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case op := <-l.ops:
			op()
		}
	}
}

func (l *Log) enqueue(op func()) bool {
	select {
	case l.ops <- op:
		return true
	case <-l.done:
		return false
	}
}

// query runs fn on the owning goroutine and waits for it
func (l *Log) query(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.enqueue(func() {
		fn()
		close(finished)
	}) {
		return ErrStopped
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrStopped
	}
}

// Receive is the line delegate registered with the radio engine. It may be
// called from any goroutine.
func (l *Log) Receive(text string, isInput bool) {
	l.enqueue(func() { l.ingest(text, isInput) })
}

// Start begins a capture session, optionally clearing history first
func (l *Log) Start(clear bool) {
	l.enqueue(func() {
		if clear {
			l.history = nil
		}
		now := l.now()
		l.start = &now
		log.Debug().Bool("clear", clear).Msg("Message capture started")
		l.refilter()
	})
}

// Stop ends the capture session, optionally clearing history and the visible set
func (l *Log) Stop(clear bool) {
	l.enqueue(func() {
		l.start = nil
		if clear {
			l.history = nil
		}
		log.Debug().Bool("clear", clear).Int("messages", len(l.history)).Msg("Message capture stopped")
		l.refilter()
	})
}

// Clear removes every message from history and the visible set
func (l *Log) Clear() {
	l.enqueue(func() {
		l.history = nil
		l.refilter()
	})
}

// Refilter recomputes the visible set with the current settings
func (l *Log) Refilter() {
	l.enqueue(l.refilter)
}

// Visible returns a copy of the visible set
func (l *Log) Visible(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	err := l.query(ctx, func() { out = slices.Clone(l.visible) })
	return out, err
}

// History returns a copy of every retained message
func (l *Log) History(ctx context.Context) ([]model.Message, error) {
	var out []model.Message
	err := l.query(ctx, func() { out = slices.Clone(l.history) })
	return out, err
}

// Active reports whether a capture session is running
func (l *Log) Active(ctx context.Context) (bool, error) {
	var active bool
	err := l.query(ctx, func() { active = l.start != nil })
	return active, err
}

// Export renders the visible set as text, one message per line
func (l *Log) Export(ctx context.Context) (string, error) {
	var text string
	err := l.query(ctx, func() { text = FormatText(l.visible) })
	return text, err
}

// FormatText joins messages as "<interval> <text>" lines
func FormatText(msgs []model.Message) string {
	lines := make([]string, len(msgs))
	for i, m := range msgs {
		lines[i] = m.ExportLine()
	}
	return strings.Join(lines, "\n")
}

func (l *Log) ingest(text string, isInput bool) {
	if l.start == nil {
		return
	}
	settings := l.settings.FilterSettings()
	if drop, reason := Suppress(text, isInput, settings); drop {
		log.Debug().Str("reason", reason).Str("text", text).Msg("Message suppressed")
		return
	}
	l.history = append(l.history, model.NewMessage(text, isInput, *l.start, l.now()))
	l.apply(settings)
}

func (l *Log) refilter() {
	l.apply(l.settings.FilterSettings())
}

func (l *Log) apply(settings model.FilterSettings) {
	l.visible = Apply(l.history, settings)
	if l.publish != nil {
		l.publish(slices.Clone(l.visible))
	}
}
