package model

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// IntervalFormat renders a message's elapsed time the way exports show it
const IntervalFormat = "%.6f"

// Message is one line of protocol text captured during a session.
// Messages are never mutated after creation.
type Message struct {
	ID        string
	Text      string
	IsInput   bool      // received from the radio
	Timestamp time.Time // wall clock at capture
	Interval  float64   // seconds since session start
}

// NewMessage wraps a line captured at now for a session started at start
func NewMessage(text string, isInput bool, start, now time.Time) Message {
	return Message{
		ID:        uuid.NewString(),
		Text:      text,
		IsInput:   isInput,
		Timestamp: now,
		Interval:  now.Sub(start).Seconds(),
	}
}

// Direction returns a short marker for the message direction
func (m Message) Direction() string {
	if m.IsInput {
		return "<-"
	}
	return "->"
}

// IntervalString returns the elapsed time with fixed precision
func (m Message) IntervalString() string {
	return fmt.Sprintf(IntervalFormat, m.Interval)
}

// ExportLine returns the line written for this message in text exports
func (m Message) ExportLine() string {
	return m.IntervalString() + " " + m.Text
}
