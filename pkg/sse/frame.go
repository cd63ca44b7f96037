package sse

import "time"

// DefaultEventType is the type given to events that carry no "event" field.
const DefaultEventType = "message"

// FrameKind distinguishes named events from comments.
type FrameKind int

const (
	// FrameEvent is a dispatched event
	FrameEvent FrameKind = iota

	// FrameComment is a ":"-prefixed line, typically a keepalive
	FrameComment
)

// String returns a readable name for the frame kind
func (k FrameKind) String() string {
	switch k {
	case FrameEvent:
		return "event"
	case FrameComment:
		return "comment"
	default:
		return "unknown"
	}
}

// Event is a single server-pushed event.
type Event struct {
	// Type is the "event" field, DefaultEventType when absent
	Type string

	// ID is the "id" field, empty when absent
	ID string

	// Data is the concatenation of all "data" lines joined with "\n"
	Data string

	// Retry is the reconnection time requested by the server, zero when absent
	Retry time.Duration
}

// Frame is one parsed unit of the stream: either an Event or a Comment.
type Frame struct {
	Kind    FrameKind
	Event   Event
	Comment string
}

// IsComment reports whether the frame is a comment
func (f Frame) IsComment() bool {
	return f.Kind == FrameComment
}
