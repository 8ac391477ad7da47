package stream

import (
	"bufio"
)

// Event is one frame pushed to a client.
type Event int

const (
	EventUpdate Event = iota
	EventKeepAlive
	EventShutdown
	// EventPing is an empty comment written on every idle tick so a dead
	// transport fails the next write instead of waiting for a keepalive.
	EventPing
)

func (e Event) String() string {
	switch e {
	case EventUpdate:
		return "update"
	case EventKeepAlive:
		return "keepalive"
	case EventShutdown:
		return "shutdown"
	case EventPing:
		return "ping"
	default:
		return "unknown"
	}
}

// frame renders e in text/event-stream form.
func (e Event) frame() string {
	switch e {
	case EventUpdate:
		return "data: update\n\n"
	case EventShutdown:
		return "event: shutdown\ndata: shutting down\n\n"
	case EventPing:
		return ":\n\n"
	default:
		return ": keepalive\n\n"
	}
}

// Sink delivers events to a connected client. A Send error means the
// transport is gone.
type Sink interface {
	Send(Event) error
}

// SSEWriter writes server-sent events to a buffered connection writer,
// flushing after every frame.
type SSEWriter struct {
	w *bufio.Writer
}

// NewSSEWriter wraps w.
func NewSSEWriter(w *bufio.Writer) *SSEWriter {
	return &SSEWriter{w: w}
}

func (s *SSEWriter) Send(e Event) error {
	if _, err := s.w.WriteString(e.frame()); err != nil {
		return err
	}
	return s.w.Flush()
}
