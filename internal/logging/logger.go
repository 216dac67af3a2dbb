// Package logging sets up cambtest's slog loggers: a leveled text logger for
// stderr, and at debug level an append-only JSONL event log in the state
// directory (.cambtest/events.jsonl) that tools can replay.
package logging

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// LevelTrace is a custom slog level below Debug. At this level the captured
// output of every external run is logged as well.
const LevelTrace = slog.LevelDebug - 4

// EventsFileName is the JSONL file the EventLogger appends to.
const EventsFileName = "events.jsonl"

// ParseLevel maps a string level name to a slog.Level.
// Supported values: "info", "debug", "trace" (case-insensitive).
// Unknown values default to info.
func ParseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "trace":
		return LevelTrace
	default:
		return slog.LevelInfo
	}
}

// NewLogger creates a leveled slog.Logger writing to w.
func NewLogger(level string, w io.Writer) *slog.Logger {
	lvl := ParseLevel(level)
	opts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.LevelKey {
				if lvl, ok := a.Value.Any().(slog.Level); ok && lvl == LevelTrace {
					a.Value = slog.StringValue("TRACE")
				}
			}
			return a
		},
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// EventLogger appends run events to a JSONL file. Each line is a slog JSON
// record: "time", "event" (the event name) and the event's attributes.
// A nil EventLogger drops every event.
type EventLogger struct {
	mu     sync.Mutex
	file   *os.File
	logger *slog.Logger
}

// NewEventLogger opens dir/events.jsonl for appending, creating dir as
// needed. Events are only kept at "debug" level or below; otherwise, or when
// the file cannot be opened, it returns nil.
func NewEventLogger(dir string, level string) *EventLogger {
	if ParseLevel(level) >= slog.LevelInfo {
		return nil
	}
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil
	}
	f, err := os.OpenFile(filepath.Join(dir, EventsFileName), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return nil
	}

	handler := slog.NewJSONHandler(f, &slog.HandlerOptions{
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			switch a.Key {
			case slog.LevelKey:
				return slog.Attr{}
			case slog.MessageKey:
				a.Key = "event"
			}
			return a
		},
	})
	return &EventLogger{file: f, logger: slog.New(handler)}
}

// Emit appends one event. args are slog key/value pairs or slog.Attr values.
func (el *EventLogger) Emit(event string, args ...any) {
	if el == nil {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	el.logger.Info(event, args...)
}

// Close closes the events file. Later events are dropped.
func (el *EventLogger) Close() {
	if el == nil {
		return
	}
	el.mu.Lock()
	defer el.mu.Unlock()
	if el.file == nil {
		return
	}
	el.file.Close()
	el.file = nil
}
