package event

import (
	"context"
	"log/slog"
	"sort"
	"time"
)

// SlogObserver renders events through a slog.Logger.
type SlogObserver struct {
	logger *slog.Logger
}

// NewSlogObserver returns an observer that logs to logger, or to
// slog.Default() when logger is nil.
func NewSlogObserver(logger *slog.Logger) *SlogObserver {
	if logger == nil {
		logger = slog.Default()
	}
	return &SlogObserver{logger: logger}
}

// Observe implements Observer.
func (o *SlogObserver) Observe(e Event) {
	level := slog.LevelDebug
	switch e.Type {
	case NodeStarted:
		level = slog.LevelInfo
	case ImageFailed, SizeFailed, NodeFailed:
		level = slog.LevelError
	}

	attrs := []any{"node", e.Node}
	if e.Provider != "" {
		attrs = append(attrs, "provider", e.Provider)
	}
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		attrs = append(attrs, k, e.Fields[k])
	}
	if e.Elapsed > 0 {
		attrs = append(attrs, "elapsed", e.Elapsed.Round(time.Millisecond).String())
	}
	if e.Err != nil {
		attrs = append(attrs, "error", e.Err.Error())
	}

	msg := e.Message
	if msg == "" {
		msg = string(e.Type)
	}
	o.logger.Log(context.Background(), level, msg, attrs...)
}
