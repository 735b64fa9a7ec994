package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"unicode"
)

const (
	clrReset  = "\033[0m"
	clrBold   = "\033[1m"
	clrRed    = "\033[31m"
	clrYellow = "\033[33m"
	clrGreen  = "\033[32m"
	clrCyan   = "\033[36m"
	clrGray   = "\033[90m"
	clrWhite  = "\033[97m"
)

// prettyHandler is a slog.Handler for terminal output: no timestamps,
// colored level markers and highlighted attribute values.
type prettyHandler struct {
	mu    sync.Mutex
	out   io.Writer
	level slog.Level
	attrs []slog.Attr
}

func newPrettyLogger(w io.Writer) *slog.Logger {
	return slog.New(&prettyHandler{out: w, level: slog.LevelInfo})
}

func (h *prettyHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *prettyHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &prettyHandler{out: h.out, level: h.level, attrs: merged}
}

func (h *prettyHandler) WithGroup(_ string) slog.Handler {
	return h
}

func (h *prettyHandler) Handle(_ context.Context, r slog.Record) error {
	var prefix, msgColor string
	switch {
	case r.Level >= slog.LevelError:
		prefix, msgColor = clrRed+"  ✗ "+clrReset, clrRed
	case r.Level >= slog.LevelWarn:
		prefix, msgColor = clrYellow+"  ⚠ "+clrReset, clrYellow
	case r.Level >= slog.LevelInfo:
		prefix, msgColor = clrGray+"  → "+clrReset, clrWhite
	default:
		prefix, msgColor = clrGray+"  · "+clrReset, clrGray
	}

	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString(msgColor + clrBold + r.Message + clrReset)

	writeAttr := func(a slog.Attr) bool {
		sb.WriteString("  " + clrGray + a.Key + "=" + clrReset)
		sb.WriteString(colorForValue(a) + a.Value.String() + clrReset)
		return true
	}
	for _, a := range h.attrs {
		writeAttr(a)
	}
	r.Attrs(writeAttr)
	sb.WriteString("\n")

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := fmt.Fprint(h.out, sb.String())
	return err
}

// colorForValue picks an ANSI color based on the attribute key and value.
func colorForValue(a slog.Attr) string {
	switch a.Key {
	case "error":
		return clrRed
	case "status":
		if a.Value.String() == "running" || a.Value.String() == "succeeded" {
			return clrGreen
		}
		return clrYellow
	case "elapsed", "catalog", "count":
		return clrYellow
	}
	if isNumericVal(a.Value.String()) {
		return clrYellow
	}
	return clrCyan
}

func isNumericVal(s string) bool {
	if s == "" {
		return false
	}
	for _, c := range s {
		if !unicode.IsDigit(c) && c != '.' && c != '-' {
			return false
		}
	}
	return true
}

// teeHandler sends every record to both handlers.
type teeHandler struct {
	console slog.Handler
	file    slog.Handler
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.file.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	if h.console.Enabled(ctx, r.Level) {
		errs = append(errs, h.console.Handle(ctx, r.Clone()))
	}
	if h.file.Enabled(ctx, r.Level) {
		errs = append(errs, h.file.Handle(ctx, r))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: h.console.WithAttrs(attrs), file: h.file.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: h.console.WithGroup(name), file: h.file.WithGroup(name)}
}
