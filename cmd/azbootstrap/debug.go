package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

const debugLogPath = "tmp/azbootstrap-debug.log"

var debugLogger *slog.Logger
var debugCleanup func()

func initDebugLogger() func() {
	if !debugLogs {
		return nil
	}
	logger, cleanup, err := setupDebugLogger(debugLogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to enable debug log: %v\n", err)
		return nil
	}
	debugLogger = logger
	debugCleanup = cleanup
	fmt.Println("  Debug log: " + debugLogPath)
	return cleanup
}

func getLogger() *slog.Logger {
	if debugLogs && debugLogger != nil {
		return debugLogger
	}
	return newPrettyLogger(os.Stdout)
}

// setupDebugLogger writes pretty output to stdout and plain text records,
// debug level included, to path.
func setupDebugLogger(path string) (*slog.Logger, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
	if err != nil {
		return nil, nil, err
	}
	h := &teeHandler{
		console: &prettyHandler{out: os.Stdout, level: slog.LevelInfo},
		file:    slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}),
	}
	return slog.New(h), func() { _ = f.Close() }, nil
}
