// Package testutil provides test utilities for structured logging.
package testutil

import (
	"bytes"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

// NewTestLogger returns a logger that writes to t.Log().
// Logs only appear on test failure or when running with -v.
func NewTestLogger(t testing.TB) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(testWriter{t}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
}

type testWriter struct {
	t testing.TB
}

func (w testWriter) Write(p []byte) (n int, err error) {
	w.t.Helper()
	w.t.Log(string(p))
	return len(p), nil
}

// CaptureLogger records log output so tests can assert on it.
type CaptureLogger struct {
	*slog.Logger
	mu  sync.Mutex
	buf bytes.Buffer
}

// NewCaptureLogger returns a logger whose text output is kept in memory.
func NewCaptureLogger() *CaptureLogger {
	c := &CaptureLogger{}
	c.Logger = slog.New(slog.NewTextHandler(lockedWriter{c}, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	}))
	return c
}

// String returns everything logged so far.
func (c *CaptureLogger) String() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buf.String()
}

// Contains reports whether any log line contains all of the fragments.
func (c *CaptureLogger) Contains(fragments ...string) bool {
	for _, line := range strings.Split(c.String(), "\n") {
		all := line != ""
		for _, f := range fragments {
			if !strings.Contains(line, f) {
				all = false
				break
			}
		}
		if all {
			return true
		}
	}
	return false
}

type lockedWriter struct {
	c *CaptureLogger
}

func (w lockedWriter) Write(p []byte) (int, error) {
	w.c.mu.Lock()
	defer w.c.mu.Unlock()
	return w.c.buf.Write(p)
}
