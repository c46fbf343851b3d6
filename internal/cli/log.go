// Package cli implements the composer-link command-line interface.
//
// This package provides commands for linking a local Composer package into a
// consumer, inspecting the link state, running composer update and showing
// the effective configuration. The CLI is built using cobra and supports
// verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - link: Install a local package into a consumer and restore both manifests
//   - status: Report whether a consumer has a package linked
//   - update: Run composer update for a consumer, optionally for one package
//   - config: Show the config file location and effective settings
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers are
// passed through context.Context, and in verbose mode link state transitions
// and repository index requests are logged through observability hooks.
package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/composer-link/pkg/observability"
)

// newLogger creates a new logger with timestamp formatting.
// The logger writes to w and filters messages at the specified level.
// Timestamps are formatted as "HH:MM:SS.ms" (e.g., "14:32:01.45").
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks the start time of an operation and logs completion with elapsed duration.
// It is safe for sequential use by a single goroutine; concurrent calls to done will race.
type progress struct {
	logger *log.Logger
	start  time.Time
}

// newProgress creates a progress tracker that captures the current time as start.
func newProgress(l *log.Logger) *progress {
	return &progress{logger: l, start: time.Now()}
}

// done logs msg along with the elapsed time since progress was created.
// Example output: "Linked acme/dep (1.234s)"
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s)", msg, time.Since(p.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx.
// If no logger is attached, it returns log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}

// =============================================================================
// Observability
// =============================================================================

// RegisterLogHooks routes link and HTTP events to the CLI's logger at debug
// level. Called by main in verbose mode.
func (c *CLI) RegisterLogHooks() {
	observability.SetLinkHooks(logLinkHooks{c.Logger})
	observability.SetHTTPHooks(logHTTPHooks{c.Logger})
}

type logLinkHooks struct{ logger *log.Logger }

func (h logLinkHooks) OnStateChange(_ context.Context, dep, from, to string) {
	h.logger.Debug("link state", "dependency", dep, "from", from, "to", to)
}

func (h logLinkHooks) OnLinkComplete(_ context.Context, dep, version string, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("link failed", "dependency", dep, "duration", d.Round(time.Millisecond), "err", err)
		return
	}
	h.logger.Debug("link complete", "dependency", dep, "version", version, "duration", d.Round(time.Millisecond))
}

type logHTTPHooks struct{ logger *log.Logger }

func (h logHTTPHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h logHTTPHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "duration", d.Round(time.Millisecond))
}

func (h logHTTPHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}
