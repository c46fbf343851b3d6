// Package observability provides hooks for tracing and logging the link
// workflow.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about link runs and repository index requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// Hooks are registered by main, never by libraries, which keeps the library
// packages free of import cycles.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetLinkHooks(&myLinkHooks{})
//	    observability.SetHTTPHooks(&myHTTPHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Link().OnStateChange(ctx, dep, "idle", "computing-version")
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Link Hooks
// =============================================================================

// LinkHooks receives events from the link workflow.
type LinkHooks interface {
	// OnStateChange records a transition of a link run between two states.
	OnStateChange(ctx context.Context, dep, from, to string)

	// OnLinkComplete records the end of a link run. version is empty when
	// the run failed before a version was chosen.
	OnLinkComplete(ctx context.Context, dep, version string, duration time.Duration, err error)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopLinkHooks is a no-op implementation of LinkHooks.
type NoopLinkHooks struct{}

func (NoopLinkHooks) OnStateChange(context.Context, string, string, string) {}
func (NoopLinkHooks) OnLinkComplete(context.Context, string, string, time.Duration, error) {
}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	linkHooks LinkHooks = NoopLinkHooks{}
	httpHooks HTTPHooks = NoopHTTPHooks{}
	hooksMu   sync.RWMutex
)

// SetLinkHooks registers custom link hooks.
// This should be called once at application startup before any link runs.
func SetLinkHooks(h LinkHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		linkHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any HTTP operations.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Link returns the registered link hooks.
func Link() LinkHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return linkHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	linkHooks = NoopLinkHooks{}
	httpHooks = NoopHTTPHooks{}
}
