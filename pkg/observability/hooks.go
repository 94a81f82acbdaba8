// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers register hooks at startup
// to receive events about render stages, font catalog construction and host
// calls.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetPipelineHooks(&myPipelineHooks{})
//	    observability.SetFontHooks(&myFontHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Pipeline().OnStageStart(ctx, "render_file", "parse")
//	// ... parse ...
//	observability.Pipeline().OnStageComplete(ctx, "render_file", "parse", duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Pipeline Hooks
// =============================================================================

// PipelineHooks receives events from the render pipeline. op names the entry
// point (render_file, render_text, list_fonts, query); stage names the step
// (load, decode, parse, fonts, tree, rasterize, encode).
type PipelineHooks interface {
	OnStageStart(ctx context.Context, op, stage string)
	OnStageComplete(ctx context.Context, op, stage string, duration time.Duration, err error)
}

// =============================================================================
// Font Hooks
// =============================================================================

// FontHooks receives events from font catalog construction.
type FontHooks interface {
	// OnScan records a completed scan of one font source (system, file or dir).
	OnScan(ctx context.Context, source string, faces int, duration time.Duration)

	// OnSkip records a font file or directory that was ignored.
	OnSkip(ctx context.Context, path string, err error)
}

// =============================================================================
// Host Hooks
// =============================================================================

// HostHooks receives events from the host call surface.
type HostHooks interface {
	OnCall(ctx context.Context, id, op string)
	OnCallComplete(ctx context.Context, id, op string, duration time.Duration, code string)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPipelineHooks is a no-op implementation of PipelineHooks.
type NoopPipelineHooks struct{}

func (NoopPipelineHooks) OnStageStart(context.Context, string, string) {}
func (NoopPipelineHooks) OnStageComplete(context.Context, string, string, time.Duration, error) {
}

// NoopFontHooks is a no-op implementation of FontHooks.
type NoopFontHooks struct{}

func (NoopFontHooks) OnScan(context.Context, string, int, time.Duration) {}
func (NoopFontHooks) OnSkip(context.Context, string, error)              {}

// NoopHostHooks is a no-op implementation of HostHooks.
type NoopHostHooks struct{}

func (NoopHostHooks) OnCall(context.Context, string, string)                                {}
func (NoopHostHooks) OnCallComplete(context.Context, string, string, time.Duration, string) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	pipelineHooks PipelineHooks = NoopPipelineHooks{}
	fontHooks     FontHooks     = NoopFontHooks{}
	hostHooks     HostHooks     = NoopHostHooks{}
	hooksMu       sync.RWMutex
)

// SetPipelineHooks registers custom pipeline hooks.
// This should be called once at application startup before any pipeline operations.
func SetPipelineHooks(h PipelineHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		pipelineHooks = h
	}
}

// SetFontHooks registers custom font hooks.
func SetFontHooks(h FontHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		fontHooks = h
	}
}

// SetHostHooks registers custom host hooks.
func SetHostHooks(h HostHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		hostHooks = h
	}
}

// Pipeline returns the registered pipeline hooks.
func Pipeline() PipelineHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return pipelineHooks
}

// Fonts returns the registered font hooks.
func Fonts() FontHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return fontHooks
}

// Host returns the registered host hooks.
func Host() HostHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return hostHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	pipelineHooks = NoopPipelineHooks{}
	fontHooks = NoopFontHooks{}
	hostHooks = NoopHostHooks{}
}
