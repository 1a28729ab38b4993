// Package raster manages asynchronous page rendering for the viewer.
// Each page view owns one View; at most one render is in flight per
// view, and a new request cancels the old render before starting its
// own. Results are tagged with a generation counter so a stale render
// can never overwrite a newer one.
package raster

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annotview/annotview/document"
	"github.com/annotview/annotview/observability"
)

// ErrRenderFailed wraps backend errors surfaced through Err so callers
// can distinguish render failures from their own plumbing errors.
var ErrRenderFailed = errors.New("raster: render failed")

// State is the render lifecycle of a page view.
type State int

const (
	StateIdle State = iota
	StateRendering
	StateReady
	StateCancelled
	StateError
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRendering:
		return "rendering"
	case StateReady:
		return "ready"
	case StateCancelled:
		return "cancelled"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

// View renders one page at changing scales.
type View struct {
	page       document.PageHandle
	pixelRatio float64
	logger     observability.Logger
	onReady    func(*document.Bitmap)

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
	state  State
	bitmap *document.Bitmap
	err    error
}

// Option configures a View.
type Option func(*View)

// WithPixelRatio sets the device pixel ratio. Default 1.
func WithPixelRatio(r float64) Option {
	return func(v *View) {
		if r > 0 {
			v.pixelRatio = r
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(v *View) { v.logger = l }
}

// WithOnReady registers a callback invoked after each successful
// render, outside the view's lock.
func WithOnReady(fn func(*document.Bitmap)) Option {
	return func(v *View) { v.onReady = fn }
}

// NewView returns an idle view for the page.
func NewView(page document.PageHandle, opts ...Option) *View {
	v := &View{
		page:       page,
		pixelRatio: 1,
		logger:     observability.NopLogger{},
		state:      StateIdle,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// State returns the current render state.
func (v *View) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Bitmap returns the last completed bitmap, or nil if none is ready.
func (v *View) Bitmap() *document.Bitmap {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.bitmap
}

// Err returns the error of the last failed render, or nil.
func (v *View) Err() error {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.err
}

// Request starts rendering at the given scale, cancelling any render
// already in flight. The returned channel closes when this request
// finishes, whether it completed, failed, or was superseded.
func (v *View) Request(ctx context.Context, scale float64) <-chan struct{} {
	done := make(chan struct{})

	v.mu.Lock()
	if v.cancel != nil {
		v.cancel()
	}
	renderCtx, cancel := context.WithCancel(ctx)
	v.cancel = cancel
	v.gen++
	gen := v.gen
	v.state = StateRendering
	v.mu.Unlock()

	go func() {
		defer close(done)
		bmp, err := v.page.Render(renderCtx, scale, v.pixelRatio)
		cancel()

		v.mu.Lock()
		if gen != v.gen {
			// A newer request took over; this result is stale no matter
			// how it turned out.
			v.mu.Unlock()
			return
		}
		v.cancel = nil
		switch {
		case err == nil:
			v.state = StateReady
			v.bitmap = bmp
			v.err = nil
		case errors.Is(err, context.Canceled):
			// Cancellation is flow control, not failure.
			v.state = StateCancelled
			v.logger.Debug("render cancelled",
				observability.Int("page", v.page.Number()),
				observability.Float64("scale", scale))
		default:
			v.state = StateError
			v.err = fmt.Errorf("%w: %w", ErrRenderFailed, err)
			v.logger.Error("render failed",
				observability.Int("page", v.page.Number()),
				observability.Error("error", err))
		}
		state := v.state
		onReady := v.onReady
		v.mu.Unlock()

		if state == StateReady && onReady != nil {
			onReady(bmp)
		}
	}()

	return done
}

// Cancel aborts any in-flight render without starting a new one.
func (v *View) Cancel() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
	}
}

// Reset cancels any in-flight render and drops the cached bitmap. The
// session's reset hooks call this when a new document loads.
func (v *View) Reset() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.cancel != nil {
		v.cancel()
		v.cancel = nil
	}
	v.gen++
	v.state = StateIdle
	v.bitmap = nil
	v.err = nil
}
