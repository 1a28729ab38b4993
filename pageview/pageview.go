// Package pageview coordinates one visible page: zooming re-renders
// the bitmap and re-projects the text layer, double-taps place
// annotations, and the overlay reports annotation boxes in screen
// coordinates.
package pageview

import (
	"context"
	"fmt"
	"sync"

	"github.com/annotview/annotview/annotations"
	"github.com/annotview/annotview/coords"
	"github.com/annotview/annotview/document"
	"github.com/annotview/annotview/fonts"
	"github.com/annotview/annotview/observability"
	"github.com/annotview/annotview/raster"
	"github.com/annotview/annotview/textlayer"
)

// DefaultAnnotationFontSize is the intrinsic font size annotations are
// displayed and exported at.
const DefaultAnnotationFontSize = 12.0

// Gesture describes a double-tap on the page.
type Gesture struct {
	// Location is the tap position in screen coordinates.
	Location coords.Point
	// TargetIsAnnotation reports that the tap landed on an existing
	// annotation box.
	TargetIsAnnotation bool
	// ActiveSelection reports that a text selection exists; selection
	// gestures must not spawn annotations.
	ActiveSelection bool
}

// OverlayBox is one annotation positioned in screen coordinates.
type OverlayBox struct {
	ID     string
	X      float64
	Y      float64
	Width  float64
	Height float64
	Text   string
}

// Controller drives one page view.
type Controller struct {
	page   document.PageHandle
	number int
	store  *annotations.Store
	view   *raster.View
	logger observability.Logger

	mu       sync.Mutex
	scale    float64
	textGen  uint64
	elements []textlayer.Element
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

// WithView substitutes the raster view, mainly for tests.
func WithView(v *raster.View) Option {
	return func(c *Controller) { c.view = v }
}

// NewController returns a controller for the page at scale 1.0.
func NewController(page document.PageHandle, store *annotations.Store, opts ...Option) *Controller {
	c := &Controller{
		page:   page,
		number: page.Number(),
		store:  store,
		logger: observability.NopLogger{},
		scale:  1.0,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.view == nil {
		c.view = raster.NewView(page, raster.WithLogger(c.logger))
	}
	return c
}

// Scale returns the current zoom scale.
func (c *Controller) Scale() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scale
}

// View exposes the raster view for bitmap consumers.
func (c *Controller) View() *raster.View { return c.view }

// TextLayer returns the current overlay elements.
func (c *Controller) TextLayer() []textlayer.Element {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.elements
}

// SetScale changes the zoom. The bitmap re-renders asynchronously via
// the raster view; the text layer is rebuilt from scratch at the new
// scale. A newer SetScale makes older in-flight rebuilds no-ops.
func (c *Controller) SetScale(ctx context.Context, scale float64) (<-chan struct{}, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("non-positive scale %g", scale)
	}

	c.mu.Lock()
	c.scale = scale
	c.textGen++
	gen := c.textGen
	c.mu.Unlock()

	renderDone := c.view.Request(ctx, scale)

	done := make(chan struct{})
	go func() {
		defer close(done)

		var elements []textlayer.Element
		spans, err := c.page.TextSpans(ctx)
		if err != nil {
			// The previous layer was positioned for the old scale; better
			// no overlay than one misaligned with the new bitmap.
			c.logger.Warn("text layer rebuild failed",
				observability.Int("page", c.number),
				observability.Error("error", err))
		} else {
			elements = textlayer.Project(spans, scale)
		}

		c.mu.Lock()
		if gen == c.textGen {
			c.elements = elements
		}
		c.mu.Unlock()

		<-renderDone
	}()
	return done, nil
}

// Overlay returns the page's annotations as boxes at the current
// scale. Annotations without an explicit width are measured.
func (c *Controller) Overlay() []OverlayBox {
	c.mu.Lock()
	scale := c.scale
	c.mu.Unlock()

	anns := c.store.ByPage(c.number)
	boxes := make([]OverlayBox, 0, len(anns))
	for _, a := range anns {
		width := a.Width
		if width <= 0 {
			width = fonts.MeasureString(a.Text, DefaultAnnotationFontSize)
		}
		screen := coords.ToScreen(coords.Point{X: a.X, Y: a.Y}, scale)
		boxes = append(boxes, OverlayBox{
			ID:     a.ID,
			X:      screen.X,
			Y:      screen.Y,
			Width:  width * scale,
			Height: DefaultAnnotationFontSize * scale,
			Text:   a.Text,
		})
	}
	return boxes
}

// HandleDoubleTap places a new empty annotation at the tap location.
// Taps on an existing annotation or during an active text selection
// are ignored; those gestures belong to editing and selection.
func (c *Controller) HandleDoubleTap(g Gesture) (annotations.Annotation, bool) {
	if g.TargetIsAnnotation || g.ActiveSelection {
		return annotations.Annotation{}, false
	}

	c.mu.Lock()
	scale := c.scale
	c.mu.Unlock()

	intrinsic := coords.ToIntrinsic(g.Location, scale)
	a, err := c.store.Add(annotations.Annotation{
		Page: c.number,
		X:    intrinsic.X,
		Y:    intrinsic.Y,
	})
	if err != nil {
		// Generated ids collide only if the caller seeded one; either
		// way the tap produced nothing.
		c.logger.Warn("annotation placement rejected",
			observability.Int("page", c.number),
			observability.Error("error", err))
		return annotations.Annotation{}, false
	}
	return a, true
}

// Reset drops render and text layer state. Session reset hooks call
// this when the document is replaced.
func (c *Controller) Reset() {
	c.view.Reset()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.textGen++
	c.elements = nil
	c.scale = 1.0
}
