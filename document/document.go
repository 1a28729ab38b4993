// Package document defines the capabilities the viewing pipeline needs
// from a loaded document: page lookup, rasterization and text span
// extraction. The viewer core depends only on these interfaces; the
// pdfdoc package provides the in-process implementation and hosts may
// substitute their own.
package document

import (
	"context"
	"image"

	"github.com/annotview/annotview/coords"
)

// Size is a page's intrinsic dimensions at scale 1.0, in document
// units.
type Size struct {
	Width  float64
	Height float64
}

// TextSpan is one positioned run of text in intrinsic top-left
// coordinates. Matrix places the run's baseline origin; its scale
// component carries the effective font size.
type TextSpan struct {
	Text   string
	Matrix coords.Matrix
}

// Bitmap is a rendered page. Width and Height are the logical pixel
// dimensions at the requested scale; Pix holds PixelRatio times that
// in device pixels.
type Bitmap struct {
	Pix        *image.RGBA
	Width      int
	Height     int
	Scale      float64
	PixelRatio float64
}

// PageHandle exposes one page of an open document.
type PageHandle interface {
	// Number is the 1-based page number.
	Number() int
	// Size returns the intrinsic page size.
	Size() Size
	// Render rasterizes the page at the given zoom scale and device
	// pixel ratio. It honors ctx cancellation.
	Render(ctx context.Context, scale, pixelRatio float64) (*Bitmap, error)
	// TextSpans returns the page's positioned text runs.
	TextSpans(ctx context.Context) ([]TextSpan, error)
}

// Document is an open document.
type Document interface {
	// PageCount returns the number of pages.
	PageCount() int
	// Page returns the handle for a 1-based page number.
	Page(number int) (PageHandle, error)
	// Close releases the document's resources. Handles obtained from it
	// must not be used afterwards.
	Close() error
}

// Opener opens a document from raw bytes. Implementations must not
// retain data; the session hands them a private copy.
type Opener func(ctx context.Context, data []byte) (Document, error)
