// Package textlayer projects extracted text spans into positioned
// elements laid over the rendered page, making the bitmap's text
// selectable. The projection is pure: the same spans at the same scale
// always produce the same elements, and changing zoom only re-runs the
// projection.
package textlayer

import (
	"math"
	"strings"

	"github.com/annotview/annotview/coords"
	"github.com/annotview/annotview/document"
)

// AnchorRatio positions an element's top edge above the baseline by
// this fraction of the font size, approximating the ascent of common
// faces.
const AnchorRatio = 0.8

// Element is one overlay item in screen coordinates at the projected
// scale. X, Y anchor its top-left corner.
type Element struct {
	Text     string
	X        float64
	Y        float64
	FontSize float64
}

// Project converts spans to overlay elements at the given zoom scale.
// Spans whose text is empty after trimming produce no element.
func Project(spans []document.TextSpan, scale float64) []Element {
	elements := make([]Element, 0, len(spans))
	for _, span := range spans {
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		m := span.Matrix
		fontSize := scale * math.Hypot(m[0], m[1])
		if fontSize <= 0 {
			continue
		}
		elements = append(elements, Element{
			Text:     span.Text,
			X:        m[4] * scale,
			Y:        m[5]*scale - AnchorRatio*fontSize,
			FontSize: fontSize,
		})
	}
	return elements
}

// SpansFromWords converts recognized word boxes, expressed in device
// pixels of a bitmap rendered at renderScale and pixelRatio, into
// intrinsic text spans. The result feeds Project exactly like spans
// extracted from content streams, so pages without a text layer can
// still get one from recognition output.
func SpansFromWords(words []RecognizedWord, renderScale, pixelRatio float64) []document.TextSpan {
	device := renderScale * pixelRatio
	if device <= 0 {
		return nil
	}
	spans := make([]document.TextSpan, 0, len(words))
	for _, w := range words {
		if strings.TrimSpace(w.Text) == "" {
			continue
		}
		height := (w.Bottom - w.Top) / device
		if height <= 0 {
			continue
		}
		x := w.Left / device
		baseline := w.Bottom/device - (1-AnchorRatio)*height
		spans = append(spans, document.TextSpan{
			Text:   w.Text,
			Matrix: coords.Scale(height, height).Multiply(coords.Translate(x, baseline)),
		})
	}
	return spans
}

// RecognizedWord is one word box in device pixel coordinates, as
// produced by the ocr package.
type RecognizedWord struct {
	Text                     string
	Left, Top, Right, Bottom float64
}
