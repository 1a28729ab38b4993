// Package ocr defines the recognition contract used to build a text
// layer for scanned pages, plus a parser for the hOCR output format
// most engines can emit. The tesseract subpackage provides the real
// engine; the core only sees these types.
package ocr

import (
	"context"
	"image"
)

// Box is a word bounding box in device pixels of the recognized image.
type Box struct {
	Left, Top, Right, Bottom int
}

// Word is one recognized word.
type Word struct {
	Text       string
	Bounds     Box
	Confidence float64 // 0..100, negative when the engine reports none
}

// Result is the outcome of recognizing one page image.
type Result struct {
	PlainText string
	Words     []Word
}

// Input is one page image to recognize.
type Input struct {
	Image *image.RGBA
	// Languages are engine language codes, e.g. "eng". Empty means the
	// engine default.
	Languages []string
}

// Engine recognizes text in page images.
type Engine interface {
	Recognize(ctx context.Context, in Input) (*Result, error)
	Close() error
}
