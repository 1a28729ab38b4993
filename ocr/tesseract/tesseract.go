// Package tesseract backs the ocr.Engine contract with the gosseract
// client. Word geometry comes from the engine's hOCR output so the
// text layer gets real bounding boxes, not just plain text.
package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/annotview/annotview/ocr"
)

// Engine implements ocr.Engine using a tesseract installation.
type Engine struct {
	clientFactory func() *gosseract.Client
}

// NewEngine constructs a tesseract-backed engine.
func NewEngine() *Engine {
	return &Engine{clientFactory: gosseract.NewClient}
}

// Recognize runs OCR over one page image.
func (e *Engine) Recognize(ctx context.Context, in ocr.Input) (*ocr.Result, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	if in.Image == nil {
		return nil, fmt.Errorf("recognize: nil image")
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, in.Image); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}
	if len(in.Languages) > 0 {
		if err := c.SetLanguage(in.Languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}

	hocr, err := c.HOCRText()
	if err != nil {
		return nil, fmt.Errorf("recognize: %w", err)
	}
	res, err := ocr.ParseHOCR(hocr)
	if err != nil {
		return nil, fmt.Errorf("parse hocr: %w", err)
	}

	if res.PlainText == "" {
		// Some builds emit empty hOCR for blank pages; fall back to the
		// plain text API before reporting nothing.
		text, err := c.Text()
		if err == nil {
			res.PlainText = strings.TrimSpace(text)
		}
	}
	return res, nil
}

// Close releases engine resources. Clients are per-call, so there is
// nothing to tear down.
func (e *Engine) Close() error { return nil }
