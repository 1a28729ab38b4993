// Package pdfdoc implements the document capability interfaces on top
// of the in-process parse pipeline. It is the reference backend: hosts
// with a platform renderer can swap in their own document.Opener and
// the rest of the viewer never notices.
package pdfdoc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/annotview/annotview/document"
	"github.com/annotview/annotview/ir/semantic"
	"github.com/annotview/annotview/observability"
	"github.com/annotview/annotview/parser"
	"github.com/annotview/annotview/recovery"
)

// Option configures Open.
type Option func(*config)

type config struct {
	logger   observability.Logger
	recovery recovery.Strategy
}

// WithLogger sets the logger used while parsing and rendering.
func WithLogger(l observability.Logger) Option {
	return func(c *config) { c.logger = l }
}

// WithRecovery sets the recovery strategy for malformed input.
func WithRecovery(s recovery.Strategy) Option {
	return func(c *config) { c.recovery = s }
}

// Open parses data into a document. The bytes are copied, so the
// caller's buffer stays independent of the returned document.
func Open(ctx context.Context, data []byte, opts ...Option) (document.Document, error) {
	cfg := config{logger: observability.NopLogger{}, recovery: recovery.Lenient()}
	for _, opt := range opts {
		opt(&cfg)
	}

	buf := make([]byte, len(data))
	copy(buf, data)

	p := parser.NewDocumentParser(parser.Config{
		Recovery: cfg.recovery,
		Logger:   cfg.logger,
	})
	rawDoc, err := p.Parse(ctx, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	sem, err := semantic.NewBuilder().Build(ctx, rawDoc)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", parser.ErrMalformed, err)
	}
	if sem.PageCount() == 0 {
		return nil, fmt.Errorf("%w: document has no pages", parser.ErrMalformed)
	}

	d := &doc{sem: sem, data: buf, logger: cfg.logger}
	d.pages = make([]*pageHandle, sem.PageCount())
	for i, p := range sem.Pages {
		d.pages[i] = &pageHandle{doc: d, page: p}
	}
	return d, nil
}

// ErrClosed is returned when a closed document is used.
var ErrClosed = errors.New("document is closed")

type doc struct {
	sem    *semantic.Document
	data   []byte
	logger observability.Logger
	pages  []*pageHandle

	mu     sync.Mutex
	closed bool
}

func (d *doc) PageCount() int { return len(d.pages) }

func (d *doc) Page(number int) (document.PageHandle, error) {
	d.mu.Lock()
	closed := d.closed
	d.mu.Unlock()
	if closed {
		return nil, ErrClosed
	}
	if number < 1 || number > len(d.pages) {
		return nil, fmt.Errorf("page %d out of range [1, %d]", number, len(d.pages))
	}
	return d.pages[number-1], nil
}

func (d *doc) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed = true
	d.data = nil
	return nil
}

type pageHandle struct {
	doc  *doc
	page *semantic.Page
}

func (h *pageHandle) Number() int { return h.page.Index + 1 }

func (h *pageHandle) Size() document.Size {
	w := h.page.MediaBox.Width()
	ht := h.page.MediaBox.Height()
	if h.page.Rotate == 90 || h.page.Rotate == 270 {
		w, ht = ht, w
	}
	return document.Size{Width: w, Height: ht}
}

// TextSpans derives the page's spans from its content stream on every
// call. Nothing is cached: callers own the returned slice and may
// mutate it freely without affecting later renders.
func (h *pageHandle) TextSpans(ctx context.Context) ([]document.TextSpan, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	return extractTextSpans(h.page.Contents, h.page.MediaBox.Height())
}
