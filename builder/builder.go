// Package builder provides a small fluent API for constructing pages
// in memory. The layout engine uses it for the export summary page and
// tests use it to synthesize fixture documents.
package builder

import (
	"errors"

	"github.com/annotview/annotview/contentstream"
	"github.com/annotview/annotview/ir/semantic"
	"github.com/annotview/annotview/writer"
)

// TextOptions configures text drawing.
type TextOptions struct {
	FontSize float64 // 0 means 12
}

// DocumentBuilder accumulates pages into a semantic document.
type DocumentBuilder interface {
	NewPage(width, height float64) PageBuilder
	Build() (*semantic.Document, error)
}

// PageBuilder draws onto one page. Coordinates are in the PDF
// bottom-left origin convention.
type PageBuilder interface {
	DrawText(text string, x, y float64, opts TextOptions) PageBuilder
	Finish() DocumentBuilder
}

// NewBuilder returns an empty document builder.
func NewBuilder() DocumentBuilder { return &builderImpl{} }

type builderImpl struct {
	pages []*semantic.Page
}

func (b *builderImpl) NewPage(width, height float64) PageBuilder {
	return &pageBuilderImpl{
		parent: b,
		page: &semantic.Page{
			Index:    len(b.pages),
			MediaBox: semantic.Rectangle{URX: width, URY: height},
		},
	}
}

func (b *builderImpl) Build() (*semantic.Document, error) {
	if len(b.pages) == 0 {
		return nil, errors.New("no pages")
	}
	return &semantic.Document{Pages: b.pages}, nil
}

type pageBuilderImpl struct {
	parent *builderImpl
	page   *semantic.Page
	ops    contentstream.Ops
}

func (p *pageBuilderImpl) DrawText(text string, x, y float64, opts TextOptions) PageBuilder {
	size := opts.FontSize
	if size <= 0 {
		size = 12
	}
	p.ops.BeginText().
		SetFont(writer.AnnotationFontName, size).
		SetTextMatrix(1, 0, 0, 1, x, y).
		ShowText(text).
		EndText()
	return p
}

func (p *pageBuilderImpl) Finish() DocumentBuilder {
	p.page.Contents = p.ops.Bytes()
	p.parent.pages = append(p.parent.pages, p.page)
	return p.parent
}
