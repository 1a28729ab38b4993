// Package semantic lifts the raw object graph into the page-oriented
// model the viewer and exporter work with: a document is a list of
// pages, each with its geometry, resources and decoded content.
package semantic

import (
	"context"

	"github.com/annotview/annotview/ir/raw"
)

// Rectangle is a PDF rectangle [llx lly urx ury].
type Rectangle struct {
	LLX, LLY, URX, URY float64
}

func (r Rectangle) Width() float64  { return r.URX - r.LLX }
func (r Rectangle) Height() float64 { return r.URY - r.LLY }

// Page models a single page of the document.
type Page struct {
	// Index is zero-based position in the page tree.
	Index    int
	MediaBox Rectangle
	Rotate   int // degrees: 0/90/180/270

	// Contents is the decoded, concatenated content stream.
	Contents []byte
	// ContentRefs are the original indirect content stream references,
	// kept so incremental updates can append rather than replace.
	ContentRefs []raw.ObjectRef

	// Resources is the resolved resource dictionary, possibly inherited
	// from an ancestor node. May be nil.
	Resources *raw.DictObj

	// Ref is the page object's own reference; Dict its dictionary.
	Ref  raw.ObjectRef
	Dict *raw.DictObj
}

// Document is the semantic representation of a parsed PDF.
type Document struct {
	Pages []*Page
	Raw   *raw.Document

	RootRef  raw.ObjectRef
	PagesRef raw.ObjectRef
}

// PageCount returns the number of pages.
func (d *Document) PageCount() int { return len(d.Pages) }

// Builder lifts a raw document into the semantic model.
type Builder interface {
	Build(ctx context.Context, doc *raw.Document) (*Document, error)
}
