// Package writer serializes PDF documents. Two paths exist: Write
// produces a complete file from a semantic document built in memory,
// and WriteIncremental appends an update section to an existing file,
// leaving the original bytes untouched so everything the parser did
// not model survives verbatim.
package writer

import (
	"context"
	"io"

	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/ir/semantic"
)

// AnnotationFontName is the resource name under which the annotation
// font is registered on every page the exporter touches.
const AnnotationFontName = "FA"

// AnnotationFontBase is the base font used for burned-in annotations.
// A standard-14 monospace face keeps output deterministic and small.
const AnnotationFontBase = "Courier"

// Update describes an incremental update section.
type Update struct {
	// Original is the unmodified source file the section appends to.
	Original []byte
	// Objects are the new and replacement objects.
	Objects map[raw.ObjectRef]raw.Object
	// Root is the catalog reference carried into the new trailer.
	Root raw.ObjectRef
	// Size is the new trailer /Size (highest object number + 1).
	Size int
	// Prev is the byte offset of the previous xref section.
	Prev int64
}

// Writer serializes documents.
type Writer interface {
	// Write emits a complete file for a document whose pages carry
	// their content bytes directly.
	Write(ctx context.Context, doc *semantic.Document, out io.Writer) error
	// WriteIncremental emits the original bytes followed by an update
	// section holding the given objects.
	WriteIncremental(ctx context.Context, upd Update, out io.Writer) error
}

// WriterBuilder constructs a Writer.
type WriterBuilder struct{}

// Build returns the writer.
func (b *WriterBuilder) Build() Writer { return &impl{} }
