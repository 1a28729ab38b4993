// Package export burns annotations into a copy of the original PDF.
// Output is an incremental update: the source bytes are carried
// verbatim and new objects append after them, so nothing the parser
// did not model can be damaged. Export either produces a complete
// document or fails without partial output.
package export

import (
	"bytes"
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/annotview/annotview/annotations"
	"github.com/annotview/annotview/contentstream"
	"github.com/annotview/annotview/coords"
	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/ir/semantic"
	"github.com/annotview/annotview/layout"
	"github.com/annotview/annotview/observability"
	"github.com/annotview/annotview/parser"
	"github.com/annotview/annotview/pageview"
	"github.com/annotview/annotview/recovery"
	"github.com/annotview/annotview/writer"
)

// Option configures an Exporter.
type Option func(*Exporter)

// WithLogger sets the logger.
func WithLogger(l observability.Logger) Option {
	return func(e *Exporter) { e.logger = l }
}

// WithSummaryPage appends a generated page listing every exported
// annotation after the document's own pages.
func WithSummaryPage() Option {
	return func(e *Exporter) { e.summary = true }
}

// Exporter writes annotated copies of documents.
type Exporter struct {
	logger  observability.Logger
	summary bool
	writer  writer.Writer
}

// New returns an Exporter.
func New(opts ...Option) *Exporter {
	e := &Exporter{
		logger: observability.NopLogger{},
		writer: (&writer.WriterBuilder{}).Build(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Export returns a new document with the annotations drawn onto their
// pages, plus the number of annotations skipped because their page
// does not exist. The input bytes are copied up front, so the caller's
// buffer and the live viewer stay untouched. Any failure returns no
// output at all.
func (e *Exporter) Export(ctx context.Context, original []byte, anns []annotations.Annotation) ([]byte, int, error) {
	start := time.Now()

	src := make([]byte, len(original))
	copy(src, original)

	p := parser.NewDocumentParser(parser.Config{
		Recovery: recovery.Strict(),
		Logger:   e.logger,
	})
	rawDoc, err := p.Parse(ctx, bytes.NewReader(src))
	if err != nil {
		return nil, 0, fmt.Errorf("export: %w", err)
	}
	sem, err := semantic.NewBuilder().Build(ctx, rawDoc)
	if err != nil {
		return nil, 0, fmt.Errorf("export: %w: %v", parser.ErrMalformed, err)
	}

	perPage := make(map[int][]annotations.Annotation)
	skipped := 0
	exported := 0
	for _, a := range anns {
		if a.Page < 1 || a.Page > sem.PageCount() {
			skipped++
			continue
		}
		if strings.TrimSpace(a.Text) == "" {
			continue
		}
		perPage[a.Page] = append(perPage[a.Page], a)
		exported++
	}

	next := rawDoc.NextNum()
	alloc := func() raw.ObjectRef {
		ref := raw.ObjectRef{Num: next}
		next++
		return ref
	}
	objects := make(map[raw.ObjectRef]raw.Object)
	fontRef := alloc()
	objects[fontRef] = writer.AnnotationFont()

	pages := make([]int, 0, len(perPage))
	for n := range perPage {
		pages = append(pages, n)
	}
	sort.Ints(pages)

	for _, number := range pages {
		select {
		case <-ctx.Done():
			return nil, 0, ctx.Err()
		default:
		}
		page := sem.Pages[number-1]
		contentRef := alloc()
		objects[contentRef] = annotationStream(page, perPage[number])
		objects[page.Ref] = amendedPageDict(page, contentRef, fontRef)
	}

	if e.summary && exported > 0 {
		if err := e.appendSummary(rawDoc, sem, anns, alloc, objects, fontRef); err != nil {
			return nil, 0, fmt.Errorf("export: summary page: %w", err)
		}
	}

	var out bytes.Buffer
	err = e.writer.WriteIncremental(ctx, writer.Update{
		Original: src,
		Objects:  objects,
		Root:     sem.RootRef,
		Size:     next,
		Prev:     rawDoc.StartXRef,
	}, &out)
	if err != nil {
		return nil, 0, fmt.Errorf("export: %w", err)
	}

	e.logger.Info("export finished",
		observability.Int(observability.MetricAnnotationsExported, exported),
		observability.Int(observability.MetricAnnotationsSkipped, skipped),
		observability.Duration(observability.MetricExportTime, time.Since(start)))
	return out.Bytes(), skipped, nil
}

// annotationStream builds the content stream drawing the page's
// annotations. Positions flip from intrinsic top-left space into the
// page's own coordinate origin.
func annotationStream(page *semantic.Page, anns []annotations.Annotation) *raw.StreamObj {
	var ops contentstream.Ops
	ops.Save().
		BeginText().
		SetFont(writer.AnnotationFontName, pageview.DefaultAnnotationFontSize).
		SetFillGray(0)
	for _, a := range anns {
		out := coords.ToOutput(coords.Point{X: a.X, Y: a.Y}, page.MediaBox.Height())
		ops.SetTextMatrix(1, 0, 0, 1, page.MediaBox.LLX+out.X, page.MediaBox.LLY+out.Y).
			ShowText(a.Text)
	}
	ops.EndText().Restore()

	dict := raw.Dict()
	dict.Set("Length", raw.Int(int64(ops.Len())))
	return raw.NewStream(dict, ops.Bytes())
}

// amendedPageDict clones the page dictionary, appends the annotation
// content stream and registers the annotation font resource.
func amendedPageDict(page *semantic.Page, contentRef, fontRef raw.ObjectRef) *raw.DictObj {
	dict := page.Dict.Clone()

	contents := raw.NewArray()
	for _, ref := range page.ContentRefs {
		contents.Append(raw.Ref(ref.Num, ref.Gen))
	}
	contents.Append(raw.Ref(contentRef.Num, contentRef.Gen))
	dict.Set("Contents", contents)

	var resources *raw.DictObj
	if page.Resources != nil {
		resources = page.Resources.Clone()
	} else {
		resources = raw.Dict()
	}
	var fontDict *raw.DictObj
	if f, ok := resources.Get("Font"); ok {
		if fd, ok := f.(*raw.DictObj); ok {
			fontDict = fd.Clone()
		}
	}
	if fontDict == nil {
		fontDict = raw.Dict()
	}
	fontDict.Set(writer.AnnotationFontName, raw.Ref(fontRef.Num, fontRef.Gen))
	resources.Set("Font", fontDict)
	dict.Set("Resources", resources)

	return dict
}

// appendSummary lays out a markdown listing of the annotations and
// adds the resulting pages to the page tree.
func (e *Exporter) appendSummary(rawDoc *raw.Document, sem *semantic.Document, anns []annotations.Annotation, alloc func() raw.ObjectRef, objects map[raw.ObjectRef]raw.Object, fontRef raw.ObjectRef) error {
	summaryDoc, err := layout.NewEngine().RenderMarkdown(summaryMarkdown(anns, sem.PageCount()))
	if err != nil {
		return err
	}

	pagesDict, ok := rawDoc.Objects[sem.PagesRef].(*raw.DictObj)
	if !ok {
		return fmt.Errorf("page tree root %s is not a dictionary", sem.PagesRef)
	}
	updated := pagesDict.Clone()

	kids := raw.NewArray()
	if k, ok := updated.Get("Kids"); ok {
		if arr, ok := rawDoc.Resolve(k).(*raw.ArrayObj); ok {
			kids.Items = append(kids.Items, arr.Items...)
		}
	}

	for _, page := range summaryDoc.Pages {
		contentRef := alloc()
		contentDict := raw.Dict()
		contentDict.Set("Length", raw.Int(int64(len(page.Contents))))
		objects[contentRef] = raw.NewStream(contentDict, page.Contents)

		pageRef := alloc()
		pageDict := raw.Dict()
		pageDict.Set("Type", raw.Name("Page"))
		pageDict.Set("Parent", raw.Ref(sem.PagesRef.Num, sem.PagesRef.Gen))
		pageDict.Set("MediaBox", raw.NewArray(
			raw.Real(page.MediaBox.LLX), raw.Real(page.MediaBox.LLY),
			raw.Real(page.MediaBox.URX), raw.Real(page.MediaBox.URY)))
		res := raw.Dict()
		fontDict := raw.Dict()
		fontDict.Set(writer.AnnotationFontName, raw.Ref(fontRef.Num, fontRef.Gen))
		res.Set("Font", fontDict)
		pageDict.Set("Resources", res)
		pageDict.Set("Contents", raw.Ref(contentRef.Num, contentRef.Gen))
		objects[pageRef] = pageDict

		kids.Append(raw.Ref(pageRef.Num, 0))
	}

	updated.Set("Kids", kids)
	updated.Set("Count", raw.Int(int64(sem.PageCount()+len(summaryDoc.Pages))))
	objects[sem.PagesRef] = updated
	return nil
}

func summaryMarkdown(anns []annotations.Annotation, pageCount int) string {
	var sb strings.Builder
	sb.WriteString("# Annotation Summary\n\n")
	for _, a := range anns {
		if a.Page < 1 || a.Page > pageCount || strings.TrimSpace(a.Text) == "" {
			continue
		}
		fmt.Fprintf(&sb, "- Page %d: %s\n", a.Page, a.Text)
	}
	return sb.String()
}
