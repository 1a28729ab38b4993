package export

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/annotview/annotview/annotations"
	"github.com/annotview/annotview/builder"
	"github.com/annotview/annotview/ir/semantic"
	"github.com/annotview/annotview/parser"
	"github.com/annotview/annotview/writer"
)

// fixturePDF writes a single 600x800 page carrying one line of
// existing text.
func fixturePDF(t *testing.T) []byte {
	t.Helper()
	doc, err := builder.NewBuilder().
		NewPage(600, 800).
		DrawText("Existing content", 72, 700, builder.TextOptions{}).
		Finish().
		Build()
	if err != nil {
		t.Fatalf("build fixture: %v", err)
	}
	var buf bytes.Buffer
	if err := (&writer.WriterBuilder{}).Build().Write(context.Background(), doc, &buf); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return buf.Bytes()
}

func parseBack(t *testing.T, data []byte) *semantic.Document {
	t.Helper()
	rawDoc, err := parser.NewDocumentParser(parser.Config{}).Parse(context.Background(), bytes.NewReader(data))
	if err != nil {
		t.Fatalf("parse exported file: %v", err)
	}
	sem, err := semantic.NewBuilder().Build(context.Background(), rawDoc)
	if err != nil {
		t.Fatalf("build exported file: %v", err)
	}
	return sem
}

func TestExport_BurnsAnnotationAtFlippedPosition(t *testing.T) {
	original := fixturePDF(t)
	anns := []annotations.Annotation{
		{ID: "a1", Page: 1, X: 120, Y: 200, Text: "John Doe"},
	}

	out, skipped, err := New().Export(context.Background(), original, anns)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d", skipped)
	}
	if !bytes.HasPrefix(out, original) {
		t.Fatalf("output does not start with the original bytes")
	}

	// Intrinsic (120, 200) on an 800pt page lands at output y
	// 800 - 200 - 12 = 588.
	if !bytes.Contains(out, []byte("1 0 0 1 120 588 Tm")) {
		t.Fatalf("output missing flipped text matrix")
	}
	if !bytes.Contains(out, []byte("(John Doe) Tj")) {
		t.Fatalf("output missing annotation text")
	}

	sem := parseBack(t, out)
	if sem.PageCount() != 1 {
		t.Fatalf("page count = %d", sem.PageCount())
	}
	contents := string(sem.Pages[0].Contents)
	if !strings.Contains(contents, "(Existing content) Tj") {
		t.Fatalf("original content lost: %q", contents)
	}
	if !strings.Contains(contents, "(John Doe) Tj") {
		t.Fatalf("annotation content missing: %q", contents)
	}
	font, ok := sem.Pages[0].Resources.Get("Font")
	if !ok {
		t.Fatalf("amended page lost its font resources")
	}
	if _, ok := sem.Raw.ResolveDict(font).KV[writer.AnnotationFontName]; !ok {
		t.Fatalf("annotation font not registered")
	}
}

func TestExport_SkipsOutOfRangePages(t *testing.T) {
	original := fixturePDF(t)
	anns := []annotations.Annotation{
		{ID: "a1", Page: 0, X: 1, Y: 1, Text: "below range"},
		{ID: "a2", Page: 2, X: 1, Y: 1, Text: "just past"},
		{ID: "a3", Page: 99, X: 1, Y: 1, Text: "far past"},
		{ID: "a4", Page: 1, X: 10, Y: 10, Text: "valid"},
	}

	out, skipped, err := New().Export(context.Background(), original, anns)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if skipped != 3 {
		t.Fatalf("skipped = %d, want 3", skipped)
	}
	if !bytes.Contains(out, []byte("(valid) Tj")) {
		t.Fatalf("valid annotation missing from output")
	}
	for _, absent := range []string{"below range", "just past", "far past"} {
		if bytes.Contains(out, []byte("("+absent+") Tj")) {
			t.Fatalf("out-of-range annotation %q was written", absent)
		}
	}
}

func TestExport_BlankTextNotDrawn(t *testing.T) {
	original := fixturePDF(t)
	out, skipped, err := New().Export(context.Background(), original, []annotations.Annotation{
		{ID: "a1", Page: 1, X: 5, Y: 5, Text: "   "},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if skipped != 0 {
		t.Fatalf("blank annotation counted as out-of-range skip: %d", skipped)
	}
	sem := parseBack(t, out)
	if strings.Contains(string(sem.Pages[0].Contents), "(   ) Tj") {
		t.Fatalf("blank annotation was drawn")
	}
}

func TestExport_Deterministic(t *testing.T) {
	original := fixturePDF(t)
	anns := []annotations.Annotation{
		{ID: "a1", Page: 1, X: 120, Y: 200, Text: "John Doe"},
		{ID: "a2", Page: 1, X: 300, Y: 400, Text: "Second"},
	}

	first, _, err := New().Export(context.Background(), original, anns)
	if err != nil {
		t.Fatalf("first export: %v", err)
	}
	second, _, err := New().Export(context.Background(), original, anns)
	if err != nil {
		t.Fatalf("second export: %v", err)
	}
	if !bytes.Equal(first, second) {
		t.Fatalf("exports of identical input differ")
	}
}

func TestExport_MalformedInputFailsAtomically(t *testing.T) {
	out, skipped, err := New().Export(context.Background(), []byte("not a pdf"), []annotations.Annotation{
		{ID: "a1", Page: 1, Text: "x"},
	})
	if !errors.Is(err, parser.ErrMalformed) {
		t.Fatalf("expected ErrMalformed, got %v", err)
	}
	if out != nil {
		t.Fatalf("partial output produced on failure")
	}
	if skipped != 0 {
		t.Fatalf("skipped = %d on failure", skipped)
	}
}

func TestExport_InputBufferIndependence(t *testing.T) {
	original := fixturePDF(t)
	pristine := append([]byte(nil), original...)

	out, _, err := New().Export(context.Background(), original, []annotations.Annotation{
		{ID: "a1", Page: 1, X: 10, Y: 10, Text: "note"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	// Scribbling over the caller's buffer afterwards must not be
	// visible in the produced bytes.
	for i := range original {
		original[i] = 0
	}
	if !bytes.HasPrefix(out, pristine) {
		t.Fatalf("output shares memory with the caller's buffer")
	}
}

func TestExport_OrderWithinPagePreserved(t *testing.T) {
	original := fixturePDF(t)
	out, _, err := New().Export(context.Background(), original, []annotations.Annotation{
		{ID: "a1", Page: 1, X: 10, Y: 10, Text: "first"},
		{ID: "a2", Page: 1, X: 20, Y: 20, Text: "second"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	i := bytes.Index(out, []byte("(first) Tj"))
	j := bytes.Index(out, []byte("(second) Tj"))
	if i < 0 || j < 0 || i > j {
		t.Fatalf("annotation order not preserved: first=%d second=%d", i, j)
	}
}

func TestExport_SummaryPageAppended(t *testing.T) {
	original := fixturePDF(t)
	out, _, err := New(WithSummaryPage()).Export(context.Background(), original, []annotations.Annotation{
		{ID: "a1", Page: 1, X: 10, Y: 10, Text: "Reviewed by QA"},
	})
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	sem := parseBack(t, out)
	if sem.PageCount() != 2 {
		t.Fatalf("page count with summary = %d, want 2", sem.PageCount())
	}
	last := string(sem.Pages[1].Contents)
	if !strings.Contains(last, "(Annotation Summary) Tj") {
		t.Fatalf("summary heading missing: %q", last)
	}
	if !strings.Contains(last, "Reviewed by QA") {
		t.Fatalf("summary entry missing: %q", last)
	}
}

func TestExport_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := New().Export(ctx, fixturePDF(t), nil)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
