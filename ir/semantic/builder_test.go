package semantic

import (
	"context"
	"strings"
	"testing"

	"github.com/annotview/annotview/ir/raw"
)

// rawFixture assembles an in-memory raw document: catalog, a pages
// node carrying an inherited MediaBox, and leaf pages.
func rawFixture(pageDicts ...*raw.DictObj) *raw.Document {
	doc := &raw.Document{Objects: make(map[raw.ObjectRef]raw.Object)}

	catalog := raw.Dict()
	catalog.Set("Type", raw.Name("Catalog"))
	catalog.Set("Pages", raw.Ref(2, 0))
	doc.Objects[raw.ObjectRef{Num: 1}] = catalog

	pages := raw.Dict()
	pages.Set("Type", raw.Name("Pages"))
	pages.Set("MediaBox", raw.NewArray(raw.Int(0), raw.Int(0), raw.Int(600), raw.Int(800)))
	kids := raw.NewArray()
	for i, pd := range pageDicts {
		num := 10 + i
		pd.Set("Parent", raw.Ref(2, 0))
		doc.Objects[raw.ObjectRef{Num: num}] = pd
		kids.Append(raw.Ref(num, 0))
	}
	pages.Set("Kids", kids)
	pages.Set("Count", raw.Int(int64(len(pageDicts))))
	doc.Objects[raw.ObjectRef{Num: 2}] = pages

	trailer := raw.Dict()
	trailer.Set("Root", raw.Ref(1, 0))
	trailer.Set("Size", raw.Int(int64(20)))
	doc.Trailer = trailer
	return doc
}

func pageWithContents(doc *raw.Document, num int, content string) *raw.DictObj {
	dict := raw.Dict()
	dict.Set("Length", raw.Int(int64(len(content))))
	doc.Objects[raw.ObjectRef{Num: num}] = raw.NewStream(dict, []byte(content))

	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	page.Set("Contents", raw.Ref(num, 0))
	return page
}

func TestBuild_InheritedMediaBox(t *testing.T) {
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	doc := rawFixture(page)

	sem, err := NewBuilder().Build(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if sem.PageCount() != 1 {
		t.Fatalf("page count = %d", sem.PageCount())
	}
	box := sem.Pages[0].MediaBox
	if box.Width() != 600 || box.Height() != 800 {
		t.Fatalf("inherited MediaBox = %+v", box)
	}
	if sem.RootRef.Num != 1 || sem.PagesRef.Num != 2 {
		t.Fatalf("refs: root=%v pages=%v", sem.RootRef, sem.PagesRef)
	}
}

func TestBuild_PageOverridesMediaBox(t *testing.T) {
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	page.Set("MediaBox", raw.NewArray(raw.Int(0), raw.Int(0), raw.Int(300), raw.Int(400)))
	doc := rawFixture(page)

	sem, err := NewBuilder().Build(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if w := sem.Pages[0].MediaBox.Width(); w != 300 {
		t.Fatalf("page MediaBox width = %v, want override 300", w)
	}
}

func TestBuild_RotateNormalized(t *testing.T) {
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	page.Set("Rotate", raw.Int(-90))
	doc := rawFixture(page)

	sem, err := NewBuilder().Build(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	if got := sem.Pages[0].Rotate; got != 270 {
		t.Fatalf("Rotate = %d, want 270", got)
	}
}

func TestBuild_ContentsDecodedAndRefsKept(t *testing.T) {
	doc := rawFixture()
	page := pageWithContents(doc, 30, "BT (Hi) Tj ET")
	doc.Objects[raw.ObjectRef{Num: 10}] = page
	pages := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.DictObj)
	pages.Set("Kids", raw.NewArray(raw.Ref(10, 0)))
	pages.Set("Count", raw.Int(1))

	sem, err := NewBuilder().Build(context.Background(), doc)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	p := sem.Pages[0]
	if !strings.Contains(string(p.Contents), "(Hi) Tj") {
		t.Fatalf("contents = %q", p.Contents)
	}
	if len(p.ContentRefs) != 1 || p.ContentRefs[0].Num != 30 {
		t.Fatalf("content refs = %v", p.ContentRefs)
	}
}

func TestBuild_MissingMediaBoxFails(t *testing.T) {
	doc := rawFixture()
	pages := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.DictObj)
	delete(pages.KV, "MediaBox")
	page := raw.Dict()
	page.Set("Type", raw.Name("Page"))
	doc.Objects[raw.ObjectRef{Num: 10}] = page
	pages.Set("Kids", raw.NewArray(raw.Ref(10, 0)))
	pages.Set("Count", raw.Int(1))

	if _, err := NewBuilder().Build(context.Background(), doc); err == nil {
		t.Fatalf("expected error for page without MediaBox")
	}
}

func TestBuild_CyclicPageTreeFails(t *testing.T) {
	doc := rawFixture()
	pages := doc.Objects[raw.ObjectRef{Num: 2}].(*raw.DictObj)
	pages.Set("Kids", raw.NewArray(raw.Ref(2, 0)))

	if _, err := NewBuilder().Build(context.Background(), doc); err == nil {
		t.Fatalf("expected error for cyclic page tree")
	}
}
