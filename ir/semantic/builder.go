package semantic

import (
	"context"
	"errors"
	"fmt"

	"github.com/annotview/annotview/filters"
	"github.com/annotview/annotview/ir/raw"
)

// NewBuilder returns a builder that walks the page tree and decodes
// content streams with the default filter pipeline.
func NewBuilder() Builder {
	return &builderImpl{filters: filters.NewDefaultPipeline()}
}

type builderImpl struct {
	filters *filters.Pipeline
}

// inherited carries the page attributes that flow down the page tree.
type inherited struct {
	mediaBox  *Rectangle
	rotate    *int
	resources *raw.DictObj
}

func (b *builderImpl) Build(ctx context.Context, rawDoc *raw.Document) (*Document, error) {
	if rawDoc == nil || rawDoc.Trailer == nil {
		return nil, errors.New("document has no trailer")
	}
	rootObj, ok := rawDoc.Trailer.Get("Root")
	if !ok {
		return nil, errors.New("trailer has no Root")
	}
	rootRef, ok := rootObj.(raw.RefObj)
	if !ok {
		return nil, errors.New("trailer Root is not a reference")
	}
	catalog := rawDoc.ResolveDict(rootObj)
	if catalog == nil {
		return nil, errors.New("catalog missing")
	}
	pagesObj, ok := catalog.Get("Pages")
	if !ok {
		return nil, errors.New("catalog has no Pages")
	}
	pagesRef, _ := pagesObj.(raw.RefObj)

	doc := &Document{Raw: rawDoc, RootRef: rootRef.R, PagesRef: pagesRef.R}
	if err := b.walkPages(ctx, rawDoc, pagesObj, inherited{}, doc, make(map[raw.ObjectRef]bool)); err != nil {
		return nil, err
	}
	return doc, nil
}

func (b *builderImpl) walkPages(ctx context.Context, rawDoc *raw.Document, node raw.Object, inh inherited, doc *Document, visited map[raw.ObjectRef]bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var nodeRef raw.ObjectRef
	if ref, ok := node.(raw.RefObj); ok {
		if visited[ref.R] {
			return errors.New("cyclic page tree")
		}
		visited[ref.R] = true
		nodeRef = ref.R
	}
	dict := rawDoc.ResolveDict(node)
	if dict == nil {
		return errors.New("page tree node is not a dictionary")
	}

	if box := rectFrom(rawDoc, dict, "MediaBox"); box != nil {
		inh.mediaBox = box
	}
	if rot, ok := intFrom(rawDoc, dict, "Rotate"); ok {
		inh.rotate = &rot
	}
	if resObj, ok := dict.Get("Resources"); ok {
		if res := rawDoc.ResolveDict(resObj); res != nil {
			inh.resources = res
		}
	}

	typeName := ""
	if t, ok := dict.Get("Type"); ok {
		if n, ok := t.(raw.NameObj); ok {
			typeName = n.Val
		}
	}

	if typeName == "Pages" || (typeName == "" && hasKey(dict, "Kids")) {
		kidsObj, ok := dict.Get("Kids")
		if !ok {
			return errors.New("pages node has no Kids")
		}
		kids, ok := rawDoc.Resolve(kidsObj).(*raw.ArrayObj)
		if !ok {
			return errors.New("Kids is not an array")
		}
		for _, kid := range kids.Items {
			if err := b.walkPages(ctx, rawDoc, kid, inh, doc, visited); err != nil {
				return err
			}
		}
		return nil
	}

	// Leaf page.
	page := &Page{
		Index:     len(doc.Pages),
		Ref:       nodeRef,
		Dict:      dict,
		Resources: inh.resources,
	}
	if inh.mediaBox == nil {
		return fmt.Errorf("page %d has no MediaBox", page.Index+1)
	}
	page.MediaBox = *inh.mediaBox
	if inh.rotate != nil {
		page.Rotate = ((*inh.rotate % 360) + 360) % 360
	}

	contents, refs, err := b.pageContents(rawDoc, dict)
	if err != nil {
		return fmt.Errorf("page %d contents: %w", page.Index+1, err)
	}
	page.Contents = contents
	page.ContentRefs = refs

	doc.Pages = append(doc.Pages, page)
	return nil
}

// pageContents decodes and concatenates the page's content streams.
func (b *builderImpl) pageContents(rawDoc *raw.Document, page *raw.DictObj) ([]byte, []raw.ObjectRef, error) {
	obj, ok := page.Get("Contents")
	if !ok {
		return nil, nil, nil
	}

	var refs []raw.ObjectRef
	var streams []raw.Stream
	collect := func(o raw.Object) error {
		if ref, ok := o.(raw.RefObj); ok {
			refs = append(refs, ref.R)
		}
		st, ok := rawDoc.Resolve(o).(raw.Stream)
		if !ok {
			return errors.New("content entry is not a stream")
		}
		streams = append(streams, st)
		return nil
	}

	switch v := rawDoc.Resolve(obj).(type) {
	case *raw.ArrayObj:
		for _, item := range v.Items {
			if err := collect(item); err != nil {
				return nil, nil, err
			}
		}
	case raw.Stream:
		if err := collect(obj); err != nil {
			return nil, nil, err
		}
	default:
		return nil, nil, errors.New("Contents is neither stream nor array")
	}

	var out []byte
	for _, st := range streams {
		data, err := b.filters.DecodeStream(st, rawDoc.Resolve)
		if err != nil {
			return nil, nil, err
		}
		out = append(out, data...)
		out = append(out, '\n')
	}
	return out, refs, nil
}

func rectFrom(rawDoc *raw.Document, dict *raw.DictObj, key string) *Rectangle {
	obj, ok := dict.Get(key)
	if !ok {
		return nil
	}
	arr, ok := rawDoc.Resolve(obj).(*raw.ArrayObj)
	if !ok || arr.Len() < 4 {
		return nil
	}
	vals := make([]float64, 4)
	for i := 0; i < 4; i++ {
		item, _ := arr.Get(i)
		n, ok := rawDoc.Resolve(item).(raw.NumberObj)
		if !ok {
			return nil
		}
		vals[i] = n.Float()
	}
	r := Rectangle{LLX: vals[0], LLY: vals[1], URX: vals[2], URY: vals[3]}
	if r.LLX > r.URX {
		r.LLX, r.URX = r.URX, r.LLX
	}
	if r.LLY > r.URY {
		r.LLY, r.URY = r.URY, r.LLY
	}
	return &r
}

func intFrom(rawDoc *raw.Document, dict *raw.DictObj, key string) (int, bool) {
	obj, ok := dict.Get(key)
	if !ok {
		return 0, false
	}
	n, ok := rawDoc.Resolve(obj).(raw.NumberObj)
	if !ok {
		return 0, false
	}
	return int(n.Int()), true
}

func hasKey(d *raw.DictObj, key string) bool {
	_, ok := d.Get(key)
	return ok
}
