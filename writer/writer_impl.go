package writer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/annotview/annotview/contentstream"
	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/ir/semantic"
)

type impl struct{}

func (w *impl) Write(ctx context.Context, doc *semantic.Document, out io.Writer) error {
	if doc == nil || len(doc.Pages) == 0 {
		return errors.New("document has no pages")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	objects := make(map[raw.ObjectRef]raw.Object)
	next := 1
	alloc := func() raw.ObjectRef {
		ref := raw.ObjectRef{Num: next}
		next++
		return ref
	}

	catalogRef := alloc()
	pagesRef := alloc()
	fontRef := alloc()
	objects[fontRef] = annotationFontDict()

	kids := raw.NewArray()
	for _, p := range doc.Pages {
		contentRef := alloc()
		contentDict := raw.Dict()
		contentDict.Set("Length", raw.Int(int64(len(p.Contents))))
		objects[contentRef] = raw.NewStream(contentDict, p.Contents)

		pageRef := alloc()
		pageDict := raw.Dict()
		pageDict.Set("Type", raw.Name("Page"))
		pageDict.Set("Parent", raw.Ref(pagesRef.Num, 0))
		pageDict.Set("MediaBox", raw.NewArray(
			raw.Real(p.MediaBox.LLX), raw.Real(p.MediaBox.LLY),
			raw.Real(p.MediaBox.URX), raw.Real(p.MediaBox.URY)))
		if p.Rotate != 0 {
			pageDict.Set("Rotate", raw.Int(int64(p.Rotate)))
		}
		res := raw.Dict()
		fontRes := raw.Dict()
		fontRes.Set(AnnotationFontName, raw.Ref(fontRef.Num, 0))
		res.Set("Font", fontRes)
		pageDict.Set("Resources", res)
		pageDict.Set("Contents", raw.Ref(contentRef.Num, 0))
		objects[pageRef] = pageDict
		kids.Append(raw.Ref(pageRef.Num, 0))
	}

	pagesDict := raw.Dict()
	pagesDict.Set("Type", raw.Name("Pages"))
	pagesDict.Set("Count", raw.Int(int64(len(doc.Pages))))
	pagesDict.Set("Kids", kids)
	objects[pagesRef] = pagesDict

	catalogDict := raw.Dict()
	catalogDict.Set("Type", raw.Name("Catalog"))
	catalogDict.Set("Pages", raw.Ref(pagesRef.Num, 0))
	objects[catalogRef] = catalogDict

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.7\n%\xE2\xE3\xCF\xD3\n")
	entries := writeObjects(&buf, objects)
	xrefOffset := int64(buf.Len())
	writeXRef(&buf, entries, next-1)
	writeTrailer(&buf, next, catalogRef, 0, xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

func (w *impl) WriteIncremental(ctx context.Context, upd Update, out io.Writer) error {
	if len(upd.Original) == 0 {
		return errors.New("incremental update needs original bytes")
	}
	if len(upd.Objects) == 0 {
		return errors.New("incremental update has no objects")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var buf bytes.Buffer
	buf.Write(upd.Original)
	if upd.Original[len(upd.Original)-1] != '\n' {
		buf.WriteByte('\n')
	}

	entries := writeObjects(&buf, upd.Objects)
	xrefOffset := int64(buf.Len())

	// Group updated object numbers into contiguous subsections.
	nums := make([]int, 0, len(entries))
	for num := range entries {
		nums = append(nums, num)
	}
	sort.Ints(nums)

	buf.WriteString("xref\n")
	for i := 0; i < len(nums); {
		j := i
		for j+1 < len(nums) && nums[j+1] == nums[j]+1 {
			j++
		}
		fmt.Fprintf(&buf, "%d %d\n", nums[i], j-i+1)
		for k := i; k <= j; k++ {
			e := entries[nums[k]]
			fmt.Fprintf(&buf, "%010d %05d n \n", e.offset, e.gen)
		}
		i = j + 1
	}

	writeTrailer(&buf, upd.Size, upd.Root, upd.Prev, xrefOffset)

	_, err := out.Write(buf.Bytes())
	return err
}

// xrefEntry records where an object was written and at which
// generation, so the xref line matches the object header.
type xrefEntry struct {
	offset int64
	gen    int
}

// writeObjects serializes objects in ascending number order and
// returns the xref entry of each.
func writeObjects(buf *bytes.Buffer, objects map[raw.ObjectRef]raw.Object) map[int]xrefEntry {
	ordered := make([]raw.ObjectRef, 0, len(objects))
	for ref := range objects {
		ordered = append(ordered, ref)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Num < ordered[j].Num })

	entries := make(map[int]xrefEntry, len(ordered))
	for _, ref := range ordered {
		entries[ref.Num] = xrefEntry{offset: int64(buf.Len()), gen: ref.Gen}
		buf.Write(serializeObject(ref, objects[ref]))
	}
	return entries
}

func writeXRef(buf *bytes.Buffer, entries map[int]xrefEntry, maxNum int) {
	fmt.Fprintf(buf, "xref\n0 %d\n", maxNum+1)
	buf.WriteString("0000000000 65535 f \n")
	for i := 1; i <= maxNum; i++ {
		if e, ok := entries[i]; ok {
			fmt.Fprintf(buf, "%010d %05d n \n", e.offset, e.gen)
		} else {
			buf.WriteString("0000000000 65535 f \n")
		}
	}
}

func writeTrailer(buf *bytes.Buffer, size int, root raw.ObjectRef, prev int64, xrefOffset int64) {
	buf.WriteString("trailer\n<< /Size ")
	fmt.Fprintf(buf, "%d /Root %d %d R", size, root.Num, root.Gen)
	if prev > 0 {
		fmt.Fprintf(buf, " /Prev %d", prev)
	}
	fmt.Fprintf(buf, " >>\nstartxref\n%d\n%%%%EOF\n", xrefOffset)
}

func annotationFontDict() *raw.DictObj {
	d := raw.Dict()
	d.Set("Type", raw.Name("Font"))
	d.Set("Subtype", raw.Name("Type1"))
	d.Set("BaseFont", raw.Name(AnnotationFontBase))
	return d
}

// AnnotationFont returns the font dictionary registered for burned-in
// annotation text.
func AnnotationFont() *raw.DictObj { return annotationFontDict() }

func serializeObject(ref raw.ObjectRef, obj raw.Object) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%d %d obj\n", ref.Num, ref.Gen)
	buf.Write(serializePrimitive(obj))
	buf.WriteString("\nendobj\n")
	return buf.Bytes()
}

func serializePrimitive(o raw.Object) []byte {
	switch v := o.(type) {
	case raw.NameObj:
		return []byte("/" + v.Val)
	case raw.NumberObj:
		if v.IsInt {
			return []byte(fmt.Sprintf("%d", v.I))
		}
		return []byte(formatReal(v.F))
	case raw.BoolObj:
		if v.V {
			return []byte("true")
		}
		return []byte("false")
	case raw.NullObj:
		return []byte("null")
	case raw.StringObj:
		return contentstream.EscapeString(v.Bytes)
	case raw.RefObj:
		return []byte(fmt.Sprintf("%d %d R", v.R.Num, v.R.Gen))
	case *raw.ArrayObj:
		var b bytes.Buffer
		b.WriteByte('[')
		for i, it := range v.Items {
			if i > 0 {
				b.WriteByte(' ')
			}
			b.Write(serializePrimitive(it))
		}
		b.WriteByte(']')
		return b.Bytes()
	case *raw.DictObj:
		var b bytes.Buffer
		b.WriteString("<<")
		keys := v.Keys()
		sort.Strings(keys)
		for _, k := range keys {
			b.WriteString(" /" + k + " ")
			b.Write(serializePrimitive(v.KV[k]))
		}
		b.WriteString(" >>")
		return b.Bytes()
	case *raw.StreamObj:
		var b bytes.Buffer
		b.Write(serializePrimitive(v.Dict))
		b.WriteString("\nstream\n")
		b.Write(v.Data)
		b.WriteString("\nendstream")
		return b.Bytes()
	default:
		return []byte("null")
	}
}

func formatReal(f float64) string {
	s := fmt.Sprintf("%.4f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
