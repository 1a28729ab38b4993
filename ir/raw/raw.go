// Package raw models the object layer of a PDF file: names, numbers,
// strings, arrays, dictionaries, streams and indirect references, plus
// the document container produced by the parser.
package raw

import (
	"context"
	"fmt"
	"io"
)

// ObjectRef uniquely identifies an indirect PDF object.
type ObjectRef struct {
	Num int
	Gen int
}

func (r ObjectRef) String() string { return fmt.Sprintf("%d %d R", r.Num, r.Gen) }

// Object is the base interface for all raw PDF objects.
type Object interface {
	Type() string
}

// Dictionary represents a PDF dictionary object.
type Dictionary interface {
	Object
	Get(key string) (Object, bool)
	Set(key string, value Object)
	Keys() []string
	Len() int
}

// Stream represents a raw (possibly encoded) PDF stream.
type Stream interface {
	Object
	Dictionary() Dictionary
	RawData() []byte
}

// Parser converts bytes into a raw Document.
type Parser interface {
	Parse(ctx context.Context, r io.ReaderAt) (*Document, error)
}

// Document is the root container for raw PDF objects.
type Document struct {
	Objects map[ObjectRef]Object
	Trailer Dictionary
	Version string // e.g. "1.7"
	// StartXRef is the byte offset of the last cross-reference section,
	// carried so incremental updates can chain onto it.
	StartXRef int64
}

// Resolve follows an indirect reference to its target object. Non-ref
// objects are returned unchanged; dangling references resolve to nil.
func (d *Document) Resolve(obj Object) Object {
	for depth := 0; depth < 32; depth++ {
		ref, ok := obj.(RefObj)
		if !ok {
			return obj
		}
		obj = d.Objects[ref.R]
		if obj == nil {
			return nil
		}
	}
	return nil
}

// ResolveDict resolves obj and asserts it is a dictionary.
func (d *Document) ResolveDict(obj Object) *DictObj {
	dict, _ := d.Resolve(obj).(*DictObj)
	return dict
}

// NextNum returns the first object number past every object in the
// document, honoring the trailer /Size when it is larger.
func (d *Document) NextNum() int {
	next := 1
	for ref := range d.Objects {
		if ref.Num >= next {
			next = ref.Num + 1
		}
	}
	if d.Trailer != nil {
		if size, ok := d.Trailer.Get("Size"); ok {
			if n, ok := size.(NumberObj); ok && int(n.Int()) > next {
				next = int(n.Int())
			}
		}
	}
	return next
}

// NameObj is a PDF name such as /Type.
type NameObj struct{ Val string }

func (n NameObj) Type() string  { return "name" }
func (n NameObj) Value() string { return n.Val }

// NumberObj is a PDF numeric value, integer or real.
type NumberObj struct {
	I     int64
	F     float64
	IsInt bool
}

func (n NumberObj) Type() string { return "number" }
func (n NumberObj) Int() int64   { return n.I }
func (n NumberObj) Float() float64 {
	if n.IsInt {
		return float64(n.I)
	}
	return n.F
}

// BoolObj is a PDF boolean.
type BoolObj struct{ V bool }

func (b BoolObj) Type() string { return "boolean" }

// NullObj is the PDF null object.
type NullObj struct{}

func (NullObj) Type() string { return "null" }

// StringObj is a PDF string. Hex reports whether the source used the
// hexadecimal form; Bytes always holds the decoded value.
type StringObj struct {
	Bytes []byte
	Hex   bool
}

func (s StringObj) Type() string  { return "string" }
func (s StringObj) Value() []byte { return s.Bytes }

// ArrayObj is a PDF array.
type ArrayObj struct{ Items []Object }

func (a *ArrayObj) Type() string { return "array" }
func (a *ArrayObj) Len() int     { return len(a.Items) }
func (a *ArrayObj) Get(i int) (Object, bool) {
	if i < 0 || i >= len(a.Items) {
		return nil, false
	}
	return a.Items[i], true
}
func (a *ArrayObj) Append(o Object) { a.Items = append(a.Items, o) }

// DictObj is a PDF dictionary.
type DictObj struct{ KV map[string]Object }

func (d *DictObj) Type() string { return "dict" }
func (d *DictObj) Get(key string) (Object, bool) {
	o, ok := d.KV[key]
	return o, ok
}
func (d *DictObj) Set(key string, value Object) {
	if d.KV == nil {
		d.KV = make(map[string]Object)
	}
	d.KV[key] = value
}
func (d *DictObj) Keys() []string {
	keys := make([]string, 0, len(d.KV))
	for k := range d.KV {
		keys = append(keys, k)
	}
	return keys
}
func (d *DictObj) Len() int { return len(d.KV) }

// Clone returns a shallow copy of the dictionary. Values are shared;
// the key set is independent so callers can overlay entries.
func (d *DictObj) Clone() *DictObj {
	out := Dict()
	for k, v := range d.KV {
		out.KV[k] = v
	}
	return out
}

// StreamObj is a PDF stream: a dictionary plus raw payload bytes.
type StreamObj struct {
	Dict *DictObj
	Data []byte
}

func (s *StreamObj) Type() string           { return "stream" }
func (s *StreamObj) Dictionary() Dictionary { return s.Dict }
func (s *StreamObj) RawData() []byte        { return s.Data }

// RefObj is an indirect object reference.
type RefObj struct{ R ObjectRef }

func (r RefObj) Type() string   { return "ref" }
func (r RefObj) Ref() ObjectRef { return r.R }

// Constructors.

func Name(v string) NameObj                           { return NameObj{Val: v} }
func Int(i int64) NumberObj                           { return NumberObj{I: i, IsInt: true} }
func Real(f float64) NumberObj                        { return NumberObj{F: f} }
func Bool(v bool) BoolObj                             { return BoolObj{V: v} }
func Str(b []byte) StringObj                          { return StringObj{Bytes: b} }
func NewArray(items ...Object) *ArrayObj              { return &ArrayObj{Items: items} }
func Dict() *DictObj                                  { return &DictObj{KV: make(map[string]Object)} }
func NewStream(dict *DictObj, data []byte) *StreamObj { return &StreamObj{Dict: dict, Data: data} }
func Ref(num, gen int) RefObj                         { return RefObj{R: ObjectRef{Num: num, Gen: gen}} }
