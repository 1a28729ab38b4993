// Package filters decodes PDF stream encodings. Only the filters the
// viewing pipeline actually meets are implemented: FlateDecode,
// ASCIIHexDecode and ASCII85Decode. Unknown filters fail loudly so a
// page renders as an error instead of as garbage.
package filters

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"encoding/ascii85"
	"encoding/hex"
	"fmt"
	"io"
	"strings"

	"github.com/annotview/annotview/ir/raw"
)

// Decoder decodes one stream filter.
type Decoder interface {
	Name() string
	Decode(data []byte) ([]byte, error)
}

// Limits bounds decode output.
type Limits struct {
	MaxDecodedSize int64 // 0 means DefaultMaxDecodedSize
}

const DefaultMaxDecodedSize = 512 << 20

// Pipeline applies a chain of named filters.
type Pipeline struct {
	decoders map[string]Decoder
	limits   Limits
}

// NewPipeline builds a pipeline from the given decoders.
func NewPipeline(decoders []Decoder, limits Limits) *Pipeline {
	if limits.MaxDecodedSize <= 0 {
		limits.MaxDecodedSize = DefaultMaxDecodedSize
	}
	m := make(map[string]Decoder, len(decoders))
	for _, d := range decoders {
		m[d.Name()] = d
	}
	return &Pipeline{decoders: m, limits: limits}
}

// NewDefaultPipeline returns a pipeline with all built-in decoders.
func NewDefaultPipeline() *Pipeline {
	return NewPipeline([]Decoder{
		NewFlateDecoder(),
		NewASCIIHexDecoder(),
		NewASCII85Decoder(),
	}, Limits{})
}

// Decode applies the named filters in order.
func (p *Pipeline) Decode(data []byte, names []string) ([]byte, error) {
	for _, name := range names {
		d, ok := p.decoders[name]
		if !ok {
			return nil, fmt.Errorf("unsupported filter %s", name)
		}
		out, err := d.Decode(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if int64(len(out)) > p.limits.MaxDecodedSize {
			return nil, fmt.Errorf("%s: decoded size exceeds limit", name)
		}
		data = out
	}
	return data, nil
}

// DecodeStream decodes a stream object's payload using its /Filter
// entry. resolve maps indirect references to their targets.
func (p *Pipeline) DecodeStream(st raw.Stream, resolve func(raw.Object) raw.Object) ([]byte, error) {
	dict := st.Dictionary()
	data := st.RawData()
	if dict == nil {
		return data, nil
	}
	fObj, ok := dict.Get("Filter")
	if !ok {
		return data, nil
	}
	if resolve != nil {
		fObj = resolve(fObj)
	}
	var names []string
	switch v := fObj.(type) {
	case raw.NameObj:
		names = []string{v.Val}
	case *raw.ArrayObj:
		for _, it := range v.Items {
			if resolve != nil {
				it = resolve(it)
			}
			if n, ok := it.(raw.NameObj); ok {
				names = append(names, n.Val)
			}
		}
	}
	return p.Decode(data, names)
}

type flateDecoder struct{}

// NewFlateDecoder returns a FlateDecode decoder. PDF FlateDecode is
// zlib-wrapped deflate; some producers emit bare deflate, so that is
// accepted as a fallback.
func NewFlateDecoder() Decoder { return flateDecoder{} }

func (flateDecoder) Name() string { return "FlateDecode" }

func (flateDecoder) Decode(data []byte) ([]byte, error) {
	zr, err := zlib.NewReader(bytes.NewReader(data))
	if err == nil {
		defer zr.Close()
		out, err := io.ReadAll(zr)
		if err == nil {
			return out, nil
		}
	}
	fr := flate.NewReader(bytes.NewReader(data))
	defer fr.Close()
	out, err := io.ReadAll(fr)
	if err != nil {
		return nil, fmt.Errorf("inflate: %w", err)
	}
	return out, nil
}

type asciiHexDecoder struct{}

// NewASCIIHexDecoder returns an ASCIIHexDecode decoder.
func NewASCIIHexDecoder() Decoder { return asciiHexDecoder{} }

func (asciiHexDecoder) Name() string { return "ASCIIHexDecode" }

func (asciiHexDecoder) Decode(data []byte) ([]byte, error) {
	text := string(data)
	if i := strings.IndexByte(text, '>'); i >= 0 {
		text = text[:i]
	}
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '\t', '\n', '\r', '\f', 0:
			return -1
		}
		return r
	}, text)
	if len(cleaned)%2 == 1 {
		cleaned += "0"
	}
	out, err := hex.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("ascii hex: %w", err)
	}
	return out, nil
}

type ascii85Decoder struct{}

// NewASCII85Decoder returns an ASCII85Decode decoder.
func NewASCII85Decoder() Decoder { return ascii85Decoder{} }

func (ascii85Decoder) Name() string { return "ASCII85Decode" }

func (ascii85Decoder) Decode(data []byte) ([]byte, error) {
	trimmed := bytes.TrimSpace(data)
	trimmed = bytes.TrimPrefix(trimmed, []byte("<~"))
	trimmed = bytes.TrimSuffix(trimmed, []byte("~>"))
	dec := ascii85.NewDecoder(bytes.NewReader(trimmed))
	out, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("ascii85: %w", err)
	}
	return out, nil
}
