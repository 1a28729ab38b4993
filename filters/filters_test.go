package filters

import (
	"bytes"
	"compress/zlib"
	"strings"
	"testing"

	"github.com/annotview/annotview/ir/raw"
)

func zlibCompress(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(data); err != nil {
		t.Fatalf("compress: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	return buf.Bytes()
}

func TestFlateDecoder_ZlibWrapped(t *testing.T) {
	want := []byte("BT /F1 12 Tf (Hello) Tj ET")
	got, err := NewFlateDecoder().Decode(zlibCompress(t, want))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Fatalf("decoded %q, want %q", got, want)
	}
}

func TestASCIIHexDecoder(t *testing.T) {
	got, err := NewASCIIHexDecoder().Decode([]byte("48 65 6C 6C 6F>"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "Hello" {
		t.Fatalf("decoded %q", got)
	}
}

func TestASCIIHexDecoder_OddDigits(t *testing.T) {
	// A trailing odd digit is padded with zero.
	got, err := NewASCIIHexDecoder().Decode([]byte("7>"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(got) != 1 || got[0] != 0x70 {
		t.Fatalf("decoded % x", got)
	}
}

func TestASCII85Decoder(t *testing.T) {
	got, err := NewASCII85Decoder().Decode([]byte("<~87cUR~>"))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if string(got) != "Hell" {
		t.Fatalf("decoded %q", got)
	}
}

func TestPipeline_UnknownFilter(t *testing.T) {
	_, err := NewDefaultPipeline().Decode([]byte("x"), []string{"JPXDecode"})
	if err == nil || !strings.Contains(err.Error(), "unsupported filter") {
		t.Fatalf("expected unsupported filter error, got %v", err)
	}
}

func TestDecodeStream_FilterChain(t *testing.T) {
	payload := []byte("q 0 g Q")
	dict := raw.Dict()
	dict.Set("Filter", raw.Name("FlateDecode"))
	st := raw.NewStream(dict, zlibCompress(t, payload))

	got, err := NewDefaultPipeline().DecodeStream(st, nil)
	if err != nil {
		t.Fatalf("decode stream: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}

func TestDecodeStream_NoFilterPassthrough(t *testing.T) {
	payload := []byte("raw bytes")
	st := raw.NewStream(raw.Dict(), payload)
	got, err := NewDefaultPipeline().DecodeStream(st, nil)
	if err != nil {
		t.Fatalf("decode stream: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want passthrough %q", got, payload)
	}
}

func TestDecodeStream_IndirectFilterName(t *testing.T) {
	payload := []byte("content")
	dict := raw.Dict()
	dict.Set("Filter", raw.Ref(5, 0))
	st := raw.NewStream(dict, zlibCompress(t, payload))

	resolve := func(o raw.Object) raw.Object {
		if ref, ok := o.(raw.RefObj); ok && ref.R.Num == 5 {
			return raw.Name("FlateDecode")
		}
		return o
	}
	got, err := NewDefaultPipeline().DecodeStream(st, resolve)
	if err != nil {
		t.Fatalf("decode stream: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("decoded %q, want %q", got, payload)
	}
}
