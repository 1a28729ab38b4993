package scanner

import (
	"bytes"
	"testing"
)

func newScanner(t *testing.T, data string, cfg Config) Scanner {
	t.Helper()
	return New(bytes.NewReader([]byte(data)), cfg)
}

func nextToken(t *testing.T, s Scanner) Token {
	t.Helper()
	tok, err := s.Next()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return tok
}

func TestScanner_BasicTokens(t *testing.T) {
	s := newScanner(t, "1 0 obj\n<< /Name /Value /Nums [1 2.5 -3] /Flag true /Nothing null >>\nendobj", Config{})

	tok := nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected number 1, got %+v", tok)
	}
	tok = nextToken(t, s)
	if tok.Type != TokenNumber || !tok.IsInt || tok.Int != 0 {
		t.Fatalf("expected number 0, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "obj" {
		t.Fatalf("expected obj keyword, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenDict {
		t.Fatalf("expected dict start, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Name" {
		t.Fatalf("expected /Name, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Value" {
		t.Fatalf("expected /Value, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Nums" {
		t.Fatalf("expected /Nums, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenArray {
		t.Fatalf("expected array start, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsInt || tok.Int != 1 {
		t.Fatalf("expected 1, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.IsInt || tok.Float != 2.5 {
		t.Fatalf("expected 2.5, got %+v", tok)
	}
	if tok = nextToken(t, s); !tok.IsInt || tok.Int != -3 {
		t.Fatalf("expected -3, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenKeyword || tok.Str != "]" {
		t.Fatalf("expected array end, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Flag" {
		t.Fatalf("expected /Flag, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenBoolean || !tok.Bool {
		t.Fatalf("expected true, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Nothing" {
		t.Fatalf("expected /Nothing, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenNull {
		t.Fatalf("expected null, got %+v", tok)
	}
}

func TestScanner_FoldsReferences(t *testing.T) {
	s := newScanner(t, "/Parent 3 0 R /Count 2", Config{})

	if tok := nextToken(t, s); tok.Type != TokenName || tok.Str != "Parent" {
		t.Fatalf("expected /Parent, got %+v", tok)
	}
	tok := nextToken(t, s)
	if tok.Type != TokenRef || tok.Int != 3 || tok.Gen != 0 {
		t.Fatalf("expected ref 3 0 R, got %+v", tok)
	}
	if tok = nextToken(t, s); tok.Type != TokenName || tok.Str != "Count" {
		t.Fatalf("expected /Count, got %+v", tok)
	}
	// Two integers with no trailing R must come back as plain numbers.
	if tok = nextToken(t, s); tok.Type != TokenNumber || tok.Int != 2 {
		t.Fatalf("expected number 2, got %+v", tok)
	}
}

func TestScanner_LiteralStringEscapes(t *testing.T) {
	s := newScanner(t, `(ab\(c\)d\\e\n\101)`, Config{})
	tok := nextToken(t, s)
	if tok.Type != TokenString {
		t.Fatalf("expected string, got %+v", tok)
	}
	want := "ab(c)d\\e\nA"
	if string(tok.Bytes) != want {
		t.Fatalf("string decoded to %q, want %q", tok.Bytes, want)
	}
}

func TestScanner_NestedParens(t *testing.T) {
	s := newScanner(t, "(outer (inner) tail)", Config{})
	tok := nextToken(t, s)
	if string(tok.Bytes) != "outer (inner) tail" {
		t.Fatalf("nested string decoded to %q", tok.Bytes)
	}
}

func TestScanner_HexString(t *testing.T) {
	s := newScanner(t, "<48 65 6C6C 6F>", Config{})
	tok := nextToken(t, s)
	if tok.Type != TokenString || !tok.Hex {
		t.Fatalf("expected hex string, got %+v", tok)
	}
	if string(tok.Bytes) != "Hello" {
		t.Fatalf("hex string decoded to %q", tok.Bytes)
	}
}

func TestScanner_NameEscapes(t *testing.T) {
	s := newScanner(t, "/A#20B", Config{})
	tok := nextToken(t, s)
	if tok.Type != TokenName || tok.Str != "A B" {
		t.Fatalf("expected name 'A B', got %+v", tok)
	}
}

func TestScanner_StreamWithLengthHint(t *testing.T) {
	payload := "BT (Hi) Tj ET"
	s := newScanner(t, "stream\n"+payload+"\nendstream", Config{})
	s.SetNextStreamLength(int64(len(payload)))

	tok := nextToken(t, s)
	if tok.Type != TokenStream {
		t.Fatalf("expected stream token, got %+v", tok)
	}
	if string(tok.Bytes) != payload {
		t.Fatalf("stream payload %q, want %q", tok.Bytes, payload)
	}
}

func TestScanner_StreamWithoutHint(t *testing.T) {
	payload := "0 0 10 10 re f"
	s := newScanner(t, "stream\r\n"+payload+"\nendstream\n", Config{})

	tok := nextToken(t, s)
	if tok.Type != TokenStream {
		t.Fatalf("expected stream token, got %+v", tok)
	}
	if string(tok.Bytes) != payload {
		t.Fatalf("stream payload %q, want %q", tok.Bytes, payload)
	}
}

func TestScanner_CommentsSkipped(t *testing.T) {
	s := newScanner(t, "% header comment\n42 % trailing\n/Next", Config{})
	if tok := nextToken(t, s); tok.Int != 42 {
		t.Fatalf("expected 42, got %+v", tok)
	}
	if tok := nextToken(t, s); tok.Type != TokenName || tok.Str != "Next" {
		t.Fatalf("expected /Next, got %+v", tok)
	}
}

func TestScanner_SeekTo(t *testing.T) {
	data := "AAAA 7 BBBB"
	s := newScanner(t, data, Config{})
	if err := s.SeekTo(5); err != nil {
		t.Fatalf("seek: %v", err)
	}
	if tok := nextToken(t, s); tok.Type != TokenNumber || tok.Int != 7 {
		t.Fatalf("expected 7 after seek, got %+v", tok)
	}
}

func TestScanner_StringLengthLimit(t *testing.T) {
	s := newScanner(t, "(aaaaaaaaaa)", Config{MaxStringLength: 4})
	if _, err := s.Next(); err == nil {
		t.Fatalf("expected length limit error")
	}
}
