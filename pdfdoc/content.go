package pdfdoc

import (
	"bytes"
	"errors"
	"io"
	"unicode/utf16"

	"github.com/annotview/annotview/coords"
	"github.com/annotview/annotview/document"
	"github.com/annotview/annotview/scanner"
)

// textState is the subset of the content stream machine that places
// text: the text and line matrices, the current transform, font size
// and leading.
type textState struct {
	tm      coords.Matrix
	tlm     coords.Matrix
	ctm     coords.Matrix
	size    float64
	leading float64
}

// extractTextSpans interprets a decoded content stream and returns the
// positioned text runs in intrinsic top-left coordinates. pageHeight
// performs the flip out of PDF's bottom-left space.
func extractTextSpans(contents []byte, pageHeight float64) ([]document.TextSpan, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	sc := scanner.New(bytes.NewReader(contents), scanner.Config{})
	flip := coords.Matrix{1, 0, 0, -1, 0, pageHeight}

	st := textState{tm: coords.Identity(), tlm: coords.Identity(), ctm: coords.Identity(), size: 12}
	var gsStack []textState
	var operands []scanner.Token
	var spans []document.TextSpan

	emit := func(raw []byte) {
		text := decodeTextString(raw)
		if text == "" {
			return
		}
		m := coords.Scale(st.size, st.size).Multiply(st.tm).Multiply(st.ctm).Multiply(flip)
		spans = append(spans, document.TextSpan{Text: text, Matrix: m})
	}

	nextLine := func(tx, ty float64) {
		st.tlm = coords.Translate(tx, ty).Multiply(st.tlm)
		st.tm = st.tlm
	}

	for {
		tok, err := sc.Next()
		if errors.Is(err, io.EOF) {
			return spans, nil
		}
		if err != nil {
			// Content streams from damaged files can trail off mid-token;
			// keep whatever was extracted so far.
			return spans, nil
		}
		if tok.Type != scanner.TokenKeyword || tok.Str == "]" {
			// Array closers keep their elements on the operand stack for
			// the TJ operator that follows.
			if tok.Type != scanner.TokenKeyword {
				operands = append(operands, tok)
			}
			continue
		}

		switch tok.Str {
		case "BT":
			st.tm = coords.Identity()
			st.tlm = coords.Identity()
		case "ET":
			// nothing to do
		case "q":
			gsStack = append(gsStack, st)
		case "Q":
			if n := len(gsStack); n > 0 {
				st = gsStack[n-1]
				gsStack = gsStack[:n-1]
			}
		case "cm":
			if m, ok := matrixOperands(operands); ok {
				st.ctm = m.Multiply(st.ctm)
			}
		case "Tf":
			if n, ok := lastNumber(operands, 0); ok {
				st.size = n
			}
		case "TL":
			if n, ok := lastNumber(operands, 0); ok {
				st.leading = n
			}
		case "Tm":
			if m, ok := matrixOperands(operands); ok {
				st.tm = m
				st.tlm = m
			}
		case "Td":
			if ty, ok := lastNumber(operands, 0); ok {
				tx, _ := lastNumber(operands, 1)
				nextLine(tx, ty)
			}
		case "TD":
			if ty, ok := lastNumber(operands, 0); ok {
				tx, _ := lastNumber(operands, 1)
				st.leading = -ty
				nextLine(tx, ty)
			}
		case "T*":
			nextLine(0, -st.leading)
		case "Tj":
			if s, ok := lastString(operands); ok {
				emit(s)
			}
		case "'":
			nextLine(0, -st.leading)
			if s, ok := lastString(operands); ok {
				emit(s)
			}
		case "\"":
			nextLine(0, -st.leading)
			if s, ok := lastString(operands); ok {
				emit(s)
			}
		case "TJ":
			// Show every string element; kerning adjustments between
			// them do not move the span anchor.
			for _, op := range operands {
				if op.Type == scanner.TokenString {
					emit(op.Bytes)
				}
			}
		}
		operands = operands[:0]
	}
}

func matrixOperands(ops []scanner.Token) (coords.Matrix, bool) {
	var nums []float64
	for _, op := range ops {
		if op.Type == scanner.TokenNumber {
			nums = append(nums, numValue(op))
		}
	}
	if len(nums) < 6 {
		return coords.Matrix{}, false
	}
	nums = nums[len(nums)-6:]
	return coords.Matrix{nums[0], nums[1], nums[2], nums[3], nums[4], nums[5]}, true
}

// lastNumber returns the n-th numeric operand counted from the end.
func lastNumber(ops []scanner.Token, fromEnd int) (float64, bool) {
	seen := 0
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Type != scanner.TokenNumber {
			continue
		}
		if seen == fromEnd {
			return numValue(ops[i]), true
		}
		seen++
	}
	return 0, false
}

func lastString(ops []scanner.Token) ([]byte, bool) {
	for i := len(ops) - 1; i >= 0; i-- {
		if ops[i].Type == scanner.TokenString {
			return ops[i].Bytes, true
		}
	}
	return nil, false
}

func numValue(t scanner.Token) float64 {
	if t.IsInt {
		return float64(t.Int)
	}
	return t.Float
}

// decodeTextString converts PDF string bytes to UTF-8. Strings with a
// UTF-16BE byte order mark decode as such; everything else is treated
// as Latin-1, which covers the standard single-byte encodings well
// enough for span matching.
func decodeTextString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		u16 := make([]uint16, 0, (len(b)-2)/2)
		for i := 2; i+1 < len(b); i += 2 {
			u16 = append(u16, uint16(b[i])<<8|uint16(b[i+1]))
		}
		return string(utf16.Decode(u16))
	}
	runes := make([]rune, len(b))
	for i, c := range b {
		runes[i] = rune(c)
	}
	return string(runes)
}
