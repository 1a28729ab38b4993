// Package contentstream emits PDF content stream operators. It covers
// exactly the operations the annotation pipeline writes: text runs at
// a fixed transform with a solid fill.
package contentstream

import (
	"bytes"
	"fmt"
)

// Ops accumulates content stream operators.
type Ops struct {
	buf bytes.Buffer
}

// Save pushes the graphics state (q).
func (o *Ops) Save() *Ops {
	o.buf.WriteString("q\n")
	return o
}

// Restore pops the graphics state (Q).
func (o *Ops) Restore() *Ops {
	o.buf.WriteString("Q\n")
	return o
}

// BeginText starts a text object (BT).
func (o *Ops) BeginText() *Ops {
	o.buf.WriteString("BT\n")
	return o
}

// EndText ends a text object (ET).
func (o *Ops) EndText() *Ops {
	o.buf.WriteString("ET\n")
	return o
}

// SetFont selects the named font resource at the given size (Tf).
func (o *Ops) SetFont(name string, size float64) *Ops {
	fmt.Fprintf(&o.buf, "/%s %s Tf\n", name, num(size))
	return o
}

// SetFillGray sets the non-stroking gray level (g); 0 is black.
func (o *Ops) SetFillGray(gray float64) *Ops {
	fmt.Fprintf(&o.buf, "%s g\n", num(gray))
	return o
}

// SetTextMatrix sets the text matrix (Tm).
func (o *Ops) SetTextMatrix(a, b, c, d, e, f float64) *Ops {
	fmt.Fprintf(&o.buf, "%s %s %s %s %s %s Tm\n",
		num(a), num(b), num(c), num(d), num(e), num(f))
	return o
}

// ShowText shows a string (Tj).
func (o *Ops) ShowText(text string) *Ops {
	o.buf.Write(EscapeString([]byte(text)))
	o.buf.WriteString(" Tj\n")
	return o
}

// Bytes returns the accumulated operators.
func (o *Ops) Bytes() []byte { return o.buf.Bytes() }

// Len returns the accumulated length.
func (o *Ops) Len() int { return o.buf.Len() }

// EscapeString renders bytes as a parenthesized PDF literal string,
// escaping delimiters and non-printable bytes.
func EscapeString(s []byte) []byte {
	var out bytes.Buffer
	out.WriteByte('(')
	for _, b := range s {
		switch b {
		case '(', ')', '\\':
			out.WriteByte('\\')
			out.WriteByte(b)
		case '\n':
			out.WriteString(`\n`)
		case '\r':
			out.WriteString(`\r`)
		case '\t':
			out.WriteString(`\t`)
		default:
			if b < 0x20 || b == 0x7f {
				fmt.Fprintf(&out, `\%03o`, b)
			} else {
				out.WriteByte(b)
			}
		}
	}
	out.WriteByte(')')
	return out.Bytes()
}

// num formats a float the way PDF expects: no exponent, no trailing
// zero noise.
func num(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	s := fmt.Sprintf("%.4f", f)
	for len(s) > 0 && s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}
