// Package scanner tokenizes PDF syntax from an io.ReaderAt. It is the
// lowest layer of the parse pipeline; the parser assembles its tokens
// into raw objects.
package scanner

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
)

// TokenType classifies a scanned token.
type TokenType int

const (
	TokenNumber TokenType = iota
	TokenName
	TokenString
	TokenKeyword
	TokenBoolean
	TokenNull
	TokenArray  // "["; the matching "]" surfaces as a keyword
	TokenDict   // "<<"; the matching ">>" surfaces as a keyword
	TokenRef    // folded "N G R" sequence
	TokenStream // stream payload following a stream keyword
)

// Token is one lexical unit of PDF syntax.
type Token struct {
	Type  TokenType
	Str   string  // keyword or name text
	Bytes []byte  // decoded string or stream payload
	Int   int64   // integer value, or ref object number
	Gen   int     // ref generation number
	Float float64 // real value
	IsInt bool
	Bool  bool
	Hex   bool // string used hexadecimal form
}

// Config bounds scanner resource usage.
type Config struct {
	MaxStringLength int   // 0 means DefaultMaxStringLength
	MaxStreamLength int64 // 0 means DefaultMaxStreamLength
}

const (
	DefaultMaxStringLength = 1 << 20
	DefaultMaxStreamLength = 256 << 20
)

// Scanner produces tokens from PDF syntax.
type Scanner interface {
	Next() (Token, error)
	SeekTo(offset int64) error
	// SetNextStreamLength hints the payload size of the next stream
	// keyword so the scanner can read it without searching for the
	// endstream marker. Negative clears the hint.
	SetNextStreamLength(n int64)
}

// New returns a Scanner reading from r starting at offset zero.
func New(r io.ReaderAt, cfg Config) Scanner {
	if cfg.MaxStringLength <= 0 {
		cfg.MaxStringLength = DefaultMaxStringLength
	}
	if cfg.MaxStreamLength <= 0 {
		cfg.MaxStreamLength = DefaultMaxStreamLength
	}
	s := &scanner{src: r, cfg: cfg, streamLen: -1}
	s.reset(0)
	return s
}

type scanner struct {
	src       io.ReaderAt
	cfg       Config
	br        *bufio.Reader
	offset    int64 // absolute offset of the next unread byte
	pending   []Token
	streamLen int64
}

func (s *scanner) reset(offset int64) {
	s.br = bufio.NewReader(io.NewSectionReader(s.src, offset, math.MaxInt64-offset))
	s.offset = offset
	s.pending = nil
}

func (s *scanner) SeekTo(offset int64) error {
	if offset < 0 {
		return fmt.Errorf("negative seek offset %d", offset)
	}
	s.reset(offset)
	return nil
}

func (s *scanner) SetNextStreamLength(n int64) { s.streamLen = n }

func (s *scanner) readByte() (byte, error) {
	b, err := s.br.ReadByte()
	if err == nil {
		s.offset++
	}
	return b, err
}

func (s *scanner) unreadByte() {
	if err := s.br.UnreadByte(); err == nil {
		s.offset--
	}
}

func isWhitespace(b byte) bool {
	switch b {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isDelimiter(b byte) bool {
	switch b {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func isRegular(b byte) bool { return !isWhitespace(b) && !isDelimiter(b) }

// Next returns the next token, folding "N G R" integer triples into a
// single TokenRef.
func (s *scanner) Next() (Token, error) {
	if len(s.pending) > 0 {
		tok := s.pending[0]
		s.pending = s.pending[1:]
		return tok, nil
	}
	tok, err := s.scanOne()
	if err != nil {
		return Token{}, err
	}
	if tok.Type != TokenNumber || !tok.IsInt {
		return tok, nil
	}
	// Possible indirect reference. Look ahead two tokens.
	second, err := s.scanOne()
	if err != nil {
		return tok, nil // surface the error on the following Next call
	}
	if second.Type != TokenNumber || !second.IsInt {
		s.pending = append(s.pending, second)
		return tok, nil
	}
	third, err := s.scanOne()
	if err != nil {
		s.pending = append(s.pending, second)
		return tok, nil
	}
	if third.Type == TokenKeyword && third.Str == "R" {
		return Token{Type: TokenRef, Int: tok.Int, Gen: int(second.Int)}, nil
	}
	s.pending = append(s.pending, second, third)
	return tok, nil
}

func (s *scanner) scanOne() (Token, error) {
	if err := s.skipSpace(); err != nil {
		return Token{}, err
	}
	b, err := s.readByte()
	if err != nil {
		return Token{}, err
	}
	switch {
	case b == '/':
		return s.scanName()
	case b == '(':
		return s.scanLiteralString()
	case b == '<':
		nb, err := s.readByte()
		if err != nil {
			return Token{}, errors.New("unterminated hex string")
		}
		if nb == '<' {
			return Token{Type: TokenDict}, nil
		}
		s.unreadByte()
		return s.scanHexString()
	case b == '>':
		nb, err := s.readByte()
		if err != nil || nb != '>' {
			return Token{}, errors.New("stray > in input")
		}
		return Token{Type: TokenKeyword, Str: ">>"}, nil
	case b == '[':
		return Token{Type: TokenArray}, nil
	case b == ']':
		return Token{Type: TokenKeyword, Str: "]"}, nil
	case b == '{' || b == '}':
		return Token{Type: TokenKeyword, Str: string(b)}, nil
	case b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9'):
		s.unreadByte()
		return s.scanNumber()
	default:
		s.unreadByte()
		return s.scanKeyword()
	}
}

func (s *scanner) skipSpace() error {
	for {
		b, err := s.readByte()
		if err != nil {
			return err
		}
		if isWhitespace(b) {
			continue
		}
		if b == '%' { // comment runs to end of line
			for {
				c, err := s.readByte()
				if err != nil {
					return err
				}
				if c == '\n' || c == '\r' {
					break
				}
			}
			continue
		}
		s.unreadByte()
		return nil
	}
}

func (s *scanner) scanName() (Token, error) {
	var out []byte
	for {
		b, err := s.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if !isRegular(b) {
			s.unreadByte()
			break
		}
		if b == '#' {
			h1, err1 := s.readByte()
			h2, err2 := s.readByte()
			if err1 != nil || err2 != nil {
				return Token{}, errors.New("truncated name escape")
			}
			v, err := strconv.ParseUint(string([]byte{h1, h2}), 16, 8)
			if err != nil {
				return Token{}, fmt.Errorf("invalid name escape #%c%c", h1, h2)
			}
			out = append(out, byte(v))
			continue
		}
		out = append(out, b)
	}
	return Token{Type: TokenName, Str: string(out)}, nil
}

func (s *scanner) scanNumber() (Token, error) {
	var out []byte
	for {
		b, err := s.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if b == '+' || b == '-' || b == '.' || (b >= '0' && b <= '9') {
			out = append(out, b)
			continue
		}
		s.unreadByte()
		break
	}
	text := string(out)
	if i, err := strconv.ParseInt(text, 10, 64); err == nil {
		return Token{Type: TokenNumber, Int: i, IsInt: true}, nil
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Token{}, fmt.Errorf("invalid number %q", text)
	}
	return Token{Type: TokenNumber, Float: f}, nil
}

func (s *scanner) scanLiteralString() (Token, error) {
	var out []byte
	depth := 1
	for {
		if len(out) > s.cfg.MaxStringLength {
			return Token{}, errors.New("string exceeds length limit")
		}
		b, err := s.readByte()
		if err != nil {
			return Token{}, errors.New("unterminated string")
		}
		switch b {
		case '(':
			depth++
			out = append(out, b)
		case ')':
			depth--
			if depth == 0 {
				return Token{Type: TokenString, Bytes: out}, nil
			}
			out = append(out, b)
		case '\\':
			e, err := s.readByte()
			if err != nil {
				return Token{}, errors.New("unterminated string escape")
			}
			switch e {
			case 'n':
				out = append(out, '\n')
			case 'r':
				out = append(out, '\r')
			case 't':
				out = append(out, '\t')
			case 'b':
				out = append(out, '\b')
			case 'f':
				out = append(out, '\f')
			case '(', ')', '\\':
				out = append(out, e)
			case '\r':
				// line continuation; swallow an optional following \n
				if nb, err := s.readByte(); err == nil && nb != '\n' {
					s.unreadByte()
				}
			case '\n':
				// line continuation
			default:
				if e >= '0' && e <= '7' {
					v := int(e - '0')
					for i := 0; i < 2; i++ {
						d, err := s.readByte()
						if err != nil {
							break
						}
						if d < '0' || d > '7' {
							s.unreadByte()
							break
						}
						v = v*8 + int(d-'0')
					}
					out = append(out, byte(v))
				} else {
					out = append(out, e)
				}
			}
		default:
			out = append(out, b)
		}
	}
}

func (s *scanner) scanHexString() (Token, error) {
	var digits []byte
	for {
		b, err := s.readByte()
		if err != nil {
			return Token{}, errors.New("unterminated hex string")
		}
		if b == '>' {
			break
		}
		if isWhitespace(b) {
			continue
		}
		digits = append(digits, b)
		if len(digits) > 2*s.cfg.MaxStringLength {
			return Token{}, errors.New("hex string exceeds length limit")
		}
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}
	out := make([]byte, len(digits)/2)
	for i := 0; i < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			return Token{}, fmt.Errorf("invalid hex digit pair %q", digits[i:i+2])
		}
		out[i/2] = byte(v)
	}
	return Token{Type: TokenString, Bytes: out, Hex: true}, nil
}

func (s *scanner) scanKeyword() (Token, error) {
	var out []byte
	for {
		b, err := s.readByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return Token{}, err
		}
		if !isRegular(b) {
			s.unreadByte()
			break
		}
		out = append(out, b)
	}
	if len(out) == 0 {
		b, _ := s.readByte()
		return Token{}, fmt.Errorf("unexpected byte 0x%02x", b)
	}
	switch kw := string(out); kw {
	case "true":
		return Token{Type: TokenBoolean, Bool: true}, nil
	case "false":
		return Token{Type: TokenBoolean, Bool: false}, nil
	case "null":
		return Token{Type: TokenNull}, nil
	case "stream":
		return s.scanStreamPayload()
	default:
		return Token{Type: TokenKeyword, Str: kw}, nil
	}
}

// scanStreamPayload reads the bytes between the stream keyword and the
// endstream keyword, using the length hint when one was supplied.
func (s *scanner) scanStreamPayload() (Token, error) {
	// The keyword is followed by CRLF or LF.
	b, err := s.readByte()
	if err != nil {
		return Token{}, errors.New("truncated stream header")
	}
	if b == '\r' {
		if nb, err := s.readByte(); err == nil && nb != '\n' {
			s.unreadByte()
		}
	} else if b != '\n' {
		s.unreadByte()
	}

	hint := s.streamLen
	s.streamLen = -1
	if hint > s.cfg.MaxStreamLength {
		return Token{}, fmt.Errorf("stream length %d exceeds limit", hint)
	}

	if hint >= 0 {
		data := make([]byte, hint)
		if _, err := io.ReadFull(s.br, data); err != nil {
			return Token{}, fmt.Errorf("truncated stream payload: %w", err)
		}
		s.offset += hint
		if err := s.expectEndstream(); err != nil {
			return Token{}, err
		}
		return Token{Type: TokenStream, Bytes: data}, nil
	}

	// No hint: collect until the endstream marker.
	marker := []byte("endstream")
	var data []byte
	for {
		if int64(len(data)) > s.cfg.MaxStreamLength {
			return Token{}, errors.New("stream exceeds length limit")
		}
		b, err := s.readByte()
		if err != nil {
			return Token{}, errors.New("endstream not found")
		}
		data = append(data, b)
		if len(data) >= len(marker) && string(data[len(data)-len(marker):]) == string(marker) {
			data = data[:len(data)-len(marker)]
			// Trim the EOL that separates payload from the keyword.
			if n := len(data); n > 0 && data[n-1] == '\n' {
				data = data[:n-1]
			}
			if n := len(data); n > 0 && data[n-1] == '\r' {
				data = data[:n-1]
			}
			return Token{Type: TokenStream, Bytes: data}, nil
		}
	}
}

func (s *scanner) expectEndstream() error {
	if err := s.skipSpace(); err != nil {
		return errors.New("endstream not found")
	}
	tok, err := s.scanKeyword()
	if err != nil || tok.Type != TokenKeyword || tok.Str != "endstream" {
		return errors.New("endstream not found")
	}
	return nil
}
