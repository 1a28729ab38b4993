package parser

import (
	"errors"
	"fmt"

	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/recovery"
	"github.com/annotview/annotview/scanner"
	"github.com/annotview/annotview/xref"
)

// objectLoader reads single indirect objects at known offsets.
type objectLoader struct {
	scanner  scanner.Scanner
	table    xref.Table
	recovery recovery.Strategy
}

// loadAt parses the object with the given number at the given byte
// offset, verifying the object header on the way in.
func (o *objectLoader) loadAt(objNum, gen int, offset int64) (raw.Object, error) {
	if err := o.scanner.SeekTo(offset); err != nil {
		return nil, err
	}
	tr := newTokenReader(o.scanner)

	tokNum, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokNum.Type != scanner.TokenNumber || !tokNum.IsInt || int(tokNum.Int) != objNum {
		return nil, errors.New("object header number mismatch")
	}
	tokGen, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokGen.Type != scanner.TokenNumber || !tokGen.IsInt {
		return nil, errors.New("object header generation mismatch")
	}
	tokObj, err := tr.next()
	if err != nil {
		return nil, err
	}
	if tokObj.Type != scanner.TokenKeyword || tokObj.Str != "obj" {
		return nil, errors.New("expected obj keyword")
	}

	obj, err := o.parseObject(tr, objNum, gen)
	if err != nil {
		return nil, err
	}

	// A dictionary may be followed by a stream payload. The /Length
	// entry, when direct, lets the scanner read the payload without
	// searching for the endstream marker.
	if dict, ok := obj.(*raw.DictObj); ok {
		o.scanner.SetNextStreamLength(o.streamLengthHint(dict))
		streamTok, err := tr.next()
		if err == nil && streamTok.Type == scanner.TokenStream {
			return raw.NewStream(dict, streamTok.Bytes), nil
		}
		o.scanner.SetNextStreamLength(-1)
		if err == nil {
			tr.unread(streamTok)
		}
	}
	return obj, nil
}

// streamLengthHint resolves a direct /Length entry; indirect lengths
// return -1 and the scanner falls back to marker search.
func (o *objectLoader) streamLengthHint(dict *raw.DictObj) int64 {
	val, ok := dict.Get("Length")
	if !ok {
		return -1
	}
	if n, ok := val.(raw.NumberObj); ok && n.IsInt {
		return n.Int()
	}
	return -1
}

func (o *objectLoader) parseObject(tr *tokenReader, objNum, gen int) (raw.Object, error) {
	tok, err := tr.next()
	if err != nil {
		return nil, err
	}
	switch tok.Type {
	case scanner.TokenName:
		return raw.Name(tok.Str), nil
	case scanner.TokenNumber:
		if tok.IsInt {
			return raw.Int(tok.Int), nil
		}
		return raw.Real(tok.Float), nil
	case scanner.TokenBoolean:
		return raw.Bool(tok.Bool), nil
	case scanner.TokenNull:
		return raw.NullObj{}, nil
	case scanner.TokenString:
		return raw.StringObj{Bytes: tok.Bytes, Hex: tok.Hex}, nil
	case scanner.TokenArray:
		return o.parseArray(tr, objNum, gen)
	case scanner.TokenDict:
		return o.parseDict(tr, objNum, gen)
	case scanner.TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case scanner.TokenKeyword:
		return nil, fmt.Errorf("unexpected keyword %q", tok.Str)
	}
	return nil, errors.New("unexpected token")
}

func (o *objectLoader) parseArray(tr *tokenReader, objNum, gen int) (raw.Object, error) {
	arr := raw.NewArray()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == "]" {
			return arr, nil
		}
		tr.unread(tok)
		item, err := o.parseObject(tr, objNum, gen)
		if err != nil {
			return nil, err
		}
		arr.Append(item)
	}
}

func (o *objectLoader) parseDict(tr *tokenReader, objNum, gen int) (raw.Object, error) {
	d := raw.Dict()
	for {
		tok, err := tr.next()
		if err != nil {
			return nil, err
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			// A missing ">>" shows up as the endobj keyword. Lenient
			// strategies close the dictionary and continue.
			if tok.Type == scanner.TokenKeyword && tok.Str == "endobj" {
				err := errors.New("unexpected endobj in dict")
				action := o.recovery.OnError(err, recovery.Location{
					ObjectNum: objNum, ObjectGen: gen, Component: "parser",
				})
				if action == recovery.ActionWarn {
					tr.unread(tok)
					return d, nil
				}
				return nil, err
			}
			return nil, errors.New("expected name in dict")
		}
		val, err := o.parseObject(tr, objNum, gen)
		if err != nil {
			return nil, err
		}
		d.Set(tok.Str, val)
	}
}

// tokenReader wraps a scanner with a one-slot-deep unread buffer.
type tokenReader struct {
	s   scanner.Scanner
	buf []scanner.Token
}

func newTokenReader(s scanner.Scanner) *tokenReader { return &tokenReader{s: s} }

func (r *tokenReader) next() (scanner.Token, error) {
	if l := len(r.buf); l > 0 {
		t := r.buf[l-1]
		r.buf = r.buf[:l-1]
		return t, nil
	}
	return r.s.Next()
}

func (r *tokenReader) unread(tok scanner.Token) { r.buf = append(r.buf, tok) }
