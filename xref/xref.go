// Package xref locates and parses classic PDF cross-reference tables,
// following /Prev chains through incremental updates, and can rebuild a
// table by brute-force scanning when the file's tables are damaged.
package xref

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/scanner"
)

// Table holds object offsets for a cross-reference table.
type Table interface {
	Lookup(objNum int) (offset int64, gen int, found bool)
	Objects() []int
}

// Result is the outcome of resolving a document's cross references.
type Result struct {
	Table   Table
	Trailer *raw.DictObj
	// StartXRef is the offset of the most recent xref section, kept so
	// incremental writers can chain onto it.
	StartXRef int64
}

// Resolver locates and parses xref information in a PDF.
type Resolver interface {
	Resolve(ctx context.Context, r io.ReaderAt) (Result, error)
}

// ResolverConfig bounds resolver behavior.
type ResolverConfig struct {
	// MaxChainDepth caps how many /Prev links are followed. Zero means
	// a reasonable default.
	MaxChainDepth int
}

// NewResolver returns a classic-table resolver.
func NewResolver(cfg ResolverConfig) Resolver {
	if cfg.MaxChainDepth <= 0 {
		cfg.MaxChainDepth = 64
	}
	return &tableResolver{maxDepth: cfg.MaxChainDepth}
}

type tableResolver struct {
	maxDepth int
}

type entry struct {
	offset int64
	gen    int
}

type table struct {
	entries map[int]entry
}

func (t *table) Lookup(objNum int) (int64, int, bool) {
	e, ok := t.entries[objNum]
	if !ok {
		return 0, 0, false
	}
	return e.offset, e.gen, true
}

func (t *table) Objects() []int {
	out := make([]int, 0, len(t.entries))
	for k := range t.entries {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (t *tableResolver) Resolve(ctx context.Context, r io.ReaderAt) (Result, error) {
	data := readAll(r)

	start := bytes.LastIndex(data, []byte("startxref"))
	if start < 0 {
		return Result{}, errors.New("startxref not found")
	}
	offset, err := parseStartXRefValue(data[start+len("startxref"):])
	if err != nil {
		return Result{}, err
	}
	if offset <= 0 || offset >= int64(len(data)) {
		return Result{}, fmt.Errorf("xref offset out of range: %d", offset)
	}
	newestSection := offset

	entries := make(map[int]entry)
	var newest *raw.DictObj
	seen := make(map[int64]bool)

	// Walk the /Prev chain, newest section first. Entries from newer
	// sections win, so only unset object numbers are filled in as the
	// walk goes back in time.
	for depth := 0; depth < t.maxDepth && offset > 0; depth++ {
		select {
		case <-ctx.Done():
			return Result{}, ctx.Err()
		default:
		}
		if seen[offset] {
			return Result{}, errors.New("cyclic xref chain")
		}
		seen[offset] = true
		if offset >= int64(len(data)) {
			return Result{}, fmt.Errorf("xref offset out of range: %d", offset)
		}

		trailer, err := parseSection(data[offset:], entries)
		if err != nil {
			return Result{}, err
		}
		if newest == nil {
			newest = trailer
		}
		offset = 0
		if trailer != nil {
			if prev, ok := trailer.Get("Prev"); ok {
				if n, ok := prev.(raw.NumberObj); ok {
					offset = n.Int()
				}
			}
		}
	}

	if newest == nil {
		return Result{}, errors.New("trailer not found")
	}
	return Result{Table: &table{entries: entries}, Trailer: newest, StartXRef: newestSection}, nil
}

func parseStartXRefValue(rest []byte) (int64, error) {
	lines := bufio.NewScanner(bytes.NewReader(rest))
	for lines.Scan() {
		text := strings.TrimSpace(lines.Text())
		if text == "" {
			continue
		}
		val, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("parse startxref: %w", err)
		}
		return val, nil
	}
	return 0, errors.New("startxref value missing")
}

// parseSection parses one xref section plus its trailer dictionary,
// adding entries that are not already present.
func parseSection(data []byte, entries map[int]entry) (*raw.DictObj, error) {
	sc := bufio.NewScanner(bytes.NewReader(data))
	scanLine := func() (string, bool) {
		if !sc.Scan() {
			return "", false
		}
		return sc.Text(), true
	}

	line, ok := scanLine()
	if !ok || strings.TrimSpace(line) != "xref" {
		return nil, errors.New("xref keyword not found at offset")
	}

	for {
		line, ok = scanLine()
		if !ok {
			return nil, errors.New("unexpected end of xref section")
		}
		text := strings.TrimSpace(line)
		if text == "" {
			continue
		}
		if strings.HasPrefix(text, "trailer") {
			break
		}
		parts := strings.Fields(text)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid xref subsection header: %q", text)
		}
		startObj, err := strconv.Atoi(parts[0])
		if err != nil {
			return nil, fmt.Errorf("parse xref start: %w", err)
		}
		count, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, fmt.Errorf("parse xref count: %w", err)
		}
		for i := 0; i < count; i++ {
			line, ok = scanLine()
			if !ok {
				return nil, errors.New("unexpected end of xref section")
			}
			fields := strings.Fields(strings.TrimSpace(line))
			if len(fields) < 3 {
				return nil, fmt.Errorf("invalid xref entry: %q", line)
			}
			off, err := strconv.ParseInt(fields[0], 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse xref offset: %w", err)
			}
			gen, err := strconv.Atoi(fields[1])
			if err != nil {
				return nil, fmt.Errorf("parse xref gen: %w", err)
			}
			if fields[2] != "n" {
				continue // free entry
			}
			num := startObj + i
			if _, exists := entries[num]; !exists {
				entries[num] = entry{offset: off, gen: gen}
			}
		}
	}

	// The trailer dictionary follows the trailer keyword.
	dictStart := bytes.Index(data, []byte("trailer"))
	if dictStart < 0 {
		return nil, errors.New("trailer keyword missing")
	}
	return parseTrailerDict(data[dictStart+len("trailer"):])
}

func parseTrailerDict(data []byte) (*raw.DictObj, error) {
	sc := scanner.New(bytes.NewReader(data), scanner.Config{})
	tok, err := sc.Next()
	if err != nil {
		return nil, fmt.Errorf("parse trailer: %w", err)
	}
	if tok.Type != scanner.TokenDict {
		return nil, errors.New("trailer is not a dictionary")
	}
	return parseDictBody(sc)
}

func parseDictBody(sc scanner.Scanner) (*raw.DictObj, error) {
	d := raw.Dict()
	for {
		tok, err := sc.Next()
		if err != nil {
			return nil, fmt.Errorf("parse trailer dict: %w", err)
		}
		if tok.Type == scanner.TokenKeyword && tok.Str == ">>" {
			return d, nil
		}
		if tok.Type != scanner.TokenName {
			return nil, errors.New("expected name in trailer dict")
		}
		val, err := parseValue(sc)
		if err != nil {
			return nil, err
		}
		d.Set(tok.Str, val)
	}
}

func parseValue(sc scanner.Scanner) (raw.Object, error) {
	tok, err := sc.Next()
	if err != nil {
		return nil, fmt.Errorf("parse trailer value: %w", err)
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
	case scanner.TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case scanner.TokenDict:
		return parseDictBody(sc)
	case scanner.TokenArray:
		arr := raw.NewArray()
		for {
			inner, err := sc.Next()
			if err != nil {
				return nil, err
			}
			if inner.Type == scanner.TokenKeyword && inner.Str == "]" {
				return arr, nil
			}
			// Re-dispatch on the already-consumed token.
			item, err := valueFromToken(inner, sc)
			if err != nil {
				return nil, err
			}
			arr.Append(item)
		}
	}
	return nil, fmt.Errorf("unexpected token in trailer value")
}

func valueFromToken(tok scanner.Token, sc scanner.Scanner) (raw.Object, error) {
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
	case scanner.TokenRef:
		return raw.Ref(int(tok.Int), tok.Gen), nil
	case scanner.TokenDict:
		return parseDictBody(sc)
	}
	return nil, fmt.Errorf("unexpected token in trailer array")
}

var objHeaderRe = regexp.MustCompile(`(?m)^[ \t]*(\d+)[ \t]+(\d+)[ \t]+obj\b`)

// Repair rebuilds a cross-reference table by scanning the file for
// object headers. Later definitions of the same object number win,
// matching how readers treat incrementally updated files.
func Repair(data []byte) Table {
	entries := make(map[int]entry)
	for _, m := range objHeaderRe.FindAllSubmatchIndex(data, -1) {
		num, err1 := strconv.Atoi(string(data[m[2]:m[3]]))
		gen, err2 := strconv.Atoi(string(data[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			continue
		}
		// Offset of the object number, skipping leading blanks.
		entries[num] = entry{offset: int64(m[2]), gen: gen}
	}
	return &table{entries: entries}
}

func readAll(r io.ReaderAt) []byte {
	var buf bytes.Buffer
	const chunk = int64(32 * 1024)
	tmp := make([]byte, chunk)
	for off := int64(0); ; off += chunk {
		n, err := r.ReadAt(tmp, off)
		if n > 0 {
			buf.Write(tmp[:n])
		}
		if err != nil || int64(n) < chunk {
			break
		}
	}
	return buf.Bytes()
}
