// Package parser turns PDF bytes into a raw object document. It drives
// the scanner through every object listed in the cross-reference
// table, falling back to a brute-force rebuild when the table is
// damaged and the configured recovery strategy permits it.
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/annotview/annotview/ir/raw"
	"github.com/annotview/annotview/observability"
	"github.com/annotview/annotview/recovery"
	"github.com/annotview/annotview/scanner"
	"github.com/annotview/annotview/xref"
)

// ErrMalformed marks input that cannot be understood as a PDF. All
// parse failures wrap it, so callers can test with errors.Is.
var ErrMalformed = errors.New("malformed pdf")

// Config configures a DocumentParser.
type Config struct {
	Recovery recovery.Strategy    // nil means recovery.Lenient()
	Logger   observability.Logger // nil means observability.NopLogger
	Limits   scanner.Config
}

// DocumentParser converts bytes into a raw.Document.
type DocumentParser interface {
	Parse(ctx context.Context, r io.ReaderAt) (*raw.Document, error)
}

// NewDocumentParser returns a parser with the given configuration.
func NewDocumentParser(cfg Config) DocumentParser {
	if cfg.Recovery == nil {
		cfg.Recovery = recovery.Lenient()
	}
	if cfg.Logger == nil {
		cfg.Logger = observability.NopLogger{}
	}
	return &documentParser{cfg: cfg}
}

type documentParser struct {
	cfg Config
}

func (p *documentParser) Parse(ctx context.Context, r io.ReaderAt) (*raw.Document, error) {
	start := time.Now()

	version, err := readHeader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	doc := &raw.Document{
		Objects: make(map[raw.ObjectRef]raw.Object),
		Version: version,
	}

	res, err := xref.NewResolver(xref.ResolverConfig{}).Resolve(ctx, r)
	var tbl xref.Table
	switch {
	case err == nil:
		tbl = res.Table
		doc.Trailer = res.Trailer
		doc.StartXRef = res.StartXRef
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		action := p.cfg.Recovery.OnError(err, recovery.Location{Component: "xref"})
		if action == recovery.ActionFail {
			return nil, fmt.Errorf("%w: resolve xref: %v", ErrMalformed, err)
		}
		p.cfg.Logger.Warn("xref resolution failed, rebuilding table",
			observability.Error("error", err))
		tbl = xref.Repair(readAllBytes(r))
	}

	sc := scanner.New(r, p.cfg.Limits)
	loader := &objectLoader{scanner: sc, table: tbl, recovery: p.cfg.Recovery}

	for _, num := range tbl.Objects() {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		offset, gen, _ := tbl.Lookup(num)
		obj, err := loader.loadAt(num, gen, offset)
		if err != nil {
			action := p.cfg.Recovery.OnError(err, recovery.Location{
				ByteOffset: offset, ObjectNum: num, ObjectGen: gen, Component: "parser",
			})
			if action == recovery.ActionFail {
				return nil, fmt.Errorf("%w: object %d %d: %v", ErrMalformed, num, gen, err)
			}
			p.cfg.Logger.Warn("skipping unreadable object",
				observability.Int("object", num), observability.Error("error", err))
			continue
		}
		doc.Objects[raw.ObjectRef{Num: num, Gen: gen}] = obj
	}

	if doc.Trailer == nil {
		trailer, err := findCatalogTrailer(doc)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		doc.Trailer = trailer
	}

	p.cfg.Logger.Debug("document parsed",
		observability.Int("objects", len(doc.Objects)),
		observability.Duration(observability.MetricParseTime, time.Since(start)))
	return doc, nil
}

func readHeader(r io.ReaderAt) (string, error) {
	buf := make([]byte, 16)
	n, err := r.ReadAt(buf, 0)
	if n < 8 && err != nil {
		return "", errors.New("file too short")
	}
	if string(buf[:5]) != "%PDF-" {
		return "", errors.New("missing %PDF header")
	}
	version := ""
	for _, b := range buf[5:n] {
		if (b >= '0' && b <= '9') || b == '.' {
			version += string(b)
			continue
		}
		break
	}
	if version == "" {
		return "", errors.New("missing version in header")
	}
	return version, nil
}

// findCatalogTrailer synthesizes a trailer for repaired documents by
// locating the catalog object.
func findCatalogTrailer(doc *raw.Document) (raw.Dictionary, error) {
	for ref, obj := range doc.Objects {
		dict, ok := obj.(*raw.DictObj)
		if !ok {
			continue
		}
		if t, ok := dict.Get("Type"); ok {
			if name, ok := t.(raw.NameObj); ok && name.Val == "Catalog" {
				trailer := raw.Dict()
				trailer.Set("Root", raw.Ref(ref.Num, ref.Gen))
				trailer.Set("Size", raw.Int(int64(doc.NextNum())))
				return trailer, nil
			}
		}
	}
	return nil, errors.New("catalog not found")
}

func readAllBytes(r io.ReaderAt) []byte {
	var out []byte
	buf := make([]byte, 32*1024)
	for off := int64(0); ; off += int64(len(buf)) {
		n, err := r.ReadAt(buf, off)
		out = append(out, buf[:n]...)
		if err != nil || n < len(buf) {
			break
		}
	}
	return out
}
