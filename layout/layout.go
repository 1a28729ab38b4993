// Package layout turns markdown into drawn pages. The exporter uses it
// for the optional summary page appended after annotated output.
package layout

import (
	"errors"
	"strings"

	"github.com/annotview/annotview/builder"
	"github.com/annotview/annotview/fonts"
	"github.com/annotview/annotview/ir/semantic"
)

// Margins are page margins in document units.
type Margins struct {
	Top, Right, Bottom, Left float64
}

// Engine lays text out onto fixed-size pages.
type Engine struct {
	PageWidth       float64
	PageHeight      float64
	Margins         Margins
	DefaultFontSize float64
	LineHeight      float64

	doc     builder.DocumentBuilder
	page    builder.PageBuilder
	cursorY float64
}

// NewEngine returns an engine with US Letter geometry.
func NewEngine() *Engine {
	return &Engine{
		PageWidth:       612,
		PageHeight:      792,
		Margins:         Margins{Top: 54, Right: 54, Bottom: 54, Left: 54},
		DefaultFontSize: 12,
		LineHeight:      1.4,
	}
}

func (e *Engine) ensurePage() {
	if e.page != nil {
		return
	}
	if e.doc == nil {
		e.doc = builder.NewBuilder()
	}
	e.page = e.doc.NewPage(e.PageWidth, e.PageHeight)
	e.cursorY = e.PageHeight - e.Margins.Top
}

func (e *Engine) checkPageBreak(lineHeight float64) {
	e.ensurePage()
	if e.cursorY-lineHeight < e.Margins.Bottom {
		e.doc = e.page.Finish()
		e.page = nil
		e.ensurePage()
	}
}

func (e *Engine) drawLine(text string, x, fontSize float64) {
	lineHeight := fontSize * e.LineHeight
	e.checkPageBreak(lineHeight)
	e.page.DrawText(text, x, e.cursorY-fontSize, builder.TextOptions{FontSize: fontSize})
	e.cursorY -= lineHeight
}

// drawWrapped draws text starting at x, wrapping at the right margin
// using measured widths.
func (e *Engine) drawWrapped(text string, x, fontSize float64) {
	words := strings.Fields(text)
	if len(words) == 0 {
		return
	}
	maxWidth := e.PageWidth - e.Margins.Right - x
	line := words[0]
	for _, word := range words[1:] {
		if fonts.MeasureString(line+" "+word, fontSize) <= maxWidth {
			line += " " + word
			continue
		}
		e.drawLine(line, x, fontSize)
		line = word
	}
	e.drawLine(line, x, fontSize)
}

// Build finalizes the engine's pages.
func (e *Engine) Build() (*semantic.Document, error) {
	if e.page != nil {
		e.doc = e.page.Finish()
		e.page = nil
	}
	if e.doc == nil {
		return nil, errors.New("nothing laid out")
	}
	return e.doc.Build()
}
