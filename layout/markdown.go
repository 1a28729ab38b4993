package layout

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/annotview/annotview/builder"
	"github.com/annotview/annotview/ir/semantic"
)

// RenderMarkdown lays out a markdown document and returns the
// resulting pages. Headings, paragraphs and list items are supported;
// inline styling renders as plain text.
func (e *Engine) RenderMarkdown(source string) (*semantic.Document, error) {
	md := goldmark.New()
	src := []byte(source)
	doc := md.Parser().Parse(text.NewReader(src))

	e.walkMarkdown(doc, src)
	return e.Build()
}

func (e *Engine) walkMarkdown(node ast.Node, source []byte) {
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch n := child.(type) {
		case *ast.Heading:
			e.renderHeading(n, source)
		case *ast.Paragraph:
			e.drawWrapped(inlineText(n, source), e.Margins.Left, e.DefaultFontSize)
		case *ast.List:
			e.walkMarkdown(n, source)
		case *ast.ListItem:
			e.renderListItem(n, source)
		}
	}
}

func (e *Engine) renderHeading(n *ast.Heading, source []byte) {
	size := e.DefaultFontSize * 2
	switch {
	case n.Level == 2:
		size = e.DefaultFontSize * 1.5
	case n.Level >= 3:
		size = e.DefaultFontSize * 1.25
	}
	e.drawLine(inlineText(n, source), e.Margins.Left, size)
}

func (e *Engine) renderListItem(n *ast.ListItem, source []byte) {
	var content string
	if child := n.FirstChild(); child != nil {
		content = inlineText(child, source)
	}
	e.ensurePage()
	indent := e.DefaultFontSize * 1.25
	// Bullet and text share the line; the bullet is drawn first without
	// advancing the cursor.
	lineHeight := e.DefaultFontSize * e.LineHeight
	e.checkPageBreak(lineHeight)
	e.page.DrawText("-", e.Margins.Left, e.cursorY-e.DefaultFontSize,
		builder.TextOptions{FontSize: e.DefaultFontSize})
	e.drawWrapped(content, e.Margins.Left+indent, e.DefaultFontSize)
}

// inlineText flattens a block's inline children to plain text.
func inlineText(node ast.Node, source []byte) string {
	var sb strings.Builder
	var walk func(ast.Node)
	walk = func(n ast.Node) {
		for child := n.FirstChild(); child != nil; child = child.NextSibling() {
			if t, ok := child.(*ast.Text); ok {
				sb.Write(t.Segment.Value(source))
				if t.SoftLineBreak() || t.HardLineBreak() {
					sb.WriteByte(' ')
				}
				continue
			}
			walk(child)
		}
	}
	walk(node)
	return strings.TrimSpace(sb.String())
}
