package ocr

import (
	"strconv"
	"strings"

	"golang.org/x/net/html"
)

// ParseHOCR extracts words from an hOCR document. Elements carrying
// class ocrx_word contribute one word each; their bounding box and
// confidence come from the title attribute ("bbox l t r b; x_wconf c").
func ParseHOCR(src string) (*Result, error) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return nil, err
	}

	res := &Result{}
	var text strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && hasClass(n, "ocrx_word") {
			word := Word{
				Text:       strings.TrimSpace(nodeText(n)),
				Confidence: -1,
			}
			if title, ok := attr(n, "title"); ok {
				word.Bounds, word.Confidence = parseTitle(title)
			}
			if word.Text != "" {
				if text.Len() > 0 {
					text.WriteByte(' ')
				}
				text.WriteString(word.Text)
				res.Words = append(res.Words, word)
			}
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	res.PlainText = text.String()
	return res, nil
}

func hasClass(n *html.Node, class string) bool {
	v, ok := attr(n, "class")
	if !ok {
		return false
	}
	for _, c := range strings.Fields(v) {
		if c == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func nodeText(n *html.Node) string {
	if n.Type == html.TextNode {
		return n.Data
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		b.WriteString(nodeText(c))
	}
	return b.String()
}

// parseTitle reads the hOCR title properties, e.g.
// "bbox 100 200 180 230; x_wconf 96".
func parseTitle(title string) (Box, float64) {
	box := Box{}
	conf := -1.0
	for _, part := range strings.Split(title, ";") {
		fields := strings.Fields(strings.TrimSpace(part))
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "bbox":
			if len(fields) >= 5 {
				box.Left, _ = strconv.Atoi(fields[1])
				box.Top, _ = strconv.Atoi(fields[2])
				box.Right, _ = strconv.Atoi(fields[3])
				box.Bottom, _ = strconv.Atoi(fields[4])
			}
		case "x_wconf":
			if len(fields) >= 2 {
				if f, err := strconv.ParseFloat(fields[1], 64); err == nil {
					conf = f
				}
			}
		}
	}
	return box, conf
}
