package ocr

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleHOCR = `<?xml version="1.0" encoding="UTF-8"?>
<html>
 <body>
  <div class='ocr_page' title='bbox 0 0 1200 1600'>
   <p class='ocr_par'>
    <span class='ocr_line' title='bbox 100 100 500 130'>
     <span class='ocrx_word' title='bbox 100 100 180 130; x_wconf 96'>John</span>
     <span class='ocrx_word' title='bbox 190 100 280 130; x_wconf 93'>Doe</span>
    </span>
    <span class='ocr_line' title='bbox 100 200 300 230'>
     <span class='ocrx_word' title='bbox 100 200 160 230; x_wconf 88'>signed</span>
     <span class='ocrx_word' title='bbox 170 200 175 230; x_wconf 12'>  </span>
    </span>
   </p>
  </div>
 </body>
</html>`

func TestParseHOCR(t *testing.T) {
	res, err := ParseHOCR(sampleHOCR)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if res.PlainText != "John Doe signed" {
		t.Fatalf("plain text = %q", res.PlainText)
	}

	want := []Word{
		{Text: "John", Bounds: Box{Left: 100, Top: 100, Right: 180, Bottom: 130}, Confidence: 96},
		{Text: "Doe", Bounds: Box{Left: 190, Top: 100, Right: 280, Bottom: 130}, Confidence: 93},
		{Text: "signed", Bounds: Box{Left: 100, Top: 200, Right: 160, Bottom: 230}, Confidence: 88},
	}
	if diff := cmp.Diff(want, res.Words); diff != "" {
		t.Fatalf("words differ (-want +got):\n%s", diff)
	}
}

func TestParseHOCR_NoWords(t *testing.T) {
	res, err := ParseHOCR("<html><body><p>nothing recognized</p></body></html>")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Words) != 0 || res.PlainText != "" {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestParseHOCR_MissingConfidence(t *testing.T) {
	res, err := ParseHOCR(`<html><body><span class="ocrx_word" title="bbox 1 2 3 4">word</span></body></html>`)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if len(res.Words) != 1 {
		t.Fatalf("word count = %d", len(res.Words))
	}
	if res.Words[0].Confidence != -1 {
		t.Fatalf("confidence = %v, want -1 sentinel", res.Words[0].Confidence)
	}
}
