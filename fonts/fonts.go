// Package fonts measures text. The overlay uses it to size annotation
// boxes whose width was never set explicitly.
package fonts

import (
	"bytes"
	"sync"

	"github.com/go-text/typesetting/di"
	"github.com/go-text/typesetting/font"
	"github.com/go-text/typesetting/language"
	"github.com/go-text/typesetting/shaping"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/math/fixed"
)

var (
	faceOnce sync.Once
	face     *font.Face
	faceErr  error
)

func measureFace() (*font.Face, error) {
	faceOnce.Do(func() {
		face, faceErr = font.ParseTTF(bytes.NewReader(goregular.TTF))
	})
	return face, faceErr
}

// MeasureString returns the advance width of text at the given font
// size, in the same units as the size. Unmeasurable input falls back
// to a monospace estimate so callers always get a usable width.
func MeasureString(text string, size float64) float64 {
	if text == "" {
		return 0
	}
	f, err := measureFace()
	if err != nil {
		return fallbackWidth(text, size)
	}

	runes := []rune(text)
	var shaper shaping.HarfbuzzShaper
	out := shaper.Shape(shaping.Input{
		Text:      runes,
		RunStart:  0,
		RunEnd:    len(runes),
		Face:      f,
		Size:      fixed.Int26_6(size * 64),
		Script:    language.Latin,
		Language:  language.NewLanguage("en"),
		Direction: di.DirectionLTR,
	})
	if out.Advance <= 0 {
		return fallbackWidth(text, size)
	}
	return float64(out.Advance) / 64
}

// fallbackWidth approximates with a 0.6em per-rune advance.
func fallbackWidth(text string, size float64) float64 {
	return float64(len([]rune(text))) * size * 0.6
}
