package pdfdoc

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strings"
	"sync"

	"github.com/annotview/annotview/document"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"
)

var (
	renderFontOnce sync.Once
	renderFont     *opentype.Font
	renderFontErr  error
)

func loadRenderFont() (*opentype.Font, error) {
	renderFontOnce.Do(func() {
		renderFont, renderFontErr = opentype.Parse(goregular.TTF)
	})
	return renderFont, renderFontErr
}

// Render paints the page onto a white bitmap. Text runs are drawn with
// a substitute face at their extracted positions, which is enough for
// the viewer's preview and for exercising the render pipeline without
// a platform rasterizer.
func (h *pageHandle) Render(ctx context.Context, scale, pixelRatio float64) (*document.Bitmap, error) {
	if scale <= 0 {
		return nil, fmt.Errorf("non-positive scale %g", scale)
	}
	if pixelRatio <= 0 {
		pixelRatio = 1
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	size := h.Size()
	logicalW := int(math.Ceil(size.Width * scale))
	logicalH := int(math.Ceil(size.Height * scale))
	deviceW := int(math.Ceil(size.Width * scale * pixelRatio))
	deviceH := int(math.Ceil(size.Height * scale * pixelRatio))

	img := image.NewRGBA(image.Rect(0, 0, deviceW, deviceH))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)

	spans, err := h.TextSpans(ctx)
	if err != nil {
		return nil, err
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	fnt, err := loadRenderFont()
	if err != nil {
		return nil, err
	}

	device := scale * pixelRatio
	faces := make(map[int]font.Face)
	defer func() {
		for _, f := range faces {
			f.Close()
		}
	}()

	for i, span := range spans {
		if i%64 == 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
		}
		if strings.TrimSpace(span.Text) == "" {
			continue
		}
		m := span.Matrix
		fontSize := math.Hypot(m[0], m[1]) * device
		px := int(math.Round(fontSize))
		if px < 1 {
			continue
		}
		face, ok := faces[px]
		if !ok {
			face, err = opentype.NewFace(fnt, &opentype.FaceOptions{
				Size: float64(px), DPI: 72, Hinting: font.HintingFull,
			})
			if err != nil {
				return nil, err
			}
			faces[px] = face
		}
		drawer := font.Drawer{
			Dst:  img,
			Src:  image.NewUniform(color.Black),
			Face: face,
			Dot: fixed.Point26_6{
				X: floatToFixed(m[4] * device),
				Y: floatToFixed(m[5] * device),
			},
		}
		drawer.DrawString(span.Text)
	}

	return &document.Bitmap{
		Pix:        img,
		Width:      logicalW,
		Height:     logicalH,
		Scale:      scale,
		PixelRatio: pixelRatio,
	}, nil
}

func floatToFixed(f float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(f * 64))
}
