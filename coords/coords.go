// Package coords holds the coordinate conversions shared by the whole
// viewing and export pipeline. Three spaces are in play: intrinsic
// document coordinates (scale 1.0, top-left origin, y grows downward),
// screen coordinates at the current zoom, and output coordinates used
// when writing annotations back into the PDF (bottom-left origin,
// y grows upward).
//
// Every conversion elsewhere in the module must route through this
// package. Annotations are stored in intrinsic coordinates, and that
// invariant only survives if nobody re-derives scale math ad hoc.
package coords

import (
	"errors"
	"math"
)

// BaselineOffset shifts exported text down by roughly one font-size
// unit so the glyphs sit on the anchor point instead of above it.
const BaselineOffset = 12.0

// Point is a position in any of the three coordinate spaces.
type Point struct {
	X, Y float64
}

// ToScreen maps an intrinsic point to screen space at the given zoom scale.
func ToScreen(p Point, scale float64) Point {
	return Point{X: p.X * scale, Y: p.Y * scale}
}

// ToIntrinsic maps a screen point back to intrinsic space.
func ToIntrinsic(p Point, scale float64) Point {
	return Point{X: p.X / scale, Y: p.Y / scale}
}

// ToOutput maps an intrinsic point to the writer's bottom-left origin
// space, given the intrinsic page height. The vertical flip plus
// BaselineOffset places text on, not above, the anchor point.
func ToOutput(p Point, pageHeight float64) Point {
	return Point{X: p.X, Y: pageHeight - p.Y - BaselineOffset}
}

// Matrix is an affine transform [a b c d e f] using the PDF row-vector
// convention: transforming a point computes (a*x+c*y+e, b*x+d*y+f).
type Matrix [6]float64

// Identity returns the identity transform.
func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }

// Multiply returns the concatenation m then o: applying the result to a
// point is the same as applying m first, then o.
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{
		m[0]*o[0] + m[1]*o[2],
		m[0]*o[1] + m[1]*o[3],
		m[2]*o[0] + m[3]*o[2],
		m[2]*o[1] + m[3]*o[3],
		m[4]*o[0] + m[5]*o[2] + o[4],
		m[4]*o[1] + m[5]*o[3] + o[5],
	}
}

// Transform applies the matrix to a point.
func (m Matrix) Transform(p Point) Point {
	return Point{
		X: m[0]*p.X + m[2]*p.Y + m[4],
		Y: m[1]*p.X + m[3]*p.Y + m[5],
	}
}

// Inverse returns the inverse transform, or an error if the matrix is
// singular.
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{
		m[3] / det,
		-m[1] / det,
		-m[2] / det,
		m[0] / det,
		(m[2]*m[5] - m[3]*m[4]) / det,
		(m[1]*m[4] - m[0]*m[5]) / det,
	}, nil
}

// Translate returns a translation matrix.
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }

// Scale returns a scaling matrix.
func Scale(sx, sy float64) Matrix { return Matrix{sx, 0, 0, sy, 0, 0} }

// Rotate returns a rotation matrix for the given angle in radians.
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}
