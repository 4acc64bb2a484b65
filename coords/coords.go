package coords

import (
	"errors"
	"math"
)

type Matrix [6]float64

func Identity() Matrix { return Matrix{1, 0, 0, 1, 0, 0} }
func (m Matrix) Multiply(o Matrix) Matrix {
	return Matrix{m[0]*o[0] + m[1]*o[2], m[0]*o[1] + m[1]*o[3], m[2]*o[0] + m[3]*o[2], m[2]*o[1] + m[3]*o[3], m[4]*o[0] + m[5]*o[2] + o[4], m[4]*o[1] + m[5]*o[3] + o[5]}
}

type Point struct{ X, Y float64 }

func (m Matrix) Transform(p Point) Point {
	return Point{X: m[0]*p.X + m[2]*p.Y + m[4], Y: m[1]*p.X + m[3]*p.Y + m[5]}
}
func (m Matrix) Inverse() (Matrix, error) {
	det := m[0]*m[3] - m[1]*m[2]
	if math.Abs(det) < 1e-10 {
		return Matrix{}, errors.New("matrix singular")
	}
	return Matrix{m[3] / det, -m[1] / det, -m[2] / det, m[0] / det, (m[2]*m[5] - m[3]*m[4]) / det, (m[1]*m[4] - m[0]*m[5]) / det}, nil
}
func Translate(tx, ty float64) Matrix { return Matrix{1, 0, 0, 1, tx, ty} }
func Scale(sx, sy float64) Matrix     { return Matrix{sx, 0, 0, sy, 0, 0} }
func Rotate(angle float64) Matrix {
	c := math.Cos(angle)
	s := math.Sin(angle)
	return Matrix{c, s, -s, c, 0, 0}
}

// Size is a width/height pair in a single coordinate space.
type Size struct{ Width, Height float64 }

// DefaultBaselineFactor converts a font's full ascent into the baseline
// offset applied when flipping editor Y into native Y. The value is an
// inherited empirical constant; keep it unless visual regression against
// reference output says otherwise.
const DefaultBaselineFactor = 0.8

// Options adjusts the editor-to-native transform.
type Options struct {
	// BaselineFactor overrides DefaultBaselineFactor when non-zero.
	BaselineFactor float64
}

func (o Options) baselineFactor() float64 {
	if o.BaselineFactor != 0 {
		return o.BaselineFactor
	}
	return DefaultBaselineFactor
}

// EditorGeometry is a field's geometry as authored on the placement surface:
// origin at the previewed page's top-left, Y growing downward, rotation in
// degrees with clockwise positive.
type EditorGeometry struct {
	X, Y     float64
	ScaleX   float64 // 0 means 1
	FontSize float64
}

// NativeGeometry is the same mark expressed in the document's point space:
// origin bottom-left, Y growing upward, rotation counter-clockwise positive.
type NativeGeometry struct {
	X, Y     float64
	FontSize float64
	Rotation float64
}

// AscentFunc reports a font's ascent in points at the given size. It is a
// capability of the document writer because the metric depends on the
// embedded font program.
type AscentFunc func(size float64) float64

// ToNative maps editor-space geometry onto the native page. The preview is
// assumed uniformly scaled relative to the native page, so a single factor
// derived from the widths applies to both axes.
func ToNative(g EditorGeometry, rotationDeg float64, preview, native Size, ascent AscentFunc, opts Options) NativeGeometry {
	scale := native.Width / preview.Width
	sx := g.ScaleX
	if sx == 0 {
		sx = 1
	}
	fontSize := g.FontSize * sx * scale
	return NativeGeometry{
		X:        g.X * scale,
		Y:        native.Height - g.Y*scale - ascent(fontSize)*opts.baselineFactor(),
		FontSize: fontSize,
		Rotation: -rotationDeg,
	}
}

// ScaleFactor reports the preview-to-native scale used by ToNative.
func ScaleFactor(preview, native Size) float64 { return native.Width / preview.Width }
