// Package overlay positions detection boxes on the viewer's display.
package overlay

import (
	"image"
	"math"

	"golang.org/x/image/math/f64"

	"petlens/internal/model"
)

// Rect is an axis-aligned rectangle in display points.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// identity is the Aff3 that leaves points unchanged.
var identity = f64.Aff3{1, 0, 0, 0, 1, 0}

// compose returns the transform applying b first, then a.
func compose(a, b f64.Aff3) f64.Aff3 {
	return f64.Aff3{
		a[0]*b[0] + a[1]*b[3],
		a[0]*b[1] + a[1]*b[4],
		a[0]*b[2] + a[1]*b[5] + a[2],
		a[3]*b[0] + a[4]*b[3],
		a[3]*b[1] + a[4]*b[4],
		a[3]*b[2] + a[4]*b[5] + a[5],
	}
}

func apply(t f64.Aff3, x, y float64) (float64, float64) {
	return t[0]*x + t[1]*y + t[2], t[3]*x + t[4]*y + t[5]
}

// DisplayTransform maps normalized native-frame coordinates to display
// points. The sensor delivers landscape frames, so the native frame is
// rotated 90° clockwise before being scaled to the display size.
func DisplayTransform(native, display image.Point) f64.Aff3 {
	if native.X <= 0 || native.Y <= 0 || display.X <= 0 || display.Y <= 0 {
		return identity
	}
	w, h := float64(native.X), float64(native.Y)

	toPixels := f64.Aff3{w, 0, 0, 0, h, 0}
	// (x, y) in a w×h frame lands on (h-y, x) in the rotated h×w frame.
	rotate := f64.Aff3{0, -1, h, 1, 0, 0}
	scale := f64.Aff3{float64(display.X) / h, 0, 0, 0, float64(display.Y) / w, 0}

	return compose(scale, compose(rotate, toPixels))
}

// TransformBox maps a normalized box through t and returns its bounding rectangle.
func TransformBox(t f64.Aff3, b model.BoundingBox) Rect {
	corners := [4][2]float64{
		{b.X, b.Y},
		{b.X + b.Width, b.Y},
		{b.X, b.Y + b.Height},
		{b.X + b.Width, b.Y + b.Height},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, c := range corners {
		x, y := apply(t, c[0], c[1])
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
