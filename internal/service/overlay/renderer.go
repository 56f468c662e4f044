package overlay

import (
	"fmt"
	"image"

	"golang.org/x/image/math/f64"

	"petlens/internal/model"
)

// Shape is one rectangle and caption drawn over the live view.
type Shape struct {
	Rect       Rect    `json:"rect"`
	Label      string  `json:"label"`
	Caption    string  `json:"caption"`
	Confidence float64 `json:"confidence"`
}

// Renderer keeps the shapes for the latest detection result only. It is not
// safe for concurrent use; the pipeline's render loop owns it.
type Renderer struct {
	native    image.Point
	bounds    image.Point
	transform f64.Aff3
	shapes    []Shape
}

// NewRenderer creates a renderer for frames of the given native resolution
// shown in a view of the given bounds.
func NewRenderer(native, bounds image.Point) *Renderer {
	return &Renderer{
		native:    native,
		bounds:    bounds,
		transform: DisplayTransform(native, bounds),
	}
}

// SetBounds updates the display size. The transform is recomputed only when
// the bounds actually change; it reports whether that happened.
func (r *Renderer) SetBounds(bounds image.Point) bool {
	if bounds == r.bounds {
		return false
	}
	r.bounds = bounds
	r.transform = DisplayTransform(r.native, bounds)
	return true
}

// Bounds returns the current display size.
func (r *Renderer) Bounds() image.Point {
	return r.bounds
}

// Transform returns the current native-to-display transform.
func (r *Renderer) Transform() f64.Aff3 {
	return r.transform
}

// Render discards the previous shapes and lays out one shape per object.
func (r *Renderer) Render(objects []model.DetectedObject) []Shape {
	shapes := make([]Shape, 0, len(objects))
	for _, o := range objects {
		shapes = append(shapes, Shape{
			Rect:       TransformBox(r.transform, o.BoundingBox),
			Label:      o.Label,
			Caption:    fmt.Sprintf("%s (%.2f)", o.Label, o.Confidence),
			Confidence: o.Confidence,
		})
	}
	r.shapes = shapes
	return r.Shapes()
}

// Shapes returns a copy of the shapes currently on screen.
func (r *Renderer) Shapes() []Shape {
	out := make([]Shape, len(r.shapes))
	copy(out, r.shapes)
	return out
}
