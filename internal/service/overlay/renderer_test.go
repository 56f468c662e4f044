package overlay

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/model"
)

func assertRect(t *testing.T, expected, actual Rect) {
	t.Helper()
	assert.InDelta(t, expected.X, actual.X, 1e-9, "x")
	assert.InDelta(t, expected.Y, actual.Y, 1e-9, "y")
	assert.InDelta(t, expected.Width, actual.Width, 1e-9, "width")
	assert.InDelta(t, expected.Height, actual.Height, 1e-9, "height")
}

func TestDisplayTransform_RotatesAndScales(t *testing.T) {
	// 1280x720 landscape sensor shown in a 360x640 portrait view.
	tr := DisplayTransform(image.Pt(1280, 720), image.Pt(360, 640))

	// The whole frame fills the whole view.
	assertRect(t, Rect{0, 0, 360, 640}, TransformBox(tr, model.BoundingBox{X: 0, Y: 0, Width: 1, Height: 1}))

	// The sensor's top-left quadrant ends up top-right after a clockwise turn.
	assertRect(t, Rect{180, 0, 180, 320}, TransformBox(tr, model.BoundingBox{X: 0, Y: 0, Width: 0.5, Height: 0.5}))

	// A thin box along the sensor's left edge becomes a thin box along the top.
	assertRect(t, Rect{0, 0, 360, 64}, TransformBox(tr, model.BoundingBox{X: 0, Y: 0, Width: 0.1, Height: 1}))
}

func TestDisplayTransform_DegenerateSizes(t *testing.T) {
	assert.Equal(t, identity, DisplayTransform(image.Pt(0, 720), image.Pt(360, 640)))
	assert.Equal(t, identity, DisplayTransform(image.Pt(1280, 720), image.Point{}))
}

func TestRenderer_RenderReplacesShapes(t *testing.T) {
	r := NewRenderer(image.Pt(1280, 720), image.Pt(360, 640))

	first := r.Render([]model.DetectedObject{
		{Label: "dog", Confidence: 0.91, BoundingBox: model.BoundingBox{Width: 0.5, Height: 0.5}},
		{Label: "ball", Confidence: 0.7, BoundingBox: model.BoundingBox{X: 0.5, Y: 0.5, Width: 0.5, Height: 0.5}},
	})
	require.Len(t, first, 2)
	assert.Equal(t, "dog (0.91)", first[0].Caption)

	second := r.Render([]model.DetectedObject{{Label: "cat", Confidence: 0.8}})
	require.Len(t, second, 1)
	assert.Equal(t, "cat", r.Shapes()[0].Label)

	assert.Empty(t, r.Render(nil))
	assert.Empty(t, r.Shapes())
}

func TestRenderer_SetBounds(t *testing.T) {
	r := NewRenderer(image.Pt(1280, 720), image.Pt(360, 640))
	before := r.Transform()

	assert.False(t, r.SetBounds(image.Pt(360, 640)))
	assert.Equal(t, before, r.Transform())

	assert.True(t, r.SetBounds(image.Pt(720, 1280)))
	assert.NotEqual(t, before, r.Transform())
	assert.Equal(t, image.Pt(720, 1280), r.Bounds())

	shapes := r.Render([]model.DetectedObject{{Label: "dog", BoundingBox: model.BoundingBox{Width: 1, Height: 1}}})
	assertRect(t, Rect{0, 0, 720, 1280}, shapes[0].Rect)
}
