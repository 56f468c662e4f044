package vision

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/model"
)

func TestParseOrientation(t *testing.T) {
	tests := map[string]Orientation{
		"":      OrientationUp,
		"up":    OrientationUp,
		"RIGHT": OrientationRight,
		"90":    OrientationRight,
		"down":  OrientationDown,
		"270":   OrientationLeft,
	}
	for input, expected := range tests {
		got, err := ParseOrientation(input)
		require.NoError(t, err, input)
		assert.Equal(t, expected, got, input)
	}

	_, err := ParseOrientation("sideways")
	assert.Error(t, err)
}

func TestOrientation_ToNative(t *testing.T) {
	box := model.BoundingBox{X: 0.1, Y: 0.2, Width: 0.3, Height: 0.4}

	assert.Equal(t, box, OrientationUp.ToNative(box))

	right := OrientationRight.ToNative(box)
	assert.InDelta(t, 0.2, right.X, 1e-9)
	assert.InDelta(t, 0.6, right.Y, 1e-9)
	assert.InDelta(t, 0.4, right.Width, 1e-9)
	assert.InDelta(t, 0.3, right.Height, 1e-9)
}

func TestOrientation_OppositeRotationsCancel(t *testing.T) {
	box := model.BoundingBox{X: 0.15, Y: 0.05, Width: 0.5, Height: 0.25}

	pairs := [][2]Orientation{
		{OrientationRight, OrientationLeft},
		{OrientationLeft, OrientationRight},
		{OrientationDown, OrientationDown},
	}
	for _, p := range pairs {
		got := p[0].ToNative(p[1].ToNative(box))
		assert.InDelta(t, box.X, got.X, 1e-9)
		assert.InDelta(t, box.Y, got.Y, 1e-9)
		assert.InDelta(t, box.Width, got.Width, 1e-9)
		assert.InDelta(t, box.Height, got.Height, 1e-9)
	}
}
