package vision

import (
	"fmt"
	"strings"

	"petlens/internal/model"
)

// Orientation is the clockwise rotation that turns a native sensor frame upright.
type Orientation int

const (
	OrientationUp Orientation = iota
	OrientationRight
	OrientationDown
	OrientationLeft
)

// ParseOrientation accepts "up", "right", "down", "left" or the matching
// degree values "0", "90", "180", "270".
func ParseOrientation(s string) (Orientation, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "up", "0":
		return OrientationUp, nil
	case "right", "90":
		return OrientationRight, nil
	case "down", "180":
		return OrientationDown, nil
	case "left", "270":
		return OrientationLeft, nil
	}
	return OrientationUp, fmt.Errorf("unknown orientation %q", s)
}

// Degrees returns the clockwise rotation in degrees.
func (o Orientation) Degrees() int {
	return int(o) * 90
}

func (o Orientation) String() string {
	switch o {
	case OrientationRight:
		return "right"
	case OrientationDown:
		return "down"
	case OrientationLeft:
		return "left"
	}
	return "up"
}

// ToNative maps a normalized box found in the rotated (upright) image back
// into the native frame's normalized coordinates.
func (o Orientation) ToNative(b model.BoundingBox) model.BoundingBox {
	switch o {
	case OrientationRight:
		return model.BoundingBox{X: b.Y, Y: 1 - b.X - b.Width, Width: b.Height, Height: b.Width}
	case OrientationDown:
		return model.BoundingBox{X: 1 - b.X - b.Width, Y: 1 - b.Y - b.Height, Width: b.Width, Height: b.Height}
	case OrientationLeft:
		return model.BoundingBox{X: 1 - b.Y - b.Height, Y: b.X, Width: b.Height, Height: b.Width}
	}
	return b
}
