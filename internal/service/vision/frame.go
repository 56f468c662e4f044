// Package vision holds the classifier boundary and the label-set matching
// that runs on top of it.
package vision

import (
	"context"
	"errors"
	"image"
	"time"
)

// ErrSourceClosed is returned by a FrameSource after Close.
var ErrSourceClosed = errors.New("frame source closed")

// Frame is one captured video frame, JPEG encoded.
type Frame struct {
	Data      []byte
	Width     int
	Height    int
	Index     int64
	Timestamp time.Time
}

// FrameSource produces frames at the device's rate. Read blocks until the
// next frame is available or ctx is done.
type FrameSource interface {
	Read(ctx context.Context) (Frame, error)
	Resolution() image.Point
	Close() error
}
