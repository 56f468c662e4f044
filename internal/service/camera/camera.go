// Package camera reads frames from a local video device through OpenCV.
package camera

import (
	"context"
	"fmt"
	"image"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"petlens/internal/config"
	"petlens/internal/logger"
	"petlens/internal/service/vision"
)

// Camera is a vision.FrameSource backed by gocv.VideoCapture.
type Camera struct {
	capture    *gocv.VideoCapture
	mat        gocv.Mat
	resolution image.Point
	index      int64
	closed     bool
	logger     *logger.Logger

	mu sync.Mutex
}

// Open starts the configured device at the requested resolution. The device
// may pick a different one; Resolution reports what it actually delivers.
func Open(config *config.Config, logger *logger.Logger) (*Camera, error) {
	capture, err := gocv.OpenVideoCapture(config.CameraDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to open camera %s: %w", config.CameraDevice, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("camera %s is not available", config.CameraDevice)
	}

	capture.Set(gocv.VideoCaptureFrameWidth, float64(config.CaptureWidth))
	capture.Set(gocv.VideoCaptureFrameHeight, float64(config.CaptureHeight))

	resolution := image.Pt(
		int(capture.Get(gocv.VideoCaptureFrameWidth)),
		int(capture.Get(gocv.VideoCaptureFrameHeight)),
	)
	logger.Info("Camera %s opened at %dx%d", config.CameraDevice, resolution.X, resolution.Y)

	return &Camera{
		capture:    capture,
		mat:        gocv.NewMat(),
		resolution: resolution,
		logger:     logger,
	}, nil
}

// Read grabs the next frame and encodes it as JPEG.
func (c *Camera) Read(ctx context.Context) (vision.Frame, error) {
	if err := ctx.Err(); err != nil {
		return vision.Frame{}, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return vision.Frame{}, vision.ErrSourceClosed
	}

	if ok := c.capture.Read(&c.mat); !ok {
		return vision.Frame{}, fmt.Errorf("camera read failed")
	}
	if c.mat.Empty() {
		return vision.Frame{}, fmt.Errorf("camera returned an empty frame")
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, c.mat)
	if err != nil {
		return vision.Frame{}, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())

	c.index++
	return vision.Frame{
		Data:      data,
		Width:     c.mat.Cols(),
		Height:    c.mat.Rows(),
		Index:     c.index,
		Timestamp: time.Now(),
	}, nil
}

// Resolution returns the size the device reported when opened.
func (c *Camera) Resolution() image.Point {
	return c.resolution
}

// Close releases the device. It waits for an in-flight Read to finish, since
// the capture cannot be released while gocv is reading from it.
func (c *Camera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.mat.Close()
	return c.capture.Close()
}
