package ai

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"petlens/internal/config"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/service/vision"
)

// ssdInputSize is the square input the SSD MobileNet COCO graph expects.
const ssdInputSize = 300

// DetectorService runs an SSD MobileNet network through OpenCV's DNN module.
// It implements vision.Classifier.
type DetectorService struct {
	net        gocv.Net
	threshold  float32
	modelPath  string
	configPath string
	logger     *logger.Logger

	// gocv.Net is not safe for concurrent Forward calls.
	mu sync.Mutex
}

// NewDetectorService loads the network. A missing or unreadable model is fatal.
func NewDetectorService(config *config.Config, logger *logger.Logger) (*DetectorService, error) {
	service := &DetectorService{
		threshold:  float32(config.DetectionThreshold),
		modelPath:  config.ModelPath,
		configPath: config.ConfigPath,
		logger:     logger,
	}

	if err := service.initializeNet(); err != nil {
		return nil, err
	}
	return service, nil
}

// initializeNet loads the DNN network and sets backend/target preferences.
func (s *DetectorService) initializeNet() error {
	if _, err := os.Stat(s.modelPath); os.IsNotExist(err) {
		return fmt.Errorf("model file not found: %s", s.modelPath)
	}

	if _, err := os.Stat(s.configPath); os.IsNotExist(err) {
		return fmt.Errorf("config file not found: %s", s.configPath)
	}

	net := gocv.ReadNet(s.modelPath, s.configPath)
	if net.Empty() {
		return fmt.Errorf("failed to load network from %s", s.modelPath)
	}

	errBackend := net.SetPreferableBackend(gocv.NetBackendDefault)
	errTarget := net.SetPreferableTarget(gocv.NetTargetCPU)
	if errBackend != nil || errTarget != nil {
		net.Close()
		return fmt.Errorf("failed to set preferable backend or target")
	}

	s.net = net
	s.logger.Info("Detection network initialized from %s", s.modelPath)
	return nil
}

// Classify decodes the image, turns it upright and returns every detection
// above the confidence threshold with boxes in the native image space.
func (s *DetectorService) Classify(ctx context.Context, img []byte, orientation vision.Orientation) ([]model.DetectedObject, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	upright, err := rotate(mat, orientation)
	if err != nil {
		return nil, err
	}
	defer upright.Close()

	// Create blob with parameters that fit ssd coco net input
	blob := gocv.BlobFromImage(upright, 1.0/127.5, image.Pt(ssdInputSize, ssdInputSize), gocv.NewScalar(127.5, 127.5, 127.5, 0), true, false)
	defer blob.Close()

	s.mu.Lock()
	s.net.SetInput(blob, "")
	output := s.net.Forward("")
	s.mu.Unlock()
	defer output.Close()

	// Each row: [batch_id, class_id, confidence, left, top, right, bottom], coordinates normalized.
	rows := output.Reshape(1, output.Total()/7)
	defer rows.Close()

	var results []model.DetectedObject
	for i := 0; i < rows.Rows(); i++ {
		confidence := rows.GetFloatAt(i, 2)
		if confidence < s.threshold {
			continue
		}

		left := clamp(rows.GetFloatAt(i, 3))
		top := clamp(rows.GetFloatAt(i, 4))
		right := clamp(rows.GetFloatAt(i, 5))
		bottom := clamp(rows.GetFloatAt(i, 6))

		box := model.BoundingBox{
			X:      float64(left),
			Y:      float64(top),
			Width:  float64(right - left),
			Height: float64(bottom - top),
		}

		results = append(results, model.DetectedObject{
			BoundingBox: orientation.ToNative(box),
			Confidence:  float64(confidence),
			Label:       ClassLabel(int(rows.GetFloatAt(i, 1))),
		})
	}

	return results, nil
}

// DrawDetections draws detection boxes and captions onto a JPEG and returns
// the re-encoded image.
func (s *DetectorService) DrawDetections(detections []model.DetectedObject, img []byte) ([]byte, error) {
	red := color.RGBA{R: 255, G: 0, B: 0, A: 0}

	mat, err := gocv.IMDecode(img, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	defer mat.Close()

	if mat.Empty() {
		return nil, fmt.Errorf("decoded image is empty")
	}

	width, height := float64(mat.Cols()), float64(mat.Rows())
	for _, detection := range detections {
		b := detection.BoundingBox
		rect := image.Rect(
			int(b.X*width), int(b.Y*height),
			int((b.X+b.Width)*width), int((b.Y+b.Height)*height),
		)
		if err := gocv.Rectangle(&mat, rect, red, 2); err != nil {
			return nil, fmt.Errorf("failed to draw rectangle: %w", err)
		}

		label := fmt.Sprintf("%s (%.2f)", detection.Label, detection.Confidence)
		pt := image.Pt(rect.Min.X, rect.Min.Y-5)
		if err := gocv.PutText(&mat, label, pt, gocv.FontHersheySimplex, 0.5, red, 1); err != nil {
			return nil, fmt.Errorf("failed to draw text: %w", err)
		}
	}

	return encodeJPEG(mat)
}

// Close releases the network.
func (s *DetectorService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.net.Close()
}

// rotate returns a new Mat turned clockwise by orientation.
func rotate(src gocv.Mat, orientation vision.Orientation) (gocv.Mat, error) {
	dst := gocv.NewMat()

	var err error
	switch orientation {
	case vision.OrientationRight:
		err = gocv.Rotate(src, &dst, gocv.Rotate90Clockwise)
	case vision.OrientationDown:
		err = gocv.Rotate(src, &dst, gocv.Rotate180Clockwise)
	case vision.OrientationLeft:
		err = gocv.Rotate(src, &dst, gocv.Rotate90CounterClockwise)
	default:
		src.CopyTo(&dst)
	}
	if err != nil {
		dst.Close()
		return gocv.Mat{}, fmt.Errorf("failed to rotate image %s: %w", orientation, err)
	}
	return dst, nil
}

// encodeJPEG copies the encoded bytes out of OpenCV-owned memory.
func encodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func clamp(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
