package vision

import (
	"context"

	"petlens/internal/model"
)

// Classifier is an opaque object-recognition model. Boxes in the result are
// normalized to the native (unrotated) image.
type Classifier interface {
	Classify(ctx context.Context, image []byte, orientation Orientation) ([]model.DetectedObject, error)
}

// ClassifierFunc adapts a plain function to the Classifier interface.
type ClassifierFunc func(ctx context.Context, image []byte, orientation Orientation) ([]model.DetectedObject, error)

// Classify calls f.
func (f ClassifierFunc) Classify(ctx context.Context, image []byte, orientation Orientation) ([]model.DetectedObject, error) {
	return f(ctx, image, orientation)
}
