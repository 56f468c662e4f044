package model

// BoundingBox is a rectangle normalized to the [0,1]x[0,1] frame space,
// origin at the top-left corner.
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// DetectedObject is a single classifier hit for one frame.
type DetectedObject struct {
	BoundingBox BoundingBox `json:"boundingBox"`
	Confidence  float64     `json:"confidence"`
	Label       string      `json:"label"`
}

// Labels returns the labels of the given objects in order, duplicates included.
func Labels(objects []DetectedObject) []string {
	labels := make([]string, 0, len(objects))
	for _, o := range objects {
		labels = append(labels, o.Label)
	}
	return labels
}
