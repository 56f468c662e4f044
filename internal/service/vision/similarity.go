package vision

import "petlens/internal/model"

// LabelSet is a set of detection labels.
type LabelSet map[string]struct{}

// NewLabelSet builds a set from labels, dropping duplicates.
func NewLabelSet(labels ...string) LabelSet {
	set := make(LabelSet, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	return set
}

// LabelsOf builds the label set of detected objects.
func LabelsOf(objects []model.DetectedObject) LabelSet {
	return NewLabelSet(model.Labels(objects)...)
}

// Similarity is the Jaccard index |a ∩ b| / |a ∪ b|. It is 0 when either set
// is empty.
func Similarity(a, b LabelSet) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}
	small, large := a, b
	if len(small) > len(large) {
		small, large = large, small
	}
	intersection := 0
	for l := range small {
		if _, ok := large[l]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}
