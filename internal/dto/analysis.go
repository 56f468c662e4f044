package dto

import "petlens/internal/model"

// Analysis is the result of running one uploaded image through the detector
// and the matcher.
type Analysis struct {
	Objects []model.DetectedObject `json:"objects"`
	Labels  []string               `json:"labels"`
	Match   *MatchSummary          `json:"match"`
	Image   []byte                 `json:"image,omitempty"` // annotated JPEG
}
