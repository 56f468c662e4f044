package model

import "time"

// Detection is one persisted label sighting from a detection cycle.
type Detection struct {
	ID            int64     `json:"id"`
	Timestamp     time.Time `json:"timestamp"`
	Label         string    `json:"label"`
	Confidence    float64   `json:"confidence"`
	MatchedPostID string    `json:"matchedPostId,omitempty"`
}

// DetectionStats summarizes the stored detection history.
type DetectionStats struct {
	TotalDetections int            `json:"totalDetections"`
	LabelCounts     map[string]int `json:"labelCounts"`
	MatchCounts     map[string]int `json:"matchCounts"`
}
