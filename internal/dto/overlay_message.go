package dto

import (
	"time"

	"petlens/internal/service/overlay"
	"petlens/internal/service/vision"
)

// Websocket message types.
const (
	MessageFrame   = "frame"
	MessageOverlay = "overlay"
	MessageBounds  = "bounds"
)

// Size is a width and height in pixels.
type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// FrameMessage carries one live frame to viewers.
type FrameMessage struct {
	Type      string    `json:"type"`
	Index     int64     `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Image     []byte    `json:"image"`
}

// OverlayMessage carries the shapes and match for the latest detection cycle.
type OverlayMessage struct {
	Type      string          `json:"type"`
	Index     int64           `json:"index"`
	Timestamp time.Time       `json:"timestamp"`
	Native    Size            `json:"native"`
	Bounds    Size            `json:"bounds"`
	Shapes    []overlay.Shape `json:"shapes"`
	Labels    []string        `json:"labels"`
	Match     *MatchSummary   `json:"match"`
}

// BoundsMessage is sent by a viewer when its display size changes.
type BoundsMessage struct {
	Type   string `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// MatchSummary names the best-matching post without its image bytes.
type MatchSummary struct {
	PostID     string  `json:"postId"`
	Author     string  `json:"author"`
	Text       string  `json:"text"`
	ImageURL   string  `json:"imageUrl"`
	Similarity float64 `json:"similarity"`
}

// NewMatchSummary returns nil when there is no match.
func NewMatchSummary(m *vision.Match) *MatchSummary {
	if m == nil {
		return nil
	}
	return &MatchSummary{
		PostID:     m.Post.ID,
		Author:     m.Post.Author,
		Text:       m.Post.Text,
		ImageURL:   "/api/posts/" + m.Post.ID + "/image",
		Similarity: m.Similarity,
	}
}
