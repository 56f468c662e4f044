package model

import "time"

// Post is a community feed entry. ImageData and Observations are optional.
type Post struct {
	ID           string           `json:"id"`
	Text         string           `json:"text"`
	ImageData    []byte           `json:"imageData,omitempty"`
	Author       string           `json:"author"`
	Observations []DetectedObject `json:"observations"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
}

// HasImage reports whether the post carries an image.
func (p *Post) HasImage() bool {
	return len(p.ImageData) > 0
}

// Pet is the photo a user registered for their own pet.
type Pet struct {
	Owner        string           `json:"owner"`
	Name         string           `json:"name"`
	Photo        []byte           `json:"photo"`
	Observations []DetectedObject `json:"observations"`
	RegisteredAt time.Time        `json:"registeredAt"`
}
