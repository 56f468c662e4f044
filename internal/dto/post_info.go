package dto

import (
	"encoding/json"
	"time"

	"petlens/internal/model"
)

// PostInfo is a post as shown in the feed. The image is linked, not inlined.
type PostInfo struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Author    string    `json:"author"`
	ImageURL  string    `json:"imageUrl,omitempty"`
	Labels    []string  `json:"labels"`
	CreatedAt time.Time `json:"createdAt"`
	Edited    bool      `json:"edited"`
}

// NewPostInfo builds the feed view of post.
func NewPostInfo(post model.Post) PostInfo {
	info := PostInfo{
		ID:        post.ID,
		Text:      post.Text,
		Author:    post.Author,
		Labels:    model.Labels(post.Observations),
		CreatedAt: post.CreatedAt,
		Edited:    post.UpdatedAt.After(post.CreatedAt),
	}
	if post.HasImage() {
		info.ImageURL = "/api/posts/" + post.ID + "/image"
	}
	return info
}

// MarshalJSON adds a display date and time of day next to the timestamp.
func (p PostInfo) MarshalJSON() ([]byte, error) {
	type Alias PostInfo
	return json.Marshal(&struct {
		Date      string `json:"date"`
		TimeOfDay string `json:"timeOfDay"`
		Alias
	}{
		Date:      p.CreatedAt.Format("02-01-2006"),
		TimeOfDay: p.CreatedAt.Format("15:04"),
		Alias:     (Alias)(p),
	})
}

// PostsData is a paginated response payload for the community feed.
type PostsData struct {
	Posts       []PostInfo `json:"posts"`
	Length      int        `json:"length"`
	TotalPages  int        `json:"totalPages"`
	CurrentPage int        `json:"currentPage"`
	Limit       int        `json:"pageSize"`
}

// PetInfo is a registered pet without its photo bytes.
type PetInfo struct {
	Owner        string    `json:"owner"`
	Name         string    `json:"name"`
	Labels       []string  `json:"labels"`
	RegisteredAt time.Time `json:"registeredAt"`
}

// NewPetInfo builds the response view of pet.
func NewPetInfo(pet model.Pet) PetInfo {
	return PetInfo{
		Owner:        pet.Owner,
		Name:         pet.Name,
		Labels:       model.Labels(pet.Observations),
		RegisteredAt: pet.RegisteredAt,
	}
}
