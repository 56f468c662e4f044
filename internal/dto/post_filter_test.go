package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"petlens/internal/model"
)

func TestPostFilters_Match(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	post := model.Post{
		ID:           "p1",
		Author:       "Alice",
		Observations: []model.DetectedObject{{Label: "dog"}, {Label: "person"}},
		CreatedAt:    created,
	}

	tests := []struct {
		name    string
		filters PostFilters
		want    bool
	}{
		{"no filters", PostFilters{}, true},
		{"author case-insensitive", PostFilters{Author: "alice"}, true},
		{"other author", PostFilters{Author: "bob"}, false},
		{"label present", PostFilters{Label: "Dog"}, true},
		{"label absent", PostFilters{Label: "cat"}, false},
		{"created after from", PostFilters{CreatedFrom: created.Add(-time.Hour)}, true},
		{"created before from", PostFilters{CreatedFrom: created.Add(time.Hour)}, false},
		{"to is exclusive", PostFilters{CreatedTo: created}, false},
		{"combined", PostFilters{Author: "alice", Label: "person", CreatedTo: created.Add(time.Hour)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filters.Match(post))
		})
	}
}

func TestPostInfo_JSON(t *testing.T) {
	created := time.Date(2025, 3, 10, 9, 5, 0, 0, time.UTC)
	info := NewPostInfo(model.Post{
		ID:        "p1",
		Text:      "hello",
		Author:    "alice",
		ImageData: []byte{1},
		CreatedAt: created,
		UpdatedAt: created.Add(time.Minute),
	})

	data, err := json.Marshal(info)
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "10-03-2025", out["date"])
	assert.Equal(t, "09:05", out["timeOfDay"])
	assert.Equal(t, "/api/posts/p1/image", out["imageUrl"])
	assert.Equal(t, true, out["edited"])
	assert.Equal(t, []any{}, out["labels"])
}

func TestPostInfo_NoImage(t *testing.T) {
	info := NewPostInfo(model.Post{ID: "p2", Text: "text only"})
	assert.Empty(t, info.ImageURL)
	assert.False(t, info.Edited)
}
