// PostFilters describe user-provided filters to narrow the community feed.
package dto

import (
	"strings"
	"time"

	"petlens/internal/model"
)

type PostFilters struct {
	Author      string
	Label       string
	CreatedFrom time.Time
	CreatedTo   time.Time
}

// Match reports whether post passes every non-empty filter.
func (f *PostFilters) Match(post model.Post) bool {
	if f.Author != "" && !strings.EqualFold(post.Author, f.Author) {
		return false
	}
	if !f.CreatedFrom.IsZero() && post.CreatedAt.Before(f.CreatedFrom) {
		return false
	}
	if !f.CreatedTo.IsZero() && !post.CreatedAt.Before(f.CreatedTo) {
		return false
	}
	if f.Label != "" {
		for _, label := range model.Labels(post.Observations) {
			if strings.EqualFold(label, f.Label) {
				return true
			}
		}
		return false
	}
	return true
}
