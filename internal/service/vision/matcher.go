package vision

import (
	"context"
	"fmt"

	"petlens/internal/logger"
	"petlens/internal/model"
)

// PostLister returns the community feed in stored order.
type PostLister interface {
	ListPosts(ctx context.Context) ([]model.Post, error)
}

// Match is the post most similar to a detection cycle.
type Match struct {
	Post       model.Post `json:"post"`
	Similarity float64    `json:"similarity"`
}

// Matcher compares a detection cycle against every post with an image.
type Matcher struct {
	posts      PostLister
	classifier Classifier
	recompute  bool
	logger     *logger.Logger
}

// NewMatcher creates a Matcher. classifier may be nil, in which case only the
// observations cached on each post are used. With recompute set, every post
// image is classified again on each call.
func NewMatcher(posts PostLister, classifier Classifier, recompute bool, logger *logger.Logger) *Matcher {
	return &Matcher{
		posts:      posts,
		classifier: classifier,
		recompute:  recompute,
		logger:     logger,
	}
}

// Match returns the post with the strictly greatest non-zero similarity to
// detected, or nil. Ties keep the first post in stored order.
func (m *Matcher) Match(ctx context.Context, detected []model.DetectedObject) (*Match, error) {
	current := LabelsOf(detected)
	if len(current) == 0 {
		return nil, nil
	}

	posts, err := m.posts.ListPosts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}

	var best *Match
	for i := range posts {
		post := &posts[i]
		if !post.HasImage() {
			continue
		}

		observations, err := m.observations(ctx, post)
		if err != nil {
			m.logger.Warning("Skipping post %s in match: %v", post.ID, err)
			continue
		}

		similarity := Similarity(current, LabelsOf(observations))
		if similarity > 0 && (best == nil || similarity > best.Similarity) {
			best = &Match{Post: *post, Similarity: similarity}
		}
	}

	return best, nil
}

// observations returns the labels to compare for a post, classifying its
// image when nothing is cached or recompute is on.
func (m *Matcher) observations(ctx context.Context, post *model.Post) ([]model.DetectedObject, error) {
	if m.classifier == nil || (!m.recompute && post.Observations != nil) {
		return post.Observations, nil
	}
	return m.classifier.Classify(ctx, post.ImageData, OrientationUp)
}
