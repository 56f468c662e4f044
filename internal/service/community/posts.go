package community

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/repository"
	"petlens/internal/service/vision"
)

// PostService manages the community feed stored as one JSON array.
type PostService struct {
	store      repository.BlobStore
	classifier vision.Classifier
	logger     *logger.Logger
	now        func() time.Time

	// mu serializes read-modify-write cycles on the post list.
	mu sync.Mutex
}

// NewPostService creates a PostService. classifier may be nil, in which
// case posts are stored without observations.
func NewPostService(store repository.BlobStore, classifier vision.Classifier, logger *logger.Logger) *PostService {
	return &PostService{
		store:      store,
		classifier: classifier,
		logger:     logger,
		now:        time.Now,
	}
}

// ListPosts returns every post in stored order. A corrupt list reads as empty.
func (s *PostService) ListPosts(ctx context.Context) ([]model.Post, error) {
	return s.load(ctx)
}

// GetPost returns the post with the given id.
func (s *PostService) GetPost(ctx context.Context, id string) (*model.Post, error) {
	posts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	for i := range posts {
		if posts[i].ID == id {
			return &posts[i], nil
		}
	}
	return nil, ErrPostNotFound
}

// CreatePost appends a post authored by the session's user.
func (s *PostService) CreatePost(ctx context.Context, sess model.Session, text string, image []byte) (*model.Post, error) {
	if !sess.Valid(s.now()) {
		return nil, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return nil, ErrEmptyPost
	}

	// Classify outside the lock; the model can be slow.
	observations := s.observe(ctx, image)

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	now := s.now()
	post := model.Post{
		ID:           uuid.NewString(),
		Text:         text,
		ImageData:    image,
		Author:       sess.Username,
		Observations: observations,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	posts = append(posts, post)

	if err := s.save(ctx, posts); err != nil {
		return nil, err
	}

	s.logger.Info("Post %s created by %s", post.ID, post.Author)
	return &post, nil
}

// EditPost replaces the text and image of a post. Only the author may edit.
func (s *PostService) EditPost(ctx context.Context, sess model.Session, id, text string, image []byte) (*model.Post, error) {
	if !sess.Valid(s.now()) {
		return nil, ErrUnauthenticated
	}
	text = strings.TrimSpace(text)
	if text == "" && len(image) == 0 {
		return nil, ErrEmptyPost
	}

	current, err := s.GetPost(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Author != sess.Username {
		s.logger.Warning("User %s tried to edit post %s owned by %s", sess.Username, id, current.Author)
		return nil, ErrNotAuthor
	}

	observations := current.Observations
	if !bytes.Equal(current.ImageData, image) {
		observations = s.observe(ctx, image)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		return nil, err
	}

	idx := indexOf(posts, id)
	if idx < 0 {
		return nil, ErrPostNotFound
	}
	if posts[idx].Author != sess.Username {
		return nil, ErrNotAuthor
	}

	posts[idx].Text = text
	posts[idx].ImageData = image
	posts[idx].Observations = observations
	posts[idx].UpdatedAt = s.now()

	if err := s.save(ctx, posts); err != nil {
		return nil, err
	}

	s.logger.Info("Post %s edited by %s", id, sess.Username)
	edited := posts[idx]
	return &edited, nil
}

// DeletePost removes a post. Only the author may delete.
func (s *PostService) DeletePost(ctx context.Context, sess model.Session, id string) error {
	if !sess.Valid(s.now()) {
		return ErrUnauthenticated
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	posts, err := s.load(ctx)
	if err != nil {
		return err
	}

	idx := indexOf(posts, id)
	if idx < 0 {
		return ErrPostNotFound
	}
	if posts[idx].Author != sess.Username {
		s.logger.Warning("User %s tried to delete post %s owned by %s", sess.Username, id, posts[idx].Author)
		return ErrNotAuthor
	}

	posts = append(posts[:idx], posts[idx+1:]...)
	if err := s.save(ctx, posts); err != nil {
		return err
	}

	s.logger.Info("Post %s deleted by %s", id, sess.Username)
	return nil
}

// observe classifies an uploaded image. Failures are logged and leave the
// observations unset so they can be computed later.
func (s *PostService) observe(ctx context.Context, image []byte) []model.DetectedObject {
	if len(image) == 0 || s.classifier == nil {
		return nil
	}

	objects, err := s.classifier.Classify(ctx, image, vision.OrientationUp)
	if err != nil {
		s.logger.Warning("Could not classify post image: %v", err)
		return nil
	}
	if objects == nil {
		objects = []model.DetectedObject{}
	}
	return objects
}

func (s *PostService) load(ctx context.Context) ([]model.Post, error) {
	var posts []model.Post
	found, err := loadJSON(ctx, s.store, s.logger, PostsKey, &posts)
	if err != nil {
		return nil, fmt.Errorf("failed to load posts: %w", err)
	}
	if !found {
		return []model.Post{}, nil
	}
	return posts, nil
}

func (s *PostService) save(ctx context.Context, posts []model.Post) error {
	if err := saveJSON(ctx, s.store, PostsKey, posts); err != nil {
		return fmt.Errorf("failed to save posts: %w", err)
	}
	return nil
}

func indexOf(posts []model.Post, id string) int {
	for i := range posts {
		if posts[i].ID == id {
			return i
		}
	}
	return -1
}
