package community

import (
	"context"
	"fmt"
	"strings"

	"petlens/internal/model"
)

// RegisterPet stores the session user's pet photo, replacing any earlier one.
// The photo is classified with the post service's classifier.
func (s *PostService) RegisterPet(ctx context.Context, sess model.Session, name string, photo []byte) (*model.Pet, error) {
	if !sess.Valid(s.now()) {
		return nil, ErrUnauthenticated
	}
	if len(photo) == 0 {
		return nil, ErrMissingPhoto
	}

	pet := model.Pet{
		Owner:        sess.Username,
		Name:         strings.TrimSpace(name),
		Photo:        photo,
		Observations: s.observe(ctx, photo),
		RegisteredAt: s.now(),
	}

	if err := saveJSON(ctx, s.store, petKey(sess.Username), pet); err != nil {
		return nil, fmt.Errorf("failed to save pet: %w", err)
	}

	s.logger.Info("User %s registered pet %q", sess.Username, pet.Name)
	return &pet, nil
}

// GetPet returns the pet registered by username.
func (s *PostService) GetPet(ctx context.Context, username string) (*model.Pet, error) {
	var pet model.Pet
	found, err := loadJSON(ctx, s.store, s.logger, petKey(username), &pet)
	if err != nil {
		return nil, fmt.Errorf("failed to load pet: %w", err)
	}
	if !found {
		return nil, ErrPetNotFound
	}
	return &pet, nil
}
