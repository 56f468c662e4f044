package community

import "errors"

var (
	// ErrUnauthenticated is returned when a mutation comes without a valid session.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrNotAuthor is returned when someone other than the author edits or deletes a post.
	ErrNotAuthor = errors.New("only the author can change this post")
	// ErrPostNotFound is returned when no post has the requested id.
	ErrPostNotFound = errors.New("post not found")
	// ErrEmptyPost is returned when a post has neither text nor image.
	ErrEmptyPost = errors.New("post needs text or an image")

	// ErrMissingField is returned when a sign-up or login field is blank.
	ErrMissingField = errors.New("username and password are required")
	// ErrPasswordMismatch is returned when the confirmation differs from the password.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrUserExists is returned when the username is already taken.
	ErrUserExists = errors.New("username already taken")
	// ErrInvalidCredentials is returned for an unknown user or a wrong password.
	ErrInvalidCredentials = errors.New("invalid username or password")

	// ErrPetNotFound is returned when a user has not registered a pet.
	ErrPetNotFound = errors.New("no pet registered")
	// ErrMissingPhoto is returned when a pet is registered without a photo.
	ErrMissingPhoto = errors.New("pet photo is required")
)
