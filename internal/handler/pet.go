package handler

import (
	"net/http"

	"petlens/internal/config"
	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/middleware"
	"petlens/internal/model"
	"petlens/internal/service/community"
)

// petOwner returns the owner query parameter, or the caller's own username.
func petOwner(r *http.Request) string {
	if owner := r.URL.Query().Get("owner"); owner != "" {
		return owner
	}
	sess, _ := middleware.SessionFromContext(r.Context())
	return sess.Username
}

func loadPet(w http.ResponseWriter, r *http.Request, posts *community.PostService, logger *logger.Logger) (*model.Pet, bool) {
	owner := petOwner(r)
	if owner == "" {
		writeError(w, http.StatusUnauthorized, community.ErrUnauthenticated.Error())
		return nil, false
	}
	pet, err := posts.GetPet(r.Context(), owner)
	if err != nil {
		writeServiceError(w, logger, err, "loading pet")
		return nil, false
	}
	return pet, true
}

// GetPetHandler handles GET /api/pet.
func GetPetHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pet, ok := loadPet(w, r, posts, logger)
		if !ok {
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.NewPetInfo(*pet))
	}
}

// PetPhotoHandler serves the registered pet photo.
func PetPhotoHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pet, ok := loadPet(w, r, posts, logger)
		if !ok {
			return
		}
		writeImage(w, pet.Photo)
	}
}

// RegisterPetHandler handles PUT /api/pet with multipart fields "name" and "photo".
func RegisterPetHandler(posts *community.PostService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.SessionFromContext(r.Context())

		if err := parseUpload(w, r, cfg.MaxUploadSizeMB); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		photo, err := formImage(r, "photo")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid photo")
			return
		}

		pet, err := posts.RegisterPet(r.Context(), sess, r.FormValue("name"), photo)
		if err != nil {
			writeServiceError(w, logger, err, "registering pet")
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.NewPetInfo(*pet))
	}
}
