package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"petlens/internal/config"
	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/middleware"
	"petlens/internal/service/community"
)

// ListPostsHandler returns a filtered, paginated page of the community feed.
func ListPostsHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		page := atoiDefault(q.Get("page"), 1)
		limit := atoiDefault(q.Get("limit"), 24)

		filter := &dto.PostFilters{
			Author:      q.Get("author"),
			Label:       q.Get("label"),
			CreatedFrom: parseDate(q.Get("dateAfter")),
			CreatedTo:   parseDate(q.Get("dateBefore")),
		}

		all, err := posts.ListPosts(r.Context())
		if err != nil {
			writeServiceError(w, logger, err, "listing posts")
			return
		}

		var matching []dto.PostInfo
		for _, post := range all {
			if filter.Match(post) {
				matching = append(matching, dto.NewPostInfo(post))
			}
		}

		start, end, limit := pageBounds(len(matching), page, limit)

		data := dto.PostsData{
			Posts:       append([]dto.PostInfo{}, matching[start:end]...),
			Length:      len(matching),
			TotalPages:  (len(matching) + limit - 1) / limit,
			CurrentPage: page,
			Limit:       limit,
		}
		writeJSON(w, logger, http.StatusOK, data)
	}
}

// GetPostHandler returns one post.
func GetPostHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := posts.GetPost(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err, "loading post")
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.NewPostInfo(*post))
	}
}

// PostImageHandler serves the raw image of a post.
func PostImageHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		post, err := posts.GetPost(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			writeServiceError(w, logger, err, "loading post image")
			return
		}
		if !post.HasImage() {
			writeError(w, http.StatusNotFound, "post has no image")
			return
		}
		writeImage(w, post.ImageData)
	}
}

// CreatePostHandler handles POST /api/posts with multipart fields "text" and "image".
func CreatePostHandler(posts *community.PostService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.SessionFromContext(r.Context())

		if err := parseUpload(w, r, cfg.MaxUploadSizeMB); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		image, err := formImage(r, "image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid image")
			return
		}

		post, err := posts.CreatePost(r.Context(), sess, r.FormValue("text"), image)
		if err != nil {
			writeServiceError(w, logger, err, "creating post")
			return
		}
		writeJSON(w, logger, http.StatusCreated, dto.NewPostInfo(*post))
	}
}

// EditPostHandler handles PUT /api/posts/{id}. Text and image are replaced together.
func EditPostHandler(posts *community.PostService, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.SessionFromContext(r.Context())

		if err := parseUpload(w, r, cfg.MaxUploadSizeMB); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		image, err := formImage(r, "image")
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid image")
			return
		}

		post, err := posts.EditPost(r.Context(), sess, mux.Vars(r)["id"], r.FormValue("text"), image)
		if err != nil {
			writeServiceError(w, logger, err, "editing post")
			return
		}
		writeJSON(w, logger, http.StatusOK, dto.NewPostInfo(*post))
	}
}

// DeletePostHandler handles DELETE /api/posts/{id}.
func DeletePostHandler(posts *community.PostService, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, _ := middleware.SessionFromContext(r.Context())

		if err := posts.DeletePost(r.Context(), sess, mux.Vars(r)["id"]); err != nil {
			writeServiceError(w, logger, err, "deleting post")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeImage(w http.ResponseWriter, data []byte) {
	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}
