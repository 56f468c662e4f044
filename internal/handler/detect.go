package handler

import (
	"net/http"

	"petlens/internal/config"
	"petlens/internal/logger"
	"petlens/internal/model"
	"petlens/internal/repository"
	"petlens/internal/service"
	"petlens/internal/service/vision"
)

// DetectHandler classifies an uploaded image and matches it against the feed.
// The optional "orientation" field says how the image is rotated.
func DetectHandler(manager *service.Manager, cfg *config.Config, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := parseUpload(w, r, cfg.MaxUploadSizeMB); err != nil {
			writeError(w, http.StatusBadRequest, "invalid upload")
			return
		}
		image, err := formImage(r, "image")
		if err != nil || len(image) == 0 {
			writeError(w, http.StatusBadRequest, "image is required")
			return
		}

		orientation, err := vision.ParseOrientation(r.FormValue("orientation"))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		analysis, err := manager.Analyze(r.Context(), image, orientation)
		if err != nil {
			logger.Warning("Detection on upload failed: %v", err)
			writeError(w, http.StatusUnprocessableEntity, "could not analyze image")
			return
		}
		writeJSON(w, logger, http.StatusOK, analysis)
	}
}

// MatchHandler returns the latest live overlay and match, or 204 before the
// first cycle completes.
func MatchHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		latest := manager.Latest()
		if latest == nil {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		writeJSON(w, logger, http.StatusOK, latest)
	}
}

// StatsResponse combines stored history with the live pipeline counters.
type StatsResponse struct {
	History  *model.DetectionStats `json:"history"`
	Pipeline service.Stats         `json:"pipeline"`
}

// StatsHandler handles GET /api/stats.
func StatsHandler(manager *service.Manager, detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := atoiDefault(r.URL.Query().Get("limit"), 10)

		stats, err := detectionRepo.GetStats(limit)
		if err != nil {
			logger.Error("Error querying detection stats: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}

		writeJSON(w, logger, http.StatusOK, StatsResponse{History: stats, Pipeline: manager.Stats()})
	}
}

// ClearStatsHandler deletes the stored detection history.
func ClearStatsHandler(detectionRepo repository.DetectionRepository, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := detectionRepo.DeleteAll(); err != nil {
			logger.Error("Error clearing detection history: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal Server Error")
			return
		}
		logger.Info("Detection history cleared")
		w.WriteHeader(http.StatusNoContent)
	}
}
