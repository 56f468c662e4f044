package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"petlens/internal/dto"
	"petlens/internal/logger"
	"petlens/internal/service/community"
)

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, logger *logger.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Error encoding JSON response: %v", err)
	}
}

// writeError answers with a JSON error body.
func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{Error: message})
}

// errorStatus maps service errors to HTTP status codes.
func errorStatus(err error) int {
	switch {
	case errors.Is(err, community.ErrUnauthenticated),
		errors.Is(err, community.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, community.ErrNotAuthor):
		return http.StatusForbidden
	case errors.Is(err, community.ErrPostNotFound),
		errors.Is(err, community.ErrPetNotFound):
		return http.StatusNotFound
	case errors.Is(err, community.ErrUserExists):
		return http.StatusConflict
	case errors.Is(err, community.ErrEmptyPost),
		errors.Is(err, community.ErrMissingField),
		errors.Is(err, community.ErrPasswordMismatch),
		errors.Is(err, community.ErrMissingPhoto):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// writeServiceError logs unexpected failures and answers every error with a
// JSON message. Internal details are not sent to the client.
func writeServiceError(w http.ResponseWriter, logger *logger.Logger, err error, action string) {
	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.Error("Error %s: %v", action, err)
		writeError(w, status, "Internal Server Error")
		return
	}
	writeError(w, status, err.Error())
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// maxPageLimit caps the page size a client may request.
const maxPageLimit = 100

// pageBounds returns the slice bounds of page for total items split into
// pages of limit. limit is capped at maxPageLimit; pages past the end are empty.
func pageBounds(total, page, limit int) (start, end, size int) {
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if page-1 > total/limit {
		return total, total, limit
	}
	start = (page - 1) * limit
	if start > total {
		start = total
	}
	end = start + limit
	if end > total {
		end = total
	}
	return start, end, limit
}

// parseDate parses a date string in the format "2006-01-02" (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}
