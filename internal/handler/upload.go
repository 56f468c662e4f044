package handler

import (
	"errors"
	"fmt"
	"io"
	"net/http"
)

const megabyte = 1 << 20

// parseUpload limits the request body and parses a multipart or urlencoded form.
func parseUpload(w http.ResponseWriter, r *http.Request, maxSizeMB int64) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxSizeMB*megabyte)

	err := r.ParseMultipartForm(maxSizeMB * megabyte)
	if errors.Is(err, http.ErrNotMultipart) {
		return r.ParseForm()
	}
	return err
}

// formImage returns the uploaded file under field, or nil when none was sent.
func formImage(r *http.Request, field string) ([]byte, error) {
	file, _, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", field, err)
	}
	return data, nil
}
