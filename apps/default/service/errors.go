package service

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError carries the HTTP status a failure should surface with. The REST
// layer maps any other error to a generic 500.
type AppError struct {
	Status  int
	Message string
}

func (e *AppError) Error() string {
	return e.Message
}

// NewAppError creates an application error with an explicit HTTP status.
func NewAppError(status int, message string) *AppError {
	return &AppError{Status: status, Message: message}
}

// AsAppError unwraps err into an AppError if one is in its chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

var (
	// File upload errors.
	ErrNoFilesUploaded    = NewAppError(http.StatusBadRequest, "No file(s) uploaded")
	ErrTooManyUploadFiles = NewAppError(http.StatusBadRequest, "You can upload a maximum of 5 files")
	ErrNoFileIDsProvided  = NewAppError(http.StatusBadRequest, "No file IDs provided")
	ErrFilesNotFound      = NewAppError(http.StatusNotFound, "Files not found")
	ErrFileNotFound       = NewAppError(http.StatusNotFound, "File not found")

	// Video merge errors.
	ErrNoVideosProvided = NewAppError(http.StatusBadRequest, "No files provided")
	ErrTooFewVideos     = NewAppError(http.StatusBadRequest, "At least 2 videos are required for merging")
	ErrTooManyVideos    = NewAppError(http.StatusBadRequest, "You can merge a maximum of 10 videos at once")
	ErrMergeJobNotFound = NewAppError(http.StatusNotFound, "Merge job not found")
	ErrMergeFileTooBig  = NewAppError(http.StatusRequestEntityTooLarge, "File too large")

	ErrMergeJobCreateFailed = NewAppError(
		http.StatusInternalServerError,
		"Failed to create merge job",
	)
	ErrMergeJobStatusFailed = NewAppError(
		http.StatusInternalServerError,
		"Failed to get job status",
	)

	// Auth errors surfaced by the REST layer.
	ErrMissingCredentials = NewAppError(http.StatusUnauthorized, "Missing token")
	ErrInvalidCredentials = NewAppError(http.StatusUnauthorized, "Invalid token")
)

// ErrInvalidVideoTypes reports the offending mime types of a merge request.
func ErrInvalidVideoTypes(mimeTypes []string) *AppError {
	return NewAppError(
		http.StatusBadRequest,
		fmt.Sprintf("Invalid file types detected. Only video files are allowed. Found: %s",
			strings.Join(mimeTypes, ", ")),
	)
}
