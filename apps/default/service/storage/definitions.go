// Package storage wraps the object store and the video transcoding service
// behind narrow interfaces so business logic never touches AWS types.
package storage

import (
	"context"
	"io"
)

// UploadInput describes one object to store.
type UploadInput struct {
	OriginalFilename string
	MimeType         string
	Size             int64
	Body             io.Reader
}

// StoredObject describes where an uploaded object ended up.
type StoredObject struct {
	Key      string
	URL      string
	Filename string
}

// ObjectStorage stores and removes raw objects.
type ObjectStorage interface {
	Upload(ctx context.Context, input UploadInput) (*StoredObject, error)
	Delete(ctx context.Context, key string) error
}

// MergeJob identifies a submitted concatenation job and where its output
// will land once complete.
type MergeJob struct {
	JobID     string
	OutputURL string
}

// MergeConverter submits and tracks video concatenation jobs.
type MergeConverter interface {
	CreateMergeJob(ctx context.Context, videoURLs []string) (*MergeJob, error)
	GetJobStatus(ctx context.Context, jobID string) (string, error)
}
