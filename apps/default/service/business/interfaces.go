// Package business implements the file and video merge operations of the
// media service. Persistence and AWS access stay behind narrow interfaces so
// every path is testable with fakes.
package business

import (
	"context"
	"io"

	"github.com/shahadathhs/service-media/apps/default/service/models"
	"github.com/shahadathhs/service-media/internal"
)

// UploadFile is one file received from a multipart request.
type UploadFile struct {
	Filename string
	MimeType string
	Size     int64
	Content  io.Reader
}

// UploadResult reports the outcome of a multi-file upload.
type UploadResult struct {
	Files []*models.FileInstance `json:"files"`
	Count int                    `json:"count"`
}

// DeleteResult reports which files were removed.
type DeleteResult struct {
	Files []*models.FileInstance `json:"files"`
	Count int                    `json:"count"`
}

// MergeSourceFile identifies one input of a merge job.
type MergeSourceFile struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Size     int64  `json:"size"`
}

// MergeSubmission reports a freshly created merge job.
type MergeSubmission struct {
	JobID       string            `json:"jobId"`
	OutputURL   string            `json:"outputUrl"`
	Status      string            `json:"status"`
	MergeID     string            `json:"mergeId"`
	SourceFiles []MergeSourceFile `json:"sourceFiles"`
	Count       int               `json:"count"`
}

// MergeStatus reports the current state of a merge job.
type MergeStatus struct {
	MergeID   string `json:"mergeId"`
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	OutputURL string `json:"outputUrl"`
}

// FileStore is the persistence surface file operations need.
type FileStore interface {
	Create(ctx context.Context, file *models.FileInstance) error
	GetByID(ctx context.Context, id string) (*models.FileInstance, error)
	GetByIDs(ctx context.Context, ids []string) ([]*models.FileInstance, error)
	ListPaged(ctx context.Context, page, limit int) ([]*models.FileInstance, int64, error)
	Delete(ctx context.Context, id string) error
}

// MergeJobStore is the persistence surface merge operations need.
type MergeJobStore interface {
	Create(ctx context.Context, job *models.VideoMergeJob) error
	GetByID(ctx context.Context, id string) (*models.VideoMergeJob, error)
	GetUnfinished(ctx context.Context, limit int) ([]*models.VideoMergeJob, error)
	UpdateStatus(ctx context.Context, id, status string) error
}

// Notifier pushes user-addressed events toward the realtime gateway.
// Delivery is best effort; callers must not fail an operation on a
// notification error.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, event string, data any, message string) error
	BroadcastToUser(ctx context.Context, userID, event string, data any, message string) error
}

// FileBusiness defines file upload, deletion and retrieval operations.
type FileBusiness interface {
	UploadFiles(ctx context.Context, userID string, files []UploadFile) (*UploadResult, error)
	DeleteFiles(ctx context.Context, userID string, fileIDs []string) (*DeleteResult, error)
	ListFiles(ctx context.Context, page, limit int) ([]*models.FileInstance, internal.PageMeta, error)
	GetFile(ctx context.Context, id string) (*models.FileInstance, error)
}

// MergeBusiness defines video merge submission and tracking operations.
type MergeBusiness interface {
	MergeVideos(ctx context.Context, userID string, files []UploadFile) (*MergeSubmission, error)
	MergeJobStatus(ctx context.Context, mergeID string) (*MergeStatus, error)
}
