package models

import (
	"github.com/pitabwire/frame/data"
)

// File type classifications derived from the mime type at upload.
const (
	FileTypeImage    = "image"
	FileTypeAudio    = "audio"
	FileTypeVideo    = "video"
	FileTypeDocument = "document"
	FileTypeAny      = "any"
)

// Merge job statuses, mirroring the MediaConvert job lifecycle.
const (
	MergeStatusSubmitted   = "SUBMITTED"
	MergeStatusProgressing = "PROGRESSING"
	MergeStatusComplete    = "COMPLETE"
	MergeStatusError       = "ERROR"
	MergeStatusCanceled    = "CANCELED"
)

// IsTerminalMergeStatus reports whether a merge job can no longer change state.
func IsTerminalMergeStatus(status string) bool {
	switch status {
	case MergeStatusComplete, MergeStatusError, MergeStatusCanceled:
		return true
	default:
		return false
	}
}

// User represents an account able to authenticate and receive realtime events.
type User struct {
	data.BaseModel
	Email string `gorm:"type:varchar(255);uniqueIndex" json:"email"`
	Name  string `gorm:"type:varchar(255)"             json:"name"`
	Role  string `gorm:"type:varchar(50)"              json:"role"`
}

// FileInstance represents an object stored in the bucket.
type FileInstance struct {
	data.BaseModel
	Filename         string `gorm:"type:varchar(255)"       json:"filename"`
	OriginalFilename string `gorm:"type:varchar(255)"       json:"originalFilename"`
	Path             string `gorm:"type:varchar(512)"       json:"path"`
	URL              string `gorm:"type:varchar(1024)"      json:"url"`
	FileType         string `gorm:"type:varchar(20)"        json:"fileType"`
	MimeType         string `gorm:"type:varchar(100)"       json:"mimeType"`
	Size             int64  `json:"size"`
	OwnerID          string `gorm:"type:varchar(50);index"  json:"ownerId"`
}

// VideoMergeJob tracks a MediaConvert concatenation job from submission to a
// terminal state. Source file IDs live in Properties so the record survives
// source deletion.
type VideoMergeJob struct {
	data.BaseModel
	JobID       string `gorm:"type:varchar(100);index" json:"jobId"`
	OutputURL   string `gorm:"type:varchar(1024)"      json:"outputUrl"`
	Status      string `gorm:"type:varchar(20);index"  json:"status"`
	SubmittedBy string `gorm:"type:varchar(50);index"  json:"submittedBy"`
	Properties  data.JSONMap
}

const sourceFileIDsKey = "source_file_ids"

// SetSourceFileIDs records the uploaded inputs the merge was built from.
func (j *VideoMergeJob) SetSourceFileIDs(ids []string) {
	if j.Properties == nil {
		j.Properties = data.JSONMap{}
	}
	stored := make([]any, 0, len(ids))
	for _, id := range ids {
		stored = append(stored, id)
	}
	j.Properties[sourceFileIDsKey] = stored
}

// SourceFileIDs returns the recorded input file IDs. Values survive a JSON
// round trip through the database, so entries come back as []any.
func (j *VideoMergeJob) SourceFileIDs() []string {
	raw, ok := j.Properties[sourceFileIDsKey]
	if !ok {
		return nil
	}

	switch values := raw.(type) {
	case []string:
		return values
	case []any:
		ids := make([]string, 0, len(values))
		for _, v := range values {
			if id, isString := v.(string); isString {
				ids = append(ids, id)
			}
		}
		return ids
	default:
		return nil
	}
}
