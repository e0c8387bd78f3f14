package storage

import (
	"strings"

	"github.com/shahadathhs/service-media/apps/default/service/models"
)

// FolderForMimeType returns the bucket prefix objects of this mime type are
// stored under.
func FolderForMimeType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return "images"
	case strings.HasPrefix(mimeType, "audio/"):
		return "audio"
	case strings.HasPrefix(mimeType, "video/"):
		return "videos"
	default:
		return "documents"
	}
}

// FileTypeForMimeType classifies a mime type into a storable file type.
func FileTypeForMimeType(mimeType string) string {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return models.FileTypeImage
	case strings.HasPrefix(mimeType, "audio/"):
		return models.FileTypeAudio
	case strings.HasPrefix(mimeType, "video/"):
		return models.FileTypeVideo
	case mimeType == "application/pdf":
		return models.FileTypeDocument
	default:
		return models.FileTypeAny
	}
}

// MimeTypeForExtension maps a bare file extension to a mime type.
func MimeTypeForExtension(ext string) string {
	switch strings.ToLower(ext) {
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	case "webp":
		return "image/webp"
	case "gif":
		return "image/gif"
	case "svg":
		return "image/svg+xml"
	case "mp4":
		return "video/mp4"
	case "webm":
		return "video/webm"
	case "ogg":
		return "video/ogg"
	case "mp3":
		return "audio/mpeg"
	case "wav":
		return "audio/wav"
	case "aac":
		return "audio/aac"
	case "pdf":
		return "application/pdf"
	default:
		return "application/octet-stream"
	}
}
