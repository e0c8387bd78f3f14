// Package handlers exposes the media service REST API. Responses use the
// {success, data, message} envelope shared with the realtime gateway.
package handlers

import (
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/pitabwire/util"
	"github.com/shahadathhs/service-media/apps/default/service"
	"github.com/shahadathhs/service-media/apps/default/service/business"
	"github.com/shahadathhs/service-media/internal"
)

const bytesPerMB = 1 << 20

// TokenVerifier validates a bearer token and returns the subject it was
// issued to.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (string, error)
}

// MediaHandler serves the file and video merge REST endpoints.
type MediaHandler struct {
	files           business.FileBusiness
	merges          business.MergeBusiness
	verifier        TokenVerifier
	maxUploadMemory int64
}

// NewMediaHandler creates the REST handler for the media service.
func NewMediaHandler(
	files business.FileBusiness,
	merges business.MergeBusiness,
	verifier TokenVerifier,
	maxUploadSizeMB int,
) *MediaHandler {
	return &MediaHandler{
		files:           files,
		merges:          merges,
		verifier:        verifier,
		maxUploadMemory: int64(maxUploadSizeMB) * bytesPerMB,
	}
}

// Handler returns the HTTP routes of the media API.
func (mh *MediaHandler) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", mh.authenticated(mh.handleUpload))
	mux.HandleFunc("DELETE /upload", mh.authenticated(mh.handleDeleteFiles))
	mux.HandleFunc("GET /upload", mh.authenticated(mh.handleListFiles))
	mux.HandleFunc("GET /upload/{id}", mh.authenticated(mh.handleGetFile))
	mux.HandleFunc("POST /upload/merge-videos", mh.authenticated(mh.handleMergeVideos))
	mux.HandleFunc("GET /upload/merge-job/{mergeId}", mh.authenticated(mh.handleMergeJobStatus))
	return mux
}

type authedHandler func(w http.ResponseWriter, r *http.Request, userID string)

// authenticated wraps a route with bearer token verification.
func (mh *MediaHandler) authenticated(next authedHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			writeError(r.Context(), w, service.ErrMissingCredentials)
			return
		}

		userID, err := mh.verifier.Verify(r.Context(), token)
		if err != nil || userID == "" {
			writeError(r.Context(), w, service.ErrInvalidCredentials)
			return
		}

		next(w, r, userID)
	}
}

func (mh *MediaHandler) handleUpload(w http.ResponseWriter, r *http.Request, userID string) {
	files, closers, err := mh.parseMultipartFiles(r, "files")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	defer closeAll(closers)

	result, err := mh.files.UploadFiles(r.Context(), userID, files)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, internal.SuccessEnvelope(result, "Files uploaded successfully"))
}

type deleteFilesRequest struct {
	FileIDs []string `json:"fileIds"`
}

func (mh *MediaHandler) handleDeleteFiles(w http.ResponseWriter, r *http.Request, userID string) {
	var req deleteFilesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(r.Context(), w, service.ErrNoFileIDsProvided)
		return
	}

	result, err := mh.files.DeleteFiles(r.Context(), userID, req.FileIDs)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, internal.SuccessEnvelope(result, "Files deleted successfully"))
}

func (mh *MediaHandler) handleListFiles(w http.ResponseWriter, r *http.Request, _ string) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	files, meta, err := mh.files.ListFiles(r.Context(), page, limit)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, internal.SuccessPaginatedEnvelope(files, meta, "Files found"))
}

func (mh *MediaHandler) handleGetFile(w http.ResponseWriter, r *http.Request, _ string) {
	file, err := mh.files.GetFile(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, internal.SuccessEnvelope(file, "File found"))
}

func (mh *MediaHandler) handleMergeVideos(w http.ResponseWriter, r *http.Request, userID string) {
	files, closers, err := mh.parseMultipartFiles(r, "videos")
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}
	defer closeAll(closers)

	result, err := mh.merges.MergeVideos(r.Context(), userID, files)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated,
		internal.SuccessEnvelope(result, "Videos uploaded and merge job created successfully"))
}

func (mh *MediaHandler) handleMergeJobStatus(w http.ResponseWriter, r *http.Request, _ string) {
	status, err := mh.merges.MergeJobStatus(r.Context(), r.PathValue("mergeId"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK,
		internal.SuccessEnvelope(status, "Merge job status retrieved successfully"))
}

// parseMultipartFiles reads the named multipart field into upload inputs.
// Callers must close the returned files once the business call finishes.
func (mh *MediaHandler) parseMultipartFiles(
	r *http.Request,
	field string,
) ([]business.UploadFile, []multipart.File, error) {
	if err := r.ParseMultipartForm(mh.maxUploadMemory); err != nil {
		return nil, nil, service.ErrNoFilesUploaded
	}

	headers := r.MultipartForm.File[field]
	files := make([]business.UploadFile, 0, len(headers))
	closers := make([]multipart.File, 0, len(headers))

	for _, header := range headers {
		content, err := header.Open()
		if err != nil {
			closeAll(closers)
			return nil, nil, service.ErrNoFilesUploaded
		}
		closers = append(closers, content)
		files = append(files, business.UploadFile{
			Filename: header.Filename,
			MimeType: header.Header.Get("Content-Type"),
			Size:     header.Size,
			Content:  content,
		})
	}

	return files, closers, nil
}

func closeAll(closers []multipart.File) {
	for _, closer := range closers {
		_ = closer.Close()
	}
}

func extractBearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	if appErr, ok := service.AsAppError(err); ok {
		writeJSON(w, appErr.Status, internal.ErrorEnvelope(appErr.Message))
		return
	}

	util.Log(ctx).WithError(err).Error("request failed")
	writeJSON(w, http.StatusInternalServerError, internal.ErrorEnvelope("Internal server error"))
}
