// Package handlers is the thin HTTP adapter in front of the upload
// service: it stages the multipart body into a per-task temp dir,
// validates it and hands off to the pipelines.
package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"msfiles/apperr"
	"msfiles/dto"
	"msfiles/middleware"
	"msfiles/models"
	"msfiles/service"
	"msfiles/validation"
)

type UploadHandler struct {
	service     *service.UploadService
	tempDir     string
	maxFileSize int64
	logger      *zap.Logger
}

func NewUploadHandler(svc *service.UploadService, tempDir string, maxFileSize int64, logger *zap.Logger) *UploadHandler {
	return &UploadHandler{
		service:     svc,
		tempDir:     tempDir,
		maxFileSize: maxFileSize,
		logger:      logger,
	}
}

// Register wires the routes onto the mux.
func (h *UploadHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/upload/file", h.uploadAs(models.ActionUploadFile))
	mux.HandleFunc("/upload/image", h.uploadAs(models.ActionUploadImage))
	mux.HandleFunc("/upload/video", h.uploadAs(models.ActionUploadVideo))
	mux.HandleFunc("/status/", h.Status)
	mux.HandleFunc("/size/", h.TotalSize)
	mux.HandleFunc("/objects/delete", h.DeleteObjects)
	mux.HandleFunc("/objects/url", h.ObjectURL)
	mux.HandleFunc("/objects/commit/", h.Commit)
}

func (h *UploadHandler) uploadAs(action models.FileAction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			h.handleError(w, r, "Method not allowed", nil, http.StatusMethodNotAllowed)
			return
		}
		h.upload(w, r, action)
	}
}

func (h *UploadHandler) upload(w http.ResponseWriter, r *http.Request, action models.FileAction) {
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		h.handleError(w, r, "Failed to parse form", err, http.StatusBadRequest)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		h.handleError(w, r, "Failed to get file", err, http.StatusBadRequest)
		return
	}
	defer file.Close()

	if h.maxFileSize > 0 && header.Size > h.maxFileSize {
		h.handleError(w, r, "File too large", validation.ErrFileTooLarge, http.StatusRequestEntityTooLarge)
		return
	}

	kind, err := validation.DetectKind(file)
	if err != nil && action != models.ActionUploadFile {
		h.handleError(w, r, "Invalid file", err, http.StatusBadRequest)
		return
	}
	if err == nil {
		if err := validation.CheckKind(kind, action); err != nil {
			h.handleError(w, r, "Invalid file", err, http.StatusBadRequest)
			return
		}
	}

	opts, err := parseUploadOptions(r)
	if err != nil {
		h.handleError(w, r, "Invalid options", err, http.StatusBadRequest)
		return
	}

	dir, stagedName, err := h.stage(file, header.Filename)
	if err != nil {
		h.handleError(w, r, "Failed to stage file", err, http.StatusInternalServerError)
		return
	}

	uid := r.FormValue("uid")
	if uid == "" {
		uid = uuid.New().String()
	}

	task, err := h.service.Upload(r.Context(), service.UploadRequest{
		Originalname: filepath.Base(header.Filename),
		Dir:          dir,
		Filename:     stagedName,
		Action:       action,
		Options:      opts,
		TaskUID:      uid,
		Bucket:       r.FormValue("bucket"),
	})
	if err != nil {
		if errors.Is(err, apperr.ErrWaitTimeout) {
			h.handleError(w, r, "Confirmation wait timed out", err, http.StatusGatewayTimeout)
			return
		}
		h.handleError(w, r, "Failed to create task", err, http.StatusInternalServerError)
		return
	}

	h.logger.Info("Upload accepted",
		zap.String("trace_id", middleware.GetTraceID(r.Context())),
		zap.Int64("task_id", task.ID),
		zap.String("filename", header.Filename),
	)

	h.respondJSON(w, http.StatusCreated, dto.NewTaskResponse(task))
}

// stage copies the multipart body into a fresh temp dir under a random
// name. The pipeline owns the dir from here on.
func (h *UploadHandler) stage(file io.Reader, originalname string) (dir, name string, err error) {
	dir, err = os.MkdirTemp(h.tempDir, "upl_")
	if err != nil {
		return "", "", err
	}

	name = uuid.New().String() + strings.ToLower(filepath.Ext(originalname))

	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		os.RemoveAll(dir)
		return "", "", err
	}

	return dir, name, nil
}

func (h *UploadHandler) Status(w http.ResponseWriter, r *http.Request) {
	taskID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/status/"), 10, 64)
	if err != nil {
		h.handleError(w, r, "Task ID is required", err, http.StatusBadRequest)
		return
	}

	task, err := h.service.TaskStatus(r.Context(), taskID)
	if err != nil {
		if service.IsNotFound(err) {
			h.handleError(w, r, "Task not found", err, http.StatusNotFound)
			return
		}
		h.handleError(w, r, "Failed to get task status", err, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.NewTaskResponse(task))
}

func (h *UploadHandler) TotalSize(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/size/")

	var (
		size   int64
		taskID int64
		err    error
	)

	if id, convErr := strconv.ParseInt(rest, 10, 64); convErr == nil {
		taskID = id
		size, err = h.service.TotalSize(r.Context(), id)
	} else {
		size, err = h.service.TotalSizeByUID(r.Context(), rest)
	}

	if err != nil {
		if service.IsNotFound(err) {
			h.handleError(w, r, "Task not found", err, http.StatusNotFound)
			return
		}
		h.handleError(w, r, "Failed to get total size", err, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.TotalSizeResponse{TaskID: taskID, TotalSize: size})
}

func (h *UploadHandler) DeleteObjects(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.handleError(w, r, "Method not allowed", nil, http.StatusMethodNotAllowed)
		return
	}

	var req dto.DeleteObjectsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.handleError(w, r, "Invalid request body", err, http.StatusBadRequest)
		return
	}

	batch, err := h.service.DeleteObjects(r.Context(), service.DeleteObjectsParams{
		TaskIDs:     req.TaskIDs,
		TaskUIDs:    req.TaskUIDs,
		Objectnames: req.Objectnames,
		Bucket:      req.Bucket,
	})
	if err != nil {
		switch {
		case service.IsNotFound(err):
			h.handleError(w, r, "Task not found", err, http.StatusNotFound)
		case apperr.IsConsistency(err):
			h.handleError(w, r, "Inconsistent delete selection", err, http.StatusBadRequest)
		default:
			h.handleError(w, r, "Failed to delete objects", err, http.StatusInternalServerError)
		}
		return
	}

	h.respondJSON(w, http.StatusOK, dto.DeleteObjectsResponse{
		Bucket:      batch.Bucket,
		Objectnames: batch.Objectnames,
	})
}

func (h *UploadHandler) ObjectURL(w http.ResponseWriter, r *http.Request) {
	objectname := r.URL.Query().Get("objectname")
	if objectname == "" {
		h.handleError(w, r, "Objectname is required", nil, http.StatusBadRequest)
		return
	}

	bucket := r.URL.Query().Get("bucket")

	url, err := h.service.ObjectURL(r.Context(), objectname, bucket)
	if err != nil {
		h.handleError(w, r, "Failed to get object url", err, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.ObjectURLResponse{
		Objectname: objectname,
		Bucket:     bucket,
		URL:        url,
	})
}

func (h *UploadHandler) Commit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		h.handleError(w, r, "Method not allowed", nil, http.StatusMethodNotAllowed)
		return
	}

	taskID, err := strconv.ParseInt(strings.TrimPrefix(r.URL.Path, "/objects/commit/"), 10, 64)
	if err != nil {
		h.handleError(w, r, "Task ID is required", err, http.StatusBadRequest)
		return
	}

	scheduled, err := h.service.CommitTaskObjects(r.Context(), taskID)
	if err != nil {
		if service.IsNotFound(err) {
			h.handleError(w, r, "Task not found", err, http.StatusNotFound)
			return
		}
		h.handleError(w, r, "Failed to schedule commit", err, http.StatusInternalServerError)
		return
	}

	h.respondJSON(w, http.StatusOK, dto.CommitResponse{TaskID: taskID, Scheduled: scheduled})
}

func parseUploadOptions(r *http.Request) (service.UploadOptions, error) {
	var opts service.UploadOptions
	var err error

	if v := r.FormValue("quality"); v != "" {
		if opts.Quality, err = strconv.Atoi(v); err != nil {
			return opts, err
		}
	}
	if v := r.FormValue("width"); v != "" {
		if opts.Width, err = strconv.Atoi(v); err != nil {
			return opts, err
		}
	}
	if v := r.FormValue("height"); v != "" {
		if opts.Height, err = strconv.Atoi(v); err != nil {
			return opts, err
		}
	}

	opts.Ext = r.FormValue("ext")

	if v := r.FormValue("convert"); v != "" {
		convert, err := strconv.ParseBool(v)
		if err != nil {
			return opts, err
		}
		opts.Convert = &convert
	}

	if v := r.FormValue("synchronous"); v != "" {
		if opts.Synchronous, err = strconv.ParseBool(v); err != nil {
			return opts, err
		}
	}

	if v := r.FormValue("sizes"); v != "" {
		if err := json.Unmarshal([]byte(v), &opts.Sizes); err != nil {
			return opts, err
		}
	}

	return opts, nil
}

func (h *UploadHandler) handleError(w http.ResponseWriter, r *http.Request, message string, err error, status int) {
	traceID := middleware.GetTraceID(r.Context())

	h.logger.Error(message,
		zap.String("trace_id", traceID),
		zap.Error(err),
	)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(dto.ErrorResponse{
		Error:   message,
		TraceID: traceID,
	})
}

func (h *UploadHandler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
