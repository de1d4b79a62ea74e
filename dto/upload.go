package dto

import (
	"time"

	"msfiles/models"
)

// TaskResponse is the task snapshot returned by upload and status routes.
type TaskResponse struct {
	ID           int64             `json:"id"`
	UID          string            `json:"uid"`
	Action       models.FileAction `json:"action"`
	Status       models.TaskStatus `json:"status"`
	Originalname string            `json:"originalname,omitempty"`
	Objectname   string            `json:"objectname,omitempty"`
	Bucket       string            `json:"bucket,omitempty"`
	ErrorMessage string            `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at,omitempty"`
}

func NewTaskResponse(task *models.Task) TaskResponse {
	resp := TaskResponse{
		ID:           task.ID,
		UID:          task.UID,
		Action:       task.Action,
		Status:       task.Status,
		Originalname: task.Originalname,
		Bucket:       task.Bucket,
		CreatedAt:    task.CreatedAt,
	}
	if task.Objectname != nil {
		resp.Objectname = *task.Objectname
	}
	if task.ErrorMessage != nil {
		resp.ErrorMessage = *task.ErrorMessage
	}
	return resp
}

// DeleteObjectsRequest selects objects for removal by owning task or by
// explicit name.
type DeleteObjectsRequest struct {
	TaskIDs     []int64  `json:"task_ids,omitempty"`
	TaskUIDs    []string `json:"task_uids,omitempty"`
	Objectnames []string `json:"objectnames,omitempty"`
	Bucket      string   `json:"bucket,omitempty"`
}

type DeleteObjectsResponse struct {
	Bucket      string   `json:"bucket"`
	Objectnames []string `json:"objectnames"`
}

type TotalSizeResponse struct {
	TaskID    int64 `json:"task_id"`
	TotalSize int64 `json:"total_size"`
}

type ObjectURLResponse struct {
	Objectname string `json:"objectname"`
	Bucket     string `json:"bucket"`
	URL        string `json:"url"`
}

type CommitResponse struct {
	TaskID    int64 `json:"task_id"`
	Scheduled int   `json:"scheduled"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}
