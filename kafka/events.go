package kafka

import (
	"time"

	"msfiles/models"
)

// Event names; the wire topic is "<prefix>.<name>".
const (
	EventTaskStart     = "task_start"
	EventUploadedFile  = "uploaded_file"
	EventUploadedImage = "uploaded_image"
	EventUploadedVideo = "uploaded_video"
	EventTaskCompleted = "task_completed"
	EventTaskError     = "task_error"
)

type TaskStartEvent struct {
	TaskID    int64             `json:"task_id"`
	UID       string            `json:"uid"`
	Action    models.FileAction `json:"action"`
	Status    models.TaskStatus `json:"status"`
	CreatedAt time.Time         `json:"created_at"`
}

// FileUploadEvent reports one persisted artifact. It is published on
// uploaded_file, uploaded_image or uploaded_video depending on the
// pipeline that produced the artifact.
type FileUploadEvent struct {
	Action       models.FileAction `json:"action"`
	Status       models.TaskStatus `json:"status"`
	Objectname   string            `json:"objectname"`
	Originalname string            `json:"originalname"`
	Size         int64             `json:"size"`
	Type         models.FileType   `json:"type"`
	Bucket       string            `json:"bucket"`
	TaskID       int64             `json:"task_id"`
	UID          string            `json:"uid"`
	CreatedAt    time.Time         `json:"created_at"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	Width        int               `json:"width,omitempty"`
	Height       int               `json:"height,omitempty"`
}

type TaskCompletedEvent struct {
	TaskID    int64             `json:"task_id"`
	UID       string            `json:"uid"`
	Action    models.FileAction `json:"action"`
	Status    models.TaskStatus `json:"status"`
	TotalSize int64             `json:"total_size"`
}

type TaskErrorEvent struct {
	TaskID  int64             `json:"task_id"`
	UID     string            `json:"uid"`
	Action  models.FileAction `json:"action"`
	Status  models.TaskStatus `json:"status"`
	Message string            `json:"message,omitempty"`
}

// Confirmation is the inbound acknowledgement consumed from external
// systems: the uid is the only field needed to resolve a waiting caller.
type Confirmation struct {
	UID string `json:"uid"`
}
