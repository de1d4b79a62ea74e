package models

import (
	"time"
)

type TaskStatus string

const (
	StatusInProgress TaskStatus = "inProgress"
	StatusDone       TaskStatus = "done"
	StatusError      TaskStatus = "error"
)

type FileAction string

const (
	ActionUploadFile  FileAction = "uploadFile"
	ActionUploadImage FileAction = "uploadImage"
	ActionUploadVideo FileAction = "uploadVideo"
)

// FileType is the role an artifact plays within its task.
type FileType string

const (
	TypeMainFile  FileType = "mainFile"
	TypeThumbnail FileType = "thumbnail"
	TypeAltVideo  FileType = "altVideo"
	TypePreview   FileType = "preview"
	TypePart      FileType = "part"
)

// Task is one upload's lifecycle record. Status transitions
// inProgress->done or inProgress->error exactly once.
type Task struct {
	ID           int64
	UID          string
	Action       FileAction
	Status       TaskStatus
	Originalname string
	Objectname   *string
	Bucket       string
	Parameters   string
	ErrorMessage *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// StorageObject is one persisted artifact tied to a task. At most one
// object per task has Main=true and all objects share the task's bucket.
type StorageObject struct {
	ID         int64
	TaskID     int64
	Objectname string
	Bucket     string
	Size       int64
	Main       bool
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type Size struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}
