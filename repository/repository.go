package repository

import (
	"context"
	"errors"

	"msfiles/models"
)

var (
	ErrTaskNotFound   = errors.New("task not found")
	ErrObjectNotFound = errors.New("storage object not found")
)

// InterruptedMessage is written by the boot sweep to tasks whose pipeline
// did not survive a restart.
const InterruptedMessage = "Task stopped on server restart."

type CreateTaskParams struct {
	Action       models.FileAction
	Originalname string
	Bucket       string
	UID          string
	Parameters   string
}

type RecordArtifactParams struct {
	TaskID     int64
	Objectname string
	Bucket     string
	Size       int64
	Main       bool
}

// Repository is the task ledger: durable task and artifact records with
// status transitions.
type Repository interface {
	// CreateTask inserts a task in inProgress status.
	CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error)
	GetTask(ctx context.Context, id int64) (*models.Task, error)
	GetTaskByUID(ctx context.Context, uid string) (*models.Task, error)

	// RecordArtifact inserts one artifact row. The first main artifact
	// also sets the task's objectname.
	RecordArtifact(ctx context.Context, params RecordArtifactParams) (*models.StorageObject, error)
	// TaskObjects lists the task's artifacts, distinct by objectname.
	TaskObjects(ctx context.Context, taskID int64) ([]models.StorageObject, error)
	// TotalArtifactSize sums artifact sizes distinct by objectname, so an
	// artifact referenced twice never double-counts.
	TotalArtifactSize(ctx context.Context, taskID int64) (int64, error)
	DeleteArtifacts(ctx context.Context, taskID int64, objectnames []string) error

	MarkDone(ctx context.Context, taskID int64) (*models.Task, error)
	MarkError(ctx context.Context, taskID int64, message string) (*models.Task, error)

	// SweepOrphanedTasks forces every inProgress task to error. Run once
	// at process start; returns the number of swept tasks.
	SweepOrphanedTasks(ctx context.Context) (int64, error)
}
