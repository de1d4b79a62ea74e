package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"msfiles/models"
)

// MemoryRepo is an in-memory ledger with the same transition semantics as
// the Postgres implementation. It backs service tests and database-less
// local runs.
type MemoryRepo struct {
	mu      sync.Mutex
	tasks   map[int64]*models.Task
	objects map[int64][]models.StorageObject
	nextID  int64
	nextObj int64
}

func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		tasks:   make(map[int64]*models.Task),
		objects: make(map[int64][]models.StorageObject),
	}
}

func (r *MemoryRepo) CreateTask(_ context.Context, params CreateTaskParams) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	now := time.Now()
	task := &models.Task{
		ID:           r.nextID,
		UID:          params.UID,
		Action:       params.Action,
		Status:       models.StatusInProgress,
		Originalname: params.Originalname,
		Bucket:       params.Bucket,
		Parameters:   params.Parameters,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	r.tasks[task.ID] = task

	copied := *task
	return &copied, nil
}

func (r *MemoryRepo) GetTask(_ context.Context, id int64) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}

	copied := *task
	return &copied, nil
}

func (r *MemoryRepo) GetTaskByUID(_ context.Context, uid string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, task := range r.tasks {
		if task.UID == uid {
			copied := *task
			return &copied, nil
		}
	}

	return nil, ErrTaskNotFound
}

func (r *MemoryRepo) RecordArtifact(_ context.Context, params RecordArtifactParams) (*models.StorageObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[params.TaskID]
	if !ok {
		return nil, ErrTaskNotFound
	}

	r.nextObj++
	now := time.Now()
	obj := models.StorageObject{
		ID:         r.nextObj,
		TaskID:     params.TaskID,
		Objectname: params.Objectname,
		Bucket:     params.Bucket,
		Size:       params.Size,
		Main:       params.Main,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	r.objects[params.TaskID] = append(r.objects[params.TaskID], obj)

	if params.Main && task.Objectname == nil {
		name := params.Objectname
		task.Objectname = &name
		task.UpdatedAt = now
	}

	return &obj, nil
}

func (r *MemoryRepo) TaskObjects(_ context.Context, taskID int64) ([]models.StorageObject, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.tasks[taskID]; !ok {
		return nil, ErrTaskNotFound
	}

	seen := make(map[string]bool)
	var objs []models.StorageObject
	for _, obj := range r.objects[taskID] {
		if seen[obj.Objectname] {
			continue
		}
		seen[obj.Objectname] = true
		objs = append(objs, obj)
	}

	sort.Slice(objs, func(i, j int) bool { return objs[i].Objectname < objs[j].Objectname })

	return objs, nil
}

func (r *MemoryRepo) TotalArtifactSize(ctx context.Context, taskID int64) (int64, error) {
	objs, err := r.TaskObjects(ctx, taskID)
	if err != nil {
		return 0, err
	}

	var total int64
	for _, obj := range objs {
		total += obj.Size
	}

	return total, nil
}

func (r *MemoryRepo) DeleteArtifacts(_ context.Context, taskID int64, objectnames []string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	doomed := make(map[string]bool, len(objectnames))
	for _, name := range objectnames {
		doomed[name] = true
	}

	var kept []models.StorageObject
	for _, obj := range r.objects[taskID] {
		if !doomed[obj.Objectname] {
			kept = append(kept, obj)
		}
	}
	r.objects[taskID] = kept

	return nil
}

func (r *MemoryRepo) MarkDone(_ context.Context, taskID int64) (*models.Task, error) {
	return r.transition(taskID, models.StatusDone, nil)
}

func (r *MemoryRepo) MarkError(_ context.Context, taskID int64, message string) (*models.Task, error) {
	return r.transition(taskID, models.StatusError, &message)
}

func (r *MemoryRepo) transition(taskID int64, status models.TaskStatus, message *string) (*models.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	task, ok := r.tasks[taskID]
	if !ok || task.Status != models.StatusInProgress {
		return nil, ErrTaskNotFound
	}

	task.Status = status
	task.ErrorMessage = message
	task.UpdatedAt = time.Now()

	copied := *task
	return &copied, nil
}

func (r *MemoryRepo) SweepOrphanedTasks(_ context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var count int64
	message := InterruptedMessage
	for _, task := range r.tasks {
		if task.Status == models.StatusInProgress {
			task.Status = models.StatusError
			task.ErrorMessage = &message
			task.UpdatedAt = time.Now()
			count++
		}
	}

	return count, nil
}
