package service

import (
	"context"

	"go.uber.org/zap"

	"msfiles/models"
	"msfiles/storage"
)

// DeleteObjectsParams selects objects by owning task (id or uid) and by
// explicit object names. All selected objects must live in one bucket.
type DeleteObjectsParams struct {
	TaskIDs     []int64
	TaskUIDs    []string
	Objectnames []string
	Bucket      string
}

// DeleteObjects removes the selected objects from the store and drops
// their ledger rows. The selection is validated as a single-bucket batch
// before any network call, so a mixed selection deletes nothing.
func (s *UploadService) DeleteObjects(ctx context.Context, params DeleteObjectsParams) (storage.Batch, error) {
	tasks := make([]*models.Task, 0, len(params.TaskIDs)+len(params.TaskUIDs))

	for _, id := range params.TaskIDs {
		task, err := s.repo.GetTask(ctx, id)
		if err != nil {
			return storage.Batch{}, err
		}
		tasks = append(tasks, task)
	}

	for _, uid := range params.TaskUIDs {
		task, err := s.repo.GetTaskByUID(ctx, uid)
		if err != nil {
			return storage.Batch{}, err
		}
		tasks = append(tasks, task)
	}

	var objects []models.StorageObject
	for _, task := range tasks {
		taskObjects, err := s.repo.TaskObjects(ctx, task.ID)
		if err != nil {
			return storage.Batch{}, err
		}
		objects = append(objects, taskObjects...)
	}

	batch, err := storage.BuildBatch(objects, params.Objectnames, params.Bucket)
	if err != nil {
		return storage.Batch{}, err
	}

	if len(batch.Objectnames) == 0 {
		return batch, nil
	}

	if err := s.store.Delete(ctx, batch); err != nil {
		return storage.Batch{}, err
	}

	for _, task := range tasks {
		if err := s.repo.DeleteArtifacts(ctx, task.ID, batch.Objectnames); err != nil {
			s.logger.Error("Failed to drop artifact records",
				zap.Int64("task_id", task.ID),
				zap.Error(err),
			)
		}
	}

	s.logger.Info("Deleted objects",
		zap.String("bucket", batch.Bucket),
		zap.Int("count", len(batch.Objectnames)),
	)

	return batch, nil
}

// CommitTaskObjects re-schedules temporary tag removal for every artifact
// of a task. Recovery hatch for tasks whose commit-time removal failed
// past its retry.
func (s *UploadService) CommitTaskObjects(ctx context.Context, taskID int64) (int, error) {
	task, err := s.repo.GetTask(ctx, taskID)
	if err != nil {
		return 0, err
	}

	objects, err := s.repo.TaskObjects(ctx, task.ID)
	if err != nil {
		return 0, err
	}

	if len(objects) == 0 {
		return 0, nil
	}

	names := make([]string, 0, len(objects))
	for _, obj := range objects {
		names = append(names, obj.Objectname)
	}

	s.tags.Schedule(storage.TagRemoveRequest{
		Bucket:      objects[0].Bucket,
		Objectnames: names,
	})

	return len(names), nil
}

// TotalSize reports the task's artifact bytes, distinct by objectname.
func (s *UploadService) TotalSize(ctx context.Context, taskID int64) (int64, error) {
	return s.repo.TotalArtifactSize(ctx, taskID)
}

// TotalSizeByUID resolves the task by its caller-supplied uid first.
func (s *UploadService) TotalSizeByUID(ctx context.Context, uid string) (int64, error) {
	task, err := s.repo.GetTaskByUID(ctx, uid)
	if err != nil {
		return 0, err
	}
	return s.repo.TotalArtifactSize(ctx, task.ID)
}

// ObjectURL returns a short-lived download link for a stored object.
func (s *UploadService) ObjectURL(ctx context.Context, objectname, bucket string) (string, error) {
	return s.store.URL(ctx, objectname, bucket)
}
