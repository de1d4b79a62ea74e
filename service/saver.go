package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"msfiles/kafka"
	"msfiles/models"
	"msfiles/repository"
	"msfiles/storage"
)

// attempt tracks the artifacts persisted so far, so rollback can undo a
// partially-written task.
type attempt struct {
	task    *models.Task
	dir     string
	bucket  string
	objects []string
}

func (s *UploadService) newAttempt(task *models.Task, dir string) *attempt {
	return &attempt{task: task, dir: dir, bucket: task.Bucket}
}

type artifactParams struct {
	TempFilepath string
	Type         models.FileType
	Main         bool
	Size         models.Size
	// Event selects the uploaded_* topic for this artifact.
	Event    string
	Metadata map[string]string
	// Name overrides the generated object name (HLS parts keep theirs).
	Name string
}

// saveArtifact writes one artifact through the gateway with a temporary
// tag, records it in the ledger and emits its uploaded_* event.
func (s *UploadService) saveArtifact(ctx context.Context, a *attempt, params artifactParams) (*models.StorageObject, error) {
	put, err := s.store.Save(ctx, params.TempFilepath, storage.SaveOptions{
		Filename:  params.Name,
		Bucket:    a.bucket,
		Temporary: true,
	})
	if err != nil {
		return nil, err
	}

	a.objects = append(a.objects, put.Objectname)

	obj, err := s.repo.RecordArtifact(ctx, repository.RecordArtifactParams{
		TaskID:     a.task.ID,
		Objectname: put.Objectname,
		Bucket:     put.Bucket,
		Size:       put.Size,
		Main:       params.Main,
	})
	if err != nil {
		return nil, err
	}

	metadata := params.Metadata
	if len(put.Metadata) > 0 {
		if metadata == nil {
			metadata = make(map[string]string, len(put.Metadata))
		}
		for k, v := range put.Metadata {
			metadata[k] = v
		}
	}

	s.publish(ctx, params.Event, a.task.UID, kafka.FileUploadEvent{
		Action:       a.task.Action,
		Status:       a.task.Status,
		Objectname:   put.Objectname,
		Originalname: a.task.Originalname,
		Size:         put.Size,
		Type:         params.Type,
		Bucket:       put.Bucket,
		TaskID:       a.task.ID,
		UID:          a.task.UID,
		CreatedAt:    a.task.CreatedAt,
		Metadata:     metadata,
		Width:        params.Size.Width,
		Height:       params.Size.Height,
	})

	s.logger.Info("Artifact persisted",
		zap.Int64("task_id", a.task.ID),
		zap.String("objectname", put.Objectname),
		zap.String("type", string(params.Type)),
		zap.Int64("size", put.Size),
	)

	return obj, nil
}

// finish commits the attempt: marks the task done, schedules temporary
// tag removal for every artifact, then publishes task_completed after a
// short settle delay so artifact events land first. An error is returned
// only when the done transition itself fails; once the ledger says done
// the artifacts are committed and later failures are logged, at most
// skipping the completion event.
func (s *UploadService) finish(ctx context.Context, a *attempt) error {
	task, err := s.repo.MarkDone(ctx, a.task.ID)
	if err != nil {
		return err
	}

	s.cacheStatus(ctx, task.ID, task.Status)

	s.tags.Schedule(storage.TagRemoveRequest{
		Bucket:      a.bucket,
		Objectnames: append([]string(nil), a.objects...),
	})

	totalSize, sizeErr := s.repo.TotalArtifactSize(ctx, task.ID)

	if s.cleanup != nil {
		s.cleanup.Schedule(a.dir)
	}

	select {
	case <-time.After(s.settle):
	case <-ctx.Done():
	}

	if sizeErr != nil {
		s.logger.Error("Failed to total artifact sizes, skipping completion event",
			zap.Int64("task_id", task.ID),
			zap.Error(sizeErr),
		)
		return nil
	}

	s.publish(ctx, kafka.EventTaskCompleted, task.UID, kafka.TaskCompletedEvent{
		TaskID:    task.ID,
		UID:       task.UID,
		Action:    task.Action,
		Status:    task.Status,
		TotalSize: totalSize,
	})

	return nil
}
