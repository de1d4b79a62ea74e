package service

import (
	"context"
	"testing"

	"msfiles/models"
	"msfiles/repository"
)

func recordArtifacts(t *testing.T, env *testEnv, taskID int64, names ...string) {
	t.Helper()

	for _, name := range names {
		_, err := env.repo.RecordArtifact(context.Background(), repository.RecordArtifactParams{
			TaskID:     taskID,
			Objectname: name,
			Bucket:     "media",
			Size:       10,
		})
		if err != nil {
			t.Fatalf("RecordArtifact failed: %v", err)
		}
	}
}

func createLedgerTask(t *testing.T, env *testEnv, uid string) *models.Task {
	t.Helper()

	task, err := env.repo.CreateTask(context.Background(), repository.CreateTaskParams{
		Action:       models.ActionUploadFile,
		Originalname: "doc.bin",
		Bucket:       "media",
		UID:          uid,
	})
	if err != nil {
		t.Fatalf("CreateTask failed: %v", err)
	}
	return task
}

func TestDeleteObjects_ByTask(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := createLedgerTask(t, env, "uid-1")
	recordArtifacts(t, env, task.ID, "a_mf.bin", "b_th.jpg")

	batch, err := env.svc.DeleteObjects(ctx, DeleteObjectsParams{TaskIDs: []int64{task.ID}})
	if err != nil {
		t.Fatalf("DeleteObjects failed: %v", err)
	}

	if len(batch.Objectnames) != 2 {
		t.Errorf("Expected 2 objects in batch, got %v", batch.Objectnames)
	}
	if len(env.store.deleted) != 2 {
		t.Errorf("Expected 2 store deletions, got %v", env.store.deleted)
	}

	objs, _ := env.repo.TaskObjects(ctx, task.ID)
	if len(objs) != 0 {
		t.Errorf("Expected ledger rows dropped, got %d", len(objs))
	}
}

func TestDeleteObjects_ByUIDAndExplicit(t *testing.T) {
	env := newTestEnv(t, nil)
	ctx := context.Background()

	task := createLedgerTask(t, env, "uid-2")
	recordArtifacts(t, env, task.ID, "a_mf.bin")

	batch, err := env.svc.DeleteObjects(ctx, DeleteObjectsParams{
		TaskUIDs:    []string{"uid-2"},
		Objectnames: []string{"orphan.jpg"},
	})
	if err != nil {
		t.Fatalf("DeleteObjects failed: %v", err)
	}

	if len(batch.Objectnames) != 2 {
		t.Errorf("Expected merged batch of 2, got %v", batch.Objectnames)
	}
}

func TestDeleteObjects_UnknownTask(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.svc.DeleteObjects(context.Background(), DeleteObjectsParams{TaskIDs: []int64{99}})
	if !IsNotFound(err) {
		t.Fatalf("Expected not-found error, got %v", err)
	}
	if len(env.store.deleted) != 0 {
		t.Errorf("Nothing may be deleted for an unknown task, got %v", env.store.deleted)
	}
}

func TestDeleteObjects_EmptySelection(t *testing.T) {
	env := newTestEnv(t, nil)

	task := createLedgerTask(t, env, "uid-3")

	batch, err := env.svc.DeleteObjects(context.Background(), DeleteObjectsParams{TaskIDs: []int64{task.ID}})
	if err != nil {
		t.Fatalf("DeleteObjects failed: %v", err)
	}
	if len(batch.Objectnames) != 0 {
		t.Errorf("Expected empty batch, got %v", batch.Objectnames)
	}
	if len(env.store.deleted) != 0 {
		t.Errorf("Expected no deletions, got %v", env.store.deleted)
	}
}

func TestCommitTaskObjects(t *testing.T) {
	env := newTestEnv(t, nil)

	task := createLedgerTask(t, env, "uid-4")
	recordArtifacts(t, env, task.ID, "a_mf.bin", "b_th.jpg")

	scheduled, err := env.svc.CommitTaskObjects(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("CommitTaskObjects failed: %v", err)
	}
	if scheduled != 2 {
		t.Errorf("Expected 2 scheduled removals, got %d", scheduled)
	}
	if len(env.tags.requests) != 1 || len(env.tags.requests[0].Objectnames) != 2 {
		t.Errorf("Unexpected tag removal requests: %+v", env.tags.requests)
	}
}

func TestTotalSizeByUID(t *testing.T) {
	env := newTestEnv(t, nil)

	task := createLedgerTask(t, env, "uid-5")
	recordArtifacts(t, env, task.ID, "a_mf.bin", "b_th.jpg")

	size, err := env.svc.TotalSizeByUID(context.Background(), "uid-5")
	if err != nil {
		t.Fatalf("TotalSizeByUID failed: %v", err)
	}
	if size != 20 {
		t.Errorf("Expected total 20, got %d", size)
	}
}
