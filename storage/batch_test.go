package storage

import (
	"reflect"
	"testing"

	"msfiles/apperr"
	"msfiles/models"
)

func TestBuildBatch_MergesAndDeduplicates(t *testing.T) {
	objects := []models.StorageObject{
		{Objectname: "b_mf.jpg", Bucket: "media"},
		{Objectname: "a_th.jpg", Bucket: "media"},
		{Objectname: "b_mf.jpg", Bucket: "media"},
	}

	batch, err := BuildBatch(objects, []string{"c_pr.jpg", "a_th.jpg", ""}, "")
	if err != nil {
		t.Fatalf("BuildBatch failed: %v", err)
	}

	if batch.Bucket != "media" {
		t.Errorf("Expected bucket media, got %s", batch.Bucket)
	}

	expected := []string{"a_th.jpg", "b_mf.jpg", "c_pr.jpg"}
	if !reflect.DeepEqual(batch.Objectnames, expected) {
		t.Errorf("Expected %v, got %v", expected, batch.Objectnames)
	}
}

func TestBuildBatch_RejectsMixedBuckets(t *testing.T) {
	objects := []models.StorageObject{
		{Objectname: "a.jpg", Bucket: "media"},
		{Objectname: "b.jpg", Bucket: "archive"},
	}

	_, err := BuildBatch(objects, nil, "")
	if err == nil {
		t.Fatal("Expected error for mixed buckets")
	}
	if !apperr.IsConsistency(err) {
		t.Errorf("Expected consistency error, got %v", err)
	}
}

func TestBuildBatch_RejectsBucketMismatch(t *testing.T) {
	objects := []models.StorageObject{
		{Objectname: "a.jpg", Bucket: "media"},
	}

	_, err := BuildBatch(objects, nil, "archive")
	if err == nil {
		t.Fatal("Expected error for bucket mismatch")
	}
	if !apperr.IsConsistency(err) {
		t.Errorf("Expected consistency error, got %v", err)
	}
}

func TestBuildBatch_ExplicitOnly(t *testing.T) {
	batch, err := BuildBatch(nil, []string{"orphan.jpg"}, "media")
	if err != nil {
		t.Fatalf("BuildBatch failed: %v", err)
	}

	if batch.Bucket != "media" || len(batch.Objectnames) != 1 {
		t.Errorf("Unexpected batch: %+v", batch)
	}
}
