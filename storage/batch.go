package storage

import (
	"sort"
	"strings"

	"msfiles/apperr"
	"msfiles/models"
)

// Batch is a delete selection resolved to concrete object names. A batch
// references exactly one bucket.
type Batch struct {
	Bucket      string
	Objectnames []string
}

// BuildBatch validates and deduplicates a delete selection before any
// network call. Artifact records resolved from the ledger and explicitly
// named objects are merged; artifacts spanning more than one bucket, or a
// bucket that disagrees with the explicit one, reject the whole batch.
func BuildBatch(objects []models.StorageObject, explicit []string, bucket string) (Batch, error) {
	buckets := make(map[string]bool)
	names := make(map[string]bool)

	for _, obj := range objects {
		buckets[obj.Bucket] = true
		names[obj.Objectname] = true
	}

	if len(buckets) > 1 {
		var list []string
		for b := range buckets {
			list = append(list, b)
		}
		sort.Strings(list)
		return Batch{}, apperr.Consistencyf(
			"delete batch must reference one bucket, got [%s]", strings.Join(list, ", "))
	}

	resolved := bucket
	for b := range buckets {
		if resolved != "" && b != resolved {
			return Batch{}, apperr.Consistencyf(
				"delete bucket mismatch: provided [%s], objects placed at [%s]", resolved, b)
		}
		resolved = b
	}

	for _, name := range explicit {
		if name != "" {
			names[name] = true
		}
	}

	batch := Batch{Bucket: resolved}
	for name := range names {
		batch.Objectnames = append(batch.Objectnames, name)
	}
	sort.Strings(batch.Objectnames)

	return batch, nil
}
