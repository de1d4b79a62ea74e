package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"msfiles/models"
)

type PostgresRepo struct {
	db *pgxpool.Pool
}

func NewPostgresRepo(db *pgxpool.Pool) *PostgresRepo {
	return &PostgresRepo{db: db}
}

const taskColumns = `id, uid, action, status, originalname, objectname, bucket, parameters, error_message, created_at, updated_at`

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.UID,
		&task.Action,
		&task.Status,
		&task.Originalname,
		&task.Objectname,
		&task.Bucket,
		&task.Parameters,
		&task.ErrorMessage,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}
	return &task, nil
}

func (r *PostgresRepo) CreateTask(ctx context.Context, params CreateTaskParams) (*models.Task, error) {
	query := `
		INSERT INTO tasks (uid, action, status, originalname, bucket, parameters)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + taskColumns

	return scanTask(r.db.QueryRow(ctx, query,
		params.UID,
		params.Action,
		models.StatusInProgress,
		params.Originalname,
		params.Bucket,
		params.Parameters,
	))
}

func (r *PostgresRepo) GetTask(ctx context.Context, id int64) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	return scanTask(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepo) GetTaskByUID(ctx context.Context, uid string) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE uid = $1`

	return scanTask(r.db.QueryRow(ctx, query, uid))
}

func (r *PostgresRepo) RecordArtifact(ctx context.Context, params RecordArtifactParams) (*models.StorageObject, error) {
	query := `
		INSERT INTO storage_objects (task_id, objectname, bucket, size, main)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at
	`

	obj := models.StorageObject{
		TaskID:     params.TaskID,
		Objectname: params.Objectname,
		Bucket:     params.Bucket,
		Size:       params.Size,
		Main:       params.Main,
	}

	err := r.db.QueryRow(ctx, query,
		params.TaskID,
		params.Objectname,
		params.Bucket,
		params.Size,
		params.Main,
	).Scan(&obj.ID, &obj.CreatedAt, &obj.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("record artifact: %w", err)
	}

	if params.Main {
		// Only the first main artifact claims the task's objectname.
		updateQuery := `
			UPDATE tasks SET objectname = $1, updated_at = NOW()
			WHERE id = $2 AND objectname IS NULL
		`
		if _, err := r.db.Exec(ctx, updateQuery, params.Objectname, params.TaskID); err != nil {
			return nil, fmt.Errorf("set task objectname: %w", err)
		}
	}

	return &obj, nil
}

func (r *PostgresRepo) TaskObjects(ctx context.Context, taskID int64) ([]models.StorageObject, error) {
	query := `
		SELECT DISTINCT ON (objectname) id, task_id, objectname, bucket, size, main, created_at, updated_at
		FROM storage_objects
		WHERE task_id = $1
		ORDER BY objectname, id
	`

	rows, err := r.db.Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var objs []models.StorageObject
	for rows.Next() {
		var obj models.StorageObject
		err := rows.Scan(
			&obj.ID,
			&obj.TaskID,
			&obj.Objectname,
			&obj.Bucket,
			&obj.Size,
			&obj.Main,
			&obj.CreatedAt,
			&obj.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		objs = append(objs, obj)
	}

	return objs, rows.Err()
}

func (r *PostgresRepo) TotalArtifactSize(ctx context.Context, taskID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(size), 0) FROM (
			SELECT DISTINCT ON (objectname) size
			FROM storage_objects
			WHERE task_id = $1
			ORDER BY objectname, id
		) distinct_objects
	`

	var total int64
	if err := r.db.QueryRow(ctx, query, taskID).Scan(&total); err != nil {
		return 0, err
	}

	return total, nil
}

func (r *PostgresRepo) DeleteArtifacts(ctx context.Context, taskID int64, objectnames []string) error {
	query := `DELETE FROM storage_objects WHERE task_id = $1 AND objectname = ANY($2)`

	_, err := r.db.Exec(ctx, query, taskID, objectnames)
	return err
}

func (r *PostgresRepo) MarkDone(ctx context.Context, taskID int64) (*models.Task, error) {
	query := `
		UPDATE tasks SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3
		RETURNING ` + taskColumns

	return scanTask(r.db.QueryRow(ctx, query, models.StatusDone, taskID, models.StatusInProgress))
}

func (r *PostgresRepo) MarkError(ctx context.Context, taskID int64, message string) (*models.Task, error) {
	query := `
		UPDATE tasks SET status = $1, error_message = $2, updated_at = NOW()
		WHERE id = $3 AND status = $4
		RETURNING ` + taskColumns

	return scanTask(r.db.QueryRow(ctx, query, models.StatusError, message, taskID, models.StatusInProgress))
}

func (r *PostgresRepo) SweepOrphanedTasks(ctx context.Context) (int64, error) {
	query := `
		UPDATE tasks SET status = $1, error_message = $2, updated_at = NOW()
		WHERE status = $3
	`

	result, err := r.db.Exec(ctx, query, models.StatusError, InterruptedMessage, models.StatusInProgress)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected(), nil
}
