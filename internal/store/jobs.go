package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

const jobColumns = "j.id, j.name, j.processing_time, j.due_date, j.priority, j.required_machine, j.required_skill, j.created_at"

func (s *Store) CreateJob(ctx context.Context, job *model.Job) error {
	job.CreatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, name, processing_time, due_date, priority, required_machine, required_skill, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ID,
		job.Name,
		job.ProcessingTime,
		formatTime(job.DueDate),
		string(job.Priority),
		job.RequiredMachine,
		job.RequiredSkill,
		formatTime(job.CreatedAt),
	)
	if isPrimaryKeyViolation(err) {
		return fmt.Errorf("%w: job %s", ErrDuplicate, job.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id string) (*model.Job, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+jobColumns+" FROM jobs j WHERE j.id = ?", id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: job %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

func (s *Store) ListJobs(ctx context.Context) ([]model.Job, error) {
	return queryJobs(ctx, s.db, "SELECT "+jobColumns+" FROM jobs j ORDER BY j.rowid")
}

// PendingJobs returns jobs without a Completed schedule entry, earliest due first.
// With excludeScheduled, jobs holding a Scheduled entry are left out as well.
func (s *Store) PendingJobs(ctx context.Context, excludeScheduled bool) ([]model.Job, error) {
	return pendingJobs(ctx, s.db, excludeScheduled)
}

func pendingJobs(ctx context.Context, q querier, excludeScheduled bool) ([]model.Job, error) {
	return queryJobs(ctx, q, `
		SELECT `+jobColumns+` FROM jobs j
		WHERE NOT EXISTS (
			SELECT 1 FROM schedule s
			WHERE s.job_id = j.id
			AND (s.status = 'Completed' OR (? = 1 AND s.status = 'Scheduled'))
		)
		ORDER BY j.due_date ASC, j.rowid ASC`, boolToInt(excludeScheduled))
}

func queryJobs(ctx context.Context, q querier, query string, args ...any) ([]model.Job, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query jobs: %w", err)
	}
	defer rows.Close()

	var jobs []model.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate jobs: %w", err)
	}
	return jobs, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanJob(sc scanner) (model.Job, error) {
	var (
		job                model.Job
		priority           string
		dueDate, createdAt string
	)
	if err := sc.Scan(&job.ID, &job.Name, &job.ProcessingTime, &dueDate, &priority,
		&job.RequiredMachine, &job.RequiredSkill, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return job, err
		}
		return job, fmt.Errorf("failed to scan job: %w", err)
	}
	job.Priority = model.Priority(priority)

	var err error
	if job.DueDate, err = parseTime(dueDate); err != nil {
		return job, err
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return job, err
	}
	return job, nil
}
