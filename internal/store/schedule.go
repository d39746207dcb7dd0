package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

// PlanPass runs one generation pass in a single write transaction. With
// opts.Reset the Scheduled entries are dropped and Busy resources released first.
// The snapshot passed to plan is read under the write lock, and the entries plan
// returns are inserted before the lock is released, so two passes never plan
// against the same state.
func (s *Store) PlanPass(ctx context.Context, opts model.PassOptions, plan func(model.Snapshot) []model.ScheduleEntry) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var snap model.Snapshot
		var err error
		if opts.Reset {
			if snap.Reset, err = resetSchedule(ctx, tx); err != nil {
				return err
			}
		}
		if snap.Jobs, err = pendingJobs(ctx, tx, opts.ExcludeScheduled); err != nil {
			return err
		}
		if snap.Machines, err = schedulableMachines(ctx, tx); err != nil {
			return err
		}
		if snap.Workers, err = schedulableWorkers(ctx, tx); err != nil {
			return err
		}
		if snap.Committed, err = scheduledEntries(ctx, tx); err != nil {
			return err
		}
		return insertEntries(ctx, tx, plan(snap))
	})
}

// ReconcilePass completes the Scheduled entries that ended by now, then applies
// the status changes decide returns, all in one write transaction. A failed
// update rolls back the completions with it.
func (s *Store) ReconcilePass(ctx context.Context, now time.Time, decide func(model.StatusSnapshot) model.StatusChanges) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var snap model.StatusSnapshot
		var err error
		if snap.Completed, err = completeEntriesEndedBy(ctx, tx, now); err != nil {
			return err
		}
		if snap.Scheduled, err = scheduledEntries(ctx, tx); err != nil {
			return err
		}
		if snap.Machines, err = queryMachines(ctx, tx, "SELECT id, name, status FROM machines ORDER BY rowid"); err != nil {
			return err
		}
		if snap.Workers, err = queryWorkers(ctx, tx, "SELECT id, name, skill, shift, status FROM workers ORDER BY rowid"); err != nil {
			return err
		}

		changes := decide(snap)
		for id, status := range changes.Machines {
			if err := setMachineStatus(ctx, tx, id, status); err != nil {
				return err
			}
		}
		for id, status := range changes.Workers {
			if err := setWorkerStatus(ctx, tx, id, status); err != nil {
				return err
			}
		}
		return nil
	})
}

// insertEntries writes the batch and fills in the assigned IDs.
func insertEntries(ctx context.Context, tx *sql.Tx, entries []model.ScheduleEntry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO schedule (job_id, machine_id, worker_id, start_time, end_time, status)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare schedule insert: %w", err)
	}
	defer stmt.Close()

	for i := range entries {
		e := &entries[i]
		res, err := stmt.ExecContext(ctx, e.JobID, e.MachineID, e.WorkerID,
			formatTime(e.StartTime), formatTime(e.EndTime), string(e.Status))
		if err != nil {
			return fmt.Errorf("failed to insert schedule entry for job %s: %w", e.JobID, err)
		}
		if e.ID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("failed to read schedule entry id: %w", err)
		}
	}
	return nil
}

// resetSchedule deletes Scheduled entries and returns Busy machines and workers to
// Available. Completed history and manual states are kept.
func resetSchedule(ctx context.Context, ex execer) (int64, error) {
	res, err := ex.ExecContext(ctx, "DELETE FROM schedule WHERE status = ?", string(model.EntryScheduled))
	if err != nil {
		return 0, fmt.Errorf("failed to delete scheduled entries: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read deleted rows: %w", err)
	}
	if _, err := ex.ExecContext(ctx, "UPDATE machines SET status = ? WHERE status = ?",
		string(model.MachineAvailable), string(model.MachineBusy)); err != nil {
		return 0, fmt.Errorf("failed to reset machines: %w", err)
	}
	if _, err := ex.ExecContext(ctx, "UPDATE workers SET status = ? WHERE status = ?",
		string(model.WorkerAvailable), string(model.WorkerBusy)); err != nil {
		return 0, fmt.Errorf("failed to reset workers: %w", err)
	}
	return deleted, nil
}

// completeEntriesEndedBy marks Scheduled entries with end_time <= now as Completed.
func completeEntriesEndedBy(ctx context.Context, ex execer, now time.Time) (int64, error) {
	res, err := ex.ExecContext(ctx, "UPDATE schedule SET status = ? WHERE status = ? AND end_time <= ?",
		string(model.EntryCompleted), string(model.EntryScheduled), formatTime(now))
	if err != nil {
		return 0, fmt.Errorf("failed to complete schedule entries: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read completed rows: %w", err)
	}
	return n, nil
}

func scheduledEntries(ctx context.Context, q querier) ([]model.ScheduleEntry, error) {
	return queryEntries(ctx, q, `
		SELECT s.id, s.job_id, s.machine_id, s.worker_id, s.start_time, s.end_time, s.status, '', '', ''
		FROM schedule s
		WHERE s.status = ?
		ORDER BY s.start_time, s.id`, string(model.EntryScheduled))
}

// ListSchedule returns entries joined with job, machine and worker names ordered by
// start time. An empty status lists everything.
func (s *Store) ListSchedule(ctx context.Context, status model.EntryStatus) ([]model.ScheduleEntry, error) {
	query := `
		SELECT s.id, s.job_id, s.machine_id, s.worker_id, s.start_time, s.end_time, s.status,
			j.name, m.name, w.name
		FROM schedule s
		JOIN jobs j ON s.job_id = j.id
		JOIN machines m ON s.machine_id = m.id
		JOIN workers w ON s.worker_id = w.id`
	var args []any
	if status != "" {
		query += " WHERE s.status = ?"
		args = append(args, string(status))
	}
	query += " ORDER BY s.start_time ASC, s.id ASC"
	return queryEntries(ctx, s.db, query, args...)
}

// CancelEntry moves a Scheduled entry to Cancelled. It is the only way an entry
// becomes Cancelled.
func (s *Store) CancelEntry(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, "UPDATE schedule SET status = ? WHERE id = ? AND status = ?",
		string(model.EntryCancelled), id, string(model.EntryScheduled))
	if err != nil {
		return fmt.Errorf("failed to cancel schedule entry: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return nil
	}

	var status string
	err = s.db.QueryRowContext(ctx, "SELECT status FROM schedule WHERE id = ?", id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: schedule entry %d", ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to get schedule entry: %w", err)
	}
	return fmt.Errorf("%w: schedule entry %d is %s", ErrConflict, id, status)
}

func queryEntries(ctx context.Context, q querier, query string, args ...any) ([]model.ScheduleEntry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query schedule: %w", err)
	}
	defer rows.Close()

	var entries []model.ScheduleEntry
	for rows.Next() {
		var e model.ScheduleEntry
		var start, end, status string
		if err := rows.Scan(&e.ID, &e.JobID, &e.MachineID, &e.WorkerID, &start, &end, &status,
			&e.JobName, &e.MachineName, &e.WorkerName); err != nil {
			return nil, fmt.Errorf("failed to scan schedule entry: %w", err)
		}
		e.Status = model.EntryStatus(status)
		if e.StartTime, err = parseTime(start); err != nil {
			return nil, err
		}
		if e.EndTime, err = parseTime(end); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate schedule: %w", err)
	}
	return entries, nil
}

type Dashboard struct {
	TotalJobs          int                   `json:"totalJobs"`
	AvailMachines      int                   `json:"availMachines"`
	AvailWorkers       int                   `json:"availWorkers"`
	MachineUtilization string                `json:"machineUtilization"`
	WorkerUtilization  string                `json:"workerUtilization"`
	TodaySchedule      []model.ScheduleEntry `json:"todaySchedule"`
}

// Dashboard summarizes resource availability and the live schedule: entries still
// Scheduled or ending at or after now.
func (s *Store) Dashboard(ctx context.Context, now time.Time) (*Dashboard, error) {
	d := &Dashboard{TodaySchedule: []model.ScheduleEntry{}}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM jobs").Scan(&d.TotalJobs); err != nil {
		return nil, fmt.Errorf("failed to count jobs: %w", err)
	}

	machineAvail, machineBusy, machineTotal, err := s.countStatuses(ctx, "machines",
		string(model.MachineAvailable), string(model.MachineBusy))
	if err != nil {
		return nil, err
	}
	workerAvail, workerBusy, workerTotal, err := s.countStatuses(ctx, "workers",
		string(model.WorkerAvailable), string(model.WorkerBusy))
	if err != nil {
		return nil, err
	}
	d.AvailMachines = machineAvail
	d.AvailWorkers = workerAvail
	d.MachineUtilization = percent(machineBusy, machineTotal)
	d.WorkerUtilization = percent(workerBusy, workerTotal)

	entries, err := queryEntries(ctx, s.db, `
		SELECT s.id, s.job_id, s.machine_id, s.worker_id, s.start_time, s.end_time, s.status,
			j.name, m.name, w.name
		FROM schedule s
		JOIN jobs j ON s.job_id = j.id
		JOIN machines m ON s.machine_id = m.id
		JOIN workers w ON s.worker_id = w.id
		WHERE s.status = ? OR s.end_time >= ?
		ORDER BY CASE s.status WHEN 'Scheduled' THEN 0 ELSE 1 END, s.start_time ASC, s.id ASC`,
		string(model.EntryScheduled), formatTime(now))
	if err != nil {
		return nil, err
	}
	if entries != nil {
		d.TodaySchedule = entries
	}
	return d, nil
}

func (s *Store) countStatuses(ctx context.Context, table, available, busy string) (int, int, int, error) {
	var avail, busyCount, total sql.NullInt64
	query := strings.ReplaceAll(`
		SELECT
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			SUM(CASE WHEN status = ? THEN 1 ELSE 0 END),
			COUNT(*)
		FROM {table}`, "{table}", table)
	if err := s.db.QueryRowContext(ctx, query, available, busy).Scan(&avail, &busyCount, &total); err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count %s: %w", table, err)
	}
	return int(avail.Int64), int(busyCount.Int64), int(total.Int64), nil
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0"
	}
	return fmt.Sprintf("%.1f", float64(part)/float64(total)*100)
}
