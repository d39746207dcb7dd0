package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/udaykr117/smartsched/internal/model"
)

// UpsertMachine inserts a machine or updates name and status of an existing one.
// Updating keeps the machine's place in directory order.
func (s *Store) UpsertMachine(ctx context.Context, m model.Machine) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO machines (id, name, status) VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET name = excluded.name, status = excluded.status`,
		m.ID, m.Name, string(m.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert machine: %w", err)
	}
	return nil
}

func (s *Store) GetMachine(ctx context.Context, id string) (*model.Machine, error) {
	var m model.Machine
	var status string
	err := s.db.QueryRowContext(ctx, "SELECT id, name, status FROM machines WHERE id = ?", id).
		Scan(&m.ID, &m.Name, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: machine %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get machine: %w", err)
	}
	m.Status = model.MachineStatus(status)
	return &m, nil
}

func (s *Store) ListMachines(ctx context.Context) ([]model.Machine, error) {
	return queryMachines(ctx, s.db, "SELECT id, name, status FROM machines ORDER BY rowid")
}

// schedulableMachines returns every machine not in Breakdown, in directory order.
func schedulableMachines(ctx context.Context, q querier) ([]model.Machine, error) {
	return queryMachines(ctx, q, "SELECT id, name, status FROM machines WHERE status != ? ORDER BY rowid",
		string(model.MachineBreakdown))
}

func queryMachines(ctx context.Context, q querier, query string, args ...any) ([]model.Machine, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query machines: %w", err)
	}
	defer rows.Close()

	var machines []model.Machine
	for rows.Next() {
		var m model.Machine
		var status string
		if err := rows.Scan(&m.ID, &m.Name, &status); err != nil {
			return nil, fmt.Errorf("failed to scan machine: %w", err)
		}
		m.Status = model.MachineStatus(status)
		machines = append(machines, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate machines: %w", err)
	}
	return machines, nil
}

func (s *Store) SetMachineStatus(ctx context.Context, id string, status model.MachineStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: machine status %q", model.ErrInvalidStatus, status)
	}
	return setMachineStatus(ctx, s.db, id, status)
}

func setMachineStatus(ctx context.Context, ex execer, id string, status model.MachineStatus) error {
	res, err := ex.ExecContext(ctx, "UPDATE machines SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update machine status: %w", err)
	}
	return expectRow(res, "machine", id)
}

func (s *Store) UpsertWorker(ctx context.Context, w model.Worker) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO workers (id, name, skill, shift, status) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, skill = excluded.skill, shift = excluded.shift, status = excluded.status`,
		w.ID, w.Name, w.Skill, string(w.Shift), string(w.Status))
	if err != nil {
		return fmt.Errorf("failed to upsert worker: %w", err)
	}
	return nil
}

func (s *Store) GetWorker(ctx context.Context, id string) (*model.Worker, error) {
	var w model.Worker
	var shift, status string
	err := s.db.QueryRowContext(ctx, "SELECT id, name, skill, shift, status FROM workers WHERE id = ?", id).
		Scan(&w.ID, &w.Name, &w.Skill, &shift, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: worker %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get worker: %w", err)
	}
	w.Shift = model.Shift(shift)
	w.Status = model.WorkerStatus(status)
	return &w, nil
}

func (s *Store) ListWorkers(ctx context.Context) ([]model.Worker, error) {
	return queryWorkers(ctx, s.db, "SELECT id, name, skill, shift, status FROM workers ORDER BY rowid")
}

// schedulableWorkers returns every worker not on Leave, in directory order.
func schedulableWorkers(ctx context.Context, q querier) ([]model.Worker, error) {
	return queryWorkers(ctx, q, "SELECT id, name, skill, shift, status FROM workers WHERE status != ? ORDER BY rowid",
		string(model.WorkerLeave))
}

func queryWorkers(ctx context.Context, q querier, query string, args ...any) ([]model.Worker, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query workers: %w", err)
	}
	defer rows.Close()

	var workers []model.Worker
	for rows.Next() {
		var w model.Worker
		var shift, status string
		if err := rows.Scan(&w.ID, &w.Name, &w.Skill, &shift, &status); err != nil {
			return nil, fmt.Errorf("failed to scan worker: %w", err)
		}
		w.Shift = model.Shift(shift)
		w.Status = model.WorkerStatus(status)
		workers = append(workers, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workers: %w", err)
	}
	return workers, nil
}

func (s *Store) SetWorkerStatus(ctx context.Context, id string, status model.WorkerStatus) error {
	if !status.Valid() {
		return fmt.Errorf("%w: worker status %q", model.ErrInvalidStatus, status)
	}
	return setWorkerStatus(ctx, s.db, id, status)
}

func setWorkerStatus(ctx context.Context, ex execer, id string, status model.WorkerStatus) error {
	res, err := ex.ExecContext(ctx, "UPDATE workers SET status = ? WHERE id = ?", string(status), id)
	if err != nil {
		return fmt.Errorf("failed to update worker status: %w", err)
	}
	return expectRow(res, "worker", id)
}

func expectRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
	}
	return nil
}
