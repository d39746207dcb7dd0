package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

const (
	MetricPassesTotal      = "passes_total"
	MetricPassesFailed     = "passes_failed"
	MetricEntriesScheduled = "entries_scheduled"
	MetricEntriesCompleted = "entries_completed"
	MetricJobsDeferred     = "jobs_deferred"
)

func incrementMetric(ctx context.Context, ex execer, key string, delta int64) error {
	now := formatTime(time.Now())
	_, err := ex.ExecContext(ctx, `
		INSERT INTO metrics (key, value, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = value + excluded.value, updated_at = excluded.updated_at`,
		key, delta, now)
	if err != nil {
		return fmt.Errorf("failed to increment metric: %w", err)
	}
	return nil
}

func (s *Store) GetAllMetrics(ctx context.Context) (map[string]int64, error) {
	metrics := make(map[string]int64)
	rows, err := s.db.QueryContext(ctx, "SELECT key, value FROM metrics ORDER BY key")
	if err != nil {
		return nil, fmt.Errorf("failed to get metrics: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var key string
		var value int64
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan metric: %w", err)
		}
		metrics[key] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate metrics: %w", err)
	}
	return metrics, nil
}

// RecordPass appends the pass to the history and bumps the counters in one transaction.
func (s *Store) RecordPass(ctx context.Context, rec model.PassRecord) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO passes (kind, started_at, duration_ms, success, count, deferred, message, error)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			string(rec.Kind), formatTime(rec.StartedAt), rec.DurationMs, boolToInt(rec.Success),
			rec.Count, rec.Deferred, rec.Message, rec.Error)
		if err != nil {
			return fmt.Errorf("failed to record pass: %w", err)
		}

		if err := incrementMetric(ctx, tx, MetricPassesTotal, 1); err != nil {
			return err
		}
		if err := incrementMetric(ctx, tx, string(rec.Kind)+"_passes", 1); err != nil {
			return err
		}
		if !rec.Success {
			return incrementMetric(ctx, tx, MetricPassesFailed, 1)
		}
		if rec.Count > 0 {
			key := MetricEntriesScheduled
			if rec.Kind == model.PassReconcile {
				key = MetricEntriesCompleted
			}
			if err := incrementMetric(ctx, tx, key, int64(rec.Count)); err != nil {
				return err
			}
		}
		if rec.Deferred > 0 {
			return incrementMetric(ctx, tx, MetricJobsDeferred, int64(rec.Deferred))
		}
		return nil
	})
}

type PassStats struct {
	TotalPasses      int64   `json:"total_passes"`
	FailedPasses     int64   `json:"failed_passes"`
	EntriesScheduled int64   `json:"entries_scheduled"`
	EntriesCompleted int64   `json:"entries_completed"`
	JobsDeferred     int64   `json:"jobs_deferred"`
	SuccessRate      float64 `json:"success_rate"`
	AvgDurationMs    float64 `json:"avg_duration_ms"`
	Recent24hCount   int64   `json:"recent_24h_count"`
}

// GetPassStats aggregates the counters plus the last 24 hours of pass history.
func (s *Store) GetPassStats(ctx context.Context, now time.Time) (*PassStats, error) {
	metrics, err := s.GetAllMetrics(ctx)
	if err != nil {
		return nil, err
	}
	stats := &PassStats{
		TotalPasses:      metrics[MetricPassesTotal],
		FailedPasses:     metrics[MetricPassesFailed],
		EntriesScheduled: metrics[MetricEntriesScheduled],
		EntriesCompleted: metrics[MetricEntriesCompleted],
		JobsDeferred:     metrics[MetricJobsDeferred],
	}
	if stats.TotalPasses > 0 {
		stats.SuccessRate = float64(stats.TotalPasses-stats.FailedPasses) / float64(stats.TotalPasses) * 100
	}

	var avgDuration sql.NullFloat64
	cutoff := formatTime(now.Add(-24 * time.Hour))
	err = s.db.QueryRowContext(ctx, `
		SELECT AVG(duration_ms), COUNT(*) FROM passes WHERE started_at > ?`, cutoff).
		Scan(&avgDuration, &stats.Recent24hCount)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent pass stats: %w", err)
	}
	if avgDuration.Valid {
		stats.AvgDurationMs = avgDuration.Float64
	}
	return stats, nil
}

func (s *Store) GetRecentPasses(ctx context.Context, limit int) ([]model.PassRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT kind, started_at, duration_ms, success, count, deferred, message, error
		FROM passes
		ORDER BY started_at DESC, id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent passes: %w", err)
	}
	defer rows.Close()

	passes := []model.PassRecord{}
	for rows.Next() {
		var (
			rec            model.PassRecord
			kind, started  string
			success        int
			message, errSt sql.NullString
		)
		if err := rows.Scan(&kind, &started, &rec.DurationMs, &success, &rec.Count, &rec.Deferred,
			&message, &errSt); err != nil {
			return nil, fmt.Errorf("failed to scan pass: %w", err)
		}
		rec.Kind = model.PassKind(kind)
		rec.Success = success == 1
		rec.Message = message.String
		rec.Error = errSt.String
		if rec.StartedAt, err = parseTime(started); err != nil {
			return nil, err
		}
		passes = append(passes, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate passes: %w", err)
	}
	return passes, nil
}
