// Package scheduler assigns pending jobs to machines and workers and keeps resource
// status in step with the clock.
//
// All passes that mutate schedule or resource state (Generate, Reschedule, Reconcile)
// run under one engine-wide lock and inside one store transaction, so overlapping
// triggers never double-book a resource.
package scheduler

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/udaykr117/smartsched/internal/logging"
	"github.com/udaykr117/smartsched/internal/model"
)

// Store is the data source the engine reads and mutates. Each pass is one
// store transaction, so passes from separate processes sharing a database
// serialize on it the way passes in one process serialize on the engine lock.
type Store interface {
	PlanPass(ctx context.Context, opts model.PassOptions, plan func(model.Snapshot) []model.ScheduleEntry) error
	ReconcilePass(ctx context.Context, now time.Time, decide func(model.StatusSnapshot) model.StatusChanges) error
}

// PassRecorder receives a record of every finished pass.
type PassRecorder interface {
	RecordPass(ctx context.Context, rec model.PassRecord) error
}

// Result is what every engine operation reports to its caller. Faults never escape
// as errors; they arrive here with Success false.
type Result struct {
	Success  bool   `json:"success"`
	Count    int    `json:"count"`
	Deferred int    `json:"deferred,omitempty"`
	Changed  int    `json:"changed,omitempty"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
}

func failure(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

type Engine struct {
	store            Store
	recorder         PassRecorder
	logger           *logging.Logger
	now              func() time.Time
	excludeScheduled bool

	mu    sync.Mutex
	group singleflight.Group
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithLogger(l *logging.Logger) Option {
	return func(e *Engine) { e.logger = l.With("scheduler") }
}

func WithRecorder(r PassRecorder) Option {
	return func(e *Engine) { e.recorder = r }
}

// WithSkipScheduled controls whether a job that already holds a Scheduled entry
// is left out of later generation passes. Enabled by default.
func WithSkipScheduled(skip bool) Option {
	return func(e *Engine) { e.excludeScheduled = skip }
}

func New(store Store, opts ...Option) *Engine {
	e := &Engine{
		store:            store,
		logger:           logging.Discard(),
		now:              time.Now,
		excludeScheduled: true,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// record stores the pass in the history. Reconcile passes that changed nothing
// are left out so the periodic tick does not grow the history.
func (e *Engine) record(ctx context.Context, kind model.PassKind, started time.Time, res Result) {
	if e.recorder == nil {
		return
	}
	if kind == model.PassReconcile && res.Success && res.Count == 0 && res.Changed == 0 {
		return
	}
	rec := model.PassRecord{
		Kind:       kind,
		StartedAt:  started,
		DurationMs: time.Since(started).Milliseconds(),
		Success:    res.Success,
		Count:      res.Count,
		Deferred:   res.Deferred,
		Message:    res.Message,
		Error:      res.Error,
	}
	if err := e.recorder.RecordPass(ctx, rec); err != nil {
		e.logger.Warnf("record_pass kind=%s error=%v", kind, err)
	}
}
