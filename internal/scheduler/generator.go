package scheduler

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

const (
	msgResourceMismatch = "Resource Mismatch: No available machine or worker matches job requirements."
	msgNothingPending   = "No pending jobs to schedule."
)

// Generate runs one generation pass over every pending job and commits the
// resulting entries as a single batch.
func (e *Engine) Generate(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	res := e.generateLocked(ctx, false)
	e.record(ctx, model.PassGenerate, started, res)
	return res
}

func (e *Engine) generateLocked(ctx context.Context, reset bool) Result {
	var (
		snap     model.Snapshot
		entries  []model.ScheduleEntry
		deferred []model.Job
	)
	opts := model.PassOptions{Reset: reset, ExcludeScheduled: e.excludeScheduled}
	err := e.store.PlanPass(ctx, opts, func(s model.Snapshot) []model.ScheduleEntry {
		snap = s
		timeline := NewTimeline()
		for _, entry := range s.Committed {
			timeline.Reserve(entry)
		}
		entries, deferred = Plan(s.Jobs, s.Machines, s.Workers, timeline, e.now())
		return entries
	})
	if err != nil {
		e.logger.Errorf("generate reset=%t planned=%d error=%v", reset, len(entries), err)
		return failure(err)
	}
	if reset {
		e.logger.Infof("reschedule reset deleted=%d", snap.Reset)
	}

	res := Result{Success: true, Count: len(entries), Deferred: len(deferred)}
	switch {
	case len(snap.Jobs) == 0:
		res.Message = msgNothingPending
	case len(entries) == 0:
		res.Message = msgResourceMismatch
	case len(deferred) > 0:
		res.Message = fmt.Sprintf("Scheduled %d of %d pending jobs; %d deferred for lack of a matching machine or worker.",
			len(entries), len(snap.Jobs), len(deferred))
	}
	e.logger.Infof("generate pending=%d scheduled=%d deferred=%d", len(snap.Jobs), len(entries), len(deferred))
	for _, job := range deferred {
		e.logger.Debugf("generate deferred job=%s machine=%q skill=%q", job.ID, job.RequiredMachine, job.RequiredSkill)
	}
	return res
}

// Plan orders jobs by priority then due date and places each one on the first
// matching machine and worker, after whatever the timeline already holds. Jobs
// without a match are returned as deferred.
func Plan(jobs []model.Job, machines []model.Machine, workers []model.Worker, timeline *Timeline, now time.Time) ([]model.ScheduleEntry, []model.Job) {
	ordered := slices.Clone(jobs)
	SortJobs(ordered)

	var (
		entries  []model.ScheduleEntry
		deferred []model.Job
	)
	for _, job := range ordered {
		machine, ok := FindMachine(job, machines)
		if !ok {
			deferred = append(deferred, job)
			continue
		}
		worker, ok := FindWorker(job, workers)
		if !ok {
			deferred = append(deferred, job)
			continue
		}

		start, end := timeline.Allocate(job, machine, worker, now)
		entries = append(entries, model.ScheduleEntry{
			JobID:     job.ID,
			MachineID: machine.ID,
			WorkerID:  worker.ID,
			StartTime: start,
			EndTime:   end,
			Status:    model.EntryScheduled,
		})
	}
	return entries, deferred
}

// SortJobs orders jobs by priority rank, then earliest due date. Equal keys keep
// their incoming order.
func SortJobs(jobs []model.Job) {
	slices.SortStableFunc(jobs, func(a, b model.Job) int {
		if c := cmp.Compare(a.Priority.Rank(), b.Priority.Rank()); c != 0 {
			return c
		}
		return a.DueDate.Compare(b.DueDate)
	})
}
