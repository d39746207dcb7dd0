package scheduler

import (
	"context"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

// Reconcile completes entries that have ended by now and toggles machines and
// workers between Available and Busy according to which entries are running.
// Breakdown, Maintenance and Leave are never changed. The pass commits as a
// whole or not at all.
func (e *Engine) Reconcile(ctx context.Context, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	res := e.reconcileLocked(ctx, now)
	e.record(ctx, model.PassReconcile, started, res)
	return res
}

// SyncStatus reconciles at the engine clock. Concurrent callers share one pass;
// the pass runs to completion even if the caller that started it goes away,
// and each caller's ctx only bounds its own wait.
func (e *Engine) SyncStatus(ctx context.Context) Result {
	ch := e.group.DoChan("sync", func() (any, error) {
		return e.Reconcile(context.WithoutCancel(ctx), e.now()), nil
	})
	select {
	case r := <-ch:
		return r.Val.(Result)
	case <-ctx.Done():
		return failure(ctx.Err())
	}
}

func (e *Engine) reconcileLocked(ctx context.Context, now time.Time) Result {
	var (
		completed int64
		changed   int
	)
	err := e.store.ReconcilePass(ctx, now, func(snap model.StatusSnapshot) model.StatusChanges {
		completed = snap.Completed
		busyMachines := make(map[string]bool)
		busyWorkers := make(map[string]bool)
		for _, entry := range snap.Scheduled {
			if entry.Active(now) {
				busyMachines[entry.MachineID] = true
				busyWorkers[entry.WorkerID] = true
			}
		}
		changes := model.StatusChanges{
			Machines: machineChanges(snap.Machines, busyMachines),
			Workers:  workerChanges(snap.Workers, busyWorkers),
		}
		changed = len(changes.Machines) + len(changes.Workers)
		return changes
	})
	if err != nil {
		e.logger.Errorf("reconcile at=%s error=%v", now.Format(time.RFC3339), err)
		return failure(err)
	}
	if completed > 0 || changed > 0 {
		e.logger.Infof("reconcile completed=%d changed=%d at=%s", completed, changed, now.Format(time.RFC3339))
	}
	return Result{Success: true, Count: int(completed), Changed: changed}
}

func machineChanges(machines []model.Machine, busy map[string]bool) map[string]model.MachineStatus {
	changes := make(map[string]model.MachineStatus)
	for _, m := range machines {
		if m.Status.Manual() {
			continue
		}
		switch {
		case busy[m.ID] && m.Status != model.MachineBusy:
			changes[m.ID] = model.MachineBusy
		case !busy[m.ID] && m.Status == model.MachineBusy:
			changes[m.ID] = model.MachineAvailable
		}
	}
	return changes
}

func workerChanges(workers []model.Worker, busy map[string]bool) map[string]model.WorkerStatus {
	changes := make(map[string]model.WorkerStatus)
	for _, w := range workers {
		if w.Status.Manual() {
			continue
		}
		switch {
		case busy[w.ID] && w.Status != model.WorkerBusy:
			changes[w.ID] = model.WorkerBusy
		case !busy[w.ID] && w.Status == model.WorkerBusy:
			changes[w.ID] = model.WorkerAvailable
		}
	}
	return changes
}
