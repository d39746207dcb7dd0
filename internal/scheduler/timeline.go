package scheduler

import (
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

// Timeline tracks, for one generation pass, when each machine and worker is next free.
type Timeline struct {
	machines map[string]time.Time
	workers  map[string]time.Time
}

func NewTimeline() *Timeline {
	return &Timeline{
		machines: make(map[string]time.Time),
		workers:  make(map[string]time.Time),
	}
}

// Allocate places the job at the earliest instant not before now at which both
// resources are free, then books both until the job ends.
func (t *Timeline) Allocate(job model.Job, machine model.Machine, worker model.Worker, now time.Time) (time.Time, time.Time) {
	start := t.MachineReady(machine.ID, now)
	if ready := t.WorkerReady(worker.ID, now); ready.After(start) {
		start = ready
	}
	end := start.Add(job.Duration())

	t.machines[machine.ID] = end
	t.workers[worker.ID] = end
	return start, end
}

// Reserve books the entry's machine and worker until the entry ends, keeping the
// later of the existing and new ready times.
func (t *Timeline) Reserve(entry model.ScheduleEntry) {
	if ready, ok := t.machines[entry.MachineID]; !ok || entry.EndTime.After(ready) {
		t.machines[entry.MachineID] = entry.EndTime
	}
	if ready, ok := t.workers[entry.WorkerID]; !ok || entry.EndTime.After(ready) {
		t.workers[entry.WorkerID] = entry.EndTime
	}
}

// MachineReady reports when the machine is next free, or now if it is unbooked.
func (t *Timeline) MachineReady(id string, now time.Time) time.Time {
	if ready, ok := t.machines[id]; ok && ready.After(now) {
		return ready
	}
	return now
}

func (t *Timeline) WorkerReady(id string, now time.Time) time.Time {
	if ready, ok := t.workers[id]; ok && ready.After(now) {
		return ready
	}
	return now
}
