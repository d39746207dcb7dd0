package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaykr117/smartsched/internal/model"
)

type assignment struct {
	job, machine, worker string
	offset               time.Duration
}

func (f *fixture) assignments() []assignment {
	f.t.Helper()
	var out []assignment
	for _, e := range f.schedule(model.EntryScheduled) {
		out = append(out, assignment{e.JobID, e.MachineID, e.WorkerID, e.StartTime.Sub(f.now)})
	}
	return out
}

func TestRescheduleIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Router", model.MachineAvailable)
	f.machine("L-1", "Manual Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.worker("W2", "Lathe", model.WorkerAvailable)
	f.job("J1", 4, model.PriorityHigh, t0.Add(24*time.Hour), "CNC", "CNC")
	f.job("J2", 2, model.PriorityMedium, t0.Add(24*time.Hour), "CNC", "CNC")
	f.job("J3", 3, model.PriorityLow, t0.Add(12*time.Hour), "Lathe", "Lathe")
	f.job("J4", 1, model.PriorityHigh, t0, "Welding", "Welding")
	eng := f.engine()
	ctx := context.Background()

	require.Equal(t, 3, eng.Generate(ctx).Count)

	first := eng.Reschedule(ctx)
	require.True(t, first.Success)
	firstAssignments := f.assignments()

	f.now = t0.Add(time.Minute)
	second := eng.Reschedule(ctx)
	require.True(t, second.Success)

	assert.Equal(t, first.Count, second.Count)
	assert.Equal(t, 3, second.Count)
	assert.Equal(t, firstAssignments, f.assignments())
}

func TestReschedulePreservesHistoryAndResetsBusy(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.machine("CNC-2", "CNC Mill", model.MachineBreakdown)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")
	f.job("J2", 2, model.PriorityLow, t0, "CNC", "CNC")
	eng := f.engine()
	ctx := context.Background()

	require.Equal(t, 2, eng.Generate(ctx).Count)
	f.now = t0.Add(90 * time.Minute)
	require.True(t, eng.SyncStatus(ctx).Success)
	require.Equal(t, model.MachineBusy, f.machineStatus("CNC-1"))

	res := eng.Reschedule(ctx)
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Count, "J1 is completed history and is not replanned")

	completed := f.schedule(model.EntryCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "J1", completed[0].JobID)

	scheduled := f.schedule(model.EntryScheduled)
	require.Len(t, scheduled, 1)
	assert.Equal(t, "J2", scheduled[0].JobID)
	assert.True(t, scheduled[0].StartTime.Equal(f.now), "replanned from the current time")

	assert.Equal(t, model.MachineAvailable, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerAvailable, f.workerStatus("W1"))
	assert.Equal(t, model.MachineBreakdown, f.machineStatus("CNC-2"))
}

func TestRescheduleRecordsOnePass(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")

	f.engine(WithRecorder(f.store)).Reschedule(context.Background())

	passes, err := f.store.GetRecentPasses(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, passes, 1)
	assert.Equal(t, model.PassReschedule, passes[0].Kind)
	assert.Equal(t, 1, passes[0].Count)
}

func TestRescheduleFailureKeepsPreviousSchedule(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")
	ctx := context.Background()
	require.Equal(t, 1, f.engine().Generate(ctx).Count)
	before := f.schedule(model.EntryScheduled)

	fs := &faultyStore{Store: f.store, corrupt: true}
	res := New(fs, WithClock(func() time.Time { return f.now })).Reschedule(ctx)
	assert.False(t, res.Success)
	assert.Equal(t, before, f.schedule(model.EntryScheduled), "the reset rolls back with the failed plan")
}
