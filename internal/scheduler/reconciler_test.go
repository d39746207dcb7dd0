package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udaykr117/smartsched/internal/model"
	"github.com/udaykr117/smartsched/internal/store"
)

func (f *fixture) machineStatus(id string) model.MachineStatus {
	f.t.Helper()
	m, err := f.store.GetMachine(context.Background(), id)
	require.NoError(f.t, err)
	return m.Status
}

func (f *fixture) workerStatus(id string) model.WorkerStatus {
	f.t.Helper()
	w, err := f.store.GetWorker(context.Background(), id)
	require.NoError(f.t, err)
	return w.Status
}

func TestReconcileMarksRunningResourcesBusy(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.machine("L-1", "Manual Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.worker("W2", "Lathe", model.WorkerAvailable)
	f.job("J1", 2, model.PriorityHigh, t0, "CNC", "CNC")
	eng := f.engine()
	require.Equal(t, 1, eng.Generate(context.Background()).Count)

	res := eng.Reconcile(context.Background(), t0.Add(30*time.Minute))
	require.True(t, res.Success)
	assert.Zero(t, res.Count)

	assert.Equal(t, model.MachineBusy, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerBusy, f.workerStatus("W1"))
	assert.Equal(t, model.MachineAvailable, f.machineStatus("L-1"))
	assert.Equal(t, model.WorkerAvailable, f.workerStatus("W2"))
}

func TestReconcileCompletesFinishedEntries(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 2, model.PriorityHigh, t0, "CNC", "CNC")
	eng := f.engine()
	require.Equal(t, 1, eng.Generate(context.Background()).Count)
	require.True(t, eng.Reconcile(context.Background(), t0.Add(time.Hour)).Success)
	require.Equal(t, model.MachineBusy, f.machineStatus("CNC-1"))

	res := eng.Reconcile(context.Background(), t0.Add(2*time.Hour))
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Count)

	completed := f.schedule(model.EntryCompleted)
	require.Len(t, completed, 1)
	assert.Equal(t, "J1", completed[0].JobID)
	assert.Equal(t, model.MachineAvailable, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerAvailable, f.workerStatus("W1"))

	res = eng.Reconcile(context.Background(), t0.Add(3*time.Hour))
	assert.Zero(t, res.Count, "a completed entry is completed exactly once")

	pending, err := f.store.PendingJobs(context.Background(), false)
	require.NoError(t, err)
	assert.Empty(t, pending, "a completed job leaves the queue")
}

func TestReconcileHandsOverToNextEntry(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 2, model.PriorityHigh, t0, "CNC", "CNC")
	f.job("J2", 2, model.PriorityLow, t0, "CNC", "CNC")
	eng := f.engine()
	require.Equal(t, 2, eng.Generate(context.Background()).Count)

	res := eng.Reconcile(context.Background(), t0.Add(2*time.Hour))
	assert.Equal(t, 1, res.Count)
	assert.Equal(t, model.MachineBusy, f.machineStatus("CNC-1"), "J2 starts as J1 ends")
	assert.Equal(t, model.WorkerBusy, f.workerStatus("W1"))
}

func TestReconcilePreservesManualStates(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.machine("CNC-2", "CNC Mill", model.MachineMaintenance)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 2, model.PriorityHigh, t0, "CNC", "CNC")
	eng := f.engine()
	require.Equal(t, 1, eng.Generate(context.Background()).Count)

	ctx := context.Background()
	require.NoError(t, f.store.SetMachineStatus(ctx, "CNC-1", model.MachineBreakdown))
	require.NoError(t, f.store.SetWorkerStatus(ctx, "W1", model.WorkerLeave))

	require.True(t, eng.Reconcile(ctx, t0.Add(time.Hour)).Success)
	assert.Equal(t, model.MachineBreakdown, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerLeave, f.workerStatus("W1"))
	assert.Equal(t, model.MachineMaintenance, f.machineStatus("CNC-2"))

	require.True(t, eng.Reconcile(ctx, t0.Add(5*time.Hour)).Success)
	assert.Equal(t, model.MachineBreakdown, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerLeave, f.workerStatus("W1"))
	assert.Len(t, f.schedule(model.EntryCompleted), 1)
}

func TestReconcileReleasesStaleBusy(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineBusy)
	f.worker("W1", "CNC", model.WorkerBusy)

	res := f.engine().Reconcile(context.Background(), t0)
	require.True(t, res.Success)
	assert.Equal(t, model.MachineAvailable, f.machineStatus("CNC-1"))
	assert.Equal(t, model.WorkerAvailable, f.workerStatus("W1"))
}

func TestSyncStatusUsesEngineClock(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")
	eng := f.engine(WithRecorder(f.store))
	require.Equal(t, 1, eng.Generate(context.Background()).Count)

	f.now = t0.Add(90 * time.Minute)
	res := eng.SyncStatus(context.Background())
	require.True(t, res.Success)
	assert.Equal(t, 1, res.Count)

	metrics, err := f.store.GetAllMetrics(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 1, metrics[store.MetricEntriesCompleted])
}

func TestReconcileFault(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	require.NoError(t, f.store.Close())

	res := f.engine().Reconcile(context.Background(), t0)
	assert.False(t, res.Success)
	assert.NotEmpty(t, res.Error)
}

func TestIdleReconcileLeavesNoHistory(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	eng := f.engine(WithRecorder(f.store))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.True(t, eng.Reconcile(ctx, t0).Success)
	}
	passes, err := f.store.GetRecentPasses(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, passes)

	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")
	require.Equal(t, 1, eng.Generate(ctx).Count)
	res := eng.Reconcile(ctx, t0.Add(30*time.Minute))
	require.True(t, res.Success)
	assert.Equal(t, 2, res.Changed)

	passes, err = f.store.GetRecentPasses(ctx, 10)
	require.NoError(t, err)
	require.Len(t, passes, 2)
	assert.Equal(t, model.PassReconcile, passes[0].Kind, "a reconcile that flips status is kept")
}

func TestSyncStatusOutlivesCancelledCaller(t *testing.T) {
	f := newFixture(t)
	f.machine("CNC-1", "CNC Lathe", model.MachineAvailable)
	f.worker("W1", "CNC", model.WorkerAvailable)
	f.job("J1", 1, model.PriorityHigh, t0, "CNC", "CNC")
	eng := f.engine()
	require.Equal(t, 1, eng.Generate(context.Background()).Count)
	f.now = t0.Add(90 * time.Minute)

	// hold the engine so both callers join one in-flight pass
	eng.mu.Lock()
	reqCtx, cancel := context.WithCancel(context.Background())
	first := make(chan Result, 1)
	go func() { first <- eng.SyncStatus(reqCtx) }()
	time.Sleep(50 * time.Millisecond)
	second := make(chan Result, 1)
	go func() { second <- eng.SyncStatus(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	cancel()
	res := <-first
	assert.False(t, res.Success)
	assert.Equal(t, context.Canceled.Error(), res.Error)

	eng.mu.Unlock()
	res = <-second
	require.True(t, res.Success, res.Error)
	assert.Equal(t, 1, res.Count)
	assert.Empty(t, f.schedule(model.EntryScheduled))
}
