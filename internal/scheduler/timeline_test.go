package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/udaykr117/smartsched/internal/model"
)

var t0 = time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)

func TestAllocateSequentialOnSharedResources(t *testing.T) {
	tl := NewTimeline()
	m := model.Machine{ID: "M1"}
	w := model.Worker{ID: "W1"}

	start, end := tl.Allocate(model.Job{ProcessingTime: 4}, m, w, t0)
	assert.True(t, start.Equal(t0))
	assert.True(t, end.Equal(t0.Add(4*time.Hour)))

	start, end = tl.Allocate(model.Job{ProcessingTime: 2}, m, w, t0)
	assert.True(t, start.Equal(t0.Add(4*time.Hour)))
	assert.True(t, end.Equal(t0.Add(6*time.Hour)))

	assert.True(t, tl.MachineReady("M1", t0).Equal(t0.Add(6*time.Hour)))
	assert.True(t, tl.WorkerReady("W1", t0).Equal(t0.Add(6*time.Hour)))
}

func TestAllocateWaitsForLaterResource(t *testing.T) {
	tl := NewTimeline()
	tl.Allocate(model.Job{ProcessingTime: 1}, model.Machine{ID: "M1"}, model.Worker{ID: "W1"}, t0)
	tl.Allocate(model.Job{ProcessingTime: 3}, model.Machine{ID: "M2"}, model.Worker{ID: "W2"}, t0)

	// M1 is free at +1h, W2 at +3h.
	start, end := tl.Allocate(model.Job{ProcessingTime: 2}, model.Machine{ID: "M1"}, model.Worker{ID: "W2"}, t0)
	assert.True(t, start.Equal(t0.Add(3*time.Hour)))
	assert.True(t, end.Equal(t0.Add(5*time.Hour)))
}

func TestAllocateNeverStartsBeforeNow(t *testing.T) {
	tl := NewTimeline()
	tl.Reserve(model.ScheduleEntry{MachineID: "M1", WorkerID: "W1", EndTime: t0.Add(-time.Hour)})

	start, _ := tl.Allocate(model.Job{ProcessingTime: 1}, model.Machine{ID: "M1"}, model.Worker{ID: "W1"}, t0)
	assert.True(t, start.Equal(t0))
	assert.True(t, tl.MachineReady("unknown", t0).Equal(t0))
}

func TestReserveKeepsLatestEnd(t *testing.T) {
	tl := NewTimeline()
	tl.Reserve(model.ScheduleEntry{MachineID: "M1", WorkerID: "W1", EndTime: t0.Add(5 * time.Hour)})
	tl.Reserve(model.ScheduleEntry{MachineID: "M1", WorkerID: "W2", EndTime: t0.Add(2 * time.Hour)})

	assert.True(t, tl.MachineReady("M1", t0).Equal(t0.Add(5*time.Hour)))
	assert.True(t, tl.WorkerReady("W2", t0).Equal(t0.Add(2*time.Hour)))

	start, _ := tl.Allocate(model.Job{ProcessingTime: 1}, model.Machine{ID: "M2"}, model.Worker{ID: "W1"}, t0)
	assert.True(t, start.Equal(t0.Add(5*time.Hour)))
}
