package model

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPriorityRank(t *testing.T) {
	tests := []struct {
		p    Priority
		want int
	}{
		{PriorityHigh, 1},
		{PriorityMedium, 2},
		{PriorityLow, 3},
		{"Urgent", 4},
		{"", 4},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.p.Rank(), "priority %q", tt.p)
	}
}

func TestManualStatuses(t *testing.T) {
	assert.True(t, MachineBreakdown.Manual())
	assert.True(t, MachineMaintenance.Manual())
	assert.False(t, MachineAvailable.Manual())
	assert.False(t, MachineBusy.Manual())

	assert.True(t, WorkerLeave.Manual())
	assert.False(t, WorkerBusy.Manual())
	assert.False(t, WorkerAvailable.Manual())
}

func TestWorkerSkills(t *testing.T) {
	w := Worker{Skill: " CNC, Welding ,, Lathe"}
	assert.Equal(t, []string{"cnc", "welding", "lathe"}, w.Skills())
}

func TestScheduleEntryActive(t *testing.T) {
	start := time.Date(2026, 10, 18, 8, 0, 0, 0, time.UTC)
	e := ScheduleEntry{StartTime: start, EndTime: start.Add(2 * time.Hour), Status: EntryScheduled}

	assert.False(t, e.Active(start.Add(-time.Second)))
	assert.True(t, e.Active(start))
	assert.True(t, e.Active(start.Add(time.Hour)))
	assert.False(t, e.Active(start.Add(2*time.Hour)), "end is exclusive")

	e.Status = EntryCompleted
	assert.False(t, e.Active(start.Add(time.Hour)))
}

func TestJobInputToJob(t *testing.T) {
	in := JobInput{Name: "Bracket", Time: 4, DueDate: "2026-10-20 17:00:00", Priority: "High", Machine: "CNC", Skill: "CNC"}
	job, err := in.ToJob()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(job.ID, "JOB-"))
	assert.Len(t, job.ID, 12)
	assert.Equal(t, 4*time.Hour, job.Duration())
	assert.Equal(t, PriorityHigh, job.Priority)
	assert.Equal(t, 17, job.DueDate.Hour())
}

func TestJobInputDefaultsPriority(t *testing.T) {
	job, err := JobInput{ID: "J1", Name: "x", Time: 1, DueDate: "2026-10-20", Machine: "Lathe", Skill: "Lathe"}.ToJob()
	require.NoError(t, err)
	assert.Equal(t, "J1", job.ID)
	assert.Equal(t, PriorityMedium, job.Priority)
}

func TestJobInputValidation(t *testing.T) {
	valid := JobInput{Name: "x", Time: 1, DueDate: "2026-10-20", Priority: "Low", Machine: "CNC", Skill: "CNC"}

	tests := []struct {
		name   string
		mutate func(*JobInput)
		want   error
	}{
		{"missing name", func(in *JobInput) { in.Name = " " }, ErrMissingName},
		{"zero hours", func(in *JobInput) { in.Time = 0 }, ErrInvalidProcessingTime},
		{"bad date", func(in *JobInput) { in.DueDate = "tomorrow" }, ErrInvalidDueDate},
		{"bad priority", func(in *JobInput) { in.Priority = "Urgent" }, ErrInvalidPriority},
		{"missing machine", func(in *JobInput) { in.Machine = "" }, ErrMissingMachine},
		{"missing skill", func(in *JobInput) { in.Skill = "" }, ErrMissingSkill},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid
			tt.mutate(&in)
			_, err := in.ToJob()
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseTimeLayouts(t *testing.T) {
	for _, s := range []string{"2026-10-20T09:30:00Z", "2026-10-20 09:30:00", "2026-10-20T09:30", "2026-10-20"} {
		_, err := ParseTime(s, time.UTC)
		assert.NoError(t, err, s)
	}
}

func TestMachineAndWorkerInput(t *testing.T) {
	m, err := MachineInput{ID: "CNC-1", Name: "CNC Mill"}.ToMachine()
	require.NoError(t, err)
	assert.Equal(t, MachineAvailable, m.Status)

	_, err = MachineInput{ID: "CNC-1", Name: "CNC Mill", Status: "Broken"}.ToMachine()
	assert.ErrorIs(t, err, ErrInvalidStatus)

	w, err := WorkerInput{ID: "W1", Name: "Asha", Skill: "CNC"}.ToWorker()
	require.NoError(t, err)
	assert.Equal(t, ShiftDay, w.Shift)
	assert.Equal(t, WorkerAvailable, w.Status)

	_, err = WorkerInput{ID: "W1", Name: "Asha", Skill: "CNC", Shift: "Evening"}.ToWorker()
	assert.ErrorIs(t, err, ErrInvalidShift)

	_, err = WorkerInput{Name: "Asha", Skill: "CNC"}.ToWorker()
	assert.ErrorIs(t, err, ErrMissingID)
}
