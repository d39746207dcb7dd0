// Package model defines the jobs, resources and schedule entries shared by the store,
// the scheduling engine and the request layer.
package model

import (
	"strings"
	"time"
)

type Priority string

const (
	PriorityHigh   Priority = "High"
	PriorityMedium Priority = "Medium"
	PriorityLow    Priority = "Low"
)

// Rank orders priorities for scheduling; unknown values sort last.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 1
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 3
	default:
		return 4
	}
}

func (p Priority) Valid() bool {
	return p.Rank() < 4
}

type MachineStatus string

const (
	MachineAvailable   MachineStatus = "Available"
	MachineBusy        MachineStatus = "Busy"
	MachineBreakdown   MachineStatus = "Breakdown"
	MachineMaintenance MachineStatus = "Maintenance"
)

// Manual reports whether the status is operator-owned and must not be
// toggled by reconciliation.
func (s MachineStatus) Manual() bool {
	return s == MachineBreakdown || s == MachineMaintenance
}

func (s MachineStatus) Valid() bool {
	switch s {
	case MachineAvailable, MachineBusy, MachineBreakdown, MachineMaintenance:
		return true
	}
	return false
}

type WorkerStatus string

const (
	WorkerAvailable WorkerStatus = "Available"
	WorkerBusy      WorkerStatus = "Busy"
	WorkerLeave     WorkerStatus = "Leave"
)

func (s WorkerStatus) Manual() bool {
	return s == WorkerLeave
}

func (s WorkerStatus) Valid() bool {
	switch s {
	case WorkerAvailable, WorkerBusy, WorkerLeave:
		return true
	}
	return false
}

type Shift string

const (
	ShiftDay   Shift = "Day"
	ShiftNight Shift = "Night"
)

func (s Shift) Valid() bool {
	return s == ShiftDay || s == ShiftNight
}

type EntryStatus string

const (
	EntryScheduled EntryStatus = "Scheduled"
	EntryCompleted EntryStatus = "Completed"
	EntryCancelled EntryStatus = "Cancelled"
)

func (s EntryStatus) Valid() bool {
	switch s {
	case EntryScheduled, EntryCompleted, EntryCancelled:
		return true
	}
	return false
}

type Job struct {
	ID              string    `json:"job_id"`
	Name            string    `json:"job_name"`
	ProcessingTime  int       `json:"processing_time"`
	DueDate         time.Time `json:"due_date"`
	Priority        Priority  `json:"priority"`
	RequiredMachine string    `json:"required_machine"`
	RequiredSkill   string    `json:"required_skill"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration is the processing time in whole hours.
func (j Job) Duration() time.Duration {
	return time.Duration(j.ProcessingTime) * time.Hour
}

type Machine struct {
	ID     string        `json:"machine_id"`
	Name   string        `json:"machine_name"`
	Status MachineStatus `json:"status"`
}

type Worker struct {
	ID     string       `json:"worker_id"`
	Name   string       `json:"worker_name"`
	Skill  string       `json:"skill"`
	Shift  Shift        `json:"shift"`
	Status WorkerStatus `json:"status"`
}

// Skills splits the comma-separated skill field into trimmed, lower-cased tokens.
func (w Worker) Skills() []string {
	parts := strings.Split(strings.ToLower(w.Skill), ",")
	skills := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

type ScheduleEntry struct {
	ID        int64       `json:"schedule_id"`
	JobID     string      `json:"job_id"`
	MachineID string      `json:"machine_id"`
	WorkerID  string      `json:"worker_id"`
	StartTime time.Time   `json:"start_time"`
	EndTime   time.Time   `json:"end_time"`
	Status    EntryStatus `json:"status"`

	JobName     string `json:"job_name,omitempty"`
	MachineName string `json:"machine_name,omitempty"`
	WorkerName  string `json:"worker_name,omitempty"`
}

// Active reports whether the entry occupies its resources at now.
func (e ScheduleEntry) Active(now time.Time) bool {
	return e.Status == EntryScheduled && !e.StartTime.After(now) && now.Before(e.EndTime)
}
