package model

import "time"

type PassKind string

const (
	PassGenerate   PassKind = "generate"
	PassReschedule PassKind = "reschedule"
	PassReconcile  PassKind = "reconcile"
)

// PassRecord describes one finished engine pass for the metrics history.
type PassRecord struct {
	Kind       PassKind  `json:"kind"`
	StartedAt  time.Time `json:"started_at"`
	DurationMs int64     `json:"duration_ms"`
	Success    bool      `json:"success"`
	Count      int       `json:"count"`
	Deferred   int       `json:"deferred"`
	Message    string    `json:"message,omitempty"`
	Error      string    `json:"error,omitempty"`
}

// PassOptions selects what a generation pass loads and whether it first drops
// the current Scheduled entries.
type PassOptions struct {
	Reset            bool
	ExcludeScheduled bool
}

// Snapshot is the state one generation pass plans against.
type Snapshot struct {
	Jobs      []Job
	Machines  []Machine
	Workers   []Worker
	Committed []ScheduleEntry
	// Reset is the number of Scheduled entries dropped before loading.
	Reset int64
}

// StatusSnapshot is the state one reconcile pass decides against. Completed
// counts the entries that ended by the pass instant; Scheduled holds the rest.
type StatusSnapshot struct {
	Completed int64
	Scheduled []ScheduleEntry
	Machines  []Machine
	Workers   []Worker
}

// StatusChanges maps resource IDs to the status a reconcile pass sets.
type StatusChanges struct {
	Machines map[string]MachineStatus
	Workers  map[string]WorkerStatus
}
