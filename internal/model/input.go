package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrMissingID             = errors.New("missing id")
	ErrMissingName           = errors.New("missing name")
	ErrInvalidProcessingTime = errors.New("processing time must be a positive number of hours")
	ErrInvalidDueDate        = errors.New("invalid due date")
	ErrInvalidPriority       = errors.New("priority must be High, Medium or Low")
	ErrMissingMachine        = errors.New("missing required machine")
	ErrMissingSkill          = errors.New("missing required skill")
	ErrInvalidStatus         = errors.New("invalid status")
	ErrInvalidShift          = errors.New("shift must be Day or Night")
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTime accepts RFC 3339 and the plain date/time forms operators type by hand.
// Forms without a zone are read in loc.
func ParseTime(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDueDate, s)
}

// NewJobID returns a short random job identifier.
func NewJobID() string {
	return "JOB-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

// JobInput is the external form of a new job as sent by the CLI, the API and inbox files.
type JobInput struct {
	ID       string `json:"id,omitempty" yaml:"id,omitempty"`
	Name     string `json:"name" yaml:"name"`
	Time     int    `json:"time" yaml:"time"`
	DueDate  string `json:"dueDate" yaml:"dueDate"`
	Priority string `json:"priority" yaml:"priority"`
	Machine  string `json:"machine" yaml:"machine"`
	Skill    string `json:"skill" yaml:"skill"`
}

func (in JobInput) ToJob() (Job, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Job{}, ErrMissingName
	}
	if in.Time <= 0 {
		return Job{}, ErrInvalidProcessingTime
	}
	due, err := ParseTime(in.DueDate, time.Local)
	if err != nil {
		return Job{}, err
	}
	priority := Priority(strings.TrimSpace(in.Priority))
	if priority == "" {
		priority = PriorityMedium
	}
	if !priority.Valid() {
		return Job{}, fmt.Errorf("%w: %q", ErrInvalidPriority, in.Priority)
	}
	machine := strings.TrimSpace(in.Machine)
	if machine == "" {
		return Job{}, ErrMissingMachine
	}
	skill := strings.TrimSpace(in.Skill)
	if skill == "" {
		return Job{}, ErrMissingSkill
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = NewJobID()
	}
	return Job{
		ID:              id,
		Name:            name,
		ProcessingTime:  in.Time,
		DueDate:         due,
		Priority:        priority,
		RequiredMachine: machine,
		RequiredSkill:   skill,
	}, nil
}

type MachineInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

func (in MachineInput) ToMachine() (Machine, error) {
	m := Machine{
		ID:     strings.TrimSpace(in.ID),
		Name:   strings.TrimSpace(in.Name),
		Status: MachineStatus(in.Status),
	}
	if m.ID == "" {
		return Machine{}, ErrMissingID
	}
	if m.Name == "" {
		return Machine{}, ErrMissingName
	}
	if m.Status == "" {
		m.Status = MachineAvailable
	}
	if !m.Status.Valid() {
		return Machine{}, fmt.Errorf("%w: machine status %q", ErrInvalidStatus, in.Status)
	}
	return m, nil
}

type WorkerInput struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Skill  string `json:"skill"`
	Shift  string `json:"shift"`
	Status string `json:"status"`
}

func (in WorkerInput) ToWorker() (Worker, error) {
	w := Worker{
		ID:     strings.TrimSpace(in.ID),
		Name:   strings.TrimSpace(in.Name),
		Skill:  strings.TrimSpace(in.Skill),
		Shift:  Shift(in.Shift),
		Status: WorkerStatus(in.Status),
	}
	if w.ID == "" {
		return Worker{}, ErrMissingID
	}
	if w.Name == "" {
		return Worker{}, ErrMissingName
	}
	if w.Skill == "" {
		return Worker{}, ErrMissingSkill
	}
	if w.Shift == "" {
		w.Shift = ShiftDay
	}
	if !w.Shift.Valid() {
		return Worker{}, fmt.Errorf("%w: %q", ErrInvalidShift, in.Shift)
	}
	if w.Status == "" {
		w.Status = WorkerAvailable
	}
	if !w.Status.Valid() {
		return Worker{}, fmt.Errorf("%w: worker status %q", ErrInvalidStatus, in.Status)
	}
	return w, nil
}
