package scheduler

import (
	"slices"
	"strings"

	"github.com/udaykr117/smartsched/internal/model"
)

// FindMachine returns the first machine whose ID equals the job's machine requirement
// or whose name contains it, both case-insensitively.
func FindMachine(job model.Job, machines []model.Machine) (model.Machine, bool) {
	required := strings.ToLower(job.RequiredMachine)
	for _, m := range machines {
		if strings.EqualFold(m.ID, job.RequiredMachine) || strings.Contains(strings.ToLower(m.Name), required) {
			return m, true
		}
	}
	return model.Machine{}, false
}

// FindWorker returns the first worker holding the job's skill as one of their
// comma-separated tokens, falling back to a substring match on the whole skill field.
func FindWorker(job model.Job, workers []model.Worker) (model.Worker, bool) {
	required := strings.ToLower(job.RequiredSkill)
	for _, w := range workers {
		if slices.Contains(w.Skills(), required) || strings.Contains(strings.ToLower(w.Skill), required) {
			return w, true
		}
	}
	return model.Worker{}, false
}
