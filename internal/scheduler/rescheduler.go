package scheduler

import (
	"context"
	"time"

	"github.com/udaykr117/smartsched/internal/model"
)

// Reschedule drops every Scheduled entry, returns Busy resources to Available and
// plans the whole pending set again from scratch. The reset and the new plan
// commit together, so a failed pass leaves the previous schedule in place.
func (e *Engine) Reschedule(ctx context.Context) Result {
	e.mu.Lock()
	defer e.mu.Unlock()

	started := time.Now()
	res := e.generateLocked(ctx, true)
	e.record(ctx, model.PassReschedule, started, res)
	return res
}
