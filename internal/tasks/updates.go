package tasks

import (
	"fmt"
	"time"
)

// ProgressUpdate represents a progress event during a batch run.
//
// Used to send real-time updates to the CLI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data, a [BatchResult] for finished requests
}

// Operation phase enumeration
type Phase int

const (
	Dispatch Phase = iota
	RequestDone
	RequestFailed
)

func (p Phase) String() string {
	switch p {
	case Dispatch:
		return "dispatch"
	case RequestDone:
		return "request_done"
	case RequestFailed:
		return "request_failed"
	default:
		return ""
	}
}

// sendProgress never blocks: slow consumers miss updates instead of stalling requests.
func sendProgress(prog chan<- ProgressUpdate, update ProgressUpdate) {
	if prog == nil {
		return
	}
	select {
	case prog <- update:
	default:
	}
}

func dispatchUpdate(step, total int, job BatchJob) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Dispatch,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("Sending %s %s...", job.Method, job.Path),
	}
}

func doneUpdate(step, total int, res BatchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RequestDone,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s → %d (%s)", res.Job.Method, res.Job.Path, res.Status, res.Duration.Round(time.Millisecond)),
		Data:    res,
	}
}

func failedUpdate(step, total int, res BatchResult) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RequestFailed,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("%s %s failed: %v", res.Job.Method, res.Job.Path, res.Err),
		Data:    res,
	}
}
