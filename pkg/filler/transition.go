package filler

import "github.com/formflow-dev/formflow/pkg/session"

// Step identifies which component processes an inbound turn.
type Step int

const (
	// StepTerminate means the session is complete and no step runs.
	StepTerminate Step = iota
	// StepOrchestrate runs the whole-form extraction pass.
	StepOrchestrate
	// StepInterrogate runs the single-field clarification pass.
	StepInterrogate
)

// String returns the step name.
func (s Step) String() string {
	switch s {
	case StepOrchestrate:
		return "orchestrate"
	case StepInterrogate:
		return "interrogate"
	default:
		return "terminate"
	}
}

// NextStep maps the stored status to the step the next inbound turn runs.
// Pure function of status; in_progress only holds before a session's first
// orchestrator pass has committed.
func NextStep(status session.Status) Step {
	switch status {
	case session.StatusCompleted:
		return StepTerminate
	case session.StatusAwaitingInfo:
		return StepInterrogate
	default:
		return StepOrchestrate
	}
}
