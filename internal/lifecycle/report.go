package lifecycle

// StepStatus is the outcome of one exercise step.
type StepStatus string

const (
	StepPassed StepStatus = "passed"
	StepFailed StepStatus = "failed"
)

// StepResult records one exercise step.
type StepResult struct {
	Name   string     `json:"name"`
	Status StepStatus `json:"status"`
	Detail string     `json:"detail,omitempty"`
}

// Report is the final account of a lifecycle run. The fatal-lifecycle
// and partial-exercise signals are kept separate: a run whose VM came
// up and was deleted cleanly can still carry failed exercise steps.
type Report struct {
	VMID     string `json:"vmId,omitempty"`
	VMName   string `json:"vmName,omitempty"`
	PublicIP string `json:"publicIp,omitempty"`

	Created     bool        `json:"created"`
	WaitOutcome WaitOutcome `json:"waitOutcome,omitempty"`

	// Failure is the fatal lifecycle failure, when one occurred:
	// spec validation, create, or the readiness wait.
	Failure string `json:"failure,omitempty"`

	Steps []StepResult `json:"steps,omitempty"`

	Deleted        bool   `json:"deleted,omitempty"`
	CleanupSkipped bool   `json:"cleanupSkipped,omitempty"`
	CleanupError   string `json:"cleanupError,omitempty"`
}

// LifecycleFailed reports whether the run hit a fatal lifecycle
// failure.
func (r *Report) LifecycleFailed() bool { return r.Failure != "" }

// ExercisePartial reports whether any exercise step failed.
func (r *Report) ExercisePartial() bool {
	for _, s := range r.Steps {
		if s.Status == StepFailed {
			return true
		}
	}
	return false
}

// ExitCode maps the run outcome to a process exit code: 0 full pass,
// 1 fatal lifecycle failure, 2 lifecycle passed but some exercise
// steps failed.
func (r *Report) ExitCode() int {
	if r.LifecycleFailed() {
		return 1
	}
	if r.ExercisePartial() {
		return 2
	}
	return 0
}
