package pipeline

import "time"

// Status is the recorded result of attempting, or deliberately not
// attempting, a stage.
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
	StatusSkipped Status = "skipped"

	// StatusBlocked marks a stage that was never attempted because a
	// predecessor failed. It is recorded distinctly from skipped so the
	// aggregator can tell the two apart.
	StatusBlocked Status = "blocked"
)

// Outcome is the write-once result of one stage in one run. Downstream
// stages and the aggregator read it but never modify it.
type Outcome struct {
	Status Status `json:"status"`
	Reason string `json:"reason,omitempty"`

	// Diagnostics carries the raw collaborator output for failed or
	// successful invocations. Operators need this detail to debug
	// platform failures the verdict message does not capture.
	Diagnostics *Diagnostics  `json:"diagnostics,omitempty"`
	Duration    time.Duration `json:"duration,omitempty"`
}

// Diagnostics captures the raw execution details of an external
// collaborator invocation.
type Diagnostics struct {
	Command  []string `json:"command,omitempty"`
	Stdout   string   `json:"stdout,omitempty"`
	Stderr   string   `json:"stderr,omitempty"`
	ExitCode int      `json:"exit_code"`
}

// Success returns a passing outcome.
func Success() Outcome {
	return Outcome{Status: StatusSuccess}
}

// Failure returns a failing outcome with the given reason.
func Failure(reason string) Outcome {
	return Outcome{Status: StatusFailure, Reason: reason}
}

// Skipped returns an outcome for a stage that was deliberately not run.
func Skipped(reason string) Outcome {
	return Outcome{Status: StatusSkipped, Reason: reason}
}

// Blocked returns an outcome for a stage suppressed by an upstream failure.
func Blocked(reason string) Outcome {
	return Outcome{Status: StatusBlocked, Reason: reason}
}

// Blocking reports whether this outcome suppresses downstream stages.
// Only failures block; a skipped stage is never treated as a failure by
// downstream gates or the aggregator. A blocked stage propagates as
// failure-equivalent to its own dependents.
func (o Outcome) Blocking() bool {
	return o.Status == StatusFailure || o.Status == StatusBlocked
}

// Satisfied reports whether this outcome counts as a met precondition for
// a dependent stage. Skipped stages satisfy their dependents.
func (o Outcome) Satisfied() bool {
	return o.Status == StatusSuccess || o.Status == StatusSkipped
}
