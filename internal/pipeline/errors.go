package pipeline

import "fmt"

// ConfigError is a fatal configuration problem detected while executing a
// stage, such as the specified-tests level with no tests named. It aborts
// the stage immediately and is recorded as that stage's failure.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return e.Reason
}

// ToolError wraps a non-zero exit or malformed response from an external
// collaborator, keeping the raw diagnostics attached for operators.
type ToolError struct {
	Tool        string
	Err         error
	Diagnostics *Diagnostics
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("%s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}
