package pipeline

// Stage names one unit of pipeline work with a gating decision and an
// external executor.
type Stage string

const (
	StageCheckConflicts    Stage = "check_conflicts"
	StageValidateMetadata  Stage = "validate_metadata"
	StageRunTests          Stage = "run_tests"
	StageCreatePullRequest Stage = "create_pull_request"
	StageDeploy            Stage = "deploy"
)

// StageOrder is the fixed topological order stages are gated and executed
// in. Each stage's gate depends only on outcomes of stages earlier in this
// list.
var StageOrder = []Stage{
	StageCheckConflicts,
	StageValidateMetadata,
	StageRunTests,
	StageCreatePullRequest,
	StageDeploy,
}

// StageConfig holds the per-stage enable flags. It is loaded once at
// startup and is immutable for the lifetime of a run.
type StageConfig struct {
	CheckConflicts    bool `koanf:"check_conflicts" json:"check_conflicts"`
	ValidateMetadata  bool `koanf:"validate_metadata" json:"validate_metadata"`
	RunTests          bool `koanf:"run_tests" json:"run_tests"`
	CreatePullRequest bool `koanf:"create_pull_request" json:"create_pull_request"`
	Deploy            bool `koanf:"deploy" json:"deploy"`
}

// Enabled reports whether the named stage is switched on.
func (c StageConfig) Enabled(s Stage) bool {
	switch s {
	case StageCheckConflicts:
		return c.CheckConflicts
	case StageValidateMetadata:
		return c.ValidateMetadata
	case StageRunTests:
		return c.RunTests
	case StageCreatePullRequest:
		return c.CreatePullRequest
	case StageDeploy:
		return c.Deploy
	}
	return false
}

// AllStagesEnabled returns a config with every stage switched on.
func AllStagesEnabled() StageConfig {
	return StageConfig{
		CheckConflicts:    true,
		ValidateMetadata:  true,
		RunTests:          true,
		CreatePullRequest: true,
		Deploy:            true,
	}
}
