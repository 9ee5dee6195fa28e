package pipeline

// Decision is a gate's verdict on whether a stage should execute.
type Decision string

const (
	DecisionRun     Decision = "run"
	DecisionSkip    Decision = "skip"
	DecisionBlocked Decision = "blocked"
)

// Gate decides whether the given stage runs, is skipped, or is blocked,
// given the stage enable flags, the run's canonical parameters, and the
// outcomes of all stages earlier in StageOrder. It is a pure function; the
// returned string is the human-readable reason for a skip or block.
//
// Rules are evaluated first-match-wins per stage:
//
//   - check_conflicts runs on push and manual events when enabled.
//   - validate_metadata runs when enabled and check_conflicts succeeded or
//     was skipped; it is blocked when check_conflicts failed.
//   - run_tests runs when enabled and validate_metadata succeeded or was
//     skipped; it is blocked when validate_metadata failed.
//   - create_pull_request runs only for push events after passing tests.
//   - deploy runs only for an approved review when tests passed or were
//     skipped.
func Gate(stage Stage, cfg StageConfig, params Parameters, prior map[Stage]Outcome) (Decision, string) {
	switch stage {
	case StageCheckConflicts:
		if !cfg.Enabled(stage) {
			return DecisionSkip, "stage disabled by configuration"
		}
		if params.EventType == EventPush || params.EventType == EventManualDispatch {
			return DecisionRun, ""
		}
		return DecisionSkip, "conflict check only runs for push and manual events"

	case StageValidateMetadata:
		return gateAfter(stage, StageCheckConflicts, cfg, prior)

	case StageRunTests:
		return gateAfter(stage, StageValidateMetadata, cfg, prior)

	case StageCreatePullRequest:
		if !cfg.Enabled(stage) {
			return DecisionSkip, "stage disabled by configuration"
		}
		if params.EventType != EventPush {
			return DecisionSkip, "pull requests are only created for push events"
		}
		if prior[StageRunTests].Status != StatusSuccess {
			return DecisionSkip, "tests did not pass"
		}
		return DecisionRun, ""

	case StageDeploy:
		if !cfg.Enabled(stage) {
			return DecisionSkip, "stage disabled by configuration"
		}
		if params.EventType != EventReviewSubmitted {
			return DecisionSkip, "deploy only runs after a pull request review"
		}
		if !params.PRApproved {
			return DecisionSkip, "pull request is not approved"
		}
		if !prior[StageRunTests].Satisfied() {
			return DecisionSkip, "tests did not pass"
		}
		return DecisionRun, ""
	}

	return DecisionSkip, "unknown stage"
}

// gateAfter applies the shared rule for stages gated on a single
// predecessor: run when enabled and the predecessor is satisfied, blocked
// when the predecessor failed, otherwise skipped.
func gateAfter(stage, pred Stage, cfg StageConfig, prior map[Stage]Outcome) (Decision, string) {
	predOutcome := prior[pred]
	if cfg.Enabled(stage) && predOutcome.Satisfied() {
		return DecisionRun, ""
	}
	if predOutcome.Blocking() {
		return DecisionBlocked, "blocked by failed stage " + string(pred)
	}
	return DecisionSkip, "stage disabled by configuration"
}
