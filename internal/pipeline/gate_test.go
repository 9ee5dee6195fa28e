package pipeline

import "testing"

func TestGate_CheckConflicts(t *testing.T) {
	tests := []struct {
		name    string
		enabled bool
		event   EventType
		want    Decision
	}{
		{"push enabled", true, EventPush, DecisionRun},
		{"manual enabled", true, EventManualDispatch, DecisionRun},
		{"review enabled", true, EventReviewSubmitted, DecisionSkip},
		{"push disabled", false, EventPush, DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AllStagesEnabled()
			cfg.CheckConflicts = tt.enabled

			got, _ := Gate(StageCheckConflicts, cfg, Parameters{EventType: tt.event}, nil)
			if got != tt.want {
				t.Errorf("Gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_ValidateMetadata(t *testing.T) {
	tests := []struct {
		name      string
		enabled   bool
		conflicts Outcome
		want      Decision
	}{
		{"after success", true, Success(), DecisionRun},
		{"after skip", true, Skipped("disabled"), DecisionRun},
		{"after failure", true, Failure("conflicts"), DecisionBlocked},
		{"disabled after failure", false, Failure("conflicts"), DecisionBlocked},
		{"disabled after success", false, Success(), DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := AllStagesEnabled()
			cfg.ValidateMetadata = tt.enabled
			prior := map[Stage]Outcome{StageCheckConflicts: tt.conflicts}

			got, _ := Gate(StageValidateMetadata, cfg, Parameters{EventType: EventPush}, prior)
			if got != tt.want {
				t.Errorf("Gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_RunTests_BlockedPredecessorPropagates(t *testing.T) {
	prior := map[Stage]Outcome{
		StageCheckConflicts:   Failure("conflicts"),
		StageValidateMetadata: Blocked("blocked by failed stage check_conflicts"),
	}

	got, _ := Gate(StageRunTests, AllStagesEnabled(), Parameters{EventType: EventPush}, prior)
	if got != DecisionBlocked {
		t.Errorf("Gate() = %v, want %v", got, DecisionBlocked)
	}
}

func TestGate_CreatePullRequest(t *testing.T) {
	tests := []struct {
		name  string
		event EventType
		tests Outcome
		want  Decision
	}{
		{"push with passing tests", EventPush, Success(), DecisionRun},
		{"push with skipped tests", EventPush, Skipped("disabled"), DecisionSkip},
		{"push with failed tests", EventPush, Failure("boom"), DecisionSkip},
		{"review with passing tests", EventReviewSubmitted, Success(), DecisionSkip},
		{"manual with passing tests", EventManualDispatch, Success(), DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prior := map[Stage]Outcome{StageRunTests: tt.tests}
			got, _ := Gate(StageCreatePullRequest, AllStagesEnabled(), Parameters{EventType: tt.event}, prior)
			if got != tt.want {
				t.Errorf("Gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGate_Deploy(t *testing.T) {
	tests := []struct {
		name     string
		event    EventType
		approved bool
		tests    Outcome
		want     Decision
	}{
		{"approved review with passing tests", EventReviewSubmitted, true, Success(), DecisionRun},
		{"approved review with skipped tests", EventReviewSubmitted, true, Skipped("disabled"), DecisionRun},
		{"approved review with failed tests", EventReviewSubmitted, true, Failure("boom"), DecisionSkip},
		{"unapproved review", EventReviewSubmitted, false, Success(), DecisionSkip},
		{"push event", EventPush, true, Success(), DecisionSkip},
		{"manual event", EventManualDispatch, true, Success(), DecisionSkip},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := Parameters{EventType: tt.event, PRApproved: tt.approved}
			prior := map[Stage]Outcome{StageRunTests: tt.tests}

			got, _ := Gate(StageDeploy, AllStagesEnabled(), params, prior)
			if got != tt.want {
				t.Errorf("Gate() = %v, want %v", got, tt.want)
			}
		})
	}
}

// An unapproved review must never deploy, regardless of test outcome.
func TestGate_Deploy_UnapprovedNeverRuns(t *testing.T) {
	for _, tests := range []Outcome{Success(), Failure("boom"), Skipped("disabled"), Blocked("upstream")} {
		params := Parameters{EventType: EventReviewSubmitted, PRApproved: false}
		prior := map[Stage]Outcome{StageRunTests: tests}

		got, _ := Gate(StageDeploy, AllStagesEnabled(), params, prior)
		if got != DecisionSkip {
			t.Errorf("tests=%s: Gate() = %v, want %v", tests.Status, got, DecisionSkip)
		}
	}
}

// When the conflict check fails, no downstream stage may gate to run, for
// any combination of stage enable flags.
func TestGate_Monotonicity_ConflictFailureBlocksEverything(t *testing.T) {
	downstream := []Stage{StageValidateMetadata, StageRunTests, StageCreatePullRequest, StageDeploy}

	for mask := 0; mask < 32; mask++ {
		cfg := StageConfig{
			CheckConflicts:    mask&1 != 0,
			ValidateMetadata:  mask&2 != 0,
			RunTests:          mask&4 != 0,
			CreatePullRequest: mask&8 != 0,
			Deploy:            mask&16 != 0,
		}
		params := Parameters{EventType: EventPush, PRApproved: true}

		prior := map[Stage]Outcome{StageCheckConflicts: Failure("conflict markers found")}
		for _, stage := range downstream {
			decision, reason := Gate(stage, cfg, params, prior)
			if decision == DecisionRun {
				t.Fatalf("cfg=%+v: stage %s gated to run after conflict failure", cfg, stage)
			}
			switch decision {
			case DecisionBlocked:
				prior[stage] = Blocked(reason)
			default:
				prior[stage] = Skipped(reason)
			}
		}
	}
}
