package pipeline

import (
	"context"
	"errors"
	"testing"
)

// stubExecutor records invocations and returns a fixed outcome.
type stubExecutor struct {
	calls   int
	outcome Outcome
}

func (s *stubExecutor) Execute(_ context.Context, _ Parameters, _ map[Stage]Outcome) Outcome {
	s.calls++
	return s.outcome
}

func successExecutors() map[Stage]Executor {
	execs := make(map[Stage]Executor, len(StageOrder))
	for _, stage := range StageOrder {
		execs[stage] = &stubExecutor{outcome: Success()}
	}
	return execs
}

func TestRunner_PushHappyPath(t *testing.T) {
	r := NewRunner(AllStagesEnabled(), successExecutors())

	run := r.Run(context.Background(), Parameters{EventType: EventPush, TestLevel: RunLocalTests})

	want := Verdict{Message: "PR created successfully, waiting for approval", Success: true}
	if run.Verdict != want {
		t.Fatalf("Verdict = %+v, want %+v", run.Verdict, want)
	}
	if run.Outcomes[StageDeploy].Status != StatusSkipped {
		t.Errorf("deploy status = %s, want skipped", run.Outcomes[StageDeploy].Status)
	}
	if run.ID == "" {
		t.Error("expected a run ID")
	}
}

func TestRunner_ApprovedReviewDeploys(t *testing.T) {
	execs := successExecutors()
	deploy := execs[StageDeploy].(*stubExecutor)

	r := NewRunner(AllStagesEnabled(), execs)
	pr := 42
	run := r.Run(context.Background(), Parameters{
		EventType:  EventReviewSubmitted,
		TestLevel:  RunLocalTests,
		PRNumber:   &pr,
		PRApproved: true,
	})

	if deploy.calls != 1 {
		t.Fatalf("deploy executor calls = %d, want 1", deploy.calls)
	}
	want := Verdict{Message: "Changes deployed successfully after PR approval", Success: true}
	if run.Verdict != want {
		t.Errorf("Verdict = %+v, want %+v", run.Verdict, want)
	}
}

func TestRunner_ConflictFailureBlocksDownstream(t *testing.T) {
	execs := successExecutors()
	execs[StageCheckConflicts] = &stubExecutor{outcome: Failure("conflict markers found")}
	validate := execs[StageValidateMetadata].(*stubExecutor)
	tests := execs[StageRunTests].(*stubExecutor)

	r := NewRunner(AllStagesEnabled(), execs)
	run := r.Run(context.Background(), Parameters{EventType: EventPush})

	if validate.calls != 0 || tests.calls != 0 {
		t.Errorf("downstream executors ran: validate=%d tests=%d", validate.calls, tests.calls)
	}
	if run.Outcomes[StageValidateMetadata].Status != StatusBlocked {
		t.Errorf("validate status = %s, want blocked", run.Outcomes[StageValidateMetadata].Status)
	}
	if run.Verdict.Message != "Merge conflicts detected" {
		t.Errorf("Message = %q, want %q", run.Verdict.Message, "Merge conflicts detected")
	}
}

func TestRunner_CancelledContextSkipsAllStages(t *testing.T) {
	execs := successExecutors()
	conflicts := execs[StageCheckConflicts].(*stubExecutor)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := NewRunner(AllStagesEnabled(), execs)
	run := r.Run(ctx, Parameters{EventType: EventPush})

	if conflicts.calls != 0 {
		t.Errorf("executor ran under cancelled context: calls=%d", conflicts.calls)
	}
	for _, stage := range StageOrder {
		out := run.Outcomes[stage]
		if out.Status != StatusSkipped || out.Reason != "cancelled" {
			t.Errorf("stage %s = %s(%q), want skipped(cancelled)", stage, out.Status, out.Reason)
		}
	}
	// A verdict is still produced.
	if run.Verdict.Message == "" {
		t.Error("expected a verdict for a cancelled run")
	}
}

func TestRunner_PanickingExecutorMapsToFailure(t *testing.T) {
	execs := successExecutors()
	execs[StageCheckConflicts] = ExecutorFunc(func(context.Context, Parameters, map[Stage]Outcome) Outcome {
		panic("collaborator crashed")
	})

	r := NewRunner(AllStagesEnabled(), execs)
	run := r.Run(context.Background(), Parameters{EventType: EventPush})

	out := run.Outcomes[StageCheckConflicts]
	if out.Status != StatusFailure {
		t.Fatalf("status = %s, want failure", out.Status)
	}
	if out.Reason == "" {
		t.Error("expected a failure reason for a crashed executor")
	}
}

func TestRunner_MissingExecutorIsFailure(t *testing.T) {
	execs := successExecutors()
	delete(execs, StageRunTests)

	r := NewRunner(AllStagesEnabled(), execs)
	run := r.Run(context.Background(), Parameters{EventType: EventPush})

	if run.Outcomes[StageRunTests].Status != StatusFailure {
		t.Errorf("status = %s, want failure", run.Outcomes[StageRunTests].Status)
	}
	if run.Verdict.Message != "Tests failed" {
		t.Errorf("Message = %q, want %q", run.Verdict.Message, "Tests failed")
	}
}

type failingNotifier struct{ calls int }

func (n *failingNotifier) Notify(context.Context, *Run) error {
	n.calls++
	return errors.New("webhook unreachable")
}

// A notification failure never alters the already-computed verdict.
func TestRunner_NotifierFailureDoesNotAlterVerdict(t *testing.T) {
	notifier := &failingNotifier{}
	r := NewRunner(AllStagesEnabled(), successExecutors(), WithNotifier(notifier))

	run := r.Run(context.Background(), Parameters{EventType: EventPush})

	if notifier.calls != 1 {
		t.Fatalf("notifier calls = %d, want 1", notifier.calls)
	}
	if !run.Verdict.Success {
		t.Errorf("Success = false, want true (got %q)", run.Verdict.Message)
	}
}

type captureStore struct{ saved *Run }

func (s *captureStore) SaveRun(_ context.Context, run *Run) error {
	s.saved = run
	return nil
}

func TestRunner_PersistsCompletedRun(t *testing.T) {
	store := &captureStore{}
	r := NewRunner(AllStagesEnabled(), successExecutors(), WithStore(store))

	run := r.Run(context.Background(), Parameters{EventType: EventManualDispatch})

	if store.saved == nil {
		t.Fatal("run was not persisted")
	}
	if store.saved.ID != run.ID {
		t.Errorf("persisted run ID = %s, want %s", store.saved.ID, run.ID)
	}
}
