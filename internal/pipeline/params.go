package pipeline

import "fmt"

// EventType identifies the trigger that started a pipeline run.
type EventType string

const (
	EventPush            EventType = "push"
	EventReviewSubmitted EventType = "review_submitted"
	EventManualDispatch  EventType = "manual_dispatch"
)

// TestLevel selects which tests the platform CLI executes during
// validation and deployment.
type TestLevel string

const (
	RunLocalTests     TestLevel = "RunLocalTests"
	RunSpecifiedTests TestLevel = "RunSpecifiedTests"
	RunAllTestsInOrg  TestLevel = "RunAllTestsInOrg"
)

// ParseTestLevel converts a configuration string into a TestLevel.
func ParseTestLevel(s string) (TestLevel, error) {
	switch TestLevel(s) {
	case RunLocalTests, RunSpecifiedTests, RunAllTestsInOrg:
		return TestLevel(s), nil
	}
	return "", fmt.Errorf("unknown test level %q", s)
}

// Parameters is the canonical parameter set for one pipeline run.
// It is built once by the event normalizer and never mutated afterwards.
type Parameters struct {
	EventType      EventType `json:"event_type"`
	TestLevel      TestLevel `json:"test_level"`
	SpecifiedTests []string  `json:"specified_tests,omitempty"`
	TargetOrgAlias string    `json:"target_org_alias"`
	TargetBranch   string    `json:"target_branch"`
	SourceBranch   string    `json:"source_branch,omitempty"`

	// PRNumber is set only for review-submitted events.
	PRNumber *int `json:"pr_number,omitempty"`
	// PRApproved is meaningful only for review-submitted events.
	PRApproved bool `json:"pr_approved,omitempty"`
}
