package event

import (
	"strings"

	"github.com/relgate/relgate/internal/pipeline"
)

// Defaults are the configured fallback values applied during
// normalization.
type Defaults struct {
	TestLevel    pipeline.TestLevel
	TargetOrg    string
	TargetBranch string
}

// Normalize maps a trigger into the canonical parameter set. It is total:
// every trigger shape, including unrecognized ones, produces a fully
// populated Parameters value. Cross-field consistency (the specified-tests
// level with no tests named) is deliberately not checked here; the test
// stage enforces it at execution time.
func Normalize(trig Trigger, defs Defaults) pipeline.Parameters {
	switch trig.Type {
	case TypeDispatch:
		return normalizeDispatch(trig.Dispatch, defs)
	case TypeReview:
		return normalizeReview(trig.Review, defs)
	}
	return normalizePush(trig.Push, defs)
}

// normalizeDispatch takes every field from the operator's explicit
// inputs, falling back to defaults where absent.
func normalizeDispatch(in *DispatchInput, defs Defaults) pipeline.Parameters {
	params := pipeline.Parameters{
		EventType:      pipeline.EventManualDispatch,
		TestLevel:      pipeline.RunLocalTests,
		TargetOrgAlias: defs.TargetOrg,
		TargetBranch:   defs.TargetBranch,
	}
	if in == nil {
		return params
	}

	if level, err := pipeline.ParseTestLevel(in.TestLevel); err == nil {
		params.TestLevel = level
	}
	if params.TestLevel == pipeline.RunSpecifiedTests {
		params.SpecifiedTests = in.Tests
	}
	if in.TargetOrg != "" {
		params.TargetOrgAlias = in.TargetOrg
	}
	if in.TargetBranch != "" {
		params.TargetBranch = in.TargetBranch
	}
	params.SourceBranch = in.SourceBranch
	return params
}

// normalizeReview forces the configured defaults; manual test-level
// overrides are not permitted on review triggers. Branch and PR number
// come from the review's recorded pull request.
func normalizeReview(in *ReviewPayload, defs Defaults) pipeline.Parameters {
	params := pipeline.Parameters{
		EventType:      pipeline.EventReviewSubmitted,
		TestLevel:      defs.TestLevel,
		TargetOrgAlias: defs.TargetOrg,
		TargetBranch:   defs.TargetBranch,
	}
	if in == nil {
		return params
	}

	if in.PullRequest.Base.Ref != "" {
		params.TargetBranch = in.PullRequest.Base.Ref
	}
	params.SourceBranch = in.PullRequest.Head.Ref
	if in.PullRequest.Number != 0 {
		n := in.PullRequest.Number
		params.PRNumber = &n
	}
	params.PRApproved = Approved(in)
	return params
}

// normalizePush applies the same defaulting as a review, minus the PR
// fields. Unrecognized trigger types land here as well.
func normalizePush(in *PushPayload, defs Defaults) pipeline.Parameters {
	params := pipeline.Parameters{
		EventType:      pipeline.EventPush,
		TestLevel:      defs.TestLevel,
		TargetOrgAlias: defs.TargetOrg,
		TargetBranch:   defs.TargetBranch,
	}
	if in != nil {
		params.SourceBranch = strings.TrimPrefix(in.Ref, "refs/heads/")
	}
	return params
}

// Approved reports whether a review payload records an approval. Only the
// exact "approved" state counts; commented, changes-requested, unknown,
// and malformed payloads all degrade safely to false. The function is
// total and never fails.
func Approved(in *ReviewPayload) bool {
	if in == nil {
		return false
	}
	return strings.EqualFold(in.Review.State, "approved")
}
