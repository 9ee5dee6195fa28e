// Package event normalizes the heterogeneous trigger shapes a run can
// start from into the pipeline's canonical parameter set.
package event

// PushPayload is the version-control host's push event, reduced to the
// fields the pipeline consumes.
type PushPayload struct {
	Ref        string `json:"ref"`
	After      string `json:"after"`
	Repository struct {
		FullName      string `json:"full_name"`
		DefaultBranch string `json:"default_branch"`
	} `json:"repository"`
}

// ReviewPayload is the host's pull-request review event.
type ReviewPayload struct {
	Action string `json:"action"`
	Review struct {
		State string `json:"state"`
	} `json:"review"`
	PullRequest struct {
		Number int `json:"number"`
		Head   struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

// DispatchInput carries the explicit operator-supplied inputs of a manual
// run.
type DispatchInput struct {
	TestLevel    string   `json:"test_level,omitempty"`
	Tests        []string `json:"tests,omitempty"`
	TargetOrg    string   `json:"target_org,omitempty"`
	TargetBranch string   `json:"target_branch,omitempty"`
	SourceBranch string   `json:"source_branch,omitempty"`
}

// Trigger is the discriminated union over the three trigger shapes. At
// most one payload field is set, matched by Type.
type Trigger struct {
	Type     Type
	Push     *PushPayload
	Review   *ReviewPayload
	Dispatch *DispatchInput
}

// Type discriminates trigger shapes.
type Type string

const (
	TypePush     Type = "push"
	TypeReview   Type = "pull_request_review"
	TypeDispatch Type = "workflow_dispatch"
)
