package pipeline

// Verdict is the single aggregated end-of-run result.
type Verdict struct {
	Message string `json:"message"`
	Success bool   `json:"success"`
}

// Aggregate reduces the full set of stage outcomes plus the event type
// into one verdict. Resolution order is fixed; the first matching rule
// wins, so an upstream failure always takes precedence over anything it
// caused downstream.
func Aggregate(outcomes map[Stage]Outcome, cfg StageConfig, event EventType) Verdict {
	switch {
	case outcomes[StageCheckConflicts].Status == StatusFailure:
		return Verdict{Message: "Merge conflicts detected"}

	case outcomes[StageValidateMetadata].Status == StatusFailure:
		return Verdict{Message: "Metadata validation failed"}

	case outcomes[StageRunTests].Status == StatusFailure:
		return Verdict{Message: "Tests failed"}

	case outcomes[StageCreatePullRequest].Status == StatusFailure &&
		cfg.CreatePullRequest && event == EventPush:
		return Verdict{Message: "Pull request creation failed"}

	case outcomes[StageDeploy].Status == StatusFailure &&
		cfg.Deploy && event == EventReviewSubmitted:
		return Verdict{Message: "Deployment failed"}

	case event == EventPush && outcomes[StageCreatePullRequest].Status == StatusSuccess:
		return Verdict{Message: "PR created successfully, waiting for approval", Success: true}

	case event == EventReviewSubmitted && outcomes[StageDeploy].Status == StatusSuccess:
		return Verdict{Message: "Changes deployed successfully after PR approval", Success: true}
	}

	return Verdict{Message: "Pipeline completed successfully", Success: true}
}
