// Package executors binds the external collaborators (the platform CLI,
// git, the version-control host) to the pipeline's stage executor
// contract. Every collaborator error is mapped to a stage failure with
// the raw diagnostics attached, never to a skip.
package executors

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/relgate/relgate/internal/githost"
	"github.com/relgate/relgate/internal/pipeline"
	"github.com/relgate/relgate/internal/sfcli"
)

// toDiagnostics converts CLI diagnostics into the pipeline's record form.
func toDiagnostics(d *sfcli.Diagnostics) *pipeline.Diagnostics {
	if d == nil {
		return nil
	}
	return &pipeline.Diagnostics{
		Command:  d.Command,
		Stdout:   d.Stdout,
		Stderr:   d.Stderr,
		ExitCode: d.ExitCode,
	}
}

// toolFailure records a collaborator failure verbatim, diagnostics and
// all. Nothing is caught and suppressed on the way to the outcome.
func toolFailure(tool string, err error, diag *sfcli.Diagnostics) pipeline.Outcome {
	toolErr := &pipeline.ToolError{Tool: tool, Err: err, Diagnostics: toDiagnostics(diag)}
	out := pipeline.Failure(toolErr.Error())
	out.Diagnostics = toolErr.Diagnostics
	return out
}

// MetadataValidator performs a check-only deployment against the target
// org. Success requires a zero status from the external validator.
type MetadataValidator struct {
	CLI *sfcli.Runner
}

func (v *MetadataValidator) Execute(ctx context.Context, params pipeline.Parameters, _ map[pipeline.Stage]pipeline.Outcome) pipeline.Outcome {
	diag, err := v.CLI.Validate(ctx, params.TargetOrgAlias, string(params.TestLevel), params.SpecifiedTests)
	if err != nil {
		return toolFailure("sf", err, diag)
	}
	out := pipeline.Success()
	out.Diagnostics = toDiagnostics(diag)
	return out
}

// TestRunner executes the platform's test harness. The specified-tests
// level with an empty test list is a fatal configuration error detected
// here, before the collaborator is ever invoked.
type TestRunner struct {
	CLI *sfcli.Runner
}

func (r *TestRunner) Execute(ctx context.Context, params pipeline.Parameters, _ map[pipeline.Stage]pipeline.Outcome) pipeline.Outcome {
	if params.TestLevel == pipeline.RunSpecifiedTests && len(params.SpecifiedTests) == 0 {
		err := &pipeline.ConfigError{Reason: "no tests specified"}
		return pipeline.Failure(err.Error())
	}

	result, diag, err := r.CLI.RunTests(ctx, params.TargetOrgAlias, string(params.TestLevel), params.SpecifiedTests)
	if result == nil {
		return toolFailure("sf", err, diag)
	}
	if !result.Passed() {
		out := pipeline.Failure(fmt.Sprintf("%d tests failed: %s",
			len(result.Failing), strings.Join(result.Failing, ", ")))
		out.Diagnostics = toDiagnostics(diag)
		return out
	}

	out := pipeline.Success()
	out.Diagnostics = toDiagnostics(diag)
	return out
}

// prBodyTemplate renders the pull-request description.
var prBodyTemplate = template.Must(template.New("pr").Parse(
	`Automated release pull request.

Source branch: {{.SourceBranch}}
Target branch: {{.TargetBranch}}
Target org: {{.TargetOrgAlias}}
Test level: {{.TestLevel}}
`))

// PRCreator opens a pull request on the version-control host from the
// run's source branch into its target branch.
type PRCreator struct {
	Host *githost.Client
}

func (p *PRCreator) Execute(ctx context.Context, params pipeline.Parameters, _ map[pipeline.Stage]pipeline.Outcome) pipeline.Outcome {
	if params.SourceBranch == "" {
		return pipeline.Failure("source branch unknown, cannot open pull request")
	}

	var body bytes.Buffer
	if err := prBodyTemplate.Execute(&body, params); err != nil {
		return pipeline.Failure(fmt.Sprintf("render pull request body: %v", err))
	}

	title := fmt.Sprintf("Release %s into %s", params.SourceBranch, params.TargetBranch)
	pr, err := p.Host.CreatePullRequest(ctx, params.SourceBranch, params.TargetBranch, title, body.String())
	if err != nil {
		return pipeline.Failure(fmt.Sprintf("create pull request: %v", err))
	}

	out := pipeline.Success()
	out.Reason = fmt.Sprintf("created pull request #%d", pr.Number)
	return out
}

// Deployer performs the real, non-dry-run deployment.
type Deployer struct {
	CLI *sfcli.Runner
}

func (d *Deployer) Execute(ctx context.Context, params pipeline.Parameters, _ map[pipeline.Stage]pipeline.Outcome) pipeline.Outcome {
	diag, err := d.CLI.Deploy(ctx, params.TargetOrgAlias, string(params.TestLevel), params.SpecifiedTests)
	if err != nil {
		return toolFailure("sf", err, diag)
	}
	out := pipeline.Success()
	out.Diagnostics = toDiagnostics(diag)
	return out
}

// Compile-time checks that every executor satisfies the contract.
var (
	_ pipeline.Executor = (*ConflictChecker)(nil)
	_ pipeline.Executor = (*MetadataValidator)(nil)
	_ pipeline.Executor = (*TestRunner)(nil)
	_ pipeline.Executor = (*PRCreator)(nil)
	_ pipeline.Executor = (*Deployer)(nil)
)
