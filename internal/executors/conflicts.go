package executors

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/relgate/relgate/internal/pipeline"
)

// ConflictChecker reports whether a three-way merge of the run's commit
// against the target branch would produce conflict markers. It shells out
// to git merge-tree, which writes the conflicted paths without touching
// the working tree.
type ConflictChecker struct {
	GitBin  string
	RepoDir string
}

func (c *ConflictChecker) Execute(ctx context.Context, params pipeline.Parameters, _ map[pipeline.Stage]pipeline.Outcome) pipeline.Outcome {
	bin := c.GitBin
	if bin == "" {
		bin = "git"
	}
	source := params.SourceBranch
	if source == "" {
		source = "HEAD"
	}

	args := []string{"merge-tree", "--write-tree", "--name-only", "--no-messages",
		"origin/" + params.TargetBranch, source}
	cmd := exec.CommandContext(ctx, bin, args...)
	if c.RepoDir != "" {
		cmd.Dir = c.RepoDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			return pipeline.Failure(fmt.Sprintf("git failed to start: %v", err))
		}
		exitCode = exitErr.ExitCode()
	}

	diag := &pipeline.Diagnostics{
		Command:  append([]string{bin}, args...),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
	}

	switch exitCode {
	case 0:
		out := pipeline.Success()
		out.Diagnostics = diag
		return out
	case 1:
		// merge-tree exits 1 when the merge would conflict; the output
		// names the conflicted paths after the tree OID.
		out := pipeline.Failure("merge conflicts against " + params.TargetBranch + ": " + conflictedPaths(stdout.String()))
		out.Diagnostics = diag
		return out
	}

	out := pipeline.Failure(fmt.Sprintf("git merge-tree exited with status %d", exitCode))
	out.Diagnostics = diag
	return out
}

// conflictedPaths extracts the file list from merge-tree's name-only
// output, skipping the leading tree OID line.
func conflictedPaths(out string) string {
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if len(lines) <= 1 {
		return "unknown paths"
	}
	return strings.Join(lines[1:], ", ")
}
