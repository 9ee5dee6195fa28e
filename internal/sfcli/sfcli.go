// Package sfcli wraps the Salesforce platform CLI. Every invocation
// captures full diagnostics (command line, stdout, stderr, exit code) so
// operators can debug platform failures the pipeline verdict does not
// explain.
package sfcli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"time"
)

// Test levels accepted by the platform CLI. They mirror the pipeline's
// canonical test levels one to one.
const (
	LevelRunLocalTests     = "RunLocalTests"
	LevelRunSpecifiedTests = "RunSpecifiedTests"
	LevelRunAllTestsInOrg  = "RunAllTestsInOrg"
)

// Diagnostics captures execution details for one CLI invocation.
type Diagnostics struct {
	Command  []string      `json:"command"`
	Stdout   string        `json:"stdout,omitempty"`
	Stderr   string        `json:"stderr,omitempty"`
	ExitCode int           `json:"exit_code"`
	Duration time.Duration `json:"duration"`
}

// TestResult is the parsed summary of a test-execution invocation.
type TestResult struct {
	Outcome  string
	TestsRan int
	Failing  []string
}

// Passed reports whether the harness's summary outcome was "Passed".
func (r TestResult) Passed() bool {
	return r.Outcome == "Passed"
}

// Runner invokes the platform CLI binary against a project directory.
type Runner struct {
	bin        string
	projectDir string
	logger     *slog.Logger
}

// New creates a CLI runner. bin defaults to "sf" when empty.
func New(bin, projectDir string, logger *slog.Logger) *Runner {
	if bin == "" {
		bin = "sf"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{bin: bin, projectDir: projectDir, logger: logger}
}

// Validate performs a check-only deployment against the target org. The
// returned diagnostics are populated even on failure.
func (r *Runner) Validate(ctx context.Context, org, level string, tests []string) (*Diagnostics, error) {
	args := append([]string{"project", "deploy", "validate", "-o", org}, testFlags(level, tests)...)
	return r.run(ctx, args)
}

// Deploy performs a real, non-dry-run deployment against the target org.
func (r *Runner) Deploy(ctx context.Context, org, level string, tests []string) (*Diagnostics, error) {
	args := append([]string{"project", "deploy", "start", "-o", org}, testFlags(level, tests)...)
	return r.run(ctx, args)
}

// RunTests executes the platform's test harness and parses its summary.
func (r *Runner) RunTests(ctx context.Context, org, level string, tests []string) (*TestResult, *Diagnostics, error) {
	args := append([]string{"apex", "run", "test", "-o", org, "--wait", "30"}, testFlags(level, tests)...)
	diag, err := r.run(ctx, args)
	if err != nil && diag == nil {
		return nil, nil, err
	}

	result, parseErr := ParseTestOutput([]byte(diag.Stdout))
	if parseErr != nil {
		if err != nil {
			// Failed invocation with unparseable output: report the
			// invocation error, keep the diagnostics.
			return nil, diag, err
		}
		return nil, diag, fmt.Errorf("parse test output: %w", parseErr)
	}
	return result, diag, err
}

// run executes the CLI with --json appended and captures diagnostics. A
// non-zero exit is returned as an error alongside the diagnostics; a
// command that could not be started returns a nil Diagnostics.
func (r *Runner) run(ctx context.Context, args []string) (*Diagnostics, error) {
	args = append(args, "--json")
	cmd := exec.CommandContext(ctx, r.bin, args...)
	if r.projectDir != "" {
		cmd.Dir = r.projectDir
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	r.logger.Debug("invoking platform cli", slog.String("bin", r.bin), slog.Any("args", args))

	start := time.Now()
	err := cmd.Run()
	duration := time.Since(start)

	exitCode := 0
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("%s failed to start: %w", r.bin, err)
		}
	}

	diag := &Diagnostics{
		Command:  append([]string{r.bin}, args...),
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		ExitCode: exitCode,
		Duration: duration,
	}

	if ctx.Err() != nil {
		return diag, fmt.Errorf("%s timed out: %w", r.bin, ctx.Err())
	}
	if exitCode != 0 {
		return diag, fmt.Errorf("%s exited with status %d", r.bin, exitCode)
	}
	return diag, nil
}

// testFlags maps a test level onto the CLI's flag surface.
func testFlags(level string, tests []string) []string {
	flags := []string{"--test-level", level}
	if level == LevelRunSpecifiedTests {
		for _, test := range tests {
			flags = append(flags, "--tests", test)
		}
	}
	return flags
}

// cliEnvelope is the outer structure of the CLI's --json output.
type cliEnvelope struct {
	Status int `json:"status"`
	Result struct {
		Summary struct {
			Outcome  string `json:"outcome"`
			TestsRan int    `json:"testsRan"`
			Failing  int    `json:"failing"`
		} `json:"summary"`
		Tests []struct {
			FullName string `json:"FullName"`
			Outcome  string `json:"Outcome"`
			Message  string `json:"Message"`
		} `json:"tests"`
	} `json:"result"`
}

// ParseTestOutput extracts the test summary from the CLI's JSON output.
func ParseTestOutput(out []byte) (*TestResult, error) {
	var envelope cliEnvelope
	if err := json.Unmarshal(out, &envelope); err != nil {
		return nil, err
	}

	result := &TestResult{
		Outcome:  envelope.Result.Summary.Outcome,
		TestsRan: envelope.Result.Summary.TestsRan,
	}
	for _, test := range envelope.Result.Tests {
		if test.Outcome == "Fail" {
			result.Failing = append(result.Failing, test.FullName)
		}
	}
	return result, nil
}
