package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/relgate/relgate/internal/event"
	"github.com/relgate/relgate/internal/pipeline"
)

var serverURL string

func main() {
	rootCmd := &cobra.Command{
		Use:   "relgatectl",
		Short: "Operator CLI for the relgate release pipeline",
		Long: `relgatectl talks to a running relgate server: it dispatches manual
	pipeline runs and inspects the run history.`,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8080", "base URL of the relgate server")

	rootCmd.AddCommand(dispatchCmd())
	rootCmd.AddCommand(runsCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func dispatchCmd() *cobra.Command {
	var inputs event.DispatchInput

	cmd := &cobra.Command{
		Use:   "dispatch",
		Short: "Start a manual pipeline run and wait for the verdict",
		RunE: func(cmd *cobra.Command, args []string) error {
			body, err := json.Marshal(inputs)
			if err != nil {
				return err
			}

			resp, err := httpClient().Post(serverURL+"/api/runs", "application/json", bytes.NewReader(body))
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return serverError(resp)
			}

			var run pipeline.Run
			if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
				return fmt.Errorf("failed to decode run: %w", err)
			}

			printRun(cmd.OutOrStdout(), &run)
			if !run.Verdict.Success {
				os.Exit(1)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&inputs.TestLevel, "test-level", "", "Apex test level (RunLocalTests, RunSpecifiedTests, RunAllTestsInOrg)")
	cmd.Flags().StringSliceVar(&inputs.Tests, "tests", nil, "test classes to run with RunSpecifiedTests")
	cmd.Flags().StringVar(&inputs.TargetOrg, "target-org", "", "target org alias")
	cmd.Flags().StringVar(&inputs.TargetBranch, "target-branch", "", "target branch")
	cmd.Flags().StringVar(&inputs.SourceBranch, "source-branch", "", "source branch")

	return cmd
}

func runsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect the run history",
	}
	cmd.AddCommand(runsListCmd())
	cmd.AddCommand(runsShowCmd())
	return cmd
}

func runsListCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			url := fmt.Sprintf("%s/api/runs?limit=%d", serverURL, limit)
			resp, err := httpClient().Get(url)
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return serverError(resp)
			}

			var runs []*pipeline.Run
			if err := json.NewDecoder(resp.Body).Decode(&runs); err != nil {
				return fmt.Errorf("failed to decode runs: %w", err)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "RUN ID\tEVENT\tSTARTED\tRESULT\tMESSAGE")
			for _, run := range runs {
				result := "failure"
				if run.Verdict.Success {
					result = "success"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					run.ID,
					run.Params.EventType,
					run.StartedAt.Local().Format(time.RFC3339),
					result,
					run.Verdict.Message,
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of runs to list")
	return cmd
}

func runsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show [run-id]",
		Short: "Show one run, including per-stage outcomes and diagnostics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			resp, err := httpClient().Get(serverURL + "/api/runs/" + args[0])
			if err != nil {
				return fmt.Errorf("failed to reach server: %w", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode == http.StatusNotFound {
				return fmt.Errorf("run %s not found", args[0])
			}
			if resp.StatusCode != http.StatusOK {
				return serverError(resp)
			}

			var run pipeline.Run
			if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
				return fmt.Errorf("failed to decode run: %w", err)
			}

			printRun(cmd.OutOrStdout(), &run)
			return nil
		},
	}
}

func printRun(out io.Writer, run *pipeline.Run) {
	fmt.Fprintf(out, "Run %s (%s)\n", run.ID, run.Params.EventType)
	fmt.Fprintf(out, "Started: %s\n", run.StartedAt.Local().Format(time.RFC3339))

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STAGE\tSTATUS\tREASON")
	for _, stage := range pipeline.StageOrder {
		outcome, ok := run.Outcomes[stage]
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", stage, outcome.Status, outcome.Reason)
	}
	w.Flush()

	fmt.Fprintf(out, "\nVerdict: %s\n", run.Verdict.Message)
}

func httpClient() *http.Client {
	// Manual dispatches wait for collaborator work to finish.
	return &http.Client{Timeout: 35 * time.Minute}
}

func serverError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Error != "" {
		return fmt.Errorf("server returned %s: %s", resp.Status, parsed.Error)
	}
	return fmt.Errorf("server returned %s", resp.Status)
}
