package main

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskmatch/internal/observability"
	"github.com/jonathan/taskmatch/internal/types"
)

var (
	triageFile     string
	triageParallel int
)

var triageCmd = &cobra.Command{
	Use:   "triage",
	Short: "Triage one issue or a JSON array of issues",
	Long: `Read an issue (or an array of issues) as JSON and run it through skill
extraction, duplicate detection and assignment. Prints the result as JSON.`,
	RunE: runTriage,
}

func init() {
	triageCmd.Flags().StringVarP(&triageFile, "file", "f", "", "Path to issue JSON, or - for stdin")
	triageCmd.Flags().IntVar(&triageParallel, "parallel", 4, "Concurrent issues when the input is an array")
	_ = triageCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(triageCmd)
}

// batchOutput is one positional entry printed for array input.
type batchOutput struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
}

func runTriage(cmd *cobra.Command, _ []string) error {
	data, err := readInput(cmd, triageFile)
	if err != nil {
		return err
	}

	ctx := withTextProgress(cmd)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx) //nolint:errcheck

	if trimmed := bytes.TrimSpace(data); len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []types.IssueRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			return fmt.Errorf("failed to parse issues: %w", err)
		}
		results := a.issues.TriageBatch(ctx, reqs, triageParallel)
		out := make([]batchOutput, len(results))
		for i, res := range results {
			if res.Err != nil {
				out[i].Error = res.Err.Error()
				continue
			}
			out[i].Result = res.Result
		}
		return printResult(cmd, out, func(p *observability.Printer) {
			for i, res := range results {
				if res.Err != nil {
					fmt.Fprintf(cmd.ErrOrStderr(), "issue %d: %v\n", i, res.Err)
					continue
				}
				p.PrintIssueResult(res.Result)
			}
		})
	}

	var req types.IssueRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse issue: %w", err)
	}
	result, err := a.issues.Process(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd, result, func(p *observability.Printer) { p.PrintIssueResult(result) })
}
