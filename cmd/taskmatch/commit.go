package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskmatch/internal/observability"
	"github.com/jonathan/taskmatch/internal/types"
)

var commitFile string

var commitCmd = &cobra.Command{
	Use:   "commit",
	Short: "Ingest a commit and evolve its author's profile",
	RunE:  runCommit,
}

func init() {
	commitCmd.Flags().StringVarP(&commitFile, "file", "f", "", "Path to commit JSON, or - for stdin")
	_ = commitCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(commitCmd)
}

func runCommit(cmd *cobra.Command, _ []string) error {
	data, err := readInput(cmd, commitFile)
	if err != nil {
		return err
	}
	var req types.CommitRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return fmt.Errorf("failed to parse commit: %w", err)
	}

	ctx := withTextProgress(cmd)
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx) //nolint:errcheck

	result, err := a.commits.Process(ctx, req)
	if err != nil {
		return err
	}
	return printResult(cmd, result, func(p *observability.Printer) { p.PrintCommitResult(result) })
}
