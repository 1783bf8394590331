package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskmatch/internal/observability"
	"github.com/jonathan/taskmatch/internal/pipeline"
)

func textOutput() bool {
	return outputFormat == "text"
}

// withTextProgress streams pipeline steps to stderr in text mode.
func withTextProgress(cmd *cobra.Command) context.Context {
	ctx := cmd.Context()
	if !textOutput() {
		return ctx
	}
	printer := observability.NewPrinter(cmd.ErrOrStderr())
	return pipeline.WithProgress(ctx, printer.PrintProgress)
}

// printResult writes v as JSON, or through text when text mode is on.
func printResult(cmd *cobra.Command, v any, text func(*observability.Printer)) error {
	if textOutput() {
		text(observability.NewPrinter(cmd.OutOrStdout()))
		return nil
	}
	return printJSON(cmd, v)
}

// printJSON writes v as indented JSON to the command's output.
func printJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// readInput reads path, or stdin when path is "-".
func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf("failed to read stdin: %w", err)
		}
		return data, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read input file: %w", err)
	}
	return data, nil
}
