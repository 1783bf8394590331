package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jonathan/taskmatch/internal/observability"
	"github.com/jonathan/taskmatch/internal/types"
)

var requisitionStatus string

var requisitionsCmd = &cobra.Command{
	Use:     "requisitions",
	Aliases: []string{"reqs"},
	Short:   "Review hiring requisitions drafted by triage",
}

var requisitionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List requisitions",
	Args:  cobra.NoArgs,
	RunE:  runRequisitionsList,
}

var requisitionsApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending requisition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moveRequisition(cmd, args[0], types.RequisitionApproved)
	},
}

var requisitionsCloseCmd = &cobra.Command{
	Use:   "close <id>",
	Short: "Close a requisition",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return moveRequisition(cmd, args[0], types.RequisitionClosed)
	},
}

func init() {
	requisitionsListCmd.Flags().StringVar(&requisitionStatus, "status", "", "Filter by status: pending, approved or closed")
	requisitionsCmd.AddCommand(requisitionsListCmd, requisitionsApproveCmd, requisitionsCloseCmd)
	rootCmd.AddCommand(requisitionsCmd)
}

func runRequisitionsList(cmd *cobra.Command, _ []string) error {
	status := types.RequisitionStatus(requisitionStatus)
	switch status {
	case "", types.RequisitionPending, types.RequisitionApproved, types.RequisitionClosed:
	default:
		return fmt.Errorf("invalid --status %q: must be pending, approved or closed", requisitionStatus)
	}

	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx) //nolint:errcheck

	reqs, err := a.requisitions.List(ctx, status)
	if err != nil {
		return err
	}
	if reqs == nil {
		reqs = []types.Requisition{}
	}
	return printResult(cmd, reqs, func(p *observability.Printer) { p.PrintRequisitions(reqs) })
}

func moveRequisition(cmd *cobra.Command, id string, to types.RequisitionStatus) error {
	ctx := cmd.Context()
	a, err := newApp(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close(ctx) //nolint:errcheck

	var req *types.Requisition
	if to == types.RequisitionApproved {
		req, err = a.requisitions.Approve(ctx, id)
	} else {
		req, err = a.requisitions.Close(ctx, id)
	}
	if err != nil {
		return err
	}
	return printResult(cmd, req, func(p *observability.Printer) {
		p.PrintRequisitions([]types.Requisition{*req})
	})
}
