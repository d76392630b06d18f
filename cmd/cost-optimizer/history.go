package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/opscart/node-cost-optimizer/pkg/models"
	"github.com/opscart/node-cost-optimizer/pkg/storage"
)

func newHistoryCmd() *cobra.Command {
	var (
		scenario string
		limit    int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List saved consolidation plans, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer store.Close()

			plans, err := store.ListPlans(cmd.Context(), scenario, limit)
			if err != nil {
				return fmt.Errorf("failed to list plans: %w", err)
			}
			if len(plans) == 0 {
				fmt.Println("No saved plans found")
				return nil
			}
			return printHistory(os.Stdout, plans)
		},
	}

	cmd.Flags().StringVar(&scenario, "scenario", "", "Only show plans for this scenario")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of plans to show")
	return cmd
}

func printHistory(w io.Writer, plans []*models.PlanSummary) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSCENARIO\tCREATED\tPOWER DOWN\tMOVES\tWATTS SAVED\tMONTHLY SAVINGS")
	for _, p := range plans {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.2f\t%.2f %s\n",
			p.ID,
			p.Scenario,
			p.CreatedAt.Format("2006-01-02 15:04:05"),
			nodeList(p.PoweredDownNodes),
			p.MoveCount,
			p.EstimatedWattsSaved,
			p.EstimatedMonthlySavings,
			p.Currency)
	}
	return tw.Flush()
}

func newShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <plan-id>",
		Short: "Show a saved consolidation plan",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(cmd.Context(), true)
			if err != nil {
				return err
			}
			defer store.Close()

			plan, err := store.GetPlan(cmd.Context(), args[0])
			if errors.Is(err, storage.ErrPlanNotFound) {
				return fmt.Errorf("no plan with id %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("failed to load plan: %w", err)
			}
			printPlan(os.Stdout, plan)
			return nil
		},
	}
}

func printPlan(w io.Writer, plan *models.ConsolidationPlan) {
	fmt.Fprintf(w, "Plan: %s\n", plan.ID)
	fmt.Fprintf(w, "Scenario: %s\n", plan.Scenario)
	fmt.Fprintf(w, "Created: %s\n", plan.CreatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "Nodes to power down: %s\n", nodeList(plan.PoweredDownNodes))
	fmt.Fprintf(w, "Estimated savings: %.2f W (~%.2f %s/month)\n",
		plan.EstimatedWattsSaved, plan.EstimatedMonthlySavings, plan.Currency)
	if len(plan.Moves) > 0 {
		fmt.Fprintln(w, "Moves:")
		for _, m := range plan.Moves {
			fmt.Fprintf(w, "  * %s (%s, %.1f vCPU, %.1f GB): %s -> %s\n",
				m.Workload.Name, m.Workload.WorkloadType, m.Workload.VCPUs, m.Workload.MemoryGB,
				m.SourceNode, m.TargetNode)
		}
	}
	if plan.Notes != "" {
		fmt.Fprintf(w, "Note: %s\n", plan.Notes)
	}
}

func nodeList(nodes []string) string {
	if len(nodes) == 0 {
		return "none"
	}
	return strings.Join(nodes, ", ")
}
