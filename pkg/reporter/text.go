package reporter

import (
	"bufio"
	"fmt"
	"io"
)

// GenerateText writes a plain-text report
func GenerateText(report *Report, writer io.Writer) error {
	w := bufio.NewWriter(writer)

	fmt.Fprintln(w, "Node Cost Optimizer Report")
	fmt.Fprintln(w, "==========================")
	fmt.Fprintf(w, "Nodes analyzed: %d\n", report.NodeCount)
	fmt.Fprintf(w, "Workloads analyzed: %d\n", report.WorkloadCount)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Total power draw: %.2f W\n", report.TotalWatts)
	fmt.Fprintf(w, "Monthly cost: %.2f %s\n", report.TotalMonthlyCost, report.Currency)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Per-node breakdown:")
	for _, row := range report.Nodes {
		fmt.Fprintf(w, "- %s: %.2f W / %.2f %s/month\n", row.Name, row.Watts, row.MonthlyCost, report.Currency)
	}
	fmt.Fprintln(w)

	if plan := report.Plan; plan != nil {
		fmt.Fprintf(w, "Consolidation scenario (%s):\n", plan.Scenario)
		fmt.Fprintf(w, "- Nodes to power down: %s\n", poweredDownList(plan))
		fmt.Fprintf(w, "- Estimated savings: %.2f W (~%.2f %s/month)\n",
			plan.EstimatedWattsSaved, plan.EstimatedMonthlySavings, plan.Currency)
		if len(plan.Moves) > 0 {
			fmt.Fprintln(w, "Suggested moves:")
			for _, m := range plan.Moves {
				fmt.Fprintf(w, "  * %s: %s -> %s\n", m.Workload.Name, m.SourceNode, m.TargetNode)
			}
		}
		if plan.Notes != "" {
			fmt.Fprintf(w, "Note: %s\n", plan.Notes)
		}
	} else {
		fmt.Fprintln(w, noPlanMessage)
	}

	if report.Summary != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Summary:")
		fmt.Fprintln(w, report.Summary)
	}

	if err := w.Flush(); err != nil {
		return fmt.Errorf("failed to write text report: %w", err)
	}
	return nil
}
