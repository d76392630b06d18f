package reporter

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// GenerateCSV creates a CSV report: one row per node, then summary and plan sections
func GenerateCSV(report *Report, writer io.Writer) error {
	w := csv.NewWriter(writer)

	header := []string{
		"Node",
		"Kind",
		"Workloads",
		"Watts",
		"kWh/Month",
		"Monthly Cost",
		"Currency",
		"Power Down",
	}
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for _, row := range report.Nodes {
		record := []string{
			row.Name,
			row.Kind,
			strconv.Itoa(row.Workloads),
			money(row.Watts),
			money(row.KWhMonth),
			money(row.MonthlyCost),
			report.Currency,
			strconv.FormatBool(row.PoweredDown),
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	w.Write([]string{})
	w.Write([]string{"SUMMARY"})
	w.Write([]string{"Total Nodes", strconv.Itoa(report.NodeCount)})
	w.Write([]string{"Total Workloads", strconv.Itoa(report.WorkloadCount)})
	w.Write([]string{"Total Watts", money(report.TotalWatts)})
	w.Write([]string{"Total kWh/Month", money(report.TotalKWhMonth)})
	w.Write([]string{"Total Monthly Cost", money(report.TotalMonthlyCost), report.Currency})

	if plan := report.Plan; plan != nil {
		w.Write([]string{})
		w.Write([]string{"CONSOLIDATION PLAN", plan.Scenario})
		w.Write([]string{"Nodes To Power Down", poweredDownList(plan)})
		w.Write([]string{"Watts Saved", money(plan.EstimatedWattsSaved)})
		w.Write([]string{"Monthly Savings", money(plan.EstimatedMonthlySavings), plan.Currency})
		w.Write([]string{"Workload", "Type", "vCPUs", "Memory (GB)", "From", "To"})
		for _, m := range plan.Moves {
			w.Write([]string{
				m.Workload.Name,
				m.Workload.WorkloadType,
				money(m.Workload.VCPUs),
				money(m.Workload.MemoryGB),
				m.SourceNode,
				m.TargetNode,
			})
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to write CSV report: %w", err)
	}
	return nil
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
