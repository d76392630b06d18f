package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/opscart/node-cost-optimizer/pkg/config"
	"github.com/opscart/node-cost-optimizer/pkg/estimator"
	"github.com/opscart/node-cost-optimizer/pkg/metrics"
	"github.com/opscart/node-cost-optimizer/pkg/models"
	"github.com/opscart/node-cost-optimizer/pkg/narrator"
	"github.com/opscart/node-cost-optimizer/pkg/reporter"
)

// reportOptions controls how the results of a run are rendered
type reportOptions struct {
	format          string
	output          string
	ai              bool
	metricsTextfile string
}

func (o *reportOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "text", "Report format: text, markdown, csv, html")
	cmd.Flags().StringVarP(&o.output, "output", "o", "", "Report file (default stdout)")
	cmd.Flags().BoolVar(&o.ai, "ai", false, "Append a narrative summary from AI_PROVIDER")
	cmd.Flags().StringVar(&o.metricsTextfile, "metrics-textfile", "", "Write Prometheus gauges to this textfile (default METRICS_TEXTFILE)")
}

// run holds the results of one analysis
type run struct {
	inventory *models.Inventory
	power     *estimator.PowerReport
	cost      *estimator.CostReport
	plan      *models.ConsolidationPlan
}

// estimate computes power and cost for an inventory
func estimate(inv *models.Inventory, tariff *config.ElectricityConfig) *run {
	power := estimator.BuildPowerReport(inv)
	return &run{
		inventory: inv,
		power:     power,
		cost:      estimator.EstimateCost(power, tariff, cfg.MonthlyHours),
	}
}

// render writes the report and, when configured, the metrics textfile
func (o *reportOptions) render(ctx context.Context, r *run, optCfg *config.OptimizerConfig) error {
	format, err := reporter.ParseFormat(o.format)
	if err != nil {
		return err
	}
	rep := reporter.New(format).WithMarkdownTemplate(optCfg.Reporting.MarkdownTemplate)
	report := rep.Generate(r.inventory, r.power, r.cost, r.plan)

	if o.ai || optCfg.Reporting.EnableAI {
		report.Summary = summarize(ctx, r)
	}

	out, err := openOutput(o.output)
	if err != nil {
		return err
	}
	defer out.Close()
	if err := rep.Write(report, out); err != nil {
		return err
	}

	return o.exportMetrics(r)
}

// summarize never fails the run: provider errors are logged and the fallback text is used
func summarize(ctx context.Context, r *run) string {
	provider, err := narrator.New(narrator.Config{
		Provider:        cfg.AIProvider,
		AnthropicAPIKey: cfg.AnthropicAPIKey,
		AnthropicModel:  cfg.AnthropicModel,
	})
	if err != nil {
		log.Warn("narrative summary skipped", "error", err)
		return ""
	}

	summary, err := narrator.Summarize(ctx, provider, r.inventory, r.power, r.cost, r.plan)
	if err != nil {
		log.Warn("narrative summary failed, using fallback", "provider", provider.Name(), "error", err)
	}
	return summary
}

func (o *reportOptions) exportMetrics(r *run) error {
	path := o.metricsTextfile
	if path == "" {
		path = cfg.MetricsTextfile
	}
	if path == "" {
		return nil
	}

	exporter := metrics.NewExporter()
	exporter.RecordPower(r.power)
	exporter.RecordCost(r.cost)
	if r.plan != nil {
		exporter.RecordPlan(r.plan)
	}
	if err := exporter.WriteTextfile(path); err != nil {
		return fmt.Errorf("failed to export metrics: %w", err)
	}
	log.Debug("metrics textfile written", "path", path)
	return nil
}

func newAnalyzeCmd() *cobra.Command {
	inventory := &inventoryOptions{}
	report := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Estimate power draw and monthly electricity cost per node",
		Example: `  cost-optimizer analyze -i inventory.json --electricity tariff.yaml
  cost-optimizer analyze --source proxmox -f markdown -o report.md`,
		RunE: func(cmd *cobra.Command, args []string) error {
			optCfg, err := loadOptimizerConfig()
			if err != nil {
				return err
			}
			tariff, err := loadElectricityConfig()
			if err != nil {
				return err
			}

			inv, err := inventory.load(cmd.Context(), optCfg)
			if err != nil {
				return err
			}

			r := estimate(inv, tariff)
			log.Info("analysis complete",
				"nodes", len(inv.Nodes),
				"total_watts", r.power.TotalWatts(),
				"monthly_cost", r.cost.TotalMonthlyCost(),
				"currency", r.cost.Currency)

			return report.render(cmd.Context(), r, optCfg)
		},
	}

	inventory.addFlags(cmd)
	report.addFlags(cmd)
	return cmd
}
