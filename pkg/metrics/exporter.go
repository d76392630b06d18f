package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/opscart/node-cost-optimizer/pkg/estimator"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const namespace = "node_cost_optimizer"

// Exporter holds the gauges describing one analysis run on a private registry
type Exporter struct {
	registry *prometheus.Registry

	// Estimated draw per node
	nodeWatts *prometheus.GaugeVec
	// Estimated monthly electricity cost per node
	nodeMonthlyCost *prometheus.GaugeVec
	// Savings and shape of the latest plan per scenario
	planWattsSaved     *prometheus.GaugeVec
	planMonthlySavings *prometheus.GaugeVec
	planPoweredDown    *prometheus.GaugeVec
	planMoves          *prometheus.GaugeVec
}

func NewExporter() *Exporter {
	nodeWatts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "node_power_watts",
		Help:      "Estimated power draw of a node",
	}, []string{"node", "kind"})
	nodeMonthlyCost := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "node_monthly_cost",
		Help:      "Estimated monthly electricity cost of a node",
	}, []string{"node", "currency"})
	planWattsSaved := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plan_watts_saved",
		Help:      "Idle watts saved by powering down the nodes of the latest plan",
	}, []string{"scenario"})
	planMonthlySavings := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plan_monthly_savings",
		Help:      "Estimated monthly savings of the latest plan",
	}, []string{"scenario", "currency"})
	planPoweredDown := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plan_powered_down_nodes",
		Help:      "Number of nodes the latest plan powers down",
	}, []string{"scenario"})
	planMoves := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "plan_moves",
		Help:      "Number of workload moves in the latest plan",
	}, []string{"scenario"})

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		nodeWatts,
		nodeMonthlyCost,
		planWattsSaved,
		planMonthlySavings,
		planPoweredDown,
		planMoves,
	)

	return &Exporter{
		registry:           registry,
		nodeWatts:          nodeWatts,
		nodeMonthlyCost:    nodeMonthlyCost,
		planWattsSaved:     planWattsSaved,
		planMonthlySavings: planMonthlySavings,
		planPoweredDown:    planPoweredDown,
		planMoves:          planMoves,
	}
}

// Registry exposes the gatherer, e.g. for promhttp
func (e *Exporter) Registry() *prometheus.Registry {
	return e.registry
}

// RecordPower replaces the per-node power gauges
func (e *Exporter) RecordPower(report *estimator.PowerReport) {
	e.nodeWatts.Reset()
	for _, usage := range report.PerNode {
		e.nodeWatts.WithLabelValues(usage.Node.Name, usage.Node.Kind).Set(usage.Watts)
	}
}

// RecordCost replaces the per-node cost gauges
func (e *Exporter) RecordCost(report *estimator.CostReport) {
	e.nodeMonthlyCost.Reset()
	for _, c := range report.PerNode {
		e.nodeMonthlyCost.WithLabelValues(c.Node, report.Currency).Set(c.MonthlyCost)
	}
}

// RecordPlan sets the plan gauges for the plan's scenario
func (e *Exporter) RecordPlan(plan *models.ConsolidationPlan) {
	e.planWattsSaved.WithLabelValues(plan.Scenario).Set(plan.EstimatedWattsSaved)
	e.planMonthlySavings.WithLabelValues(plan.Scenario, plan.Currency).Set(plan.EstimatedMonthlySavings)
	e.planPoweredDown.WithLabelValues(plan.Scenario).Set(float64(len(plan.PoweredDownNodes)))
	e.planMoves.WithLabelValues(plan.Scenario).Set(float64(len(plan.Moves)))
}

// WriteTextfile writes every gauge in the text exposition format, atomically, for
// the node_exporter textfile collector.
func (e *Exporter) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, e.registry); err != nil {
		return fmt.Errorf("failed to write metrics textfile: %w", err)
	}
	return nil
}
