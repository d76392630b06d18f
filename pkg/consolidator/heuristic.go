package consolidator

import (
	"cmp"
	"slices"

	"github.com/opscart/node-cost-optimizer/pkg/config"
	"github.com/opscart/node-cost-optimizer/pkg/estimator"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// PlanNotes is attached to every plan
const PlanNotes = "Greedy bin-pack heuristic; validate before production changes."

// Planner proposes which underutilized nodes can be powered down and where their
// workloads go. A Planner holds no state between BuildPlan calls and is safe for
// concurrent use on independent inventories.
type Planner struct {
	scenario    config.Scenario
	electricity *config.ElectricityConfig
}

// New creates a planner for a scenario and tariff
func New(scenario config.Scenario, electricity *config.ElectricityConfig) *Planner {
	return &Planner{
		scenario:    scenario,
		electricity: electricity,
	}
}

// BuildPlan runs the largest-first, least-loaded-first heuristic over the inventory.
// The inventory is not modified.
func (p *Planner) BuildPlan(inv *models.Inventory) *models.ConsolidationPlan {
	usage := newLedger(inv)
	grouped := inv.GroupWorkloadsByNode()

	plan := &models.ConsolidationPlan{
		Scenario:         p.scenario.Name,
		Moves:            []models.ConsolidationMove{},
		PoweredDownNodes: []string{},
		Currency:         p.electricity.Currency,
		Notes:            PlanNotes,
	}
	wattsSaved := 0.0
	poweredDown := make(map[string]bool)
	// nodes that took relocated workloads stay on, or those workloads would be stranded
	receivers := make(map[string]bool)

	for _, node := range inv.Nodes {
		if receivers[node.Name] || !p.isCandidate(node, usage.get(node.Name)) {
			continue
		}
		workloads := grouped[node.Name]
		if len(workloads) == 0 {
			continue
		}

		moves, ok := p.relocate(node, workloads, inv.Nodes, usage, poweredDown)
		if !ok {
			continue
		}
		poweredDown[node.Name] = true
		for _, m := range moves {
			receivers[m.TargetNode] = true
		}
		plan.Moves = append(plan.Moves, moves...)
		plan.PoweredDownNodes = append(plan.PoweredDownNodes, node.Name)
		wattsSaved += node.PowerProfile().BaseIdleWatts
	}

	plan.EstimatedWattsSaved = estimator.Round2(wattsSaved)
	plan.EstimatedMonthlySavings = estimator.Round2(wattsSaved * estimator.DefaultMonthlyHours / 1000 * p.electricity.EffectivePrice())
	return plan
}

func (p *Planner) isCandidate(node *models.Node, usage nodeUsage) bool {
	return node.CPUUtilization(usage.cpu) < p.scenario.CPUThreshold &&
		node.RAMUtilization(usage.ram) < p.scenario.RAMThreshold
}

// relocate moves every workload off source, or none of them. On failure the ledger
// is restored to its exact state before the attempt and no moves are returned.
func (p *Planner) relocate(source *models.Node, workloads []*models.Workload, nodes []*models.Node, usage ledger, excluded map[string]bool) ([]models.ConsolidationMove, bool) {
	ordered := slices.Clone(workloads)
	slices.SortStableFunc(ordered, func(a, b *models.Workload) int {
		if c := cmp.Compare(b.VCPUs, a.VCPUs); c != 0 {
			return c
		}
		return cmp.Compare(b.MemoryGB, a.MemoryGB)
	})

	checkpoint := usage.snapshot()
	var moves []models.ConsolidationMove
	for _, w := range ordered {
		target := p.findTarget(source, w, nodes, usage, excluded)
		if target == nil {
			usage.restore(checkpoint)
			return nil, false
		}
		usage.move(w, source.Name, target.Name)
		moves = append(moves, models.ConsolidationMove{
			Workload:   w,
			SourceNode: source.Name,
			TargetNode: target.Name,
		})
	}
	return moves, true
}

// findTarget returns the least CPU-loaded other node that can take the workload.
// Ties keep inventory order. Nodes already powered down are never targets.
func (p *Planner) findTarget(source *models.Node, w *models.Workload, nodes []*models.Node, usage ledger, excluded map[string]bool) *models.Node {
	ordered := slices.Clone(nodes)
	slices.SortStableFunc(ordered, func(a, b *models.Node) int {
		return cmp.Compare(a.CPUUtilization(usage.get(a.Name).cpu), b.CPUUtilization(usage.get(b.Name).cpu))
	})

	for _, node := range ordered {
		if node.Name == source.Name || excluded[node.Name] {
			continue
		}
		if p.fits(w, node, usage.get(node.Name)) {
			return node
		}
	}
	return nil
}

// fits reports whether the node stays within max_node_utilization on both CPU and
// RAM after taking the workload. Nodes without capacity never fit.
func (p *Planner) fits(w *models.Workload, node *models.Node, usage nodeUsage) bool {
	if node.TotalCPU == 0 || node.TotalMemoryGB == 0 {
		return false
	}
	if (usage.cpu+w.VCPUs)/node.TotalCPU > p.scenario.MaxNodeUtilization {
		return false
	}
	if (usage.ram+w.MemoryGB)/node.TotalMemoryGB > p.scenario.MaxNodeUtilization {
		return false
	}
	return true
}
