package estimator

import "github.com/opscart/node-cost-optimizer/pkg/models"

// MinEffectiveUtilization is the floor applied to workload utilization so a
// reported-idle workload still carries a running cost.
const MinEffectiveUtilization = 0.1

// NodePowerUsage is the estimated draw of one node
type NodePowerUsage struct {
	Node  *models.Node
	Watts float64
}

// PowerReport holds per-node draw in inventory order
type PowerReport struct {
	PerNode []NodePowerUsage
}

// TotalWatts returns the sum of per-node draw, rounded to two decimals
func (r *PowerReport) TotalWatts() float64 {
	sum := 0.0
	for _, entry := range r.PerNode {
		sum += entry.Watts
	}
	return Round2(sum)
}

// EstimateNodePower applies the node's linear power profile to the effective load
// of the workloads assigned to it. Workloads on other nodes are ignored.
func EstimateNodePower(node *models.Node, workloads []*models.Workload) NodePowerUsage {
	var cpuLoad, ramLoad float64
	for _, w := range workloads {
		if w.Node != node.Name {
			continue
		}
		cpuLoad += w.VCPUs * max(w.UtilizationCPU, MinEffectiveUtilization)
		ramLoad += w.MemoryGB * max(w.UtilizationMemory, MinEffectiveUtilization)
	}

	profile := node.PowerProfile()
	watts := profile.BaseIdleWatts +
		profile.WattsPerCPUCore*cpuLoad +
		profile.WattsPerGBRAM*ramLoad

	return NodePowerUsage{Node: node, Watts: Round2(watts)}
}

// BuildPowerReport estimates every node of the inventory
func BuildPowerReport(inv *models.Inventory) *PowerReport {
	report := &PowerReport{PerNode: make([]NodePowerUsage, 0, len(inv.Nodes))}
	for _, node := range inv.Nodes {
		report.PerNode = append(report.PerNode, EstimateNodePower(node, inv.Workloads))
	}
	return report
}
