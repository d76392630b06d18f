package consolidator

import "github.com/opscart/node-cost-optimizer/pkg/models"

// nodeUsage is the running vCPU/RAM allocation of one node
type nodeUsage struct {
	cpu float64
	ram float64
}

// ledger tracks allocations per node while a plan is built. It lives for a single
// BuildPlan call.
type ledger map[string]*nodeUsage

// newLedger zeroes every node and sums workloads onto their node. Workloads whose
// node is not in the inventory are ignored.
func newLedger(inv *models.Inventory) ledger {
	l := make(ledger, len(inv.Nodes))
	for _, node := range inv.Nodes {
		l[node.Name] = &nodeUsage{}
	}
	for _, w := range inv.Workloads {
		usage, ok := l[w.Node]
		if !ok {
			continue
		}
		usage.cpu += w.VCPUs
		usage.ram += w.MemoryGB
	}
	return l
}

func (l ledger) get(node string) nodeUsage {
	if usage, ok := l[node]; ok {
		return *usage
	}
	return nodeUsage{}
}

// move shifts a workload's allocation from one node to another
func (l ledger) move(w *models.Workload, from, to string) {
	src, dst := l[from], l[to]
	src.cpu -= w.VCPUs
	src.ram -= w.MemoryGB
	dst.cpu += w.VCPUs
	dst.ram += w.MemoryGB
}

// snapshot copies the current allocations
func (l ledger) snapshot() map[string]nodeUsage {
	snap := make(map[string]nodeUsage, len(l))
	for name, usage := range l {
		snap[name] = *usage
	}
	return snap
}

// restore resets allocations to a snapshot taken from this ledger
func (l ledger) restore(snap map[string]nodeUsage) {
	for name, usage := range snap {
		*l[name] = usage
	}
}
