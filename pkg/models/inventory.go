package models

import (
	"errors"
	"fmt"
)

// ErrValidation marks an inventory that cannot be loaded or analyzed.
var ErrValidation = errors.New("invalid inventory")

// PowerProfile holds the linear coefficients converting load into watts
type PowerProfile struct {
	Name            string
	BaseIdleWatts   float64
	WattsPerCPUCore float64
	WattsPerGBRAM   float64
	Metadata        map[string]any
}

// Node represents a physical or virtual host that can run workloads
type Node struct {
	Name          string
	Kind          string
	TotalCPU      float64
	TotalMemoryGB float64
	Profile       *PowerProfile
	Metadata      map[string]any
}

// Workload represents a VM, container or pod placed on a node
type Workload struct {
	Name              string
	WorkloadType      string
	VCPUs             float64
	MemoryGB          float64
	UtilizationCPU    float64
	UtilizationMemory float64
	Node              string
	UptimeHours       float64
	Labels            map[string]string
}

// Capacity is a CPU/RAM pair
type Capacity struct {
	CPU      float64
	MemoryGB float64
}

// PowerProfile returns the node's profile, or the default profile when none is attached.
func (n *Node) PowerProfile() *PowerProfile {
	if n.Profile == nil {
		return DefaultPowerProfile()
	}
	return n.Profile
}

// CPUUtilization returns used/total, or 0 for a node without CPU capacity.
func (n *Node) CPUUtilization(used float64) float64 {
	if n.TotalCPU == 0 {
		return 0
	}
	return used / n.TotalCPU
}

// RAMUtilization returns used/total, or 0 for a node without memory capacity.
func (n *Node) RAMUtilization(used float64) float64 {
	if n.TotalMemoryGB == 0 {
		return 0
	}
	return used / n.TotalMemoryGB
}

// CapacityRemaining returns free CPU and RAM after the given workloads, clamped at zero
func (n *Node) CapacityRemaining(workloads []*Workload) Capacity {
	var cpuUsed, ramUsed float64
	for _, w := range workloads {
		if w.Node != n.Name {
			continue
		}
		cpuUsed += w.VCPUs
		ramUsed += w.MemoryGB
	}
	return Capacity{
		CPU:      max(n.TotalCPU-cpuUsed, 0),
		MemoryGB: max(n.TotalMemoryGB-ramUsed, 0),
	}
}

// Inventory is a snapshot of nodes and the workloads running on them
type Inventory struct {
	Nodes     []*Node
	Workloads []*Workload
	Profiles  ProfileTable
}

// NewInventory builds an inventory and registers every node profile in its table.
func NewInventory(nodes []*Node, workloads []*Workload) *Inventory {
	inv := &Inventory{
		Nodes:     nodes,
		Workloads: workloads,
		Profiles:  ProfileTable{},
	}
	for _, node := range nodes {
		if node.Profile != nil {
			node.Profile = inv.Profiles.Intern(node.Profile)
		}
	}
	return inv
}

// NodeByName returns the first node with the given name
func (inv *Inventory) NodeByName(name string) (*Node, bool) {
	for _, node := range inv.Nodes {
		if node.Name == name {
			return node, true
		}
	}
	return nil, false
}

// WorkloadsOn returns the workloads assigned to a node, in inventory order
func (inv *Inventory) WorkloadsOn(nodeName string) []*Workload {
	var out []*Workload
	for _, w := range inv.Workloads {
		if w.Node == nodeName {
			out = append(out, w)
		}
	}
	return out
}

// GroupWorkloadsByNode groups workloads by their node field, keeping inventory order
// within each group. Orphans are grouped under their dangling node name.
func (inv *Inventory) GroupWorkloadsByNode() map[string][]*Workload {
	grouped := make(map[string][]*Workload)
	for _, w := range inv.Workloads {
		grouped[w.Node] = append(grouped[w.Node], w)
	}
	return grouped
}

// Orphans returns workloads whose node does not exist in the inventory
func (inv *Inventory) Orphans() []*Workload {
	known := make(map[string]bool, len(inv.Nodes))
	for _, node := range inv.Nodes {
		known[node.Name] = true
	}
	var out []*Workload
	for _, w := range inv.Workloads {
		if !known[w.Node] {
			out = append(out, w)
		}
	}
	return out
}

// Validate checks the invariants the estimators and planner rely on.
func (inv *Inventory) Validate() error {
	seen := make(map[string]bool, len(inv.Nodes))
	for i, node := range inv.Nodes {
		if node.Name == "" {
			return fmt.Errorf("%w: node at index %d has an empty name", ErrValidation, i)
		}
		if seen[node.Name] {
			return fmt.Errorf("%w: duplicate node name '%s'", ErrValidation, node.Name)
		}
		seen[node.Name] = true
		if node.TotalCPU < 0 || node.TotalMemoryGB < 0 {
			return fmt.Errorf("%w: node '%s' has negative capacity", ErrValidation, node.Name)
		}
	}
	return nil
}

// MergeInventories concatenates inventories in order into a fresh inventory
func MergeInventories(parts ...*Inventory) *Inventory {
	var nodes []*Node
	var workloads []*Workload
	for _, part := range parts {
		if part == nil {
			continue
		}
		nodes = append(nodes, part.Nodes...)
		workloads = append(workloads, part.Workloads...)
	}
	return NewInventory(nodes, workloads)
}
