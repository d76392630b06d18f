package models

import (
	"encoding/json"
	"fmt"
)

// Defaults applied to absent fields of the inventory exchange format
const (
	DefaultNodeKind        = "unknown"
	DefaultProfileName     = "default"
	DefaultBaseIdleWatts   = 60.0
	DefaultWattsPerCPUCore = 10.0
	DefaultWattsPerGBRAM   = 1.0
	DefaultWorkloadType    = "vm"
)

// DefaultPowerProfile returns a fresh copy of the profile used for nodes without one
func DefaultPowerProfile() *PowerProfile {
	return (*profileDoc)(nil).toProfile()
}

type inventoryDoc struct {
	Nodes     []nodeDoc     `json:"nodes"`
	Workloads []workloadDoc `json:"workloads"`
}

type profileDoc struct {
	Name            *string        `json:"name"`
	BaseIdleWatts   *float64       `json:"base_idle_watts"`
	WattsPerCPUCore *float64       `json:"watts_per_cpu_core"`
	WattsPerGBRAM   *float64       `json:"watts_per_gb_ram"`
	Metadata        map[string]any `json:"metadata,omitempty"`
}

type nodeDoc struct {
	Name          *string        `json:"name"`
	Kind          *string        `json:"kind"`
	TotalCPU      float64        `json:"total_cpu"`
	TotalMemoryGB float64        `json:"total_memory_gb"`
	PowerProfile  *profileDoc    `json:"power_profile,omitempty"`
	Metadata      map[string]any `json:"metadata"`
}

type workloadDoc struct {
	Name              *string           `json:"name"`
	WorkloadType      *string           `json:"workload_type"`
	VCPUs             float64           `json:"vcpus"`
	MemoryGB          float64           `json:"memory_gb"`
	UtilizationCPU    float64           `json:"utilization_cpu"`
	UtilizationMemory float64           `json:"utilization_memory"`
	Node              string            `json:"node"`
	UptimeHours       float64           `json:"uptime_hours"`
	Labels            map[string]string `json:"labels"`
}

// UnmarshalInventory decodes the JSON exchange format. Every node and workload
// must carry a name; all other fields fall back to documented defaults.
func UnmarshalInventory(data []byte) (*Inventory, error) {
	var doc inventoryDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse inventory: %w", err)
	}

	inv := &Inventory{Profiles: ProfileTable{}}
	for _, nd := range doc.Nodes {
		if nd.Name == nil {
			return nil, fmt.Errorf("%w: Node missing required field 'name'", ErrValidation)
		}
		node := &Node{
			Name:          *nd.Name,
			Kind:          stringOr(nd.Kind, DefaultNodeKind),
			TotalCPU:      nd.TotalCPU,
			TotalMemoryGB: nd.TotalMemoryGB,
			Metadata:      orEmpty(nd.Metadata),
		}
		// An absent profile stays nil and resolves to the defaults through PowerProfile.
		if nd.PowerProfile != nil {
			node.Profile = inv.Profiles.Intern(nd.PowerProfile.toProfile())
		}
		inv.Nodes = append(inv.Nodes, node)
	}

	for _, wd := range doc.Workloads {
		if wd.Name == nil {
			return nil, fmt.Errorf("%w: Workload missing required field 'name'", ErrValidation)
		}
		labels := wd.Labels
		if labels == nil {
			labels = map[string]string{}
		}
		inv.Workloads = append(inv.Workloads, &Workload{
			Name:              *wd.Name,
			WorkloadType:      stringOr(wd.WorkloadType, DefaultWorkloadType),
			VCPUs:             wd.VCPUs,
			MemoryGB:          wd.MemoryGB,
			UtilizationCPU:    wd.UtilizationCPU,
			UtilizationMemory: wd.UtilizationMemory,
			Node:              wd.Node,
			UptimeHours:       wd.UptimeHours,
			Labels:            labels,
		})
	}

	return inv, nil
}

// MarshalInventory encodes an inventory in the JSON exchange format
func MarshalInventory(inv *Inventory) ([]byte, error) {
	doc := inventoryDoc{
		Nodes:     make([]nodeDoc, 0, len(inv.Nodes)),
		Workloads: make([]workloadDoc, 0, len(inv.Workloads)),
	}
	for _, node := range inv.Nodes {
		name, kind := node.Name, node.Kind
		nd := nodeDoc{
			Name:          &name,
			Kind:          &kind,
			TotalCPU:      node.TotalCPU,
			TotalMemoryGB: node.TotalMemoryGB,
			Metadata:      orEmpty(node.Metadata),
		}
		if profile := node.Profile; profile != nil {
			nd.PowerProfile = &profileDoc{
				Name:            &profile.Name,
				BaseIdleWatts:   &profile.BaseIdleWatts,
				WattsPerCPUCore: &profile.WattsPerCPUCore,
				WattsPerGBRAM:   &profile.WattsPerGBRAM,
				Metadata:        profile.Metadata,
			}
		}
		doc.Nodes = append(doc.Nodes, nd)
	}
	for _, w := range inv.Workloads {
		name, wtype := w.Name, w.WorkloadType
		labels := w.Labels
		if labels == nil {
			labels = map[string]string{}
		}
		doc.Workloads = append(doc.Workloads, workloadDoc{
			Name:              &name,
			WorkloadType:      &wtype,
			VCPUs:             w.VCPUs,
			MemoryGB:          w.MemoryGB,
			UtilizationCPU:    w.UtilizationCPU,
			UtilizationMemory: w.UtilizationMemory,
			Node:              w.Node,
			UptimeHours:       w.UptimeHours,
			Labels:            labels,
		})
	}
	return json.MarshalIndent(doc, "", "  ")
}

func (p *profileDoc) toProfile() *PowerProfile {
	if p == nil {
		p = &profileDoc{}
	}
	return &PowerProfile{
		Name:            stringOr(p.Name, DefaultProfileName),
		BaseIdleWatts:   floatOr(p.BaseIdleWatts, DefaultBaseIdleWatts),
		WattsPerCPUCore: floatOr(p.WattsPerCPUCore, DefaultWattsPerCPUCore),
		WattsPerGBRAM:   floatOr(p.WattsPerGBRAM, DefaultWattsPerGBRAM),
		Metadata:        p.Metadata,
	}
}

func stringOr(v *string, def string) string {
	if v == nil {
		return def
	}
	return *v
}

func floatOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
