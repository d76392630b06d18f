package models

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

const sampleInventory = `{
  "nodes": [
    {"name": "pve-1", "kind": "hypervisor", "total_cpu": 16, "total_memory_gb": 64,
     "power_profile": {"name": "mini-pc", "base_idle_watts": 18, "watts_per_cpu_core": 4, "watts_per_gb_ram": 0.3},
     "metadata": {"rack": "shelf-a"}},
    {"name": "pve-2", "kind": "hypervisor", "total_cpu": 8, "total_memory_gb": 32,
     "power_profile": {"name": "mini-pc", "base_idle_watts": 18, "watts_per_cpu_core": 4, "watts_per_gb_ram": 0.3}}
  ],
  "workloads": [
    {"name": "grafana", "workload_type": "container", "vcpus": 1, "memory_gb": 2,
     "utilization_cpu": 0.2, "utilization_memory": 0.4, "node": "pve-1", "uptime_hours": 120,
     "labels": {"team": "ops"}},
    {"name": "stray", "vcpus": 2, "memory_gb": 1, "node": "gone"}
  ]
}`

func TestUnmarshalInventory(t *testing.T) {
	inv, err := UnmarshalInventory([]byte(sampleInventory))
	if err != nil {
		t.Fatalf("UnmarshalInventory failed: %v", err)
	}

	if len(inv.Nodes) != 2 {
		t.Fatalf("Expected 2 nodes, got %d", len(inv.Nodes))
	}
	if len(inv.Workloads) != 2 {
		t.Fatalf("Expected 2 workloads, got %d", len(inv.Workloads))
	}

	if inv.Nodes[0].Profile != inv.Nodes[1].Profile {
		t.Error("Expected nodes with identical profiles to share one profile")
	}
	if p, ok := inv.Profiles.Get("mini-pc"); !ok || p.BaseIdleWatts != 18 {
		t.Errorf("Expected mini-pc in profile table, got %+v", p)
	}

	stray := inv.Workloads[1]
	if stray.WorkloadType != DefaultWorkloadType {
		t.Errorf("Expected default workload type %q, got %q", DefaultWorkloadType, stray.WorkloadType)
	}
	if stray.Labels == nil {
		t.Error("Expected empty labels map, got nil")
	}
}

func TestUnmarshalInventoryDefaults(t *testing.T) {
	inv, err := UnmarshalInventory([]byte(`{"nodes": [{"name": "node1"}], "workloads": [{"name": "app1", "vcpus": 1}]}`))
	if err != nil {
		t.Fatalf("UnmarshalInventory failed: %v", err)
	}

	node := inv.Nodes[0]
	if node.Kind != "unknown" {
		t.Errorf("Expected kind 'unknown', got %q", node.Kind)
	}
	if node.TotalCPU != 0 || node.TotalMemoryGB != 0 {
		t.Errorf("Expected zero capacity, got %.1f CPU / %.1f GB", node.TotalCPU, node.TotalMemoryGB)
	}
	p := node.PowerProfile()
	if p.Name != "default" || p.BaseIdleWatts != 60 || p.WattsPerCPUCore != 10 || p.WattsPerGBRAM != 1 {
		t.Errorf("Unexpected default profile: %+v", p)
	}
	if inv.Workloads[0].Node != "" {
		t.Errorf("Expected empty node reference, got %q", inv.Workloads[0].Node)
	}
}

func TestUnmarshalInventoryMissingName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		message string
	}{
		{
			name:    "node",
			input:   `{"nodes": [{"kind": "server"}], "workloads": []}`,
			message: "Node missing required field 'name'",
		},
		{
			name:    "workload",
			input:   `{"nodes": [{"name": "node1"}], "workloads": [{"vcpus": 1}]}`,
			message: "Workload missing required field 'name'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalInventory([]byte(tt.input))
			if err == nil {
				t.Fatal("Expected error, got nil")
			}
			if !errors.Is(err, ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.message) {
				t.Errorf("Expected error containing %q, got %q", tt.message, err.Error())
			}
		})
	}
}

func TestInventoryRoundTrip(t *testing.T) {
	inv, err := UnmarshalInventory([]byte(sampleInventory))
	if err != nil {
		t.Fatalf("UnmarshalInventory failed: %v", err)
	}

	data, err := MarshalInventory(inv)
	if err != nil {
		t.Fatalf("MarshalInventory failed: %v", err)
	}

	again, err := UnmarshalInventory(data)
	if err != nil {
		t.Fatalf("UnmarshalInventory of serialized inventory failed: %v", err)
	}

	if !reflect.DeepEqual(inv, again) {
		t.Errorf("Round trip changed inventory:\nbefore: %+v\nafter:  %+v", inv, again)
	}
}

func TestInventoryRoundTripNodeWithoutProfile(t *testing.T) {
	inv := NewInventory([]*Node{
		{Name: "bare", Kind: "server", TotalCPU: 4, TotalMemoryGB: 8, Metadata: map[string]any{}},
	}, nil)

	data, err := MarshalInventory(inv)
	if err != nil {
		t.Fatalf("MarshalInventory failed: %v", err)
	}
	if strings.Contains(string(data), "power_profile") {
		t.Errorf("Expected power_profile omitted for a node without one, got:\n%s", data)
	}

	again, err := UnmarshalInventory(data)
	if err != nil {
		t.Fatalf("UnmarshalInventory failed: %v", err)
	}
	if !reflect.DeepEqual(inv.Nodes, again.Nodes) {
		t.Errorf("Round trip changed node:\nbefore: %+v\nafter:  %+v", inv.Nodes[0], again.Nodes[0])
	}
	if again.Nodes[0].Profile != nil {
		t.Errorf("Expected nil profile after round trip, got %+v", again.Nodes[0].Profile)
	}
	if p := again.Nodes[0].PowerProfile(); p.BaseIdleWatts != DefaultBaseIdleWatts || p.Name != DefaultProfileName {
		t.Errorf("Expected default profile for node without one, got %+v", p)
	}
}

func TestProfileTableConflictingName(t *testing.T) {
	table := ProfileTable{}
	a := table.Intern(&PowerProfile{Name: "rack", BaseIdleWatts: 100})
	b := table.Intern(&PowerProfile{Name: "rack", BaseIdleWatts: 100})
	c := table.Intern(&PowerProfile{Name: "rack", BaseIdleWatts: 150})

	if a != b {
		t.Error("Expected identical profiles to be shared")
	}
	if c == a {
		t.Error("Expected conflicting profile to stay separate")
	}
	if c.BaseIdleWatts != 150 {
		t.Errorf("Expected conflicting profile to keep 150 W, got %.1f", c.BaseIdleWatts)
	}
}

func TestInventoryValidate(t *testing.T) {
	profile := &PowerProfile{Name: "p"}
	tests := []struct {
		name        string
		nodes       []*Node
		expectError bool
	}{
		{"unique names", []*Node{{Name: "a", Profile: profile}, {Name: "b", Profile: profile}}, false},
		{"duplicate names", []*Node{{Name: "a", Profile: profile}, {Name: "a", Profile: profile}}, true},
		{"negative capacity", []*Node{{Name: "a", TotalCPU: -1, Profile: profile}}, true},
		{"empty", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewInventory(tt.nodes, nil).Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
		})
	}
}

func TestOrphansAndGrouping(t *testing.T) {
	inv := NewInventory(
		[]*Node{{Name: "n1"}, {Name: "n2"}},
		[]*Workload{{Name: "a", Node: "n1"}, {Name: "b", Node: "ghost"}, {Name: "c", Node: "n1"}},
	)

	orphans := inv.Orphans()
	if len(orphans) != 1 || orphans[0].Name != "b" {
		t.Errorf("Expected orphan 'b', got %+v", orphans)
	}

	grouped := inv.GroupWorkloadsByNode()
	if len(grouped["n1"]) != 2 || grouped["n1"][0].Name != "a" || grouped["n1"][1].Name != "c" {
		t.Errorf("Unexpected grouping for n1: %+v", grouped["n1"])
	}
	if len(inv.WorkloadsOn("n2")) != 0 {
		t.Error("Expected no workloads on n2")
	}
}

func TestNodeUtilizationZeroCapacity(t *testing.T) {
	node := &Node{Name: "empty"}
	if u := node.CPUUtilization(4); u != 0 {
		t.Errorf("Expected 0 CPU utilization for zero capacity, got %.2f", u)
	}
	if u := node.RAMUtilization(4); u != 0 {
		t.Errorf("Expected 0 RAM utilization for zero capacity, got %.2f", u)
	}
}

func TestCapacityRemaining(t *testing.T) {
	node := &Node{Name: "n1", TotalCPU: 4, TotalMemoryGB: 8}
	remaining := node.CapacityRemaining([]*Workload{
		{Name: "a", Node: "n1", VCPUs: 3, MemoryGB: 10},
		{Name: "b", Node: "n2", VCPUs: 3, MemoryGB: 1},
	})
	if remaining.CPU != 1 {
		t.Errorf("Expected 1 CPU remaining, got %.1f", remaining.CPU)
	}
	if remaining.MemoryGB != 0 {
		t.Errorf("Expected memory clamped to 0, got %.1f", remaining.MemoryGB)
	}
}
