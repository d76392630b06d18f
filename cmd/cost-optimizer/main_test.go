package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const testInventory = `{
  "nodes": [
    {"name": "node1", "kind": "server", "total_cpu": 16, "total_memory_gb": 64,
     "power_profile": {"name": "rack", "base_idle_watts": 80, "watts_per_cpu_core": 10, "watts_per_gb_ram": 1}},
    {"name": "node2", "kind": "server", "total_cpu": 16, "total_memory_gb": 64,
     "power_profile": {"name": "rack", "base_idle_watts": 80, "watts_per_cpu_core": 10, "watts_per_gb_ram": 1}}
  ],
  "workloads": [
    {"name": "db", "workload_type": "vm", "vcpus": 4, "memory_gb": 16, "utilization_cpu": 0.5, "utilization_memory": 0.5, "node": "node1"},
    {"name": "web", "workload_type": "vm", "vcpus": 2, "memory_gb": 4, "utilization_cpu": 0.2, "utilization_memory": 0.3, "node": "node2"}
  ]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func execute(t *testing.T, args ...string) error {
	t.Helper()
	_, err := executeCapture(t, args...)
	return err
}

// executeCapture runs the root command with storage disabled and returns what it
// wrote to stderr.
func executeCapture(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("STORAGE_ENABLED", "false")
	t.Setenv("METRICS_TEXTFILE", "")
	t.Setenv("PROMETHEUS_URL", "")
	optimizerConfigPath, electricityConfigPath, verbose = "", "", false

	var stderr bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return stderr.String(), err
}

func TestSuggestEndToEnd(t *testing.T) {
	inventory := writeFile(t, "inventory.json", testInventory)
	tariff := writeFile(t, "tariff.yaml", "currency: EUR\nprice_per_kwh: 0.25\n")
	reportPath := filepath.Join(t.TempDir(), "report.md")
	metricsPath := filepath.Join(t.TempDir(), "optimizer.prom")

	err := execute(t, "suggest", "-i", inventory, "--electricity", tariff,
		"-f", "markdown", "-o", reportPath, "--metrics-textfile", metricsPath, "--save")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}

	report, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"**Nodes to power down**: node2",
		"| web | vm | node2 | node1 |",
		// 80 W * 730 h = 58.4 kWh at 0.25
		"**Estimated savings**: 80.00 W / 14.60 EUR per month",
	} {
		if !strings.Contains(string(report), want) {
			t.Errorf("Expected report to contain %q, got:\n%s", want, report)
		}
	}

	prom, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("Expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(prom), `node_cost_optimizer_plan_powered_down_nodes{scenario="consolidate-low-util"} 1`) {
		t.Errorf("Expected powered-down gauge, got:\n%s", prom)
	}
}

func TestSuggestSaveWithoutStorage(t *testing.T) {
	inventory := writeFile(t, "inventory.json", testInventory)
	reportPath := filepath.Join(t.TempDir(), "report.txt")

	stderr, err := executeCapture(t, "suggest", "-i", inventory, "-o", reportPath, "--save")
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}

	if !strings.Contains(stderr, "was not persisted") {
		t.Errorf("Expected a not-persisted notice, got %q", stderr)
	}
	if strings.Contains(stderr, "Saved plan") {
		t.Errorf("Expected no saved confirmation with storage disabled, got %q", stderr)
	}
}

func TestAnalyzeCSV(t *testing.T) {
	inventory := writeFile(t, "inventory.json", testInventory)
	reportPath := filepath.Join(t.TempDir(), "report.csv")

	if err := execute(t, "analyze", "-i", inventory, "-f", "csv", "-o", reportPath); err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	// node1: 80 + 10*4*0.5 + 1*16*0.5 = 108 W
	if !strings.Contains(string(data), "node1,server,1,108.00,") {
		t.Errorf("Expected node1 row at 108 W, got:\n%s", data)
	}
	if strings.Contains(string(data), "CONSOLIDATION PLAN") {
		t.Error("Expected no plan section from analyze")
	}
}

func TestCommandErrors(t *testing.T) {
	inventory := writeFile(t, "inventory.json", testInventory)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"no input", []string{"analyze"}, "either --inventory or --source"},
		{"both inputs", []string{"analyze", "-i", inventory, "-s", "docker"}, "mutually exclusive"},
		{"unknown source", []string{"collect", "-s", "vmware"}, "unknown collector source"},
		{"unknown scenario", []string{"suggest", "-i", inventory, "--scenario", "nope"}, "unknown scenario"},
		{"unknown format", []string{"analyze", "-i", inventory, "-f", "pdf"}, "unknown report format"},
		{"history without storage", []string{"history"}, "storage is disabled"},
		{"show without id", []string{"show"}, "accepts 1 arg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := execute(t, tt.args...)
			if err == nil {
				t.Fatal("Expected an error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestReadInventoryRejectsInvalid(t *testing.T) {
	path := writeFile(t, "bad.json", `{"nodes": [{"kind": "server"}]}`)
	if err := execute(t, "analyze", "-i", path); err == nil {
		t.Error("Expected an error for a node without a name")
	}
}

func TestPrintPlan(t *testing.T) {
	w := &models.Workload{Name: "web", WorkloadType: "vm", VCPUs: 2, MemoryGB: 4}
	plan := &models.ConsolidationPlan{
		ID:                      "abc",
		Scenario:                "s1",
		Moves:                   []models.ConsolidationMove{{Workload: w, SourceNode: "node2", TargetNode: "node1"}},
		PoweredDownNodes:        []string{"node2"},
		EstimatedWattsSaved:     80,
		EstimatedMonthlySavings: 14.6,
		Currency:                "EUR",
		CreatedAt:               time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	var buf bytes.Buffer
	printPlan(&buf, plan)

	for _, want := range []string{"Plan: abc", "Created: 2025-03-01 12:00:00", "Nodes to power down: node2", "  * web (vm, 2.0 vCPU, 4.0 GB): node2 -> node1"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("Expected output to contain %q, got:\n%s", want, buf.String())
		}
	}
}

func TestPrintHistory(t *testing.T) {
	plans := []*models.PlanSummary{
		{ID: "p2", Scenario: "s1", MoveCount: 3, PoweredDownNodes: []string{"a", "b"}, EstimatedMonthlySavings: 20, Currency: "USD"},
		{ID: "p1", Scenario: "s1"},
	}

	var buf bytes.Buffer
	if err := printHistory(&buf, plans); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header and 2 rows, got %d lines", len(lines))
	}
	if !strings.Contains(lines[1], "a, b") || !strings.Contains(lines[2], "none") {
		t.Errorf("Unexpected rows:\n%s", buf.String())
	}
}
