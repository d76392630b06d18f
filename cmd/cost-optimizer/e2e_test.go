//go:build e2e

package main

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/opscart/node-cost-optimizer/pkg/collector"
	"github.com/opscart/node-cost-optimizer/pkg/logger"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// These tests need a reachable cluster in the default kubeconfig (kind or minikube
// is enough). Run with: go test -tags e2e ./cmd/cost-optimizer/

func TestRealClusterCollection(t *testing.T) {
	c, err := collector.New("kubernetes", collector.Config{Timeout: 30 * time.Second}, logger.Discard())
	if err != nil {
		t.Fatalf("Failed to create collector: %v", err)
	}

	inv, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Failed to collect: %v", err)
	}

	if len(inv.Nodes) == 0 {
		t.Fatal("No nodes found in cluster")
	}
	t.Logf("Collected %d node(s), %d pod(s)", len(inv.Nodes), len(inv.Workloads))
	for _, n := range inv.Nodes {
		if n.TotalCPU <= 0 || n.TotalMemoryGB <= 0 {
			t.Errorf("Expected capacity on node %s, got %.1f CPU / %.1f GB", n.Name, n.TotalCPU, n.TotalMemoryGB)
		}
	}
}

func TestCLIExecution(t *testing.T) {
	dir := t.TempDir()
	binary := filepath.Join(dir, "cost-optimizer")

	build := exec.Command("go", "build", "-o", binary, ".")
	if output, err := build.CombinedOutput(); err != nil {
		t.Fatalf("Build failed: %v\n%s", err, output)
	}

	inventoryPath := filepath.Join(dir, "inventory.json")
	collect := exec.Command(binary, "collect", "--source", "kubernetes", "-o", inventoryPath)
	if output, err := collect.CombinedOutput(); err != nil {
		t.Fatalf("collect failed: %v\n%s", err, output)
	}

	data, err := os.ReadFile(inventoryPath)
	if err != nil {
		t.Fatal(err)
	}
	inv, err := models.UnmarshalInventory(data)
	if err != nil {
		t.Fatalf("collect wrote an unreadable inventory: %v", err)
	}
	if len(inv.Nodes) == 0 {
		t.Fatal("Expected at least one node in the collected inventory")
	}

	suggest := exec.Command(binary, "suggest", "-i", inventoryPath)
	output, err := suggest.CombinedOutput()
	t.Logf("Output:\n%s", output)
	if err != nil {
		t.Fatalf("suggest failed: %v", err)
	}
	if !strings.Contains(string(output), "Node Cost Optimizer Report") {
		t.Error("Expected the text report in the output")
	}
}
