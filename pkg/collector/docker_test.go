package collector

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/opscart/node-cost-optimizer/pkg/logger"
)

func TestDockerCollect(t *testing.T) {
	var gotArgs []string
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte("abc123,12.50%,512MiB / 7.6GiB\nbroken-line\ndef456,200%,1.5GiB / 7.6GiB\n\n"), nil
	}
	c := NewDockerCollectorWithRunner(Config{Profile: testProfile}, run, logger.Discard())

	inv, err := c.Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	if !strings.Contains(strings.Join(gotArgs, " "), "stats --no-stream") {
		t.Errorf("Unexpected command: %v", gotArgs)
	}
	if len(inv.Nodes) != 1 {
		t.Fatalf("Expected 1 node, got %d", len(inv.Nodes))
	}
	node := inv.Nodes[0]
	if node.Name != "docker-host" || node.TotalCPU != 16 || node.TotalMemoryGB != 64 {
		t.Errorf("Unexpected default host: %+v", node)
	}
	if node.Profile != testProfile {
		t.Error("Expected configured profile on node")
	}

	if len(inv.Workloads) != 2 {
		t.Fatalf("Expected 2 workloads (bad line skipped), got %d", len(inv.Workloads))
	}
	first := inv.Workloads[0]
	if first.Name != "abc123" || first.WorkloadType != "container" || first.VCPUs != 1 {
		t.Errorf("Unexpected workload: %+v", first)
	}
	if !approx(first.UtilizationCPU, 0.125) {
		t.Errorf("Expected CPU utilization 0.125, got %.4f", first.UtilizationCPU)
	}
	if !approx(first.MemoryGB, 0.5) {
		t.Errorf("Expected 0.5 GB, got %.4f", first.MemoryGB)
	}
	if first.Node != "docker-host" {
		t.Errorf("Expected workload on docker-host, got %s", first.Node)
	}
	if !approx(inv.Workloads[1].UtilizationCPU, 2.0) {
		t.Errorf("Expected multi-core CPU kept at 2.0, got %.4f", inv.Workloads[1].UtilizationCPU)
	}
}

func TestDockerCollectHostOverrides(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, nil
	}
	cfg := Config{Profile: testProfile, HostName: "nas", HostCPU: 4, HostMemoryGB: 16}

	inv, err := NewDockerCollectorWithRunner(cfg, run, logger.Discard()).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect failed: %v", err)
	}

	node := inv.Nodes[0]
	if node.Name != "nas" || node.TotalCPU != 4 || node.TotalMemoryGB != 16 {
		t.Errorf("Expected host overrides, got %+v", node)
	}
	if len(inv.Workloads) != 0 {
		t.Errorf("Expected no workloads, got %d", len(inv.Workloads))
	}
}

func TestDockerCollectCommandFailure(t *testing.T) {
	run := func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("docker: command not found")
	}

	_, err := NewDockerCollectorWithRunner(Config{}, run, logger.Discard()).Collect(context.Background())

	if err == nil {
		t.Error("Expected error when docker is unavailable")
	}
}
