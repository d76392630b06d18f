package collector

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const (
	defaultDockerHost     = "docker-host"
	defaultDockerCPU      = 16
	defaultDockerMemoryGB = 64

	dockerStatsFormat = "{{.Container}},{{.CPUPerc}},{{.MemUsage}}"
)

// Runner executes a command and returns its stdout
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return out, nil
}

// DockerCollector reports the local Docker host as one node and each running
// container as a single-vCPU workload sized by its current memory use.
type DockerCollector struct {
	cfg    Config
	run    Runner
	logger *slog.Logger
}

func NewDockerCollector(cfg Config, logger *slog.Logger) *DockerCollector {
	return NewDockerCollectorWithRunner(cfg, execRunner, logger)
}

func NewDockerCollectorWithRunner(cfg Config, run Runner, logger *slog.Logger) *DockerCollector {
	return &DockerCollector{cfg: cfg, run: run, logger: logger}
}

func (c *DockerCollector) Name() string {
	return "docker"
}

func (c *DockerCollector) Collect(ctx context.Context) (*models.Inventory, error) {
	out, err := c.run(ctx, "docker", "stats", "--no-stream", "--format", dockerStatsFormat)
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		Name:          c.cfg.HostName,
		Kind:          "docker",
		TotalCPU:      firstPositive(c.cfg.HostCPU, defaultDockerCPU),
		TotalMemoryGB: firstPositive(c.cfg.HostMemoryGB, defaultDockerMemoryGB),
		Profile:       c.cfg.Profile,
		Metadata:      map[string]any{},
	}
	if node.Name == "" {
		node.Name = defaultDockerHost
	}

	var workloads []*models.Workload
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		w, err := parseStatsLine(line, node.Name)
		if err != nil {
			c.logger.Warn("skipping docker stats line", "line", line, "error", err)
			continue
		}
		workloads = append(workloads, w)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read docker stats: %w", err)
	}

	return models.NewInventory([]*models.Node{node}, workloads), nil
}

// parseStatsLine reads "<container>,<cpu%>,<used> / <limit>"
func parseStatsLine(line, nodeName string) (*models.Workload, error) {
	parts := strings.SplitN(line, ",", 3)
	if len(parts) != 3 {
		return nil, fmt.Errorf("expected 3 fields, got %d", len(parts))
	}

	cpuPercent, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(parts[1]), "%"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid cpu percentage %q: %w", parts[1], err)
	}

	used, _, _ := strings.Cut(parts[2], "/")
	memGB, err := ParseMemoryGB(strings.TrimSpace(used))
	if err != nil {
		return nil, err
	}

	return &models.Workload{
		Name:           strings.TrimSpace(parts[0]),
		WorkloadType:   "container",
		VCPUs:          1,
		MemoryGB:       memGB,
		UtilizationCPU: cpuPercent / 100,
		Node:           nodeName,
		Labels:         map[string]string{},
	}, nil
}

// ParseMemoryGB converts a docker memory figure such as "512MiB" or "1.5GiB" to GiB.
// A bare number is taken as GiB.
func ParseMemoryGB(value string) (float64, error) {
	units := []struct {
		suffix string
		factor float64
	}{
		{"gib", 1},
		{"mib", 1.0 / 1024},
		{"kib", 1.0 / (1024 * 1024)},
		{"gb", 1e9 / bytesPerGB},
		{"mb", 1e6 / bytesPerGB},
		{"kb", 1e3 / bytesPerGB},
		{"b", 1.0 / bytesPerGB},
	}

	lower := strings.ToLower(strings.TrimSpace(value))
	for _, u := range units {
		if numeric, ok := strings.CutSuffix(lower, u.suffix); ok {
			v, err := strconv.ParseFloat(strings.TrimSpace(numeric), 64)
			if err != nil {
				return 0, fmt.Errorf("invalid memory value %q: %w", value, err)
			}
			return v * u.factor, nil
		}
	}

	v, err := strconv.ParseFloat(lower, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid memory value %q: %w", value, err)
	}
	return v, nil
}
