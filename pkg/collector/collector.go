package collector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ErrUnknownSource is returned by New for a source name with no collector
var ErrUnknownSource = errors.New("unknown collector source")

// Sources lists the supported collector names
var Sources = []string{"kubernetes", "libvirt", "proxmox", "docker"}

// Collector gathers nodes and workloads from one infrastructure source
type Collector interface {
	Name() string
	Collect(ctx context.Context) (*models.Inventory, error)
}

// Config carries the settings for every collector kind. Each collector reads only
// the fields that concern it.
type Config struct {
	// Profile is attached to every collected node
	Profile *models.PowerProfile

	// Kubernetes
	Kubeconfig  string
	KubeContext string

	// Libvirt
	LibvirtURI string

	// Single-host collectors (libvirt, docker). Zero values use the collector's
	// defaults or what the host reports.
	HostName     string
	HostCPU      float64
	HostMemoryGB float64

	// Proxmox
	ProxmoxURL         string
	ProxmoxTokenID     string
	ProxmoxTokenSecret string
	ProxmoxInsecure    bool

	// Timeout bounds each remote call
	Timeout time.Duration
}

// New creates the collector registered under source
func New(source string, cfg Config, logger *slog.Logger) (Collector, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Profile == nil {
		cfg.Profile = &models.PowerProfile{Name: "default", BaseIdleWatts: 60, WattsPerCPUCore: 10, WattsPerGBRAM: 1}
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	switch strings.ToLower(source) {
	case "kubernetes", "k8s":
		return NewKubernetesCollector(cfg, logger)
	case "libvirt":
		return NewLibvirtCollector(cfg, logger), nil
	case "proxmox":
		return NewProxmoxCollector(cfg, logger)
	case "docker":
		return NewDockerCollector(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w '%s' (available: %s)", ErrUnknownSource, source, strings.Join(Sources, ", "))
	}
}

// CollectAll runs the collectors concurrently and merges their inventories in the
// order the collectors were given. The first failure cancels the rest. The merged
// inventory is validated, so two sources reporting the same node name fail here.
func CollectAll(ctx context.Context, collectors []Collector, logger *slog.Logger) (*models.Inventory, error) {
	if logger == nil {
		logger = slog.Default()
	}
	parts := make([]*models.Inventory, len(collectors))

	g, ctx := errgroup.WithContext(ctx)
	for i, c := range collectors {
		i, c := i, c
		g.Go(func() error {
			start := time.Now()
			inv, err := c.Collect(ctx)
			if err != nil {
				return fmt.Errorf("%s collector: %w", c.Name(), err)
			}
			logger.Info("collected inventory",
				"source", c.Name(),
				"nodes", len(inv.Nodes),
				"workloads", len(inv.Workloads),
				"duration", time.Since(start))
			parts[i] = inv
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	merged := models.MergeInventories(parts...)
	if err := merged.Validate(); err != nil {
		return nil, err
	}
	return merged, nil
}

const bytesPerGB = 1024 * 1024 * 1024
