package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/opscart/node-cost-optimizer/pkg/collector"
	"github.com/opscart/node-cost-optimizer/pkg/config"
	"github.com/opscart/node-cost-optimizer/pkg/datasource"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// inventoryOptions selects where an inventory comes from: a JSON file, or one or
// more live collectors.
type inventoryOptions struct {
	inventoryPath string
	sources       []string
	profile       string
	kubeContext   string
	hostName      string
	hostCPU       float64
	hostMemoryGB  float64
	proxmoxTLS    bool
	timeout       time.Duration
	usePrometheus bool
}

func (o *inventoryOptions) addFlags(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.inventoryPath, "inventory", "i", "", "Inventory JSON file ('-' for stdin)")
	cmd.Flags().StringSliceVarP(&o.sources, "source", "s", nil, "Collect live from: kubernetes, libvirt, proxmox, docker (repeatable)")
	cmd.Flags().StringVar(&o.profile, "profile", models.DefaultProfileName, "Power profile attached to collected nodes")
	cmd.Flags().StringVar(&o.kubeContext, "kube-context", "", "Kubeconfig context")
	cmd.Flags().StringVar(&o.hostName, "host-name", "", "Node name for single-host collectors")
	cmd.Flags().Float64Var(&o.hostCPU, "host-cpu", 0, "CPU count for single-host collectors")
	cmd.Flags().Float64Var(&o.hostMemoryGB, "host-memory-gb", 0, "Memory in GB for single-host collectors")
	cmd.Flags().BoolVar(&o.proxmoxTLS, "proxmox-insecure", false, "Skip TLS verification for Proxmox")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 10*time.Second, "Timeout for each remote call")
	cmd.Flags().BoolVar(&o.usePrometheus, "use-prometheus", true, "Replace utilization with P95 from Prometheus when PROMETHEUS_URL is set")
}

// load returns the inventory from --inventory or the collectors. Exactly one of the
// two must be given.
func (o *inventoryOptions) load(ctx context.Context, optCfg *config.OptimizerConfig) (*models.Inventory, error) {
	switch {
	case o.inventoryPath != "" && len(o.sources) > 0:
		return nil, errors.New("--inventory and --source are mutually exclusive")
	case o.inventoryPath != "":
		return readInventory(o.inventoryPath)
	case len(o.sources) == 0:
		return nil, errors.New("either --inventory or --source must be specified")
	}

	inv, err := o.collect(ctx, optCfg)
	if err != nil {
		return nil, err
	}
	if o.usePrometheus {
		enrich(ctx, inv)
	}
	return inv, nil
}

func (o *inventoryOptions) collect(ctx context.Context, optCfg *config.OptimizerConfig) (*models.Inventory, error) {
	profile, err := optCfg.PowerProfile(o.profile)
	if err != nil {
		return nil, err
	}

	ccfg := collector.Config{
		Profile:            profile,
		Kubeconfig:         cfg.Kubeconfig,
		KubeContext:        o.kubeContext,
		LibvirtURI:         cfg.LibvirtURI,
		HostName:           o.hostName,
		HostCPU:            o.hostCPU,
		HostMemoryGB:       o.hostMemoryGB,
		ProxmoxURL:         cfg.ProxmoxURL,
		ProxmoxTokenID:     cfg.ProxmoxTokenID,
		ProxmoxTokenSecret: cfg.ProxmoxTokenSecret,
		ProxmoxInsecure:    o.proxmoxTLS,
		Timeout:            o.timeout,
	}

	collectors := make([]collector.Collector, 0, len(o.sources))
	for _, source := range o.sources {
		c, err := collector.New(source, ccfg, log)
		if err != nil {
			return nil, err
		}
		collectors = append(collectors, c)
	}

	inv, err := collector.CollectAll(ctx, collectors, log)
	if err != nil {
		return nil, fmt.Errorf("collection failed: %w", err)
	}
	return inv, nil
}

// enrich is best effort: an unreachable Prometheus leaves collected utilization as is
func enrich(ctx context.Context, inv *models.Inventory) {
	if cfg.PrometheusURL == "" {
		log.Debug("PROMETHEUS_URL not set, using collected utilization")
		return
	}
	prom, err := datasource.NewPrometheusSource(datasource.Config{
		PrometheusURL: cfg.PrometheusURL,
		Timeout:       30 * time.Second,
	}, log)
	if err != nil {
		log.Warn("prometheus initialization failed", "error", err)
		return
	}

	updated, err := prom.EnrichUtilization(ctx, inv, cfg.UtilizationLookback)
	if err != nil {
		log.Warn("utilization enrichment skipped", "url", cfg.PrometheusURL, "error", err)
		return
	}
	log.Info("applied P95 utilization", "workloads", updated, "lookback", cfg.UtilizationLookback)
}

func readInventory(path string) (*models.Inventory, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read inventory: %w", err)
	}

	inv, err := models.UnmarshalInventory(data)
	if err != nil {
		return nil, err
	}
	if err := inv.Validate(); err != nil {
		return nil, err
	}
	if orphans := inv.Orphans(); len(orphans) > 0 {
		log.Warn("workloads reference unknown nodes and will be ignored", "count", len(orphans))
	}
	return inv, nil
}

func newCollectCmd() *cobra.Command {
	opts := &inventoryOptions{}
	var output string

	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Collect an inventory from live sources and write it as JSON",
		Example: `  cost-optimizer collect --source kubernetes -o inventory.json
  cost-optimizer collect --source libvirt --source docker --host-name hv1`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.inventoryPath != "" {
				return errors.New("collect reads live sources only; use --source")
			}
			optCfg, err := loadOptimizerConfig()
			if err != nil {
				return err
			}

			inv, err := opts.load(cmd.Context(), optCfg)
			if err != nil {
				return err
			}

			data, err := models.MarshalInventory(inv)
			if err != nil {
				return err
			}
			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			if _, err := out.Write(append(data, '\n')); err != nil {
				return fmt.Errorf("failed to write inventory: %w", err)
			}
			log.Info("inventory written", "nodes", len(inv.Nodes), "workloads", len(inv.Workloads), "output", outputName(output))
			return nil
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func outputName(path string) string {
	if path == "" || path == "-" {
		return "stdout"
	}
	return path
}
