package collector

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"

	golibvirt "github.com/digitalocean/go-libvirt"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const (
	defaultLibvirtHost     = "libvirt-host"
	defaultLibvirtCPU      = 32
	defaultLibvirtMemoryGB = 128
)

type hostInfo struct {
	Hostname  string
	CPUs      float64
	MemoryKiB uint64
}

type domainInfo struct {
	Name      string
	State     string
	VCPUs     float64
	MaxMemKiB uint64
	CPUTimeNs uint64
}

// hypervisor is the slice of the libvirt RPC API the collector needs
type hypervisor interface {
	HostInfo() (hostInfo, error)
	Domains() ([]domainInfo, error)
	Close() error
}

// LibvirtCollector reports one hypervisor node and its defined domains
type LibvirtCollector struct {
	uri     string
	cfg     Config
	logger  *slog.Logger
	connect func(ctx context.Context, uri string) (hypervisor, error)
}

func NewLibvirtCollector(cfg Config, logger *slog.Logger) *LibvirtCollector {
	uri := cfg.LibvirtURI
	if uri == "" {
		uri = string(golibvirt.QEMUSystem)
	}
	return &LibvirtCollector{
		uri:     uri,
		cfg:     cfg,
		logger:  logger,
		connect: dialLibvirt,
	}
}

func (c *LibvirtCollector) Name() string {
	return "libvirt"
}

func (c *LibvirtCollector) Collect(ctx context.Context) (*models.Inventory, error) {
	hv, err := c.connect(ctx, c.uri)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := hv.Close(); err != nil {
			c.logger.Warn("libvirt disconnect failed", "error", err)
		}
	}()

	host, err := hv.HostInfo()
	if err != nil {
		return nil, err
	}
	domains, err := hv.Domains()
	if err != nil {
		return nil, err
	}

	node := &models.Node{
		Name:          c.hostName(host),
		Kind:          "hypervisor",
		TotalCPU:      firstPositive(c.cfg.HostCPU, host.CPUs, defaultLibvirtCPU),
		TotalMemoryGB: firstPositive(c.cfg.HostMemoryGB, float64(host.MemoryKiB)/(1024*1024), defaultLibvirtMemoryGB),
		Profile:       c.cfg.Profile,
		Metadata:      map[string]any{"uri": c.uri},
	}

	workloads := make([]*models.Workload, 0, len(domains))
	for _, d := range domains {
		workloads = append(workloads, &models.Workload{
			Name:         d.Name,
			WorkloadType: "vm",
			VCPUs:        d.VCPUs,
			MemoryGB:     float64(d.MaxMemKiB) / (1024 * 1024),
			Node:         node.Name,
			Labels: map[string]string{
				"state":            d.State,
				"cpu_time_seconds": strconv.FormatUint(d.CPUTimeNs/1e9, 10),
			},
		})
	}

	return models.NewInventory([]*models.Node{node}, workloads), nil
}

func (c *LibvirtCollector) hostName(host hostInfo) string {
	switch {
	case c.cfg.HostName != "":
		return c.cfg.HostName
	case host.Hostname != "":
		return host.Hostname
	default:
		return defaultLibvirtHost
	}
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// rpcHypervisor adapts a go-libvirt connection
type rpcHypervisor struct {
	client *golibvirt.Libvirt
}

func dialLibvirt(ctx context.Context, raw string) (hypervisor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	uri, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse libvirt uri %q: %w", raw, err)
	}
	client, err := golibvirt.ConnectToURI(uri)
	if err != nil {
		return nil, fmt.Errorf("connect to libvirt at %s: %w", uri.Redacted(), err)
	}
	return &rpcHypervisor{client: client}, nil
}

func (h *rpcHypervisor) HostInfo() (hostInfo, error) {
	_, memoryKiB, cpus, _, _, _, _, _, err := h.client.NodeGetInfo()
	if err != nil {
		return hostInfo{}, fmt.Errorf("NodeGetInfo: %w", err)
	}
	hostname, err := h.client.ConnectGetHostname()
	if err != nil {
		hostname = ""
	}
	return hostInfo{Hostname: hostname, CPUs: float64(cpus), MemoryKiB: uint64(memoryKiB)}, nil
}

func (h *rpcHypervisor) Domains() ([]domainInfo, error) {
	doms, _, err := h.client.ConnectListAllDomains(1, 0)
	if err != nil {
		return nil, fmt.Errorf("ConnectListAllDomains: %w", err)
	}

	out := make([]domainInfo, 0, len(doms))
	for _, dom := range doms {
		state, maxMem, _, nrVirtCPU, cpuTime, err := h.client.DomainGetInfo(dom)
		if err != nil {
			return nil, fmt.Errorf("DomainGetInfo %s: %w", dom.Name, err)
		}
		out = append(out, domainInfo{
			Name:      dom.Name,
			State:     domainStateString(golibvirt.DomainState(state)),
			VCPUs:     float64(nrVirtCPU),
			MaxMemKiB: uint64(maxMem),
			CPUTimeNs: uint64(cpuTime),
		})
	}
	return out, nil
}

func (h *rpcHypervisor) Close() error {
	return h.client.Disconnect()
}

func domainStateString(state golibvirt.DomainState) string {
	switch state {
	case golibvirt.DomainRunning:
		return "running"
	case golibvirt.DomainBlocked:
		return "blocked"
	case golibvirt.DomainPaused:
		return "paused"
	case golibvirt.DomainShutdown:
		return "shutdown"
	case golibvirt.DomainShutoff:
		return "shutoff"
	case golibvirt.DomainCrashed:
		return "crashed"
	case golibvirt.DomainPmsuspended:
		return "pmsuspended"
	default:
		return "nostate"
	}
}
