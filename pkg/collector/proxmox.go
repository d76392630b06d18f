package collector

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ProxmoxCollector reads nodes and guests from the Proxmox VE REST API using an
// API token.
type ProxmoxCollector struct {
	baseURL     string
	tokenID     string
	tokenSecret string
	profile     *models.PowerProfile
	httpClient  *http.Client
	logger      *slog.Logger
}

type proxmoxResponse[T any] struct {
	Data []T `json:"data"`
}

type proxmoxNode struct {
	Node   string  `json:"node"`
	Status string  `json:"status"`
	Type   string  `json:"type"`
	MaxCPU float64 `json:"maxcpu"`
	MaxMem float64 `json:"maxmem"`
}

type proxmoxGuest struct {
	VMID     int     `json:"vmid"`
	Name     string  `json:"name"`
	Type     string  `json:"type"`
	Node     string  `json:"node"`
	Status   string  `json:"status"`
	Template int     `json:"template"`
	MaxCPU   float64 `json:"maxcpu"`
	MaxMem   float64 `json:"maxmem"`
	CPU      float64 `json:"cpu"`
	Mem      float64 `json:"mem"`
	Uptime   float64 `json:"uptime"`
}

func NewProxmoxCollector(cfg Config, logger *slog.Logger) (*ProxmoxCollector, error) {
	if cfg.ProxmoxURL == "" {
		return nil, fmt.Errorf("proxmox collector requires a base URL")
	}
	if cfg.ProxmoxTokenID == "" || cfg.ProxmoxTokenSecret == "" {
		return nil, fmt.Errorf("proxmox collector requires an API token id and secret")
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.ProxmoxInsecure {
		// self-signed certificates are the norm on homelab PVE installs
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec
	}

	return &ProxmoxCollector{
		baseURL:     strings.TrimRight(cfg.ProxmoxURL, "/"),
		tokenID:     cfg.ProxmoxTokenID,
		tokenSecret: cfg.ProxmoxTokenSecret,
		profile:     cfg.Profile,
		httpClient:  &http.Client{Timeout: cfg.Timeout, Transport: transport},
		logger:      logger,
	}, nil
}

func (c *ProxmoxCollector) Name() string {
	return "proxmox"
}

func (c *ProxmoxCollector) Collect(ctx context.Context) (*models.Inventory, error) {
	var nodesResp proxmoxResponse[proxmoxNode]
	if err := c.get(ctx, "/api2/json/nodes", &nodesResp); err != nil {
		return nil, err
	}
	var guestsResp proxmoxResponse[proxmoxGuest]
	if err := c.get(ctx, "/api2/json/cluster/resources?type=vm", &guestsResp); err != nil {
		return nil, err
	}

	nodes := make([]*models.Node, 0, len(nodesResp.Data))
	for _, n := range nodesResp.Data {
		nodes = append(nodes, &models.Node{
			Name:          n.Node,
			Kind:          "hypervisor",
			TotalCPU:      n.MaxCPU,
			TotalMemoryGB: n.MaxMem / bytesPerGB,
			Profile:       c.profile,
			Metadata:      map[string]any{"status": n.Status, "type": n.Type},
		})
	}

	workloads := make([]*models.Workload, 0, len(guestsResp.Data))
	for _, g := range guestsResp.Data {
		if g.Template == 1 {
			continue
		}
		workloads = append(workloads, c.guestToWorkload(g))
	}

	c.logger.Debug("proxmox inventory fetched", "nodes", len(nodes), "guests", len(workloads))
	return models.NewInventory(nodes, workloads), nil
}

func (c *ProxmoxCollector) guestToWorkload(g proxmoxGuest) *models.Workload {
	name := g.Name
	if name == "" {
		name = strconv.Itoa(g.VMID)
	}
	workloadType := g.Type
	if workloadType == "" {
		workloadType = "vm"
	}

	var memUtil float64
	if g.MaxMem > 0 {
		memUtil = g.Mem / g.MaxMem
	}

	return &models.Workload{
		Name:              name,
		WorkloadType:      workloadType,
		VCPUs:             g.MaxCPU,
		MemoryGB:          g.MaxMem / bytesPerGB,
		UtilizationCPU:    g.CPU,
		UtilizationMemory: memUtil,
		Node:              g.Node,
		UptimeHours:       g.Uptime / 3600,
		Labels:            map[string]string{"vmid": strconv.Itoa(g.VMID), "status": g.Status},
	}
}

func (c *ProxmoxCollector) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", fmt.Sprintf("PVEAPIToken=%s=%s", c.tokenID, c.tokenSecret))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s: %w", path, err)
	}
	return nil
}
