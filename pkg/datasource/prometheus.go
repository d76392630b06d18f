package datasource

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/api"
	v1 "github.com/prometheus/client_golang/api/prometheus/v1"
	"github.com/prometheus/common/model"
	"golang.org/x/sync/errgroup"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

const (
	defaultStep        = 5 * time.Minute
	defaultConcurrency = 8
	// Prometheus rejects range queries above 11000 points
	maxPointsPerSeries = 10000
	bytesPerGB         = 1024 * 1024 * 1024
)

type PrometheusSource struct {
	client      v1.API
	url         string
	timeout     time.Duration
	step        time.Duration
	concurrency int
	logger      *slog.Logger
	now         func() time.Time
}

func NewPrometheusSource(cfg Config, logger *slog.Logger) (*PrometheusSource, error) {
	client, err := api.NewClient(api.Config{
		Address: cfg.PrometheusURL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Prometheus client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	step := cfg.Step
	if step <= 0 {
		step = defaultStep
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	return &PrometheusSource{
		client:      v1.NewAPI(client),
		url:         cfg.PrometheusURL,
		timeout:     cfg.Timeout,
		step:        step,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}, nil
}

// EnrichUtilization replaces each workload's utilization with the P95 observed over
// lookback. Workloads without series keep their collected values. It returns how
// many workloads were updated.
func (p *PrometheusSource) EnrichUtilization(ctx context.Context, inv *models.Inventory, lookback time.Duration) (int, error) {
	if !p.IsAvailable(ctx) {
		return 0, fmt.Errorf("%w: %s", ErrUnavailable, p.url)
	}

	var enriched atomic.Int64
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, w := range inv.Workloads {
		w := w
		g.Go(func() error {
			u, ok, err := p.WorkloadUtilization(ctx, w, lookback)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				p.logger.Warn("utilization query failed", "workload", w.Name, "error", err)
				return nil
			}
			if !ok {
				p.logger.Debug("no utilization series", "workload", w.Name)
				return nil
			}
			if u.CPU != nil {
				w.UtilizationCPU = *u.CPU
			}
			if u.Memory != nil {
				w.UtilizationMemory = *u.Memory
			}
			enriched.Add(1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return int(enriched.Load()), err
	}
	return int(enriched.Load()), nil
}

// WorkloadUtilization returns P95 usage divided by the workload's allocation
func (p *PrometheusSource) WorkloadUtilization(ctx context.Context, w *models.Workload, lookback time.Duration) (Utilization, bool, error) {
	cpuQuery, memQuery, ok := workloadQueries(w)
	if !ok {
		return Utilization{}, false, nil
	}

	end := p.now()
	r := v1.Range{
		Start: end.Add(-lookback),
		End:   end,
		Step:  p.stepFor(lookback),
	}

	var u Utilization
	if w.VCPUs > 0 {
		p95, found, err := p.queryP95(ctx, cpuQuery, r)
		if err != nil {
			return Utilization{}, false, fmt.Errorf("CPU query failed: %w", err)
		}
		if found {
			v := p95 / w.VCPUs
			u.CPU = &v
		}
	}
	if w.MemoryGB > 0 {
		p95, found, err := p.queryP95(ctx, memQuery, r)
		if err != nil {
			return Utilization{}, false, fmt.Errorf("memory query failed: %w", err)
		}
		if found {
			v := p95 / (w.MemoryGB * bytesPerGB)
			u.Memory = &v
		}
	}

	return u, u.CPU != nil || u.Memory != nil, nil
}

func (p *PrometheusSource) stepFor(lookback time.Duration) time.Duration {
	step := p.step
	if points := lookback / step; points > maxPointsPerSeries {
		step = lookback / maxPointsPerSeries
	}
	return step
}

func (p *PrometheusSource) queryP95(ctx context.Context, query string, r v1.Range) (float64, bool, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	result, warnings, err := p.client.QueryRange(ctx, query, r)
	if err != nil {
		return 0, false, fmt.Errorf("prometheus query failed: %w", err)
	}
	if len(warnings) > 0 {
		p.logger.Debug("prometheus warnings", "query", query, "warnings", warnings)
	}

	samples, err := parsePrometheusResult(result)
	if err != nil {
		return 0, false, err
	}
	if len(samples) == 0 {
		return 0, false, nil
	}

	percentiles, err := CalculatePercentiles(samples)
	if err != nil {
		return 0, false, err
	}
	return percentiles.P95, true, nil
}

// parsePrometheusResult flattens every series of a matrix into one sample list
func parsePrometheusResult(result model.Value) ([]Sample, error) {
	matrix, ok := result.(model.Matrix)
	if !ok {
		return nil, fmt.Errorf("unexpected result type: %T", result)
	}

	var samples []Sample
	for _, series := range matrix {
		for _, value := range series.Values {
			samples = append(samples, Sample{
				Timestamp: value.Timestamp.Time(),
				Value:     float64(value.Value),
			})
		}
	}
	return samples, nil
}

// workloadQueries returns PromQL yielding CPU cores and memory bytes in use.
// Pods use cAdvisor series, VMs the libvirt exporter, and containers cAdvisor's
// name label.
func workloadQueries(w *models.Workload) (cpu, mem string, ok bool) {
	switch w.WorkloadType {
	case "pod":
		namespace := w.Labels["namespace"]
		pod := strings.TrimPrefix(w.Name, namespace+"/")
		cpu = fmt.Sprintf(`sum(rate(container_cpu_usage_seconds_total{namespace="%s",pod="%s",container!="POD"}[5m]))`, namespace, pod)
		mem = fmt.Sprintf(`sum(container_memory_working_set_bytes{namespace="%s",pod="%s",container!="POD"})`, namespace, pod)
	case "vm", "qemu":
		cpu = fmt.Sprintf(`sum(rate(libvirt_domain_info_cpu_time_seconds_total{domain="%s"}[5m]))`, w.Name)
		mem = fmt.Sprintf(`sum(libvirt_domain_info_memory_usage_bytes{domain="%s"})`, w.Name)
	case "container":
		cpu = fmt.Sprintf(`sum(rate(container_cpu_usage_seconds_total{name="%s"}[5m]))`, w.Name)
		mem = fmt.Sprintf(`sum(container_memory_working_set_bytes{name="%s"})`, w.Name)
	default:
		return "", "", false
	}
	return cpu, mem, true
}

func (p *PrometheusSource) IsAvailable(ctx context.Context) bool {
	_, _, err := p.client.Query(ctx, "up", p.now())
	return err == nil
}

func (p *PrometheusSource) Name() string {
	return "Prometheus"
}

var _ DataSource = (*PrometheusSource)(nil)
