package collector

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"
	metricsv "k8s.io/metrics/pkg/client/clientset/versioned"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// KubernetesCollector maps cluster nodes to nodes and scheduled pods to workloads.
// Pod size is the sum of container requests; utilization is live usage from
// metrics-server divided by those requests.
type KubernetesCollector struct {
	clientset     kubernetes.Interface
	metricsClient metricsv.Interface
	profile       *models.PowerProfile
	logger        *slog.Logger
	now           func() time.Time
}

// NewKubernetesCollector builds clients from the kubeconfig in cfg, or from the
// usual KUBECONFIG / ~/.kube/config / in-cluster lookup when none is given.
func NewKubernetesCollector(cfg Config, logger *slog.Logger) (*KubernetesCollector, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if cfg.Kubeconfig != "" {
		rules.ExplicitPath = cfg.Kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{CurrentContext: cfg.KubeContext}

	restConfig, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to build config: %w", err)
	}
	restConfig.Timeout = cfg.Timeout

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create clientset: %w", err)
	}

	metricsClient, err := metricsv.NewForConfig(restConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics client: %w", err)
	}

	return NewKubernetesCollectorWithClients(clientset, metricsClient, cfg.Profile, logger), nil
}

// NewKubernetesCollectorWithClients uses existing clients. metricsClient may be nil,
// in which case utilization stays at zero.
func NewKubernetesCollectorWithClients(clientset kubernetes.Interface, metricsClient metricsv.Interface, profile *models.PowerProfile, logger *slog.Logger) *KubernetesCollector {
	return &KubernetesCollector{
		clientset:     clientset,
		metricsClient: metricsClient,
		profile:       profile,
		logger:        logger,
		now:           time.Now,
	}
}

func (c *KubernetesCollector) Name() string {
	return "kubernetes"
}

func (c *KubernetesCollector) Collect(ctx context.Context) (*models.Inventory, error) {
	nodeList, err := c.clientset.CoreV1().Nodes().List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list nodes: %w", err)
	}

	podList, err := c.clientset.CoreV1().Pods(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to list pods: %w", err)
	}

	usage := c.podUsage(ctx)

	nodes := make([]*models.Node, 0, len(nodeList.Items))
	for _, n := range nodeList.Items {
		nodes = append(nodes, c.nodeFromItem(n))
	}

	var workloads []*models.Workload
	for _, pod := range podList.Items {
		if w := c.podToWorkload(pod, usage); w != nil {
			workloads = append(workloads, w)
		}
	}

	return models.NewInventory(nodes, workloads), nil
}

type containerUsage struct {
	cpu    resource.Quantity
	memory resource.Quantity
}

// podUsage returns live usage keyed by namespace/pod. A missing metrics-server is
// not fatal.
func (c *KubernetesCollector) podUsage(ctx context.Context) map[string]containerUsage {
	usage := make(map[string]containerUsage)
	if c.metricsClient == nil {
		return usage
	}

	podMetrics, err := c.metricsClient.MetricsV1beta1().PodMetricses(metav1.NamespaceAll).List(ctx, metav1.ListOptions{})
	if err != nil {
		c.logger.Warn("pod metrics unavailable, utilization left at zero", "error", err)
		return usage
	}

	for _, pm := range podMetrics.Items {
		var total containerUsage
		for _, container := range pm.Containers {
			total.cpu.Add(container.Usage[corev1.ResourceCPU])
			total.memory.Add(container.Usage[corev1.ResourceMemory])
		}
		usage[pm.Namespace+"/"+pm.Name] = total
	}
	return usage
}

func (c *KubernetesCollector) nodeFromItem(n corev1.Node) *models.Node {
	capacity := n.Status.Capacity
	labels := make(map[string]string, len(n.Labels))
	maps.Copy(labels, n.Labels)

	cpu := capacity[corev1.ResourceCPU]
	memory := capacity[corev1.ResourceMemory]
	return &models.Node{
		Name:          n.Name,
		Kind:          "k8s-node",
		TotalCPU:      cpu.AsApproximateFloat64(),
		TotalMemoryGB: memory.AsApproximateFloat64() / bytesPerGB,
		Profile:       c.profile,
		Metadata:      map[string]any{"labels": labels},
	}
}

// podToWorkload skips pods that are not bound to a node or have terminated.
func (c *KubernetesCollector) podToWorkload(pod corev1.Pod, usage map[string]containerUsage) *models.Workload {
	if pod.Spec.NodeName == "" {
		return nil
	}
	if pod.Status.Phase == corev1.PodSucceeded || pod.Status.Phase == corev1.PodFailed {
		return nil
	}

	var cpuRequest, memRequest resource.Quantity
	for _, container := range pod.Spec.Containers {
		if q, ok := container.Resources.Requests[corev1.ResourceCPU]; ok {
			cpuRequest.Add(q)
		}
		if q, ok := container.Resources.Requests[corev1.ResourceMemory]; ok {
			memRequest.Add(q)
		}
	}

	vcpus := cpuRequest.AsApproximateFloat64()
	memBytes := memRequest.AsApproximateFloat64()

	w := &models.Workload{
		Name:         pod.Namespace + "/" + pod.Name,
		WorkloadType: "pod",
		VCPUs:        vcpus,
		MemoryGB:     memBytes / bytesPerGB,
		Node:         pod.Spec.NodeName,
		Labels:       make(map[string]string, len(pod.Labels)+1),
	}
	maps.Copy(w.Labels, pod.Labels)
	w.Labels["namespace"] = pod.Namespace

	if u, ok := usage[pod.Namespace+"/"+pod.Name]; ok {
		if vcpus > 0 {
			w.UtilizationCPU = u.cpu.AsApproximateFloat64() / vcpus
		}
		if memBytes > 0 {
			w.UtilizationMemory = u.memory.AsApproximateFloat64() / memBytes
		}
	}

	if pod.Status.StartTime != nil {
		w.UptimeHours = c.now().Sub(pod.Status.StartTime.Time).Hours()
	}
	return w
}
