package datasource

import (
	"context"
	"errors"
	"time"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ErrUnavailable is returned when the metrics backend cannot be reached
var ErrUnavailable = errors.New("metrics source unavailable")

// DataSource supplies historical utilization for workloads
type DataSource interface {
	// WorkloadUtilization returns the P95 utilization over lookback. ok is false
	// when the source has no series for the workload.
	WorkloadUtilization(ctx context.Context, w *models.Workload, lookback time.Duration) (u Utilization, ok bool, err error)
	IsAvailable(ctx context.Context) bool
	Name() string
}

// Utilization is a CPU/memory usage pair relative to the workload's allocation.
// A dimension without data is left nil.
type Utilization struct {
	CPU    *float64
	Memory *float64
}

type Config struct {
	PrometheusURL string
	Timeout       time.Duration
	// Step is the range query resolution; zero means 5 minutes
	Step time.Duration
	// Concurrency caps parallel workload queries; zero means 8
	Concurrency int
}
