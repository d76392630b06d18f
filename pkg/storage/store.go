package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ErrPlanNotFound is returned when no plan has the requested id
var ErrPlanNotFound = errors.New("plan not found")

// Store defines the interface for persistent storage
type Store interface {
	// SavePlan persists the plan and its moves atomically and returns the stored id.
	// An id and creation time are assigned to the stored copy when unset; the
	// caller's plan is left untouched.
	SavePlan(ctx context.Context, plan *models.ConsolidationPlan) (string, error)
	GetPlan(ctx context.Context, id string) (*models.ConsolidationPlan, error)
	// ListPlans returns the newest plans first, optionally filtered by scenario
	ListPlans(ctx context.Context, scenario string, limit int) ([]*models.PlanSummary, error)

	Ping(ctx context.Context) error
	Close() error
}

type Config struct {
	URL string
	// MaxOpenConns caps the connection pool; zero means 25
	MaxOpenConns int
}

// stamp returns a shallow copy of plan with an id and creation time filled in
func stamp(plan *models.ConsolidationPlan) *models.ConsolidationPlan {
	stored := *plan
	if stored.ID == "" {
		stored.ID = uuid.New().String()
	}
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = time.Now()
	}
	return &stored
}
