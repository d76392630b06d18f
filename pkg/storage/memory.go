package storage

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// MemoryStore keeps plans in process memory. It backs tests and runs with storage
// disabled.
type MemoryStore struct {
	mu    sync.RWMutex
	plans map[string]*models.ConsolidationPlan
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{plans: make(map[string]*models.ConsolidationPlan)}
}

func (s *MemoryStore) SavePlan(ctx context.Context, plan *models.ConsolidationPlan) (string, error) {
	stored := stamp(plan)
	stored.Moves = movesFromRows(moveRows(plan))
	stored.PoweredDownNodes = slices.Clone(nonNil(plan.PoweredDownNodes))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.plans[stored.ID] = stored
	return stored.ID, nil
}

func (s *MemoryStore) GetPlan(ctx context.Context, id string) (*models.ConsolidationPlan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	plan, ok := s.plans[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPlanNotFound, id)
	}
	out := *plan
	out.Moves = slices.Clone(plan.Moves)
	out.PoweredDownNodes = slices.Clone(plan.PoweredDownNodes)
	return &out, nil
}

func (s *MemoryStore) ListPlans(ctx context.Context, scenario string, limit int) ([]*models.PlanSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	s.mu.RLock()
	var summaries []*models.PlanSummary
	for _, p := range s.plans {
		if scenario != "" && p.Scenario != scenario {
			continue
		}
		summaries = append(summaries, &models.PlanSummary{
			ID:                      p.ID,
			Scenario:                p.Scenario,
			MoveCount:               len(p.Moves),
			PoweredDownNodes:        slices.Clone(p.PoweredDownNodes),
			EstimatedWattsSaved:     p.EstimatedWattsSaved,
			EstimatedMonthlySavings: p.EstimatedMonthlySavings,
			Currency:                p.Currency,
			CreatedAt:               p.CreatedAt,
		})
	}
	s.mu.RUnlock()

	slices.SortFunc(summaries, func(a, b *models.PlanSummary) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})
	if len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries, nil
}

func (s *MemoryStore) Ping(ctx context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

var _ Store = (*MemoryStore)(nil)
