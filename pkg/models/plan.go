package models

import "time"

// ConsolidationMove is a proposed relocation of one workload
type ConsolidationMove struct {
	Workload   *Workload
	SourceNode string
	TargetNode string
}

// ConsolidationPlan is the output of one planner run. Moves are kept in commit order.
type ConsolidationPlan struct {
	ID                      string
	Scenario                string
	Moves                   []ConsolidationMove
	PoweredDownNodes        []string
	EstimatedWattsSaved     float64
	EstimatedMonthlySavings float64
	Currency                string
	Notes                   string
	CreatedAt               time.Time
}

// MovesFrom returns the moves originating from a node
func (p *ConsolidationPlan) MovesFrom(node string) []ConsolidationMove {
	var out []ConsolidationMove
	for _, m := range p.Moves {
		if m.SourceNode == node {
			out = append(out, m)
		}
	}
	return out
}

// PlanSummary is the persisted view of a plan, as listed by the history command
type PlanSummary struct {
	ID                      string
	Scenario                string
	MoveCount               int
	PoweredDownNodes        []string
	EstimatedWattsSaved     float64
	EstimatedMonthlySavings float64
	Currency                string
	CreatedAt               time.Time
}
