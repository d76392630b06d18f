package storage

import "github.com/opscart/node-cost-optimizer/pkg/models"

// moveRow is the flattened form of a move as stored in plan_moves
type moveRow struct {
	WorkloadName string
	WorkloadType string
	VCPUs        float64
	MemoryGB     float64
	SourceNode   string
	TargetNode   string
}

func moveRows(plan *models.ConsolidationPlan) []moveRow {
	rows := make([]moveRow, 0, len(plan.Moves))
	for _, m := range plan.Moves {
		row := moveRow{SourceNode: m.SourceNode, TargetNode: m.TargetNode}
		if m.Workload != nil {
			row.WorkloadName = m.Workload.Name
			row.WorkloadType = m.Workload.WorkloadType
			row.VCPUs = m.Workload.VCPUs
			row.MemoryGB = m.Workload.MemoryGB
		}
		rows = append(rows, row)
	}
	return rows
}

// movesFromRows rebuilds moves. Restored workloads carry their size and sit on the
// source node; utilization is not persisted.
func movesFromRows(rows []moveRow) []models.ConsolidationMove {
	moves := make([]models.ConsolidationMove, 0, len(rows))
	for _, row := range rows {
		moves = append(moves, models.ConsolidationMove{
			Workload: &models.Workload{
				Name:         row.WorkloadName,
				WorkloadType: row.WorkloadType,
				VCPUs:        row.VCPUs,
				MemoryGB:     row.MemoryGB,
				Node:         row.SourceNode,
				Labels:       map[string]string{},
			},
			SourceNode: row.SourceNode,
			TargetNode: row.TargetNode,
		})
	}
	return moves
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
