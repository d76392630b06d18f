package estimator

import "github.com/opscart/node-cost-optimizer/pkg/config"

// DefaultMonthlyHours is the average number of hours in a month
const DefaultMonthlyHours = 730.0

// CostBreakdown is the monthly energy and cost of one node
type CostBreakdown struct {
	Node        string
	KWhMonth    float64
	MonthlyCost float64
}

// CostReport holds per-node monthly cost in power report order
type CostReport struct {
	Currency string
	PerNode  []CostBreakdown
}

// TotalMonthlyCost sums the already-rounded per-node costs and rounds the result.
// Rounding per node first is part of the output contract.
func (r *CostReport) TotalMonthlyCost() float64 {
	sum := 0.0
	for _, entry := range r.PerNode {
		sum += entry.MonthlyCost
	}
	return Round2(sum)
}

// TotalKWhMonth returns the rounded sum of per-node energy
func (r *CostReport) TotalKWhMonth() float64 {
	sum := 0.0
	for _, entry := range r.PerNode {
		sum += entry.KWhMonth
	}
	return Round2(sum)
}

// EstimateCost prices a power report with the tariff's effective price
func EstimateCost(report *PowerReport, electricity *config.ElectricityConfig, monthlyHours float64) *CostReport {
	price := electricity.EffectivePrice()
	cost := &CostReport{
		Currency: electricity.Currency,
		PerNode:  make([]CostBreakdown, 0, len(report.PerNode)),
	}
	for _, entry := range report.PerNode {
		kwh := Round2(entry.Watts * monthlyHours / 1000)
		cost.PerNode = append(cost.PerNode, CostBreakdown{
			Node:        entry.Node.Name,
			KWhMonth:    kwh,
			MonthlyCost: Round2(kwh * price),
		})
	}
	return cost
}
