package narrator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/opscart/node-cost-optimizer/pkg/estimator"
	"github.com/opscart/node-cost-optimizer/pkg/models"
)

// ErrProviderUnavailable is returned when a provider is unknown or not configured
var ErrProviderUnavailable = errors.New("AI provider unavailable")

// Prompt is the instruction sent alongside the payload
const Prompt = "Summarize the optimizer results, highlight savings opportunities, list top 3 actions, " +
	"and describe risk or validation steps."

// Provider turns optimizer results into a narrative summary
type Provider interface {
	Name() string
	Summarize(ctx context.Context, payload Payload, prompt string) (string, error)
}

// Payload is the structured view of a run handed to a provider
type Payload struct {
	Nodes          []string    `json:"nodes"`
	Workloads      []string    `json:"workloads"`
	PowerDrawWatts float64     `json:"power_draw_watts"`
	MonthlyCost    float64     `json:"monthly_cost"`
	Currency       string      `json:"currency"`
	Plan           PlanPayload `json:"plan"`
}

type PlanPayload struct {
	NodesPoweredDown []string      `json:"nodes_powered_down"`
	Moves            []MovePayload `json:"moves"`
	SavingsMonthly   float64       `json:"savings_monthly"`
}

type MovePayload struct {
	Workload string `json:"workload"`
	Source   string `json:"source"`
	Target   string `json:"target"`
}

// Config selects and configures a provider
type Config struct {
	Provider        string
	AnthropicAPIKey string
	AnthropicModel  string
	// AnthropicBaseURL overrides the API endpoint; empty uses the SDK default
	AnthropicBaseURL string
}

// Providers lists the available provider names
var Providers = []string{"mock", "anthropic"}

// New creates the named provider. "claude" is accepted for anthropic.
func New(cfg Config) (Provider, error) {
	switch strings.ToLower(cfg.Provider) {
	case "mock", "":
		return &MockProvider{}, nil
	case "anthropic", "claude":
		return NewAnthropicProvider(cfg)
	}
	return nil, fmt.Errorf("%w: unknown provider '%s' (available: %s)",
		ErrProviderUnavailable, cfg.Provider, strings.Join(Providers, ", "))
}

// BuildPayload collects the run's figures. A nil plan yields an empty plan section.
func BuildPayload(inv *models.Inventory, power *estimator.PowerReport, cost *estimator.CostReport, plan *models.ConsolidationPlan) Payload {
	payload := Payload{
		Nodes:          make([]string, 0, len(inv.Nodes)),
		Workloads:      make([]string, 0, len(inv.Workloads)),
		PowerDrawWatts: power.TotalWatts(),
		MonthlyCost:    cost.TotalMonthlyCost(),
		Currency:       cost.Currency,
		Plan: PlanPayload{
			NodesPoweredDown: []string{},
			Moves:            []MovePayload{},
		},
	}
	for _, n := range inv.Nodes {
		payload.Nodes = append(payload.Nodes, n.Name)
	}
	for _, w := range inv.Workloads {
		payload.Workloads = append(payload.Workloads, w.Name)
	}
	if plan == nil {
		return payload
	}

	payload.Plan.NodesPoweredDown = append(payload.Plan.NodesPoweredDown, plan.PoweredDownNodes...)
	payload.Plan.SavingsMonthly = plan.EstimatedMonthlySavings
	for _, m := range plan.Moves {
		payload.Plan.Moves = append(payload.Plan.Moves, MovePayload{
			Workload: m.Workload.Name,
			Source:   m.SourceNode,
			Target:   m.TargetNode,
		})
	}
	return payload
}

// Summarize asks the provider for a narrative. On failure it returns a plain
// fallback summary together with the provider error.
func Summarize(ctx context.Context, provider Provider, inv *models.Inventory, power *estimator.PowerReport, cost *estimator.CostReport, plan *models.ConsolidationPlan) (string, error) {
	payload := BuildPayload(inv, power, cost, plan)

	summary, err := provider.Summarize(ctx, payload, Prompt)
	if err != nil {
		return Fallback(payload, err), fmt.Errorf("%s summary failed: %w", provider.Name(), err)
	}
	slog.Debug("generated summary", "provider", provider.Name(), "length", len(summary))
	return summary, nil
}

// Fallback is the summary used when the provider fails
func Fallback(payload Payload, cause error) string {
	consolidate := "no consolidation"
	if len(payload.Plan.NodesPoweredDown) > 0 {
		consolidate = "consolidate nodes " + strings.Join(payload.Plan.NodesPoweredDown, ", ")
	}
	return fmt.Sprintf("AI report unavailable due to error: %v\nFallback summary: %s", cause, consolidate)
}
