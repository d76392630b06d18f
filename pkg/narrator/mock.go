package narrator

import (
	"context"
	"fmt"
	"strings"
)

// MockProvider returns a deterministic summary without calling any service
type MockProvider struct{}

func (m *MockProvider) Name() string {
	return "mock"
}

func (m *MockProvider) Summarize(ctx context.Context, payload Payload, prompt string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	nodes := "none"
	if len(payload.Plan.NodesPoweredDown) > 0 {
		nodes = strings.Join(payload.Plan.NodesPoweredDown, ", ")
	}
	currency := payload.Currency
	if currency == "" {
		currency = "USD"
	}
	return fmt.Sprintf("Mock report:\nPower draw %.2f W with monthly cost %.2f %s.\nNodes to power down: %s.\nPrompt: %s",
		payload.PowerDrawWatts, payload.MonthlyCost, currency, nodes, prompt), nil
}
