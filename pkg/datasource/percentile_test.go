package datasource

import (
	"math"
	"testing"
	"time"
)

func TestCalculatePercentiles(t *testing.T) {
	samples := make([]Sample, 10)
	for i := 0; i < 10; i++ {
		samples[i] = Sample{Timestamp: time.Now(), Value: float64(10 - i)}
	}

	percentiles, err := CalculatePercentiles(samples)
	if err != nil {
		t.Fatalf("CalculatePercentiles failed: %v", err)
	}

	if percentiles.Average != 5.5 {
		t.Errorf("Expected average 5.5, got %.2f", percentiles.Average)
	}
	if percentiles.Min != 1.0 || percentiles.Peak != 10.0 {
		t.Errorf("Expected min 1 / peak 10, got %.2f / %.2f", percentiles.Min, percentiles.Peak)
	}
	if math.Abs(percentiles.P50-5.5) > 1e-9 {
		t.Errorf("Expected P50 5.5, got %.2f", percentiles.P50)
	}
	if math.Abs(percentiles.P95-9.55) > 1e-9 {
		t.Errorf("Expected P95 9.55, got %.4f", percentiles.P95)
	}
}

func TestCalculatePercentilesEdgeCases(t *testing.T) {
	if _, err := CalculatePercentiles(nil); err == nil {
		t.Error("Expected error for empty samples")
	}

	single, err := CalculatePercentiles([]Sample{{Value: 0.42}})
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if single.P95 != 0.42 || single.P99 != 0.42 {
		t.Errorf("Expected single value for every percentile, got %+v", single)
	}
}
