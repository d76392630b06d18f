package datasource

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Sample is one point of a time series
type Sample struct {
	Timestamp time.Time
	Value     float64
}

// Percentiles summarizes a series
type Percentiles struct {
	Average float64
	P50     float64
	P90     float64
	P95     float64
	P99     float64
	Peak    float64
	Min     float64
}

// CalculatePercentiles computes P50, P90, P95, P99, and peak from samples
func CalculatePercentiles(samples []Sample) (*Percentiles, error) {
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples provided")
	}

	values := make([]float64, len(samples))
	for i, sample := range samples {
		values[i] = sample.Value
	}
	sort.Float64s(values)

	return &Percentiles{
		Average: calculateAverage(values),
		P50:     calculatePercentile(values, 50),
		P90:     calculatePercentile(values, 90),
		P95:     calculatePercentile(values, 95),
		P99:     calculatePercentile(values, 99),
		Peak:    values[len(values)-1],
		Min:     values[0],
	}, nil
}

// calculatePercentile computes the Nth percentile of sorted values using linear
// interpolation between the closest ranks
func calculatePercentile(sortedValues []float64, percentile float64) float64 {
	if len(sortedValues) == 0 {
		return 0
	}
	if len(sortedValues) == 1 {
		return sortedValues[0]
	}

	n := float64(len(sortedValues))
	rank := (percentile / 100.0) * (n - 1)

	lowerIndex := int(math.Floor(rank))
	upperIndex := int(math.Ceil(rank))
	if lowerIndex == upperIndex {
		return sortedValues[lowerIndex]
	}

	lowerValue := sortedValues[lowerIndex]
	upperValue := sortedValues[upperIndex]
	fraction := rank - float64(lowerIndex)

	return lowerValue + (upperValue-lowerValue)*fraction
}

func calculateAverage(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
