package store

import "sort"

// ThresholdSample is one historical diff-percent observation for a given
// scenario/viewport, fed into ComputeAutoThresholdCaps.
type ThresholdSample struct {
	Key         string // store.TaskKey's scenario::browser::viewport, or a caller-chosen grouping
	DiffPercent float64
}

// AutoThresholdOptions configures the percentile-based cap computation from
// spec.md §7.4.
type AutoThresholdOptions struct {
	// Percentile in [0, 100]; spec.md's worked examples use the 95th.
	Percentile float64 `json:"percentile,omitempty" optional:"true" validate:"omitempty,gte=0,lte=100"`
	// MinSampleSize is the smallest history a group needs before a cap is
	// computed for it at all — too few samples make a percentile noise
	// rather than signal.
	MinSampleSize int `json:"min_sample_size,omitempty" optional:"true" validate:"omitempty,gte=1"`
}

// DefaultAutoThresholdOptions matches spec.md §7.4's defaults.
func DefaultAutoThresholdOptions() AutoThresholdOptions {
	return AutoThresholdOptions{Percentile: 95, MinSampleSize: 10}
}

// ComputeAutoThresholdCaps groups samples by Key and, for every group that
// meets opts.MinSampleSize, computes the configured percentile of its
// diff-percent distribution via linear interpolation between the two
// bracketing order statistics (the same method numpy.percentile's default
// uses), returning a per-key diff-percent cap a future run's diff_threshold
// should never be set below. Groups below MinSampleSize are omitted rather
// than given an unreliable cap.
func ComputeAutoThresholdCaps(samples []ThresholdSample, opts AutoThresholdOptions) map[string]float64 {
	grouped := make(map[string][]float64)
	for _, s := range samples {
		grouped[s.Key] = append(grouped[s.Key], s.DiffPercent)
	}

	caps := make(map[string]float64, len(grouped))
	for key, values := range grouped {
		if len(values) < opts.MinSampleSize {
			continue
		}
		caps[key] = percentile(values, opts.Percentile)
	}
	return caps
}

func percentile(values []float64, p float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)

	if len(sorted) == 1 {
		return sorted[0]
	}
	rank := (p / 100) * float64(len(sorted)-1)
	lower := int(rank)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := rank - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}
