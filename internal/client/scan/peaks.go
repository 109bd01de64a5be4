package scan

import (
	"math"
	"sort"
)

// NoiseFloor approximates the noise floor of a power spectrum as the
// arithmetic mean of all samples.
func NoiseFloor(power []float64) float64 {
	if len(power) == 0 {
		return 0
	}

	sum := 0.0
	for _, p := range power {
		sum += p
	}
	return sum / float64(len(power))
}

// DetectPeaks returns the indices of samples that exceed minHeight, keeping
// only the strongest sample within any minDist window. The result is ordered
// by descending power; ties resolve to the lower index so the suppression is
// deterministic. An empty result is a valid "no peaks this pass" outcome.
func DetectPeaks(power []float64, minHeight float64, minDist int) []int {
	if minDist < 1 {
		minDist = 1
	}

	var candidates []int
	for i, p := range power {
		if p > minHeight {
			candidates = append(candidates, i)
		}
	}

	// Rank by power before suppression so the stronger of two close
	// candidates always wins
	sort.SliceStable(candidates, func(a, b int) bool {
		if power[candidates[a]] != power[candidates[b]] {
			return power[candidates[a]] > power[candidates[b]]
		}
		return candidates[a] < candidates[b]
	})

	var peaks []int
	for _, idx := range candidates {
		suppressed := false
		for _, kept := range peaks {
			if abs(idx-kept) < minDist {
				suppressed = true
				break
			}
		}
		if !suppressed {
			peaks = append(peaks, idx)
		}
	}

	return peaks
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// Quantize rounds a frequency to the nearest multiple of the given step so
// near-duplicate detections collapse onto the same candidate.
func Quantize(freqHz, stepHz float64) float64 {
	if stepHz <= 0 {
		return freqHz
	}
	return math.Round(freqHz/stepHz) * stepHz
}
