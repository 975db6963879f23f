// Package timeline implements the time-interval algebra used to remove
// silence from a clip and remap dependent timestamps onto the cut timeline.
package timeline

import (
	"errors"
	"sort"
)

// ErrNothingToKeep is returned when the deleted ranges cover the entire
// duration, leaving no media to keep.
var ErrNothingToKeep = errors.New("deleted ranges cover the entire duration, nothing to keep")

// adjacencyEpsilonMs folds ranges whose gap is below encoder frame precision.
const adjacencyEpsilonMs = 1.0

// TimeRange is a half-open [StartMs, EndMs) interval in milliseconds.
type TimeRange struct {
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

// DurationMs returns the range length, never negative.
func (r TimeRange) DurationMs() float64 {
	if r.EndMs <= r.StartMs {
		return 0
	}
	return r.EndMs - r.StartMs
}

// MergeTimeRanges sorts ranges by start and folds adjacent or overlapping
// ranges into one. The result is sorted, pairwise non-overlapping, and its
// union equals the input union. Zero-length ranges are dropped.
func MergeTimeRanges(ranges []TimeRange) []TimeRange {
	if len(ranges) == 0 {
		return nil
	}

	sorted := make([]TimeRange, 0, len(ranges))
	for _, r := range ranges {
		if r.DurationMs() > 0 {
			sorted = append(sorted, r)
		}
	}
	if len(sorted) == 0 {
		return nil
	}

	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].StartMs < sorted[j].StartMs
	})

	merged := []TimeRange{sorted[0]}
	for _, next := range sorted[1:] {
		last := &merged[len(merged)-1]
		if next.StartMs <= last.EndMs+adjacencyEpsilonMs {
			if next.EndMs > last.EndMs {
				last.EndMs = next.EndMs
			}
			continue
		}
		merged = append(merged, next)
	}

	return merged
}

// InvertTimeRanges returns the complement of the deleted ranges within
// [0, totalDurationMs] — the segments to keep after removing silence.
// An empty deleted set keeps the whole duration. If the merged deleted set
// covers the whole duration, ErrNothingToKeep is returned.
func InvertTimeRanges(deleted []TimeRange, totalDurationMs float64) ([]TimeRange, error) {
	merged := MergeTimeRanges(deleted)
	if len(merged) == 0 {
		return []TimeRange{{StartMs: 0, EndMs: totalDurationMs}}, nil
	}

	var keep []TimeRange
	cursor := 0.0
	for _, d := range merged {
		start := d.StartMs
		if start > totalDurationMs {
			start = totalDurationMs
		}
		if start > cursor {
			keep = append(keep, TimeRange{StartMs: cursor, EndMs: start})
		}
		if d.EndMs > cursor {
			cursor = d.EndMs
		}
	}
	if cursor < totalDurationMs {
		keep = append(keep, TimeRange{StartMs: cursor, EndMs: totalDurationMs})
	}

	if len(keep) == 0 {
		return nil, ErrNothingToKeep
	}
	return keep, nil
}

// CalculateAdjustedTime remaps a timestamp from the original timeline onto
// the timeline that results from removing the deleted ranges: t minus the
// cumulative duration of deleted time at or before t. Monotonic
// non-decreasing in t; identity when deleted is empty.
func CalculateAdjustedTime(tMs float64, deleted []TimeRange) float64 {
	removed := 0.0
	for _, d := range MergeTimeRanges(deleted) {
		if d.EndMs <= tMs {
			removed += d.DurationMs()
		} else if d.StartMs < tMs {
			removed += tMs - d.StartMs
		} else {
			break
		}
	}
	adjusted := tMs - removed
	if adjusted < 0 {
		return 0
	}
	return adjusted
}

// TotalDuration sums the durations of the given ranges.
func TotalDuration(ranges []TimeRange) float64 {
	var total float64
	for _, r := range ranges {
		total += r.DurationMs()
	}
	return total
}
