package transitions

import (
	"fmt"
	"sort"

	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/timeline"
)

const (
	// DefaultDurationFrames is the window for auto-generated transitions.
	DefaultDurationFrames = 18

	// Silence-removal cuts scale intensity with the removed duration:
	// longer silence reads as a bigger jump, so it earns a stronger effect.
	shortSilenceMs = 600
	longSilenceMs  = 1500
)

// weightedChoice is one entry of the boundary auto-selection distribution.
type weightedChoice struct {
	t Type
	w uint32
}

// boundaryWeights is dominated by snap-zoom so autogenerated edits keep a
// consistent, punchy look. Weights sum to 100.
var boundaryWeights = []weightedChoice{
	{TypeSnapZoom, 60},
	{TypeFlash, 8},
	{TypeShake, 8},
	{TypeGlitch, 6},
	{TypeSpeedRamp, 5},
	{TypeZoomPunch, 5},
	{TypePanLeft, 4},
	{TypePanRight, 4},
}

// mediumCutPool and heavyCutPool widen the eligible types for silence cuts
// as the removed duration grows.
var (
	mediumCutPool = []Type{TypeSnapZoom, TypeSpeedRamp, TypeFlash}
	heavyCutPool  = []Type{TypeZoomPunch, TypeGlitch, TypeFlash, TypeChannelSplit}
)

// seedMix is an arithmetic hash giving deterministic but well-spread draws
// for identical inputs. Cosmetic randomness only.
func seedMix(a, b uint32) uint32 {
	x := a*2654435761 + b*40503 + 0x9e3779b9
	x ^= x >> 15
	x *= 2246822519
	x ^= x >> 13
	return x
}

func pickWeighted(seed uint32, choices []weightedChoice) Type {
	var total uint32
	for _, c := range choices {
		total += c.w
	}
	r := seed % total
	for _, c := range choices {
		if r < c.w {
			return c.t
		}
		r -= c.w
	}
	return choices[0].t
}

// AutoGenerate produces exactly clipCount-1 transitions, one per boundary,
// with unique clip indexes 0..clipCount-2. The first and last boundary are
// forced to snap-zoom for visual consistency; interior boundaries draw from
// the weighted distribution. Deterministic for a given clipCount.
func AutoGenerate(clipCount int) []models.ClipTransition {
	if clipCount < 2 {
		return nil
	}

	out := make([]models.ClipTransition, 0, clipCount-1)
	for i := 0; i < clipCount-1; i++ {
		t := TypeSnapZoom
		if i != 0 && i != clipCount-2 {
			t = pickWeighted(seedMix(uint32(i), uint32(clipCount)), boundaryWeights)
		}
		out = append(out, models.ClipTransition{
			ID:             fmt.Sprintf("auto-%d", i),
			Type:           string(t),
			ClipIndex:      i,
			DurationFrames: DefaultDurationFrames,
			Intensity:      1.0,
		})
	}
	return out
}

// ForSilenceCut builds a transition anchored to an internal silence cut.
// Both the type pool and the intensity scale with the removed duration.
func ForSilenceCut(clipIndex int, cutTimeMs, removedMs float64) models.ClipTransition {
	var (
		t         Type
		intensity float64
	)
	seed := seedMix(uint32(cutTimeMs), uint32(removedMs))

	switch {
	case removedMs < shortSilenceMs:
		t = TypeSnapZoom
		intensity = 0.6
	case removedMs < longSilenceMs:
		t = mediumCutPool[seed%uint32(len(mediumCutPool))]
		intensity = 1.0
	default:
		t = heavyCutPool[seed%uint32(len(heavyCutPool))]
		intensity = 1.4
	}

	cut := cutTimeMs
	return models.ClipTransition{
		ID:             fmt.Sprintf("cut-%d", int(cutTimeMs)),
		Type:           string(t),
		ClipIndex:      clipIndex,
		DurationFrames: DefaultDurationFrames,
		Intensity:      intensity,
		CutTimeMs:      &cut,
	}
}

// SuggestForKeepSegments proposes cut-anchored transitions for the internal
// gaps removed between keep segments. Cut times are positions on the
// shortened clip's timeline.
func SuggestForKeepSegments(clipIndex int, keep []timeline.TimeRange) []models.ClipTransition {
	merged := timeline.MergeTimeRanges(keep)
	if len(merged) < 2 {
		return nil
	}

	// Every removed range shifts later cuts left on the output timeline.
	deleted := make([]timeline.TimeRange, 0, len(merged))
	if merged[0].StartMs > 0 {
		deleted = append(deleted, timeline.TimeRange{StartMs: 0, EndMs: merged[0].StartMs})
	}
	for i := 0; i < len(merged)-1; i++ {
		deleted = append(deleted, timeline.TimeRange{StartMs: merged[i].EndMs, EndMs: merged[i+1].StartMs})
	}

	out := make([]models.ClipTransition, 0, len(merged)-1)
	for i := 0; i < len(merged)-1; i++ {
		gap := timeline.TimeRange{StartMs: merged[i].EndMs, EndMs: merged[i+1].StartMs}
		cut := timeline.CalculateAdjustedTime(gap.StartMs, deleted)
		out = append(out, ForSilenceCut(clipIndex, cut, gap.DurationMs()))
	}
	return out
}

// Validate normalizes a transition list for a composition of clipCount
// clips: drops unknown types and out-of-range clip indexes, removes
// duplicate claims on the same boundary (first wins; silence-cut anchored
// transitions never collide with boundary ones), and sorts by clip index.
func Validate(ts []models.ClipTransition, clipCount int) []models.ClipTransition {
	claimed := make(map[int]bool)
	valid := make([]models.ClipTransition, 0, len(ts))

	for _, tr := range ts {
		if !Known(Type(tr.Type)) {
			continue
		}
		// Boundary transitions index a clip pair; cut-anchored ones index
		// the clip containing the cut, which may be the last clip.
		maxIndex := clipCount - 2
		if tr.CutTimeMs != nil {
			maxIndex = clipCount - 1
		}
		if tr.ClipIndex < 0 || tr.ClipIndex > maxIndex {
			continue
		}
		if tr.CutTimeMs == nil {
			if claimed[tr.ClipIndex] {
				continue
			}
			claimed[tr.ClipIndex] = true
		}
		valid = append(valid, tr)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].ClipIndex < valid[j].ClipIndex
	})
	return valid
}
