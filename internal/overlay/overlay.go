// Package overlay decides what a timed overlay or caption looks like at a
// given playback instant: whether it is active, and the enter/exit animation
// style to apply.
package overlay

import (
	"fmt"

	"github.com/clipforge/clipforge/internal/models"
)

const (
	// Enter/exit animation windows in frames at the project frame rate.
	EnterFrames = 15
	ExitFrames  = 12

	// Caption word emphasis: scale ramps 1 -> highlightTargetScale over
	// highlightRampMs from the word's start, then holds.
	highlightTargetScale = 1.06
	highlightRampMs      = 300.0
)

// Style is the visual state an animation produces for one instant.
// Opacity is nil when the animation leaves it untouched.
type Style struct {
	Opacity   *float64 `json:"opacity,omitempty"`
	Transform string   `json:"transform,omitempty"`
	Filter    string   `json:"filter,omitempty"`
}

func opacity(v float64) *float64 { return &v }

// Active reports whether an overlay with the given window is visible at tMs:
// startMs <= t < startMs + durationMs.
func Active(startMs, durationMs, tMs float64) bool {
	return tMs >= startMs && tMs < startMs+durationMs
}

// CaptionActive reports whether a caption's explicit window contains tMs.
func CaptionActive(c models.Caption, tMs float64) bool {
	return tMs >= c.StartMs && tMs < c.EndMs
}

// EvaluateAt returns the combined animation style of an overlay at tMs.
// The enter window covers the first EnterFrames frames, the exit window the
// last ExitFrames. When the overlay is shorter than both windows combined,
// the phases overlap: opacities multiply and transform/filter strings
// concatenate. Outside both windows the overlay renders fully visible.
func EvaluateAt(enterName, exitName string, startMs, durationMs, tMs float64, fps int) Style {
	if fps <= 0 || !Active(startMs, durationMs, tMs) {
		return Style{}
	}

	frameMs := 1000.0 / float64(fps)
	enterWindowMs := EnterFrames * frameMs
	exitWindowMs := ExitFrames * frameMs
	endMs := startMs + durationMs

	var styles []Style

	if tMs < startMs+enterWindowMs {
		p := clamp01((tMs - startMs) / enterWindowMs)
		if anim, ok := lookup(enterName); ok {
			styles = append(styles, anim.Enter(p))
		}
	}
	if tMs >= endMs-exitWindowMs {
		p := clamp01(1 - (endMs-tMs)/exitWindowMs)
		if anim, ok := lookup(exitName); ok {
			styles = append(styles, anim.Exit(p))
		}
	}

	return combine(styles)
}

// WordEmphasis returns whether a caption word is highlighted at tMs and its
// current emphasis scale.
func WordEmphasis(w models.CaptionWord, tMs float64) (highlighted bool, scale float64) {
	if tMs < w.StartMs || tMs >= w.EndMs {
		return false, 1.0
	}
	ramp := clamp01((tMs - w.StartMs) / highlightRampMs)
	return true, 1.0 + (highlightTargetScale-1.0)*ramp
}

func combine(styles []Style) Style {
	var out Style
	for _, s := range styles {
		if s.Opacity != nil {
			if out.Opacity == nil {
				out.Opacity = opacity(*s.Opacity)
			} else {
				out.Opacity = opacity(*out.Opacity * *s.Opacity)
			}
		}
		out.Transform = joinSpace(out.Transform, s.Transform)
		out.Filter = joinSpace(out.Filter, s.Filter)
	}
	return out
}

func joinSpace(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " " + b
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// translateY produces a vertical slide transform for the given offset in px.
func translateY(px float64) string {
	return fmt.Sprintf("translateY(%.1fpx)", px)
}
