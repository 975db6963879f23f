// Package compositor assembles a composition snapshot into per-frame render
// descriptions for the headless rendering engine. It decides which clip is
// visible, composes the base filter with any active transition, and resolves
// overlay and caption animation state. It never touches pixels.
package compositor

import (
	"fmt"
	"math"

	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/overlay"
	"github.com/clipforge/clipforge/internal/transitions"
)

const (
	MaxTextOverlays    = 5
	MaxStickerOverlays = 10
)

// ValidationError reports a composition rejected before any rendering work.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid composition: %s: %s", e.Field, e.Message)
}

// ActiveText is a text overlay visible at the evaluated frame with its
// resolved animation style.
type ActiveText struct {
	Overlay models.TextOverlay `json:"overlay"`
	Style   overlay.Style      `json:"style"`
}

type ActiveSticker struct {
	Overlay models.StickerOverlay `json:"overlay"`
	Style   overlay.Style         `json:"style"`
}

// ActiveWord carries the per-word highlight state of a visible caption.
type ActiveWord struct {
	Word        models.CaptionWord `json:"word"`
	Highlighted bool               `json:"highlighted"`
	Scale       float64            `json:"scale"`
}

type ActiveCaption struct {
	Caption models.Caption `json:"caption"`
	Words   []ActiveWord   `json:"words"`
}

// RenderFrame is the full render description for one frame, consumed by the
// external rendering engine.
type RenderFrame struct {
	Frame  int     `json:"frame"`
	TimeMs float64 `json:"time_ms"`

	ClipIndex    int     `json:"clip_index"`
	ClipSourceMs float64 `json:"clip_source_ms"`
	ClipVolume   float64 `json:"clip_volume"`

	Transform string  `json:"transform,omitempty"`
	Filter    string  `json:"filter,omitempty"`
	Opacity   float64 `json:"opacity"`

	TransitionOverlay *transitions.OverlayEffect `json:"transition_overlay,omitempty"`

	Texts    []ActiveText    `json:"texts,omitempty"`
	Stickers []ActiveSticker `json:"stickers,omitempty"`
	Captions []ActiveCaption `json:"captions,omitempty"`
}

// ValidateComposition enforces the structural invariants a composition must
// satisfy before a render is accepted. Violations surface as 400s at the API
// boundary, never as encoder failures.
func ValidateComposition(comp *models.Composition) error {
	if len(comp.Clips) == 0 {
		return &ValidationError{Field: "clips", Message: "at least one clip is required"}
	}
	if comp.FPS <= 0 {
		return &ValidationError{Field: "fps", Message: "must be positive"}
	}
	if comp.Width <= 0 || comp.Height <= 0 {
		return &ValidationError{Field: "dimensions", Message: "width and height must be positive"}
	}
	if comp.DurationFrames <= 0 {
		return &ValidationError{Field: "duration_frames", Message: "must be positive"}
	}
	if len(comp.TextOverlays) > MaxTextOverlays {
		return &ValidationError{Field: "text_overlays", Message: fmt.Sprintf("at most %d allowed", MaxTextOverlays)}
	}
	if len(comp.StickerOverlays) > MaxStickerOverlays {
		return &ValidationError{Field: "sticker_overlays", Message: fmt.Sprintf("at most %d allowed", MaxStickerOverlays)}
	}
	for i, clip := range comp.Clips {
		if clip.Locator == "" {
			return &ValidationError{Field: "clips", Message: fmt.Sprintf("clip %d has no locator", i)}
		}
		if clip.EndMs <= clip.StartMs {
			return &ValidationError{Field: "clips", Message: fmt.Sprintf("clip %d has non-positive duration", i)}
		}
	}
	return nil
}

// Assembler evaluates one composition frame by frame. Validation and
// transition normalization happen once at construction, so the per-frame
// path does no filtering or sorting.
type Assembler struct {
	comp        *models.Composition
	transitions []models.ClipTransition
	centers     []int // window center frame per normalized transition
}

func NewAssembler(comp *models.Composition) (*Assembler, error) {
	if err := ValidateComposition(comp); err != nil {
		return nil, err
	}

	a := &Assembler{
		comp:        comp,
		transitions: transitions.Validate(comp.Transitions, len(comp.Clips)),
	}
	a.centers = make([]int, len(a.transitions))
	for i, tr := range a.transitions {
		center := boundaryFrame(comp, tr.ClipIndex)
		if tr.CutTimeMs != nil {
			center = int(math.Round(*tr.CutTimeMs * float64(comp.FPS) / 1000.0))
		}
		a.centers[i] = center
	}
	return a, nil
}

// FrameState evaluates the composition at one frame. Pure: identical inputs
// produce identical descriptions.
func FrameState(comp *models.Composition, frame int) (*RenderFrame, error) {
	a, err := NewAssembler(comp)
	if err != nil {
		return nil, err
	}
	return a.FrameState(frame), nil
}

// FrameState evaluates the assembler's composition at one frame.
func (a *Assembler) FrameState(frame int) *RenderFrame {
	comp := a.comp

	frameMs := 1000.0 / float64(comp.FPS)
	tMs := float64(frame) * frameMs

	clipIndex, sourceMs := activeClip(comp, tMs)

	rf := &RenderFrame{
		Frame:        frame,
		TimeMs:       tMs,
		ClipIndex:    clipIndex,
		ClipSourceMs: sourceMs,
		ClipVolume:   comp.Clips[clipIndex].Volume,
		Filter:       LookupFilter(comp.FilterID).CSS,
		Opacity:      1.0,
	}

	// Compose the active transition, if any, on top of the base look.
	if tr, localFrame, ok := a.activeTransition(frame); ok {
		if def, known := transitions.Lookup(transitions.Type(tr.Type)); known {
			effect := def.Apply(localFrame, tr.DurationFrames, tr.Intensity)
			rf.Transform = effect.Transform
			rf.Filter = joinSpace(rf.Filter, effect.Filter)
			if effect.Opacity != nil {
				rf.Opacity = *effect.Opacity
			}
			if def.Overlay != nil {
				rf.TransitionOverlay = def.Overlay(localFrame, tr.DurationFrames, tr.Intensity)
			}
		}
	}

	for _, text := range comp.TextOverlays {
		if !overlay.Active(text.StartMs, text.DurationMs, tMs) {
			continue
		}
		rf.Texts = append(rf.Texts, ActiveText{
			Overlay: text,
			Style:   overlay.EvaluateAt(text.EnterAnimation, text.ExitAnimation, text.StartMs, text.DurationMs, tMs, comp.FPS),
		})
	}

	for _, sticker := range comp.StickerOverlays {
		if !overlay.Active(sticker.StartMs, sticker.DurationMs, tMs) {
			continue
		}
		// Stickers share the default pop-in treatment.
		rf.Stickers = append(rf.Stickers, ActiveSticker{
			Overlay: sticker,
			Style:   overlay.EvaluateAt("pop", "fade", sticker.StartMs, sticker.DurationMs, tMs, comp.FPS),
		})
	}

	for _, caption := range comp.Captions {
		if !overlay.CaptionActive(caption, tMs) {
			continue
		}
		ac := ActiveCaption{Caption: caption}
		for _, w := range caption.Words {
			highlighted, scale := overlay.WordEmphasis(w, tMs)
			ac.Words = append(ac.Words, ActiveWord{Word: w, Highlighted: highlighted, Scale: scale})
		}
		rf.Captions = append(rf.Captions, ac)
	}

	return rf
}

// activeClip maps a composition-timeline instant to the visible clip and its
// source timestamp. Times past the last clip clamp to its final instant.
func activeClip(comp *models.Composition, tMs float64) (int, float64) {
	cursor := 0.0
	for i, clip := range comp.Clips {
		end := cursor + clip.DurationMs()
		if tMs < end || i == len(comp.Clips)-1 {
			offset := tMs - cursor
			if offset < 0 {
				offset = 0
			}
			if offset > clip.DurationMs() {
				offset = clip.DurationMs()
			}
			return i, clip.StartMs + offset
		}
		cursor = end
	}
	return 0, comp.Clips[0].StartMs
}

// boundaryFrame returns the frame of the midpoint between clip clipIndex and
// its successor on the composition timeline.
func boundaryFrame(comp *models.Composition, clipIndex int) int {
	cursor := 0.0
	for i := 0; i <= clipIndex && i < len(comp.Clips); i++ {
		cursor += comp.Clips[i].DurationMs()
	}
	return int(math.Round(cursor * float64(comp.FPS) / 1000.0))
}

// activeTransition selects the transition governing this frame. A window is
// [center - D/2, center + D/2). When windows overlap, the transition whose
// center is nearest the frame wins; ties fall back to the lowest clip index.
// At most one transition is evaluated per frame.
func (a *Assembler) activeTransition(frame int) (models.ClipTransition, int, bool) {
	var (
		best       models.ClipTransition
		bestCenter int
		bestDist   = math.MaxFloat64
		found      bool
	)

	for i, tr := range a.transitions {
		center := a.centers[i]

		half := tr.DurationFrames / 2
		if frame < center-half || frame >= center+half+tr.DurationFrames%2 {
			continue
		}

		dist := math.Abs(float64(frame - center))
		if !found || dist < bestDist {
			best = tr
			bestCenter = center
			bestDist = dist
			found = true
		}
	}

	if !found {
		return models.ClipTransition{}, 0, false
	}
	return best, frame - (bestCenter - best.DurationFrames/2), true
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
