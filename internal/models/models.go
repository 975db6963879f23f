package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/clipforge/clipforge/internal/timeline"
)

// RenderStatus is the lifecycle state of one export job.
// RENDERING is the only non-terminal state; DONE and FAILED are final.
type RenderStatus string

const (
	RenderStatusRendering RenderStatus = "RENDERING"
	RenderStatusDone      RenderStatus = "DONE"
	RenderStatusFailed    RenderStatus = "FAILED"
)

// Terminal reports whether a status accepts no further updates.
func (s RenderStatus) Terminal() bool {
	return s == RenderStatusDone || s == RenderStatusFailed
}

// Position is an overlay anchor in percent of the output frame.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Clip is a contiguous source segment placed on the timeline.
// StartMs/EndMs address the source media; the timeline position is implied
// by the clip's index in the composition.
type Clip struct {
	Locator string  `json:"locator"` // local path or URL
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
	Volume  float64 `json:"volume"`
}

// DurationMs is the clip's length on the composition timeline.
func (c Clip) DurationMs() float64 {
	return c.EndMs - c.StartMs
}

type TextOverlay struct {
	ID             string   `json:"id"`
	Content        string   `json:"content"`
	TemplateID     string   `json:"template_id"`
	EnterAnimation string   `json:"enter_animation"`
	ExitAnimation  string   `json:"exit_animation"`
	Position       Position `json:"position"`
	StartMs        float64  `json:"start_ms"`
	DurationMs     float64  `json:"duration_ms"`
}

type StickerOverlay struct {
	ID         string   `json:"id"`
	StickerID  string   `json:"sticker_id"`
	Position   Position `json:"position"`
	StartMs    float64  `json:"start_ms"`
	DurationMs float64  `json:"duration_ms"`
	Scale      float64  `json:"scale"`
}

// CaptionWord is one word of a transcript with its own timing, used for
// per-word highlight in burned-in captions.
type CaptionWord struct {
	Word    string  `json:"word"`
	StartMs float64 `json:"start_ms"`
	EndMs   float64 `json:"end_ms"`
}

type Caption struct {
	StartMs float64       `json:"start_ms"`
	EndMs   float64       `json:"end_ms"`
	Words   []CaptionWord `json:"words"`
}

// ClipTransition is a short effect anchored either to the boundary after
// clip ClipIndex (CutTimeMs nil) or to an internal silence cut (CutTimeMs
// set, in composition-timeline milliseconds).
type ClipTransition struct {
	ID             string   `json:"id"`
	Type           string   `json:"type"`
	ClipIndex      int      `json:"clip_index"`
	DurationFrames int      `json:"duration_frames"`
	Intensity      float64  `json:"intensity"`
	CutTimeMs      *float64 `json:"cut_time_ms,omitempty"`
}

// Composition is the immutable per-render snapshot handed to the core by the
// editing session. It is evaluated once per frame by the headless renderer.
type Composition struct {
	Clips           []Clip           `json:"clips"`
	TextOverlays    []TextOverlay    `json:"text_overlays,omitempty"`
	StickerOverlays []StickerOverlay `json:"sticker_overlays,omitempty"`
	Captions        []Caption        `json:"captions,omitempty"`
	FilterID        string           `json:"filter_id,omitempty"`
	Transitions     []ClipTransition `json:"transitions,omitempty"`
	Width           int              `json:"width"`
	Height          int              `json:"height"`
	FPS             int              `json:"fps"`
	DurationFrames  int              `json:"duration_frames"`
}

// TotalDurationMs is the sum of the placed clips' timeline durations.
func (c *Composition) TotalDurationMs() float64 {
	var total float64
	for _, clip := range c.Clips {
		total += clip.DurationMs()
	}
	return total
}

// RenderJob is the durable status record polled by the UI layer.
// Created at render start, mutated only by the orchestrator, terminal once
// DONE or FAILED.
type RenderJob struct {
	ID           uuid.UUID    `json:"id"`
	UserID       *uuid.UUID   `json:"user_id,omitempty"`
	Status       RenderStatus `json:"status"`
	Progress     int          `json:"progress"` // 0-100
	OutputURL    *string      `json:"output_url,omitempty"`
	RemoteURL    *string      `json:"remote_url,omitempty"`
	SizeBytes    *int64       `json:"size_bytes,omitempty"`
	ErrorMessage *string      `json:"error_message,omitempty"`
	Timestamp    time.Time    `json:"timestamp"`
}

// DTOs for API requests and responses.

type CreateRenderRequest struct {
	Composition Composition `json:"composition"`
	UserID      *uuid.UUID  `json:"user_id,omitempty"`
	JobID       *uuid.UUID  `json:"job_id,omitempty"` // caller-supplied id, generated when absent
}

type CreateRenderResponse struct {
	JobID  uuid.UUID    `json:"job_id"`
	Status RenderStatus `json:"status"`
}

type CutClipRequest struct {
	Input        string               `json:"input"`
	Output       string               `json:"output"`
	KeepSegments []timeline.TimeRange `json:"keep_segments"`
	ClipIndex    int                  `json:"clip_index"` // position of the clip on the composition timeline
}

type CutClipResponse struct {
	Output     string  `json:"output"`
	DurationMs float64 `json:"duration_ms"`

	// Transitions are suggested cut-anchored transitions, one per removed
	// internal gap, positioned on the shortened timeline.
	Transitions []ClipTransition `json:"transitions,omitempty"`
}
