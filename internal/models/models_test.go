package models

import (
	"encoding/json"
	"testing"
)

func TestRenderStatusTerminal(t *testing.T) {
	if RenderStatusRendering.Terminal() {
		t.Error("RENDERING must accept further updates")
	}
	if !RenderStatusDone.Terminal() {
		t.Error("DONE is terminal")
	}
	if !RenderStatusFailed.Terminal() {
		t.Error("FAILED is terminal")
	}
}

func TestCompositionTotalDuration(t *testing.T) {
	c := Composition{
		Clips: []Clip{
			{Locator: "a.mp4", StartMs: 500, EndMs: 2500},
			{Locator: "b.mp4", StartMs: 0, EndMs: 3000},
		},
	}
	if got := c.TotalDurationMs(); got != 5000 {
		t.Errorf("total duration = %v, want 5000", got)
	}
}

func TestCompositionJSONRoundTrip(t *testing.T) {
	cut := 1200.0
	c := Composition{
		Clips:    []Clip{{Locator: "a.mp4", StartMs: 0, EndMs: 2000, Volume: 0.8}},
		FilterID: "noir",
		Transitions: []ClipTransition{
			{ID: "t0", Type: "snap-zoom", ClipIndex: 0, DurationFrames: 18, Intensity: 1.0, CutTimeMs: &cut},
		},
		Width:          1080,
		Height:         1920,
		FPS:            30,
		DurationFrames: 60,
	}

	data, err := json.Marshal(c)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var decoded Composition
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}

	if decoded.FilterID != "noir" || len(decoded.Transitions) != 1 {
		t.Errorf("round trip lost fields: %+v", decoded)
	}
	if decoded.Transitions[0].CutTimeMs == nil || *decoded.Transitions[0].CutTimeMs != 1200 {
		t.Errorf("cut anchor lost: %+v", decoded.Transitions[0])
	}
}
