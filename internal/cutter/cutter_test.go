package cutter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/clipforge/clipforge/internal/timeline"
)

func TestCutVideoSegmentsRejectsEmptyKeepList(t *testing.T) {
	c := New(t.TempDir())

	err := c.CutVideoSegments(context.Background(), "in.mp4", nil, "out.mp4")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError before any encoder call, got %v", err)
	}
}

func TestCutVideoSegmentsRejectsZeroDurationSegment(t *testing.T) {
	c := New(t.TempDir())

	keep := []timeline.TimeRange{{StartMs: 0, EndMs: 1000}, {StartMs: 2000, EndMs: 2000}}
	err := c.CutVideoSegments(context.Background(), "in.mp4", keep, "out.mp4")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for zero-duration segment, got %v", err)
	}
}

func TestWriteConcatManifest(t *testing.T) {
	dir := t.TempDir()
	manifest := filepath.Join(dir, "concat_list.txt")

	parts := []string{"/tmp/part_000.mp4", "/tmp/part_001.mp4"}
	if err := writeConcatManifest(manifest, parts); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, err := os.ReadFile(manifest)
	if err != nil {
		t.Fatalf("failed to read manifest: %v", err)
	}

	want := "file '/tmp/part_000.mp4'\nfile '/tmp/part_001.mp4'\n"
	if string(data) != want {
		t.Errorf("manifest = %q, want %q", string(data), want)
	}
}

func TestEncodingErrorCarriesDiagnostics(t *testing.T) {
	err := &EncodingError{Detail: "Invalid data found when processing input", Err: errors.New("exit status 1")}

	if !strings.Contains(err.Error(), "Invalid data found") {
		t.Errorf("encoder diagnostics missing from error: %q", err.Error())
	}
	if !strings.Contains(err.Error(), "exit status 1") {
		t.Errorf("exit status missing from error: %q", err.Error())
	}
}

func TestEncodingErrorTruncatesLongDiagnostics(t *testing.T) {
	err := &EncodingError{Detail: strings.Repeat("x", 2000), Err: errors.New("exit status 1")}
	if len(err.Error()) > 600 {
		t.Errorf("diagnostic output not truncated: %d chars", len(err.Error()))
	}
}

func TestFormatSeconds(t *testing.T) {
	tests := []struct {
		ms   float64
		want string
	}{
		{0, "0.000"},
		{1500, "1.500"},
		{123456.789, "123.457"},
	}
	for _, tt := range tests {
		if got := formatSeconds(tt.ms); got != tt.want {
			t.Errorf("formatSeconds(%v) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestCutVideoBufferSegmentsReportsSegmentDuration(t *testing.T) {
	// The buffer variant's duration is pure interval math; verify it without
	// invoking the encoder by checking the helper it delegates to.
	keep := []timeline.TimeRange{{StartMs: 100, EndMs: 600}, {StartMs: 1000, EndMs: 1750}}
	if got := timeline.TotalDuration(keep); got != 1250 {
		t.Errorf("TotalDuration = %v, want 1250", got)
	}
}
