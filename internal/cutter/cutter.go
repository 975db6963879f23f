// Package cutter physically shortens a clip by extracting the keep segments
// with an external encoder and concatenating them. Pixel-level work is
// delegated to ffmpeg; this package owns segment math, temp-file lifecycle,
// and failure classification.
package cutter

import (
	"bytes"
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/internal/timeline"
)

// extractConcurrency bounds parallel segment extraction per cut.
const extractConcurrency = 4

// EncodingError is a nonzero encoder exit, carrying the tool's diagnostic
// output so failures are debuggable from the job record alone.
type EncodingError struct {
	Detail string
	Err    error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encoder failed: %v: %s", e.Err, truncate(e.Detail, 400))
}

func (e *EncodingError) Unwrap() error { return e.Err }

// ValidationError is a cut rejected before any encoder is invoked.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid cut: " + e.Message
}

type Cutter struct {
	tempDir string
}

func New(tempDir string) *Cutter {
	if err := os.MkdirAll(tempDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create temp dir: %v", err))
	}
	return &Cutter{tempDir: tempDir}
}

// CutVideoSegments extracts the keep segments from input and writes the
// concatenated result to output. A single segment is extracted directly;
// multiple segments are extracted losslessly to a scoped temp directory,
// listed in a concat manifest, and stitched. The temp directory is removed
// on every exit path.
func (c *Cutter) CutVideoSegments(ctx context.Context, input string, keep []timeline.TimeRange, output string) error {
	if len(keep) == 0 {
		return &ValidationError{Message: "no keep segments"}
	}
	for i, seg := range keep {
		if seg.DurationMs() <= 0 {
			return &ValidationError{Message: fmt.Sprintf("segment %d has non-positive duration", i)}
		}
	}

	if len(keep) == 1 {
		return c.extractSegment(ctx, input, keep[0], output)
	}

	workDir, err := os.MkdirTemp(c.tempDir, "cut-*")
	if err != nil {
		return fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	// Extract each keep segment losslessly in parallel.
	parts := make([]string, len(keep))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(extractConcurrency)
	for i, seg := range keep {
		i, seg := i, seg
		parts[i] = filepath.Join(workDir, fmt.Sprintf("part_%03d.mp4", i))
		g.Go(func() error {
			return c.extractSegment(gctx, input, seg, parts[i])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	manifest := filepath.Join(workDir, "concat_list.txt")
	if err := writeConcatManifest(manifest, parts); err != nil {
		return err
	}

	log.Printf("[Cutter] Concatenating %d segments -> %s", len(parts), output)
	return c.run(ctx,
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-y",
		output,
	)
}

// CutVideoBufferSegments is the buffer-oriented variant for non-filesystem
// callers: it stages the buffer, cuts, and reads the result back. The
// returned duration is the sum of the keep segment durations.
func (c *Cutter) CutVideoBufferSegments(ctx context.Context, buffer []byte, keep []timeline.TimeRange, filename string) ([]byte, float64, error) {
	workDir, err := os.MkdirTemp(c.tempDir, "bufcut-*")
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	inputPath := filepath.Join(workDir, filepath.Base(filename))
	if err := os.WriteFile(inputPath, buffer, 0644); err != nil {
		return nil, 0, fmt.Errorf("failed to stage input buffer: %w", err)
	}

	outputPath := filepath.Join(workDir, "cut_"+filepath.Base(filename))
	if err := c.CutVideoSegments(ctx, inputPath, keep, outputPath); err != nil {
		return nil, 0, err
	}

	out, err := os.ReadFile(outputPath)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read cut output: %w", err)
	}

	return out, timeline.TotalDuration(keep), nil
}

// ProbeDurationMs returns a media file's duration in milliseconds via ffprobe.
func (c *Cutter) ProbeDurationMs(ctx context.Context, path string) (float64, error) {
	args := []string{
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	}

	cmd := exec.CommandContext(ctx, "ffprobe", args...)
	output, err := cmd.Output()
	if err != nil {
		return 0, fmt.Errorf("ffprobe failed: %w", err)
	}

	var durationSec float64
	if _, err := fmt.Sscanf(strings.TrimSpace(string(output)), "%f", &durationSec); err != nil {
		return 0, fmt.Errorf("failed to parse duration: %w", err)
	}

	return durationSec * 1000, nil
}

// extractSegment copies one keep segment without re-encoding. -ss before -i
// seeks fast on the keyframe index; stream copy keeps the cut lossless.
func (c *Cutter) extractSegment(ctx context.Context, input string, seg timeline.TimeRange, output string) error {
	log.Printf("[Cutter] Extracting %.0f-%.0fms from %s", seg.StartMs, seg.EndMs, filepath.Base(input))
	return c.run(ctx,
		"-ss", formatSeconds(seg.StartMs),
		"-i", input,
		"-t", formatSeconds(seg.DurationMs()),
		"-c", "copy",
		"-avoid_negative_ts", "make_zero",
		"-y",
		output,
	)
}

// run executes ffmpeg, capturing stderr so a nonzero exit surfaces as an
// EncodingError with the tool's diagnostics.
func (c *Cutter) run(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", args...)

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return &EncodingError{Detail: stderr.String(), Err: err}
	}
	return nil
}

// writeConcatManifest writes the ffmpeg concat demuxer list for the parts.
func writeConcatManifest(path string, parts []string) error {
	var sb strings.Builder
	for _, p := range parts {
		fmt.Fprintf(&sb, "file '%s'\n", p)
	}
	if err := os.WriteFile(path, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	return nil
}

func formatSeconds(ms float64) string {
	return fmt.Sprintf("%.3f", ms/1000.0)
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
