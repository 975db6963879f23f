package render

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
)

// Engine abstracts the headless rendering toolchain so the local backend can
// be exercised in tests without the real binaries.
type Engine interface {
	// BuildBundle produces the compositing bundle and returns its path.
	// Expensive (tens of seconds); results are shared via the bundle cache.
	BuildBundle(ctx context.Context) (string, error)

	// RenderChunk renders frames [startFrame, endFrame) of the composition
	// described by compPath into output.
	RenderChunk(ctx context.Context, bundlePath, compPath string, startFrame, endFrame int, output string) error

	// Stitch concatenates rendered chunks, in order, into output.
	Stitch(ctx context.Context, chunks []string, output string) error
}

// ExecEngine drives the renderer and bundler CLIs.
type ExecEngine struct {
	BundlerBin  string
	RendererBin string
	BundleDir   string
}

func (e *ExecEngine) BuildBundle(ctx context.Context) (string, error) {
	if err := os.MkdirAll(e.BundleDir, 0755); err != nil {
		return "", &BundleBuildError{Err: err}
	}

	cmd := exec.CommandContext(ctx, e.BundlerBin, "--out", e.BundleDir)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return "", &BundleBuildError{Output: truncateOutput(stderr.String()), Err: err}
	}
	return e.BundleDir, nil
}

func (e *ExecEngine) RenderChunk(ctx context.Context, bundlePath, compPath string, startFrame, endFrame int, output string) error {
	cmd := exec.CommandContext(ctx, e.RendererBin,
		"--bundle", bundlePath,
		"--composition", compPath,
		"--frames", strconv.Itoa(startFrame)+"-"+strconv.Itoa(endFrame),
		"--output", output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("renderer failed on frames %d-%d: %w: %s",
			startFrame, endFrame, err, truncateOutput(stderr.String()))
	}
	return nil
}

// Stitch joins the chunks losslessly with the concat demuxer.
func (e *ExecEngine) Stitch(ctx context.Context, chunks []string, output string) error {
	manifest := output + ".concat.txt"

	var sb strings.Builder
	for _, chunk := range chunks {
		fmt.Fprintf(&sb, "file '%s'\n", chunk)
	}
	if err := os.WriteFile(manifest, []byte(sb.String()), 0644); err != nil {
		return fmt.Errorf("failed to write concat manifest: %w", err)
	}
	defer os.Remove(manifest)

	cmd := exec.CommandContext(ctx, "ffmpeg",
		"-f", "concat",
		"-safe", "0",
		"-i", manifest,
		"-c", "copy",
		"-y",
		output,
	)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("stitch failed: %w: %s", err, truncateOutput(stderr.String()))
	}
	return nil
}

func truncateOutput(s string) string {
	const maxLen = 400
	s = strings.TrimSpace(s)
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
