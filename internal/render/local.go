package render

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/clipforge/clipforge/internal/models"
	"github.com/clipforge/clipforge/internal/storage"
)

const (
	// Frames per renderer invocation. Small enough for useful progress,
	// large enough to amortize renderer startup.
	chunkFrames = 150

	// Engine progress maps into 15-100; 0-15 is reserved for setup.
	localProgressFloor = 15
)

// LocalBackend renders on this host with a bounded worker pool and a shared
// compositing bundle.
type LocalBackend struct {
	engine  Engine
	store   *storage.Storage // nil disables uploads
	bundles bundleCache
	outDir  string
	tempDir string
	workers int
}

func NewLocalBackend(engine Engine, store *storage.Storage, outDir, tempDir string) *LocalBackend {
	if err := os.MkdirAll(outDir, 0755); err != nil {
		panic(fmt.Sprintf("failed to create output dir: %v", err))
	}
	return &LocalBackend{
		engine:  engine,
		store:   store,
		outDir:  outDir,
		tempDir: tempDir,
		workers: localWorkerCount(),
	}
}

// Render renders the composition to a local file and uploads it when storage
// is configured. Per-job temporary source inputs are removed on every
// outcome.
func (b *LocalBackend) Render(ctx context.Context, jobID uuid.UUID, comp *models.Composition, progress func(int)) (result *Result, err error) {
	defer b.cleanupInputs(comp)

	progress(5)

	bundlePath, err := b.bundles.Get(ctx, b.engine.BuildBundle)
	if err != nil {
		return nil, err
	}
	progress(localProgressFloor)

	workDir, err := os.MkdirTemp(b.tempDir, "render-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create work dir: %w", err)
	}
	defer os.RemoveAll(workDir)

	compPath := filepath.Join(workDir, "composition.json")
	compData, err := json.Marshal(comp)
	if err != nil {
		return nil, fmt.Errorf("failed to encode composition: %w", err)
	}
	if err := os.WriteFile(compPath, compData, 0644); err != nil {
		return nil, fmt.Errorf("failed to write composition: %w", err)
	}

	chunks, err := b.renderChunks(ctx, bundlePath, compPath, comp.DurationFrames, workDir, progress)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(b.outDir, jobID.String()+".mp4")
	if err := b.engine.Stitch(ctx, chunks, outputPath); err != nil {
		return nil, err
	}

	info, err := os.Stat(outputPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat output: %w", err)
	}

	result = &Result{OutputURL: outputPath, SizeBytes: info.Size()}

	if b.store != nil {
		objectPath := b.store.JobPath(jobID, "output.mp4")
		if uploadErr := b.store.UploadFile(ctx, objectPath, outputPath, "video/mp4"); uploadErr != nil {
			// Non-fatal: the job still completes with its local output.
			log.Printf("[Render] Warning: %v", &StorageUploadError{Err: uploadErr})
		} else {
			remote := b.store.GetPublicURL(objectPath)
			result.RemoteURL = &remote
			os.Remove(outputPath)
			result.OutputURL = remote
		}
	}

	progress(100)
	return result, nil
}

// renderChunks splits the frame range into chunks and renders them with a
// bounded pool. Progress is reported as chunks complete, rescaled into the
// 15-100 range.
func (b *LocalBackend) renderChunks(ctx context.Context, bundlePath, compPath string, totalFrames int, workDir string, progress func(int)) ([]string, error) {
	chunkCount := (totalFrames + chunkFrames - 1) / chunkFrames
	chunks := make([]string, chunkCount)

	var done atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)

	for i := 0; i < chunkCount; i++ {
		i := i
		start := i * chunkFrames
		end := start + chunkFrames
		if end > totalFrames {
			end = totalFrames
		}
		chunks[i] = filepath.Join(workDir, fmt.Sprintf("chunk_%04d.mp4", i))

		g.Go(func() error {
			if err := b.engine.RenderChunk(gctx, bundlePath, compPath, start, end, chunks[i]); err != nil {
				return err
			}
			framesDone := done.Add(int64(end - start))
			progress(localProgressFloor + int(float64(100-localProgressFloor)*float64(framesDone)/float64(totalFrames)))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return chunks, nil
}

// cleanupInputs removes per-job temporary source inputs. Remote locators
// under the bucket's tmp/ prefix are deleted from storage; local paths under
// the temp dir are removed from disk. Named user assets are never touched.
func (b *LocalBackend) cleanupInputs(comp *models.Composition) {
	ctx := context.Background()
	for _, clip := range comp.Clips {
		loc := clip.Locator

		if b.store != nil {
			if objectPath, ok := b.store.ObjectPathFromPublicURL(loc); ok {
				if strings.HasPrefix(objectPath, "tmp/") {
					if err := b.store.Delete(ctx, objectPath); err != nil {
						log.Printf("[Render] Warning: failed to delete temp input %s: %v", objectPath, err)
					}
				}
				continue
			}
		}

		if b.tempDir != "" && strings.HasPrefix(loc, b.tempDir+string(os.PathSeparator)) {
			if err := os.Remove(loc); err != nil && !os.IsNotExist(err) {
				log.Printf("[Render] Warning: failed to delete temp input %s: %v", loc, err)
			}
		}
	}
}

// localWorkerCount bounds frame-rendering parallelism to [2, min(NumCPU-1, 8)].
func localWorkerCount() int {
	n := runtime.NumCPU() - 1
	if n < 2 {
		n = 2
	}
	if n > 8 {
		n = 8
	}
	return n
}
