package render

import (
	"errors"
	"fmt"
	"time"
)

// ErrRenderTimeout marks a job that exceeded its wall-clock budget.
var ErrRenderTimeout = errors.New("render exceeded wall-clock budget")

// ErrJobNotFound is returned by JobStore implementations for unknown ids.
var ErrJobNotFound = errors.New("render job not found")

// ThrottleError is a rate or concurrency signal from the render farm. It is
// the only error class retried internally; everything else is fatal.
type ThrottleError struct {
	RetryAfter time.Duration
}

func (e *ThrottleError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("render farm throttled, retry after %v", e.RetryAfter)
	}
	return "render farm throttled"
}

// BundleBuildError is a failed compositing bundle build. Fatal, never
// auto-retried within a job; the next job attempts a fresh build.
type BundleBuildError struct {
	Output string
	Err    error
}

func (e *BundleBuildError) Error() string {
	return fmt.Sprintf("bundle build failed: %v: %s", e.Err, e.Output)
}

func (e *BundleBuildError) Unwrap() error { return e.Err }

// StorageUploadError is non-fatal: the job still reports DONE with its local
// output location and the failure is logged as a warning.
type StorageUploadError struct {
	Err error
}

func (e *StorageUploadError) Error() string {
	return fmt.Sprintf("storage upload failed: %v", e.Err)
}

func (e *StorageUploadError) Unwrap() error { return e.Err }
