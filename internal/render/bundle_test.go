package render

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestBundleCacheSharesOneBuild(t *testing.T) {
	var cache bundleCache
	var builds atomic.Int64

	build := func(context.Context) (string, error) {
		builds.Add(1)
		time.Sleep(10 * time.Millisecond)
		return "/tmp/bundle", nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			path, err := cache.Get(context.Background(), build)
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if path != "/tmp/bundle" {
				t.Errorf("path = %q", path)
			}
		}()
	}
	wg.Wait()

	if builds.Load() != 1 {
		t.Errorf("builds = %d, concurrent callers must share one build", builds.Load())
	}
}

func TestBundleCacheRetriesAfterFailure(t *testing.T) {
	var cache bundleCache
	var builds atomic.Int64

	failing := func(context.Context) (string, error) {
		builds.Add(1)
		return "", errors.New("bundler crashed")
	}
	if _, err := cache.Get(context.Background(), failing); err == nil {
		t.Fatal("expected the failed build's error")
	}

	// Failures are not cached: the next caller builds again.
	working := func(context.Context) (string, error) {
		builds.Add(1)
		return "/tmp/bundle", nil
	}
	path, err := cache.Get(context.Background(), working)
	if err != nil {
		t.Fatalf("retry failed: %v", err)
	}
	if path != "/tmp/bundle" {
		t.Errorf("path = %q", path)
	}
	if builds.Load() != 2 {
		t.Errorf("builds = %d, want 2", builds.Load())
	}
}

func TestBundleCacheServesCachedPath(t *testing.T) {
	var cache bundleCache
	var builds atomic.Int64

	build := func(context.Context) (string, error) {
		builds.Add(1)
		return "/tmp/bundle", nil
	}

	for i := 0; i < 3; i++ {
		if _, err := cache.Get(context.Background(), build); err != nil {
			t.Fatalf("get %d failed: %v", i, err)
		}
	}
	if builds.Load() != 1 {
		t.Errorf("builds = %d, want 1", builds.Load())
	}
}
