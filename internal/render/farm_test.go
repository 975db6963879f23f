package render

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

func newTestFarm(t *testing.T, handler http.HandlerFunc) (*FarmBackend, *[]time.Duration) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	f := NewFarmBackend(server.URL, "test-key")
	f.limiter = rate.NewLimiter(rate.Inf, 0)

	var sleeps []time.Duration
	f.sleep = func(_ context.Context, d time.Duration) error {
		sleeps = append(sleeps, d)
		return nil
	}
	return f, &sleeps
}

func TestSubmitThrottleBacksOffThenFails(t *testing.T) {
	attempts := 0
	f, sleeps := newTestFarm(t, func(w http.ResponseWriter, r *http.Request) {
		attempts++
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := f.Render(context.Background(), uuid.New(), testComp(), func(int) {})
	if err == nil {
		t.Fatal("expected a fatal error after repeated throttling")
	}
	if !strings.Contains(err.Error(), "throttled") {
		t.Errorf("error should report throttling: %v", err)
	}
	if attempts != farmSubmitAttempts {
		t.Errorf("attempts = %d, want %d", attempts, farmSubmitAttempts)
	}

	// Delays double from the base between attempts.
	want := []time.Duration{2 * time.Second, 4 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], d)
		}
	}
}

func TestPollThrottleDoublesIntervalAndResets(t *testing.T) {
	polls := 0
	f, sleeps := newTestFarm(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			w.WriteHeader(http.StatusAccepted)
			fmt.Fprint(w, `{"id":"farm-1"}`)
			return
		}

		polls++
		switch polls {
		case 1:
			fmt.Fprint(w, `{"status":"running","progress":0.5}`)
		case 2, 3:
			w.WriteHeader(http.StatusTooManyRequests)
		case 4:
			// A successful poll resets the interval to the base.
			fmt.Fprint(w, `{"status":"running","progress":0.9}`)
		default:
			fmt.Fprint(w, `{"status":"done","output_url":"https://farm/out.mp4","size_bytes":42}`)
		}
	})

	var progresses []int
	result, err := f.Render(context.Background(), uuid.New(), testComp(), func(p int) {
		progresses = append(progresses, p)
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.OutputURL != "https://farm/out.mp4" || result.SizeBytes != 42 {
		t.Errorf("result = %+v", result)
	}
	if result.RemoteURL == nil || *result.RemoteURL != result.OutputURL {
		t.Errorf("farm outputs are remote: %+v", result)
	}

	// Poll sleeps: base, base (then throttled), doubled, doubled again,
	// then back to base after the successful poll.
	want := []time.Duration{2 * time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 2 * time.Second}
	if len(*sleeps) != len(want) {
		t.Fatalf("sleeps = %v, want %v", *sleeps, want)
	}
	for i, d := range want {
		if (*sleeps)[i] != d {
			t.Errorf("sleep %d = %v, want %v", i, (*sleeps)[i], d)
		}
	}

	// Fractional farm progress is rescaled into 5-100.
	wantProgress := []int{5, 52, 90}
	if len(progresses) != len(wantProgress) {
		t.Fatalf("progresses = %v, want %v", progresses, wantProgress)
	}
	for i, p := range wantProgress {
		if progresses[i] != p {
			t.Errorf("progress %d = %d, want %d", i, progresses[i], p)
		}
	}
}

func TestPollFailurePropagatesMessage(t *testing.T) {
	f, _ := newTestFarm(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"id":"farm-2"}`)
			return
		}
		fmt.Fprint(w, `{"status":"failed","error":"out of disk"}`)
	})

	_, err := f.Render(context.Background(), uuid.New(), testComp(), func(int) {})
	if err == nil || !strings.Contains(err.Error(), "out of disk") {
		t.Errorf("farm failure message not propagated: %v", err)
	}
}

func TestPollThrottleLimitIsFatal(t *testing.T) {
	f, _ := newTestFarm(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == "POST" {
			fmt.Fprint(w, `{"id":"farm-3"}`)
			return
		}
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := f.Render(context.Background(), uuid.New(), testComp(), func(int) {})
	if err == nil || !strings.Contains(err.Error(), "consecutive") {
		t.Errorf("expected a fatal error after consecutive poll throttles: %v", err)
	}
}
