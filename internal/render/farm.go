package render

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/clipforge/clipforge/internal/models"
)

const (
	// Submission throttles are retried with delays doubling from the base;
	// the attempt after the last retry failing is fatal.
	farmSubmitAttempts  = 3
	farmSubmitBaseDelay = 2 * time.Second

	// Poll interval backs off exponentially on throttle responses and
	// resets to the base after any successful poll.
	farmPollBaseInterval = 2 * time.Second
	farmPollMaxInterval  = 30 * time.Second
	farmMaxPollThrottles = 5

	// Farm progress maps into 5-100; 0-5 is reserved for submission.
	farmProgressFloor = 5
)

// FarmBackend submits jobs to a render farm and polls them to completion.
// Follows a deferred request pattern: submit job, poll by id, report the
// output descriptor.
type FarmBackend struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter

	// sleep is replaceable so backoff schedules can be observed in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

func NewFarmBackend(baseURL, apiKey string) *FarmBackend {
	return &FarmBackend{
		baseURL: baseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 30 * time.Second, // per HTTP call, not the full poll cycle
		},
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
		sleep:   sleepContext,
	}
}

type farmSubmitRequest struct {
	JobID       uuid.UUID          `json:"job_id"`
	Composition models.Composition `json:"composition"`
}

type farmSubmitResponse struct {
	ID string `json:"id"`
}

// farmJobResult is the poll response.
//   - Running: {"status":"running","progress":0.42}
//   - Done: {"status":"done","output_url":"...","size_bytes":123}
//   - Failed: {"status":"failed","error":"..."}
type farmJobResult struct {
	Status    string  `json:"status"`
	Progress  float64 `json:"progress"`
	OutputURL string  `json:"output_url,omitempty"`
	SizeBytes int64   `json:"size_bytes,omitempty"`
	Error     string  `json:"error,omitempty"`
}

func (f *FarmBackend) Render(ctx context.Context, jobID uuid.UUID, comp *models.Composition, progress func(int)) (*Result, error) {
	remoteID, err := f.submitWithRetry(ctx, jobID, comp)
	if err != nil {
		return nil, err
	}
	progress(farmProgressFloor)

	log.Printf("[Farm] Job %s submitted as %s, polling...", jobID, remoteID)
	return f.pollToCompletion(ctx, remoteID, progress)
}

// submitWithRetry retries throttled submissions with delays doubling from
// the base; any other error is fatal immediately.
func (f *FarmBackend) submitWithRetry(ctx context.Context, jobID uuid.UUID, comp *models.Composition) (string, error) {
	delay := farmSubmitBaseDelay

	for attempt := 1; ; attempt++ {
		remoteID, err := f.submit(ctx, jobID, comp)
		if err == nil {
			return remoteID, nil
		}

		var throttle *ThrottleError
		if !errors.As(err, &throttle) {
			return "", err
		}
		if attempt >= farmSubmitAttempts {
			return "", fmt.Errorf("farm submission throttled %d times: %w", attempt, err)
		}

		log.Printf("[Farm] Submission throttled (attempt %d/%d), retrying in %v", attempt, farmSubmitAttempts, delay)
		if err := f.sleep(ctx, delay); err != nil {
			return "", err
		}
		delay *= 2
	}
}

func (f *FarmBackend) submit(ctx context.Context, jobID uuid.UUID, comp *models.Composition) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("submission cancelled: %w", err)
	}

	body, err := json.Marshal(farmSubmitRequest{JobID: jobID, Composition: *comp})
	if err != nil {
		return "", fmt.Errorf("failed to marshal submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", f.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submission failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read submission response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return "", &ThrottleError{}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return "", fmt.Errorf("farm returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var submitResp farmSubmitResponse
	if err := json.Unmarshal(respBody, &submitResp); err != nil {
		return "", fmt.Errorf("failed to parse submission response: %w (body: %s)", err, string(respBody))
	}
	if submitResp.ID == "" {
		return "", fmt.Errorf("no id in submission response: %s", string(respBody))
	}
	return submitResp.ID, nil
}

// pollToCompletion polls until the farm reports a terminal state. A throttle
// response doubles the interval up to the cap; a successful poll resets it.
func (f *FarmBackend) pollToCompletion(ctx context.Context, remoteID string, progress func(int)) (*Result, error) {
	interval := farmPollBaseInterval
	consecutiveThrottles := 0

	for pollCount := 1; ; pollCount++ {
		if err := f.sleep(ctx, interval); err != nil {
			return nil, fmt.Errorf("render cancelled: %w", err)
		}

		result, err := f.getJob(ctx, remoteID)
		if err != nil {
			var throttle *ThrottleError
			if !errors.As(err, &throttle) {
				return nil, err
			}

			consecutiveThrottles++
			if consecutiveThrottles > farmMaxPollThrottles {
				return nil, fmt.Errorf("farm polling throttled %d consecutive times: %w", consecutiveThrottles, err)
			}
			interval *= 2
			if interval > farmPollMaxInterval {
				interval = farmPollMaxInterval
			}
			log.Printf("[Farm] Poll %d throttled (%d consecutive), next poll in %v", pollCount, consecutiveThrottles, interval)
			continue
		}

		consecutiveThrottles = 0
		interval = farmPollBaseInterval

		switch result.Status {
		case "done":
			remote := result.OutputURL
			return &Result{OutputURL: remote, RemoteURL: &remote, SizeBytes: result.SizeBytes}, nil
		case "failed":
			errMsg := result.Error
			if errMsg == "" {
				errMsg = "unknown error"
			}
			return nil, fmt.Errorf("farm render failed: %s", errMsg)
		default:
			progress(farmProgressFloor + int(float64(100-farmProgressFloor)*clampFraction(result.Progress)))
		}
	}
}

func (f *FarmBackend) getJob(ctx context.Context, remoteID string) (*farmJobResult, error) {
	req, err := http.NewRequestWithContext(ctx, "GET", f.baseURL+"/v1/jobs/"+remoteID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+f.apiKey)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read poll response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &ThrottleError{}
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("farm returned status %d: %s", resp.StatusCode, string(body))
	}

	var result farmJobResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to parse poll response: %w (body: %s)", err, string(body))
	}
	return &result, nil
}

func clampFraction(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

func sleepContext(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
