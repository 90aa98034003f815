// Package leonardo submits image-generation jobs to the Leonardo.AI REST API
// and polls them to a terminal state.
package leonardo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/twojabajka/server/internal/fetch"
	"github.com/twojabajka/server/internal/infra"
)

// MaxPromptLength is the hard cap the API enforces on prompts. Longer prompts
// are truncated with an ellipsis before submission.
const MaxPromptLength = 1480

const (
	defaultMaxPollAttempts = 35
	defaultPollInterval    = 7 * time.Second
)

// JobState tracks one generation job from submission to a terminal state.
//
//	Submitted → {Pending, Processing} →* Succeeded | Failed | TimedOut
type JobState int

const (
	StateSubmitted JobState = iota
	StatePending
	StateProcessing
	StateSucceeded
	StateFailed
	StateTimedOut
)

func (s JobState) String() string {
	switch s {
	case StateSubmitted:
		return "SUBMITTED"
	case StatePending:
		return "PENDING"
	case StateProcessing:
		return "PROCESSING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateFailed:
		return "FAILED"
	case StateTimedOut:
		return "TIMED_OUT"
	default:
		return "UNKNOWN"
	}
}

// SubmitErrorKind classifies why a submission was rejected, so the caller can
// pick a retry strategy per cause instead of one hard-wired branch.
type SubmitErrorKind int

const (
	KindOther SubmitErrorKind = iota
	KindModeration
	KindPromptTooLong
	KindPendingJobs
	KindMalformedBody
	KindMissingJobID
)

func (k SubmitErrorKind) String() string {
	switch k {
	case KindModeration:
		return "moderation"
	case KindPromptTooLong:
		return "prompt_too_long"
	case KindPendingJobs:
		return "pending_jobs"
	case KindMalformedBody:
		return "malformed_body"
	case KindMissingJobID:
		return "missing_job_id"
	default:
		return "other"
	}
}

// SubmitError is returned when a generation submission does not yield a job
// ID. Moderated reports whether the response body mentioned content
// moderation, which steers the degraded retry toward safer phrasing.
type SubmitError struct {
	Kind      SubmitErrorKind
	Moderated bool
	Message   string
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("leonardo: submit rejected (%s): %s", e.Kind, e.Message)
}

// PollError is returned when polling ends without an image URL.
type PollError struct {
	JobID    string
	State    JobState
	Status   string
	Attempts int
}

func (e *PollError) Error() string {
	if e.State == StateTimedOut {
		return fmt.Sprintf("leonardo: job %s not resolved within %d poll attempts", e.JobID, e.Attempts)
	}
	return fmt.Sprintf("leonardo: job %s ended with status %s", e.JobID, e.Status)
}

// Options configures the Leonardo client.
type Options struct {
	APIKey  string
	BaseURL string
	ModelID string
	// SubmitClient handles generation submissions (2 transient retries,
	// 3s/6s backoff by default). PollClient handles status polls (2 retries,
	// 2s/5s backoff, 12s per-call timeout by default).
	SubmitClient    *resty.Client
	PollClient      *resty.Client
	Limiter         *rate.Limiter
	Logger          *infra.Logger
	MaxPollAttempts int
	PollInterval    time.Duration
}

// Client submits and polls Leonardo generation jobs.
type Client struct {
	apiKey          string
	baseURL         string
	modelID         string
	submit          *resty.Client
	poll            *resty.Client
	limiter         *rate.Limiter
	logger          *infra.Logger
	maxPollAttempts int
	pollInterval    time.Duration
}

// SubmitRequest carries one generation submission.
type SubmitRequest struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
}

type generationPayload struct {
	Prompt            string `json:"prompt"`
	NegativePrompt    string `json:"negative_prompt"`
	ModelID           string `json:"modelId"`
	Width             int    `json:"width"`
	Height            int    `json:"height"`
	NumImages         int    `json:"num_images"`
	GuidanceScale     int    `json:"guidance_scale"`
	NumInferenceSteps int    `json:"num_inference_steps"`
	PromptMagic       bool   `json:"promptMagic"`
}

type generationResponse struct {
	SDGenerationJob struct {
		GenerationID string `json:"generationId"`
	} `json:"sdGenerationJob"`
	Error string `json:"error"`
}

type pollResponse struct {
	GenerationsByPK struct {
		Status          string `json:"status"`
		GeneratedImages []struct {
			URL string `json:"url"`
		} `json:"generated_images"`
	} `json:"generations_by_pk"`
}

// NewClient constructs a Leonardo client with sane defaults.
func NewClient(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.APIKey) == "" {
		return nil, errors.New("leonardo: api key is required")
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://cloud.leonardo.ai/api/rest/v1"
	}
	modelID := strings.TrimSpace(opts.ModelID)
	if modelID == "" {
		modelID = "de7d3faf-762f-48e0-b3b7-9d0ac3a3fcf3"
	}
	logger := opts.Logger
	if logger == nil {
		nop := infra.Logger(zerolog.Nop())
		logger = &nop
	}
	submitClient := opts.SubmitClient
	if submitClient == nil {
		submitClient = fetch.NewClient(fetch.Options{
			MaxRetries:   2,
			InitialDelay: 3 * time.Second,
			MaxDelay:     6 * time.Second,
			Timeout:      25 * time.Second,
			Logger:       logger,
		})
	}
	pollClient := opts.PollClient
	if pollClient == nil {
		pollClient = fetch.NewClient(fetch.Options{
			MaxRetries:   2,
			InitialDelay: 2 * time.Second,
			MaxDelay:     5 * time.Second,
			Timeout:      12 * time.Second,
			Logger:       logger,
		})
	}
	maxPollAttempts := opts.MaxPollAttempts
	if maxPollAttempts <= 0 {
		maxPollAttempts = defaultMaxPollAttempts
	}
	pollInterval := opts.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}
	return &Client{
		apiKey:          strings.TrimSpace(opts.APIKey),
		baseURL:         baseURL,
		modelID:         modelID,
		submit:          submitClient,
		poll:            pollClient,
		limiter:         opts.Limiter,
		logger:          logger,
		maxPollAttempts: maxPollAttempts,
		pollInterval:    pollInterval,
	}, nil
}

// Submit posts a generation job and returns its ID. Rejections come back as
// *SubmitError with a classified cause.
func (c *Client) Submit(ctx context.Context, req SubmitRequest) (string, error) {
	prompt := req.Prompt
	if len(prompt) > MaxPromptLength {
		c.logger.Warn().Int("length", len(prompt)).Msg("leonardo: prompt over cap, truncating")
		prompt = prompt[:MaxPromptLength-3] + "..."
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("leonardo: limiter wait: %w", err)
		}
	}

	payload := generationPayload{
		Prompt:            prompt,
		NegativePrompt:    req.NegativePrompt,
		ModelID:           c.modelID,
		Width:             req.Width,
		Height:            req.Height,
		NumImages:         1,
		GuidanceScale:     7,
		NumInferenceSteps: 30,
		PromptMagic:       false,
	}

	resp, err := c.submit.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(c.baseURL + "/generations")
	if err != nil {
		return "", &SubmitError{Kind: KindOther, Message: err.Error()}
	}

	body := resp.String()
	moderated := strings.Contains(body, "moderated")
	if !resp.IsSuccess() {
		return "", classifySubmitFailure(body, moderated, resp.StatusCode())
	}

	var decoded generationResponse
	if err := json.Unmarshal(resp.Body(), &decoded); err != nil || strings.HasPrefix(strings.TrimSpace(body), "<!DOCTYPE") || strings.HasPrefix(strings.TrimSpace(body), "<html") {
		return "", &SubmitError{
			Kind:      KindMalformedBody,
			Moderated: moderated,
			Message:   fetch.TruncateBody(body, 300),
		}
	}
	if decoded.Error != "" {
		return "", classifySubmitFailure(decoded.Error, moderated || strings.Contains(decoded.Error, "moderated"), resp.StatusCode())
	}
	jobID := strings.TrimSpace(decoded.SDGenerationJob.GenerationID)
	if jobID == "" {
		return "", &SubmitError{
			Kind:      KindMissingJobID,
			Moderated: moderated,
			Message:   fetch.TruncateBody(body, 300),
		}
	}
	c.logger.Debug().Str("job_id", jobID).Int("width", req.Width).Int("height", req.Height).Msg("leonardo: job submitted")
	return jobID, nil
}

func classifySubmitFailure(message string, moderated bool, status int) *SubmitError {
	kind := KindOther
	switch {
	case strings.Contains(message, "moderated"):
		kind = KindModeration
		moderated = true
	case strings.Contains(message, "maximum length"):
		kind = KindPromptTooLong
	case strings.Contains(message, "pending jobs"):
		kind = KindPendingJobs
	}
	if status != 0 {
		message = fmt.Sprintf("status %d: %s", status, message)
	}
	return &SubmitError{Kind: kind, Moderated: moderated, Message: fetch.TruncateBody(message, 300)}
}

// Poll drives the job state machine until it terminates, waiting the
// configured interval between status checks. It returns the image URL on
// success and a *PollError when the job fails or exceeds the attempt ceiling.
func (c *Client) Poll(ctx context.Context, jobID string) (string, error) {
	state := StateSubmitted
	for attempt := 1; attempt <= c.maxPollAttempts; attempt++ {
		c.logger.Debug().
			Str("job_id", jobID).
			Int("attempt", attempt).
			Int("max", c.maxPollAttempts).
			Stringer("state", state).
			Msg("leonardo: polling job")

		url, nextState, status, err := c.pollOnce(ctx, jobID)
		if err != nil {
			return "", err
		}
		state = nextState
		switch state {
		case StateSucceeded:
			return url, nil
		case StateFailed:
			c.logger.Warn().Str("job_id", jobID).Str("status", status).Msg("leonardo: job failed")
			return "", &PollError{JobID: jobID, State: StateFailed, Status: status, Attempts: attempt}
		}

		if err := sleepCtx(ctx, c.pollInterval); err != nil {
			return "", err
		}
	}
	return "", &PollError{JobID: jobID, State: StateTimedOut, Attempts: c.maxPollAttempts}
}

func (c *Client) pollOnce(ctx context.Context, jobID string) (string, JobState, string, error) {
	var decoded pollResponse
	resp, err := c.poll.R().
		SetContext(ctx).
		SetHeader("Authorization", "Bearer "+c.apiKey).
		SetResult(&decoded).
		Get(c.baseURL + "/generations/" + jobID)
	if err != nil {
		return "", StateFailed, "", fmt.Errorf("leonardo: poll request: %w", err)
	}
	if err := fetch.StatusError(resp); err != nil {
		return "", StateFailed, "", err
	}
	for _, img := range decoded.GenerationsByPK.GeneratedImages {
		if url := strings.TrimSpace(img.URL); url != "" {
			return url, StateSucceeded, decoded.GenerationsByPK.Status, nil
		}
	}
	status := strings.TrimSpace(decoded.GenerationsByPK.Status)
	switch status {
	case "", "PENDING":
		return "", StatePending, status, nil
	case "PROCESSING":
		return "", StateProcessing, status, nil
	default:
		return "", StateFailed, status, nil
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
