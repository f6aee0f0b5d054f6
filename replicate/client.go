// Package replicate is a minimal client for the Replicate predictions API:
// create a prediction against a hosted model, poll it to a terminal state,
// and download its output files.
package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"hindi-reels-pipeline/errs"
)

const defaultBaseURL = "https://api.replicate.com/v1"

// Terminal prediction statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Prediction is the subset of the predictions API response we use.
type Prediction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	// Output is either a single URL string or a list of URL strings
	// depending on the model.
	Output json.RawMessage `json:"output"`
	Error  string          `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

// Terminal reports whether the prediction reached a final state.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	}
	return false
}

// OutputURLs decodes the prediction output into a list of URLs, accepting
// both the single-string and list-of-strings shapes.
func (p *Prediction) OutputURLs() []string {
	if len(p.Output) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(p.Output, &one); err == nil && one != "" {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(p.Output, &many); err == nil {
		return many
	}
	return nil
}

// FirstOutput returns the first output URL, if any.
func (p *Prediction) FirstOutput() (string, bool) {
	urls := p.OutputURLs()
	if len(urls) == 0 {
		return "", false
	}
	return urls[0], true
}

// Client talks to the Replicate API.
type Client struct {
	log          *logrus.Logger
	token        string
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
	maxAttempts  int
}

// New builds a Client. pollSeconds and maxAttempts bound the Wait loop.
func New(log *logrus.Logger, token string, pollSeconds, maxAttempts int) *Client {
	return &Client{
		log:          log,
		token:        token,
		baseURL:      defaultBaseURL,
		httpClient:   &http.Client{Timeout: 60 * time.Second},
		pollInterval: time.Duration(pollSeconds) * time.Second,
		maxAttempts:  maxAttempts,
	}
}

// WithBaseURL overrides the API endpoint (tests).
func (c *Client) WithBaseURL(url string) *Client {
	c.baseURL = url
	return c
}

// CreatePrediction starts a prediction on a hosted model
// (e.g. "kwaivgi/kling-v2.1") with the given input block.
func (c *Client) CreatePrediction(ctx context.Context, model string, input map[string]any) (*Prediction, error) {
	payload, err := json.Marshal(map[string]any{"input": input})
	if err != nil {
		return nil, fmt.Errorf("marshal prediction input: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s/predictions", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read replicate response: %w", err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusAccepted {
		return nil, fmt.Errorf("%w: replicate API status %d: %s", errs.ErrExternalService, resp.StatusCode, truncate(body, 500))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("parse prediction: %w", err)
	}
	c.log.WithFields(logrus.Fields{
		"model":      model,
		"prediction": pred.ID,
		"status":     pred.Status,
	}).Info("[replicate] prediction created")
	return &pred, nil
}

// Wait polls the prediction at a fixed interval until it reaches a terminal
// state or the attempt budget runs out. Intermediate states ("starting",
// "processing") never return early.
func (c *Client) Wait(ctx context.Context, pred *Prediction) (*Prediction, error) {
	if pred.Terminal() {
		return c.checkTerminal(pred)
	}

	getURL := pred.URLs.Get
	if getURL == "" {
		getURL = fmt.Sprintf("%s/predictions/%s", c.baseURL, pred.ID)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.pollInterval):
		}

		current, err := c.getPrediction(ctx, getURL)
		if err != nil {
			return nil, err
		}

		// Periodic progress log, roughly every 30s at the default interval.
		if attempt%6 == 0 {
			c.log.WithFields(logrus.Fields{
				"prediction": current.ID,
				"status":     current.Status,
				"elapsed_s":  attempt * int(c.pollInterval.Seconds()),
			}).Info("[replicate] still generating")
		}

		if current.Terminal() {
			return c.checkTerminal(current)
		}
	}

	return nil, fmt.Errorf("%w: no terminal state after %d attempts", errs.ErrTimeout, c.maxAttempts)
}

func (c *Client) checkTerminal(pred *Prediction) (*Prediction, error) {
	switch pred.Status {
	case StatusSucceeded:
		return pred, nil
	case StatusCanceled:
		return nil, fmt.Errorf("%w: canceled", errs.ErrGenerationFailed)
	default:
		detail := pred.Error
		if detail == "" {
			detail = "unknown error"
		}
		return nil, fmt.Errorf("%w: %s", errs.ErrGenerationFailed, detail)
	}
}

func (c *Client) getPrediction(ctx context.Context, url string) (*Prediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read poll response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: poll status %d: %s", errs.ErrExternalService, resp.StatusCode, truncate(body, 500))
	}

	var pred Prediction
	if err := json.Unmarshal(body, &pred); err != nil {
		return nil, fmt.Errorf("parse poll response: %w", err)
	}
	return &pred, nil
}

// Download fetches a generated file to savePath, retrying up to three times
// with linear backoff. Generated-asset URLs expire, so failures here are
// worth a couple of retries before giving up.
func (c *Client) Download(ctx context.Context, url, savePath string) error {
	const maxRetries = 3

	var lastErr error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		if attempt > 1 {
			wait := time.Duration(attempt-1) * 5 * time.Second
			c.log.WithFields(logrus.Fields{
				"attempt": attempt,
				"wait":    wait.String(),
			}).Warn("[replicate] download retry")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		lastErr = c.downloadOnce(ctx, url, savePath)
		if lastErr == nil {
			return nil
		}
	}
	return fmt.Errorf("download failed after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) downloadOnce(ctx context.Context, url, savePath string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 180 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	return os.WriteFile(savePath, data, 0644)
}

func truncate(b []byte, n int) string {
	if len(b) > n {
		return string(b[:n]) + "..."
	}
	return string(b)
}
