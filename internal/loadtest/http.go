package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	repository "github.com/okian/mcf/internal/adapters/repository"
	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/internal/domain/model"
	"github.com/okian/mcf/pkg/logger"
)

// HTTPClient wraps http.Client with timeout
type HTTPClient struct {
	client  *http.Client
	timeout time.Duration
}

// newHTTPClient creates a new HTTP client with timeout
func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		timeout: timeout,
	}
}

// Get performs a GET request
func (c *HTTPClient) Get(ctx context.Context, url string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with JSON body
func (c *HTTPClient) Post(ctx context.Context, url string, body interface{}) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// decode reads, closes and decodes a response body. Non-200 responses are
// reported as errors carrying the body.
func decode(resp *http.Response, v interface{}) error {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, bytes.TrimSpace(body))
	}
	return json.Unmarshal(body, v)
}

// submitRequests posts every request concurrently and returns the exchanges
// in request order.
func submitRequests(ctx context.Context, config *Config, requests []service.Request, stats *Stats) []Exchange {
	log := logger.OrNop()
	log.Info(ctx, "submitting requests", logger.Int("requests", len(requests)), logger.Int("workers", config.Workers))

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/mcf"
	exchanges := make([]Exchange, len(requests))

	var submitted, ok, failed atomic.Int64

	jobs := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()

			for idx := range jobs {
				ex := submitSingleRequest(ctx, client, url, idx, requests[idx])
				exchanges[idx] = ex

				submitted.Add(1)
				if ex.Err != nil {
					failed.Add(1)
					log.Warn(ctx, "request failed",
						logger.Int("worker", workerID),
						logger.Int("index", idx),
						logger.Error(ex.Err))
					continue
				}
				ok.Add(1)
				if config.Verbose {
					log.Info(ctx, "request completed",
						logger.Int("worker", workerID),
						logger.Int("index", idx),
						logger.String("id", ex.Result.ID),
						logger.Int("times", ex.Result.Len()))
				}
			}
		}(i)
	}

	go func() {
		defer close(jobs)
		for i := range requests {
			select {
			case <-ctx.Done():
				return
			case jobs <- i:
			}
		}
	}()

	wg.Wait()

	stats.RequestsSubmitted = int(submitted.Load())
	stats.RequestsOK = int(ok.Load())
	stats.RequestsFailed = int(failed.Load())

	log.Info(ctx, "request submission completed",
		logger.Int("successful", stats.RequestsOK),
		logger.Int("failed", stats.RequestsFailed))
	return exchanges
}

// submitSingleRequest posts one request and decodes the result.
func submitSingleRequest(ctx context.Context, client *HTTPClient, url string, idx int, req service.Request) Exchange {
	ex := Exchange{Index: idx, Body: req}
	resp, err := client.Post(ctx, url, req)
	if err != nil {
		ex.Err = err
		return ex
	}
	ex.Status = resp.StatusCode
	ex.Err = decode(resp, &ex.Result)
	return ex
}

// fetchResults reads every stored result back and checks it matches the
// POST response.
func fetchResults(ctx context.Context, config *Config, exchanges []Exchange, stats *Stats) error {
	client := newHTTPClient(config.Timeout)
	for _, ex := range exchanges {
		if ex.Err != nil {
			continue
		}
		resp, err := client.Get(ctx, config.BaseURL+"/mcf/"+ex.Result.ID)
		if err != nil {
			return fmt.Errorf("failed to fetch result %s: %w", ex.Result.ID, err)
		}
		var stored model.Result
		if err := decode(resp, &stored); err != nil {
			return fmt.Errorf("failed to fetch result %s: %w", ex.Result.ID, err)
		}
		if !sameCurve(stored.MCF, ex.Result.MCF, 0) {
			return fmt.Errorf("%w: stored result %s differs from response", ErrMismatch, ex.Result.ID)
		}
		stats.ResultsFetched++
	}
	return nil
}

// listResults fetches the most recent result summaries.
func listResults(ctx context.Context, config *Config, stats *Stats) ([]repository.Summary, error) {
	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/mcf?limit="+strconv.Itoa(ListLimit))
	if err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	var list []repository.Summary
	if err := decode(resp, &list); err != nil {
		return nil, fmt.Errorf("failed to list results: %w", err)
	}
	stats.ResultsListed = len(list)
	return list, nil
}
