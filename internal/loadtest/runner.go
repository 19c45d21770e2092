package loadtest

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	service "github.com/okian/mcf/internal/app"
	"github.com/okian/mcf/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
	filePermission      = 0600
)

// Run executes the complete load test: health check, dataset generation,
// concurrent submission, read back, listing and local verification.
func Run(ctx context.Context, config *Config) (*Stats, error) {
	if config.Workers < 1 {
		config.Workers = 1
	}
	stats := &Stats{
		StartTime: time.Now(),
	}
	log := logger.OrNop()

	log.Info(ctx, "starting mcf load test",
		logger.String("baseURL", config.BaseURL),
		logger.Int("requests", config.Requests),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Bool("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return stats, fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate datasets
	requests, err := generateRequests(ctx, config, stats)
	if err != nil {
		return stats, fmt.Errorf("dataset generation failed: %w", err)
	}

	// Step 3: Submit requests concurrently
	exchanges := submitRequests(ctx, config, requests, stats)
	if err := ctx.Err(); err != nil {
		return stats, fmt.Errorf("request submission interrupted: %w", err)
	}

	// Step 4: Read stored results back
	if err := fetchResults(ctx, config, exchanges, stats); err != nil {
		return stats, fmt.Errorf("result retrieval failed: %w", err)
	}
	if _, err := listResults(ctx, config, stats); err != nil {
		return stats, fmt.Errorf("result listing failed: %w", err)
	}

	// Step 5: Verify results
	if err := verifyResults(ctx, config, exchanges, stats); err != nil {
		return stats, fmt.Errorf("result verification failed: %w", err)
	}

	// Step 6: Save datasets to file
	if config.OutputFile != "" {
		if err := saveRequestsToFile(ctx, config.OutputFile, requests); err != nil {
			log.Warn(ctx, "failed to save datasets to file", logger.Error(err))
		}
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(ctx, stats)

	log.Info(ctx, "test completed successfully")
	return stats, nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	log := logger.OrNop()
	log.Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	resp, err := client.Get(ctx, config.BaseURL+"/healthz")
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the service returns Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}

	log.Info(ctx, "service is healthy")
	return nil
}

// saveRequestsToFile saves the generated datasets as a JSON array.
func saveRequestsToFile(ctx context.Context, filename string, requests []service.Request) error {
	if len(requests) == 0 {
		return fmt.Errorf("no datasets to save")
	}

	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(requests, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal datasets: %w", err)
	}
	if err := os.WriteFile(filename, append(data, '\n'), filePermission); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	logger.OrNop().Info(ctx, "datasets saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final test statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, requestsPerSecond float64

	if stats.RequestsSubmitted > 0 {
		successRate = float64(stats.RequestsOK) / float64(stats.RequestsSubmitted) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		requestsPerSecond = float64(stats.RequestsSubmitted) / stats.Duration.Seconds()
	}

	logger.OrNop().Info(ctx, "final statistics",
		logger.Int("datasetsGenerated", stats.DatasetsGenerated),
		logger.Int("requestsSubmitted", stats.RequestsSubmitted),
		logger.Int("requestsOK", stats.RequestsOK),
		logger.Int("requestsFailed", stats.RequestsFailed),
		logger.Int("resultsFetched", stats.ResultsFetched),
		logger.Int("resultsListed", stats.ResultsListed),
		logger.Int("resultsVerified", stats.ResultsVerified),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("successRate", successRate),
		logger.Float64("requestsPerSecond", requestsPerSecond))
}
