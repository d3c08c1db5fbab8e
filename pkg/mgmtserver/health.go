package mgmtserver

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/JailtonJunior94/logkit/pkg/observability"
)

const (
	healthCheckTimeout = 5 * time.Second
	maxConcurrentCheck = 10
)

// HealthCheckFunc reports an error when a dependency is unhealthy.
type HealthCheckFunc func(ctx context.Context) error

// HealthStatus is the /health response body.
type HealthStatus struct {
	Status    string                 `json:"status"`
	Service   string                 `json:"service"`
	Version   string                 `json:"version"`
	Loggers   int                    `json:"loggers"`
	Timestamp time.Time              `json:"timestamp"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
}

// CheckResult is the outcome of one health check.
type CheckResult struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

func healthHandler(
	config Config,
	management *logging.Management,
	checks map[string]HealthCheckFunc,
	o11y observability.Observability,
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		results, failed := executeHealthChecks(r.Context(), checks, healthCheckTimeout, maxConcurrentCheck)

		status := "healthy"
		code := http.StatusOK
		if failed {
			status = "unhealthy"
			code = http.StatusServiceUnavailable
			for name, result := range results {
				if result.Status == "unhealthy" {
					o11y.Logger().Warn(r.Context(), "health check failed",
						observability.String("check", name),
						observability.String("error", result.Error),
					)
				}
			}
		}

		writeJSON(w, code, HealthStatus{
			Status:    status,
			Service:   config.ServiceName,
			Version:   config.ServiceVersion,
			Loggers:   len(management.LoggerNames()),
			Timestamp: time.Now(),
			Checks:    results,
		})
	}
}

// executeHealthChecks runs checks in parallel, at most maxConcurrent at a time.
func executeHealthChecks(
	ctx context.Context,
	checks map[string]HealthCheckFunc,
	timeout time.Duration,
	maxConcurrent int,
) (map[string]CheckResult, bool) {
	if len(checks) == 0 {
		return nil, false
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	semaphore := make(chan struct{}, maxConcurrent)
	results := make(map[string]CheckResult, len(checks))

	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		failed bool
	)

	record := func(name string, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			failed = true
			results[name] = CheckResult{Status: "unhealthy", Error: err.Error()}
			return
		}
		results[name] = CheckResult{Status: "healthy"}
	}

	for name, check := range checks {
		wg.Add(1)
		go func(name string, check HealthCheckFunc) {
			defer wg.Done()

			select {
			case semaphore <- struct{}{}:
				defer func() { <-semaphore }()
			case <-ctx.Done():
				record(name, ctx.Err())
				return
			}

			record(name, check(ctx))
		}(name, check)
	}

	wg.Wait()
	return results, failed
}
