package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"storyhub/resilience"
	"storyhub/retry"
)

// errBreakerOpen aborts a retry sequence when the breaker opens mid-retry.
var errBreakerOpen = errors.New("embedding circuit breaker open")

// RemoteConfig holds remote provider tuning.
type RemoteConfig struct {
	// Endpoint is the embedding service URL, e.g. http://embeddings:8000/embed.
	Endpoint string
	// Dimensions is the expected vector length; responses of any other
	// length are rejected.
	Dimensions int
	// Timeout bounds each HTTP call.
	Timeout time.Duration
	// Retry tunes the backoff between attempts.
	Retry retry.Config
}

type embedRequest struct {
	Text string `json:"text"`
}

type embedResponse struct {
	Embedding []float32 `json:"embedding"`
	Dims      int       `json:"dims"`
	Model     string    `json:"model"`
}

// Remote calls the embedding service over HTTP. Each attempt passes through
// the circuit breaker gate and reports its outcome, so the breaker can open
// mid-retry; when it is open or retries are exhausted, the caller receives
// the deterministic local approximation instead of an error. Embedding never
// hard-fails enrichment.
type Remote struct {
	config   RemoteConfig
	client   *http.Client
	breaker  *resilience.CircuitBreaker
	retrier  *retry.Retrier
	fallback *Local
	logger   *slog.Logger
}

// NewRemote creates a remote provider with local fallback.
func NewRemote(config RemoteConfig, breaker *resilience.CircuitBreaker, logger *slog.Logger) *Remote {
	if config.Dimensions <= 0 {
		config.Dimensions = DefaultDimensions
	}
	if config.Timeout <= 0 {
		config.Timeout = 10 * time.Second
	}
	if config.Retry.MaxAttempts <= 0 {
		config.Retry = retry.DefaultConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	classifier := func(err error) bool {
		return !errors.Is(err, errBreakerOpen)
	}

	return &Remote{
		config:   config,
		client:   &http.Client{Timeout: config.Timeout},
		breaker:  breaker,
		retrier:  retry.NewRetrier(config.Retry, classifier, logger),
		fallback: NewLocal(config.Dimensions),
		logger:   logger,
	}
}

// Embed returns the remote vector for text, or the local approximation when
// the breaker blocks the call or the remote fails after retries. The error
// return is reserved for context cancellation; degraded operation is not an
// error.
func (r *Remote) Embed(ctx context.Context, text string) ([]float32, error) {
	var vec []float32

	err := r.retrier.Do(ctx, func() error {
		if !r.breaker.CanExecute() {
			return errBreakerOpen
		}

		v, callErr := r.callOnce(ctx, text)
		if callErr != nil {
			r.breaker.RecordFailure()
			return callErr
		}

		r.breaker.RecordSuccess()
		vec = v
		return nil
	})

	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("embedding cancelled: %w", ctx.Err())
		}
		r.logger.WarnContext(ctx, "remote embedding unavailable, using local fallback", "error", err)
		return r.fallback.Embed(ctx, text)
	}

	return vec, nil
}

// Dimensions returns the configured vector length.
func (r *Remote) Dimensions() int {
	return r.config.Dimensions
}

func (r *Remote) callOnce(ctx context.Context, text string) ([]float32, error) {
	body, err := json.Marshal(embedRequest{Text: text})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("embed call returned status %d", resp.StatusCode)
	}

	var parsed embedResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("failed to decode embed response: %w", err)
	}

	if len(parsed.Embedding) != r.config.Dimensions {
		return nil, fmt.Errorf("embed response has %d dimensions, expected %d",
			len(parsed.Embedding), r.config.Dimensions)
	}

	return parsed.Embedding, nil
}
