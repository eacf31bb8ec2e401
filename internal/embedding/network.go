package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/kestrel-retail/discovery-engine/internal/logger"
	"github.com/kestrel-retail/discovery-engine/internal/vectorindex"
)

// networkProvider calls the embedding model service, retrying retryable
// HTTP failures with capped exponential backoff. A circuit breaker skips
// the network entirely once it has failed enough to trip, and a rate
// limiter caps outbound QPS so a slow-batch job can't starve interactive
// search traffic.
type networkProvider struct {
	log        *logger.Logger
	baseURL    string
	model      string
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]float64]
	fallback   Provider
}

type NetworkConfig struct {
	BaseURL     string
	Model       string
	ColdTimeout time.Duration
	WarmTimeout time.Duration
	MaxRetries  int
	QPS         float64
}

func NewNetworkProvider(log *logger.Logger, cfg NetworkConfig, fallback Provider) Provider {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.QPS <= 0 {
		cfg.QPS = 20
	}
	warmTimeout := cfg.WarmTimeout
	if warmTimeout <= 0 {
		warmTimeout = 2 * time.Second
	}

	p := &networkProvider{
		log:        log.With("component", "NetworkEmbeddingProvider"),
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		httpClient: &http.Client{Timeout: warmTimeout},
		maxRetries: cfg.MaxRetries,
		limiter:    rate.NewLimiter(rate.Limit(cfg.QPS), burstFor(cfg.QPS)),
		fallback:   fallback,
	}

	settings := gobreaker.Settings{
		Name:        "embedding-service",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && float64(counts.TotalFailures)/float64(counts.Requests) >= 0.5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("embedding circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	}
	p.breaker = gobreaker.NewCircuitBreaker[[]float64](settings)
	return p
}

func burstFor(qps float64) int {
	if qps < 1 {
		return 1
	}
	return int(qps)
}

func (p *networkProvider) Ready() bool {
	return p.breaker.State() != gobreaker.StateOpen
}

func (p *networkProvider) Embed(ctx context.Context, text string) ([]float64, error) {
	text = truncate(text, MaxQueryChars)
	if !p.Ready() {
		return p.fallback.Embed(ctx, text)
	}
	v, err := p.breaker.Execute(func() ([]float64, error) {
		return p.embedOne(ctx, text)
	})
	if err != nil {
		p.log.Warn("embedding service call failed, falling back to deterministic vector", "error", err)
		return p.fallback.Embed(ctx, text)
	}
	return v, nil
}

func (p *networkProvider) EmbedBatch(ctx context.Context, texts []string) ([][]float64, error) {
	trimmed := make([]string, len(texts))
	for i, t := range texts {
		trimmed[i] = truncate(t, MaxProductChars)
	}
	if !p.Ready() {
		return p.fallback.EmbedBatch(ctx, trimmed)
	}

	out := make([][]float64, len(trimmed))
	_, err := p.breaker.Execute(func() ([]float64, error) {
		resp, callErr := p.call(ctx, trimmed)
		if callErr != nil {
			return nil, callErr
		}
		if len(resp) != len(trimmed) {
			return nil, fmt.Errorf("embedding service returned %d vectors for %d inputs", len(resp), len(trimmed))
		}
		copy(out, resp)
		return nil, nil
	})
	if err != nil {
		p.log.Warn("batch embedding call failed, falling back to deterministic vectors", "error", err)
		return p.fallback.EmbedBatch(ctx, trimmed)
	}
	return out, nil
}

func (p *networkProvider) embedOne(ctx context.Context, text string) ([]float64, error) {
	resp, err := p.call(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(resp) != 1 {
		return nil, fmt.Errorf("embedding service returned %d vectors for 1 input", len(resp))
	}
	return resp[0], nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

func (p *networkProvider) call(ctx context.Context, inputs []string) ([][]float64, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	var resp embedResponse
	if err := p.do(ctx, http.MethodPost, "/embed_batch", embedRequest{Model: p.model, Input: inputs}, &resp); err != nil {
		return nil, err
	}
	for _, v := range resp.Embeddings {
		if !vectorindex.IsUnit(v) {
			copy(v, vectorindex.L2Normalize(v))
		}
	}
	return resp.Embeddings, nil
}

type httpStatusError struct {
	StatusCode int
	Body       string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("embedding service http %d: %s", e.StatusCode, e.Body)
}

func isRetryableStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return true
	}
	return code >= 500 && code <= 599
}

func isRetryableErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		return isRetryableStatus(statusErr.StatusCode)
	}
	return false
}

func jitterSleep(base time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delta := base.Seconds() * 0.2
	low, high := base.Seconds()-delta, base.Seconds()+delta
	if low < 0 {
		low = 0
	}
	return time.Duration((low + rand.Float64()*(high-low)) * float64(time.Second))
}

func (p *networkProvider) doOnce(ctx context.Context, method, path string, body any) (*http.Response, []byte, error) {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return nil, nil, err
		}
	}
	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, &buf)
	if err != nil {
		return nil, nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, nil, err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return resp, nil, readErr
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp, raw, &httpStatusError{StatusCode: resp.StatusCode, Body: string(raw)}
	}
	return resp, raw, nil
}

func (p *networkProvider) do(ctx context.Context, method, path string, body, out any) error {
	backoff := 500 * time.Millisecond
	for attempt := 0; attempt <= p.maxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		resp, raw, err := p.doOnce(ctx, method, path, body)
		if err == nil {
			if out == nil {
				return nil
			}
			if uErr := json.Unmarshal(raw, out); uErr != nil {
				return fmt.Errorf("embedding service decode error: %w; raw=%s", uErr, string(raw))
			}
			return nil
		}
		if !isRetryableErr(err) || attempt == p.maxRetries {
			return err
		}

		sleepFor := backoff
		if resp != nil {
			if ra := strings.TrimSpace(resp.Header.Get("Retry-After")); ra != "" {
				if secs, parseErr := strconv.Atoi(ra); parseErr == nil && secs > 0 {
					sleepFor = time.Duration(secs) * time.Second
				}
			}
		}
		if sleepFor > 5*time.Second {
			sleepFor = 5 * time.Second
		}
		sleepFor = jitterSleep(sleepFor)

		p.log.Warn("embedding service request retrying", "path", path, "attempt", attempt+1, "sleep", sleepFor.String(), "error", err.Error())
		select {
		case <-time.After(sleepFor):
		case <-ctx.Done():
			return ctx.Err()
		}
		backoff *= 2
	}
	return fmt.Errorf("unreachable retry loop")
}
