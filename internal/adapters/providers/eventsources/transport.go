package eventsources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"

	"github.com/zatekoja/localeventfinder/internal/domain/entities"
	"github.com/zatekoja/localeventfinder/internal/infrastructure/observability"
	apperrors "github.com/zatekoja/localeventfinder/pkg/errors"
)

const (
	maxResponseBytes      = 8 << 20
	breakerFailureStreak  = 5
	breakerOpenTimeout    = 30 * time.Second
	breakerCountingWindow = time.Minute
)

// errUpstreamNotFound marks a provider 404 so adapters can build a NotFoundError
var errUpstreamNotFound = errors.New("upstream returned 404")

// Options configures one provider adapter. Zero values fall back to the
// provider's defaults.
type Options struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	// Categories extends the built-in category lookup table
	Categories map[string]string
	HTTPClient *http.Client
	Metrics    *observability.SourceMetrics
}

type upstreamResponse struct {
	status int
	body   []byte
}

// sourceClient is the outbound transport shared by the adapters: timeout,
// rate limit, circuit breaker, tracing and metrics. It never retries.
type sourceClient struct {
	source     entities.Source
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	metrics    *observability.SourceMetrics
}

func newSourceClient(source entities.Source, opts Options, defaultBaseURL string, defaultTimeout time.Duration) *sourceClient {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	limit := rate.Inf
	burst := opts.Burst
	if opts.RatePerSecond > 0 {
		limit = rate.Limit(opts.RatePerSecond)
		if burst <= 0 {
			burst = 1
		}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        string(source),
		MaxRequests: 1,
		Interval:    breakerCountingWindow,
		Timeout:     breakerOpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailureStreak
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().
				Str("source", name).
				Str("from", from.String()).
				Str("to", to.String()).
				Msg("Event source circuit breaker changed state")
		},
	})

	return &sourceClient{
		source:     source,
		baseURL:    baseURL,
		httpClient: httpClient,
		limiter:    rate.NewLimiter(limit, burst),
		breaker:    breaker,
		metrics:    opts.Metrics,
	}
}

// do sends req and decodes a 2xx JSON body into out. A 404 returns
// errUpstreamNotFound; every other failure is an EXTERNAL AppError.
func (c *sourceClient) do(ctx context.Context, operation string, req *http.Request, out any) error {
	ctx, span := observability.StartSpan(ctx, "eventsource."+operation,
		attribute.String("event.source", string(c.source)),
	)
	defer span.End()

	start := time.Now()
	outcome := observability.OutcomeError
	defer func() {
		c.metrics.ObserveRequest(string(c.source), operation, outcome, time.Since(start))
	}()

	if err := c.limiter.Wait(ctx); err != nil {
		observability.RecordError(span, err)
		return apperrors.NewExternalError(fmt.Sprintf("%s rate limit wait aborted", c.source), err)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req.WithContext(ctx))
		if err != nil {
			return nil, redactURL(err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode == http.StatusNotFound {
			return &upstreamResponse{status: resp.StatusCode}, nil
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 256))
		}
		return &upstreamResponse{status: resp.StatusCode, body: body}, nil
	})
	if err != nil {
		observability.RecordError(span, err)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			outcome = observability.OutcomeCircuitOpen
			return apperrors.NewExternalError(fmt.Sprintf("%s is temporarily unavailable", c.source), err)
		}
		return apperrors.NewExternalError(fmt.Sprintf("%s request failed", c.source), err)
	}

	resp := result.(*upstreamResponse)
	observability.SetSpanAttributes(span, attribute.Int("http.status_code", resp.status))
	if resp.status == http.StatusNotFound {
		outcome = observability.OutcomeNotFound
		return errUpstreamNotFound
	}

	if err := json.Unmarshal(resp.body, out); err != nil {
		observability.RecordError(span, err)
		return apperrors.NewExternalError(fmt.Sprintf("%s returned a malformed payload", c.source), err)
	}

	outcome = observability.OutcomeSuccess
	return nil
}

func (c *sourceClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, apperrors.NewInternalError(fmt.Sprintf("build %s request", c.source), err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

// redactURL drops the request URL from transport errors; query strings carry
// provider credentials.
func redactURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", strings.ToLower(urlErr.Op), urlErr.Err)
	}
	return err
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
