// Package inference forwards gateway operations to the remote impact-inference service.
package inference

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/citybrain/gateway/internal/gateway"
	"github.com/citybrain/gateway/internal/provider/resilience"
)

const (
	// DefaultBaseURL is the hosted inference service.
	DefaultBaseURL = "https://citybrain.onrender.com"

	// maxResponseBytes caps how much of an upstream body is read.
	maxResponseBytes = 32 << 20
)

var pathParam = regexp.MustCompile(`\{(\w+)\}`)

// ClientConfig holds configuration for the inference client.
type ClientConfig struct {
	// BaseURL is the service root, without a trailing slash.
	BaseURL string

	// HTTPClient is the HTTP client to use (optional).
	// If nil, uses a single-attempt resilient client.
	HTTPClient *resilience.Client

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client forwards requests to the inference service and returns its JSON
// bodies unchanged.
type Client struct {
	baseURL    string
	httpClient *resilience.Client
	logger     zerolog.Logger
}

// NewClient creates a new inference client.
func NewClient(cfg ClientConfig) *Client {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.DefaultClientConfig(gateway.BackendInference))
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     cfg.Logger.With().Str("backend", gateway.BackendInference).Logger(),
	}
}

// Name returns the backend name.
func (c *Client) Name() string {
	return gateway.BackendInference
}

// Forward issues one upstream call for target and returns the response body.
// Any non-2xx status, transport failure or non-JSON body is a remote service
// error; exceeding the time bound is a timeout.
func (c *Client) Forward(ctx context.Context, target gateway.RemoteTarget, req *gateway.Request) (json.RawMessage, error) {
	endpoint, err := c.buildURL(target, req)
	if err != nil {
		return nil, err
	}

	body := io.Reader(http.NoBody)
	if target.Body != gateway.BodyNone {
		payload := req.Body
		if len(payload) == 0 {
			payload = json.RawMessage(`{}`)
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, target.Method, endpoint, body)
	if err != nil {
		return nil, gateway.NewRemoteError(0, "creating request", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if target.Body != gateway.BodyNone {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	c.logger.Debug().
		Str("operation", string(req.Operation)).
		Str("method", target.Method).
		Str("url", endpoint).
		Msg("forwarding request")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, classify(ctx, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, classify(ctx, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, gateway.NewRemoteError(resp.StatusCode, fmt.Sprintf("upstream returned status %d", resp.StatusCode), nil)
	}

	if !json.Valid(data) {
		err := gateway.NewRemoteError(resp.StatusCode, "upstream returned a non-JSON body", nil)
		c.httpClient.RecordFailure(err)
		return nil, err
	}

	return json.RawMessage(data), nil
}

// buildURL substitutes {name} path segments and encodes the forwarded and
// fixed query parameters.
func (c *Client) buildURL(target gateway.RemoteTarget, req *gateway.Request) (string, error) {
	var missing string
	path := pathParam.ReplaceAllStringFunc(target.Path, func(m string) string {
		name := m[1 : len(m)-1]
		v, ok := req.Param(name)
		if !ok || v == "" {
			missing = name
			return m
		}
		return url.PathEscape(v)
	})
	if missing != "" {
		return "", gateway.NewValidationError(missing + " is required")
	}

	q := url.Values{}
	for _, name := range target.Forward {
		if v, ok := req.Param(name); ok {
			q.Set(name, v)
		}
	}
	for name, v := range target.Fixed {
		q.Set(name, v)
	}

	endpoint := c.baseURL + path
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	return endpoint, nil
}

func classify(ctx context.Context, err error) error {
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return gateway.NewRemoteError(0, "circuit breaker open", err)
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return gateway.NewTimeoutError(gateway.BackendInference, err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return gateway.NewTimeoutError(gateway.BackendInference, err)
	}
	return gateway.NewRemoteError(0, "request failed", err)
}
