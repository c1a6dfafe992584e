package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/kolosal-ai/seqflow/internal/metrics"
	"github.com/kolosal-ai/seqflow/types"
	"github.com/kolosal-ai/seqflow/workflow"
)

const tracerName = "github.com/kolosal-ai/seqflow/client"

// Config holds configuration for the workflow client.
type Config struct {
	// BaseURL is the root of the remote workflow server.
	BaseURL string
	// BasePath is an optional path prefix in front of every endpoint
	// (e.g. "/api/v1" for servers that mount the API under a version).
	BasePath string
	// Timeout is the default timeout for one-shot HTTP requests. It is
	// not applied to streaming responses, whose lifetime is bounded by
	// the caller's context.
	Timeout time.Duration
	// HealthTimeout bounds the health probe.
	HealthTimeout time.Duration
	// VerifyRegistration issues a GET after a reported registration
	// success and fails registration when the workflow is absent.
	VerifyRegistration bool
	// Headers are additional headers to include in every request.
	Headers map[string]string
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:            "http://localhost:8080",
		Timeout:            60 * time.Second,
		HealthTimeout:      5 * time.Second,
		VerifyRegistration: true,
		Headers:            make(map[string]string),
	}
}

// Client drives a remote sequential-workflow server over HTTP.
type Client struct {
	cfg        *Config
	httpClient *http.Client
	// streamClient has no client timeout so long-lived SSE bodies are
	// bounded only by the request context.
	streamClient *http.Client
	logger       *zap.Logger
	resolver     *Resolver
	limiter      *rate.Limiter
	metrics      *metrics.Collector
	tracer       trace.Tracer
}

// Option customizes a Client beyond its Config.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client for one-shot calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRateLimit caps outgoing execute calls at rps with the given burst.
// Zero rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Client) {
		if rps > 0 {
			c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
		}
	}
}

// WithMetrics attaches a metrics collector. Nil is valid and disables
// collection.
func WithMetrics(m *metrics.Collector) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a workflow client. A nil cfg uses DefaultConfig; a nil
// logger uses a no-op logger.
func New(cfg *Config, logger *zap.Logger, opts ...Option) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	c := &Client{
		cfg:          cfg,
		httpClient:   &http.Client{Timeout: timeout},
		streamClient: &http.Client{},
		logger:       logger,
		tracer:       otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.resolver = newResolver(c)
	return c
}

// Resolver returns the client's agent name resolver.
func (c *Client) Resolver() *Resolver { return c.resolver }

// endpoint joins the base URL, optional base path, and endpoint path.
func (c *Client) endpoint(path string) string {
	base := strings.TrimRight(c.cfg.BaseURL, "/")
	prefix := strings.TrimRight(c.cfg.BasePath, "/")
	return base + prefix + path
}

// newRequest builds a JSON request with the client's standard headers.
// A nil body sends no payload.
func (c *Client) newRequest(ctx context.Context, method, path string, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path), reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	for k, v := range c.cfg.Headers {
		req.Header.Set(k, v)
	}
	return req, nil
}

// Health reports whether the server answers its health probe.
func (c *Client) Health(ctx context.Context) bool {
	timeout := c.cfg.HealthTimeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return false
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("health check failed", zap.Error(err))
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

// EngineConfig describes a model engine the server should load before
// workflows can execute.
type EngineConfig struct {
	EngineID   string `json:"engine_id"`
	ModelPath  string `json:"model_path"`
	NCtx       int    `json:"n_ctx,omitempty"`
	NGPULayers int    `json:"n_gpu_layers,omitempty"`
	MainGPUID  int    `json:"main_gpu_id,omitempty"`
	NBatch     int    `json:"n_batch,omitempty"`
	NThreads   int    `json:"n_threads,omitempty"`
}

// SetupEngine idempotently ensures the named engine exists on the
// server: an engine that is already loaded, or a creation conflict,
// both count as ready.
func (c *Client) SetupEngine(ctx context.Context, engine EngineConfig) error {
	req, err := c.newRequest(ctx, http.MethodGet, "/engines/"+engine.EngineID, nil)
	if err != nil {
		return err
	}
	if resp, err := c.httpClient.Do(req); err == nil {
		resp.Body.Close()
		if resp.StatusCode == http.StatusOK {
			return nil
		}
	}

	req, err = c.newRequest(ctx, http.MethodPost, "/engines", engine)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.NewError(types.ErrServerUnavailable, "engine setup request failed").WithCause(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated:
		return nil
	case resp.StatusCode == http.StatusBadRequest:
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(string(body), "engine_id_exists") {
			return nil
		}
		return types.NewError(types.ErrServerUnavailable,
			fmt.Sprintf("engine setup rejected: %s", string(body))).WithHTTPStatus(resp.StatusCode)
	default:
		return types.NewError(types.ErrServerUnavailable,
			fmt.Sprintf("engine setup failed with status %d", resp.StatusCode)).WithHTTPStatus(resp.StatusCode)
	}
}

// WorkflowSummary is one entry of the server's workflow listing.
type WorkflowSummary struct {
	WorkflowID   string `json:"workflow_id"`
	WorkflowName string `json:"workflow_name"`
	Description  string `json:"description,omitempty"`
	TotalSteps   int    `json:"total_steps,omitempty"`
}

// ListWorkflows returns the workflows registered on the server.
func (c *Client) ListWorkflows(ctx context.Context) ([]WorkflowSummary, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/workflows", nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, types.NewError(types.ErrServerUnavailable, "workflow listing failed").WithCause(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, types.NewError(types.ErrServerUnavailable,
			fmt.Sprintf("workflow listing failed with status %d", resp.StatusCode)).WithHTTPStatus(resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var summaries []WorkflowSummary
	// The listing may arrive bare or wrapped in a data envelope.
	if err := json.Unmarshal(body, &summaries); err == nil {
		return summaries, nil
	}
	var wrapped struct {
		Data []WorkflowSummary `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode workflow listing: %w", err)
	}
	return wrapped.Data, nil
}

// RunOptions controls RunWorkflow.
type RunOptions struct {
	// InputContext is forwarded to the execute call.
	InputContext map[string]any
	// Streaming selects the streaming strategy with live events.
	Streaming bool
	// Handler receives incremental events during streaming execution.
	Handler StreamHandler
}

// RunWorkflow registers the workflow and executes it in one call. This
// is the common path: registration is re-done on every run because the
// server's store may have been cleared externally.
func (c *Client) RunWorkflow(ctx context.Context, wf *workflow.Workflow, opts RunOptions) (*types.CanonicalResult, error) {
	if err := c.RegisterWorkflow(ctx, wf); err != nil {
		return nil, err
	}
	if opts.Streaming {
		return c.ExecuteStreaming(ctx, wf.WorkflowID, opts.InputContext, opts.Handler)
	}
	return c.ExecuteSync(ctx, wf.WorkflowID, opts.InputContext)
}
