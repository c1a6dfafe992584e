// Package seqflow provides a top-level convenience entry point for
// creating workflow clients with minimal boilerplate.
//
// Usage:
//
//	import "github.com/kolosal-ai/seqflow"
//
//	c := seqflow.New(seqflow.WithBaseURL("http://localhost:8080"))
//
//	wf := workflow.New("my_research", "AI Research Pipeline").
//	    AddResearchStep("machine learning trends").
//	    AddWritingStep("technical report")
//
//	result, err := c.RunWorkflow(ctx, wf, client.RunOptions{})
//
// This is a thin wrapper around [client.New]; both produce identical
// results. Use this package when you prefer the shorter import path.
package seqflow

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/kolosal-ai/seqflow/client"
	"github.com/kolosal-ai/seqflow/config"
	"github.com/kolosal-ai/seqflow/internal/metrics"
)

// Option configures the client created by [New].
type Option func(*builder)

type builder struct {
	cfg     *client.Config
	logger  *zap.Logger
	options []client.Option
}

// WithBaseURL points the client at a workflow server.
func WithBaseURL(url string) Option {
	return func(b *builder) { b.cfg.BaseURL = url }
}

// WithBasePath sets an API prefix such as "/api/v1".
func WithBasePath(path string) Option {
	return func(b *builder) { b.cfg.BasePath = path }
}

// WithLogger sets a custom zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(b *builder) { b.logger = logger }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(b *builder) { b.options = append(b.options, client.WithHTTPClient(hc)) }
}

// WithRateLimit caps outgoing execute calls.
func WithRateLimit(rps float64, burst int) Option {
	return func(b *builder) { b.options = append(b.options, client.WithRateLimit(rps, burst)) }
}

// WithoutVerification skips the GET check after registration success.
func WithoutVerification() Option {
	return func(b *builder) { b.cfg.VerifyRegistration = false }
}

// WithMetrics attaches a prometheus-backed metrics collector.
func WithMetrics(m *metrics.Collector) Option {
	return func(b *builder) { b.options = append(b.options, client.WithMetrics(m)) }
}

// WithConfig applies a loaded configuration before the other options.
func WithConfig(cfg *config.Config) Option {
	return func(b *builder) {
		b.cfg.BaseURL = cfg.Server.BaseURL
		b.cfg.BasePath = cfg.Server.BasePath
		if cfg.HTTP.Timeout > 0 {
			b.cfg.Timeout = cfg.HTTP.Timeout
		}
		if cfg.HTTP.HealthTimeout > 0 {
			b.cfg.HealthTimeout = cfg.HTTP.HealthTimeout
		}
		b.cfg.VerifyRegistration = cfg.Register.Verify
		if cfg.Execute.RateLimitRPS > 0 {
			b.options = append(b.options,
				client.WithRateLimit(cfg.Execute.RateLimitRPS, cfg.Execute.RateLimitBurst))
		}
	}
}

// New creates a workflow client with the given options.
func New(opts ...Option) *client.Client {
	b := &builder{cfg: client.DefaultConfig()}
	for _, opt := range opts {
		opt(b)
	}
	return client.New(b.cfg, b.logger, b.options...)
}
