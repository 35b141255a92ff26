package generation

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	apperrors "github.com/istimaa-app/istimaa/errors"
	"github.com/istimaa-app/istimaa/pkg/llm"
)

// Options tunes a single generation call
type Options struct {
	// Provider forces a specific backend and disables fallback
	Provider    string
	Model       string
	System      string
	Temperature float64
	MaxTokens   int
}

// Result carries the provider response plus which backend produced it
type Result struct {
	Text     string
	Provider string
	Model    string
}

// Client issues generation requests against the pool, walking down the
// priority order when a provider fails. The number of attempts is bounded
// by the pool size.
type Client struct {
	pool         *Pool
	quota        *QuotaManager
	logger       *zap.Logger
	localRetries uint64
}

// NewClient creates a generation client
func NewClient(pool *Pool, quota *QuotaManager, logger *zap.Logger) *Client {
	return &Client{
		pool:         pool,
		quota:        quota,
		logger:       logger,
		localRetries: 2,
	}
}

// Generate resolves a provider and issues the request, falling back through
// the pool on failure. With Options.Provider set, only that backend is
// tried.
func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (Result, error) {
	return c.generate(ctx, prompt, opts, false)
}

// JSON issues the request in JSON mode and extracts structured data from
// the response text. A response with no recoverable JSON yields nil data
// and no error; the caller decides on a fallback.
func (c *Client) JSON(ctx context.Context, prompt string, opts Options) (any, Result, error) {
	res, err := c.generate(ctx, prompt, opts, true)
	if err != nil {
		return nil, Result{}, err
	}
	return ExtractJSON(res.Text), res, nil
}

func (c *Client) generate(ctx context.Context, prompt string, opts Options, jsonMode bool) (Result, error) {
	if opts.Provider != "" {
		return c.generateWith(ctx, opts.Provider, prompt, opts, jsonMode)
	}

	tried := make(map[string]bool)
	var attempted []string

	// One attempt per configured provider at most
	for i := 0; i < c.pool.Size(); i++ {
		prov, ok := c.pool.SelectBest(c.quota, tried)
		if !ok {
			break
		}
		id := prov.Descriptor.ID
		tried[id] = true
		attempted = append(attempted, id)

		resp, err := c.call(ctx, prov, prompt, opts, jsonMode)
		if err == nil {
			c.quota.Decrement(id)
			return Result{Text: resp.Text, Provider: id, Model: resp.Model}, nil
		}

		c.handleFailure(id, err)

		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
	}

	if len(attempted) == 0 {
		// Every provider was already at zero quota
		for _, prov := range c.pool.Providers() {
			attempted = append(attempted, prov.Descriptor.ID)
		}
	}
	return Result{}, apperrors.ErrQuotaExhausted(attempted)
}

// generateWith is the override path: one provider, no fallback
func (c *Client) generateWith(ctx context.Context, id, prompt string, opts Options, jsonMode bool) (Result, error) {
	prov, ok := c.pool.ByID(id)
	if !ok {
		return Result{}, apperrors.ErrInvalidArgument("unknown provider: " + id)
	}
	if c.quota.Remaining(id) <= 0 {
		return Result{}, apperrors.ErrQuotaExhausted([]string{id})
	}

	resp, err := c.call(ctx, prov, prompt, opts, jsonMode)
	if err != nil {
		c.handleFailure(id, err)
		return Result{}, apperrors.ErrProviderFailed(id, err)
	}

	c.quota.Decrement(id)
	return Result{Text: resp.Text, Provider: id, Model: resp.Model}, nil
}

// call issues one provider request with local retries for transient
// network errors. Non-transient failures stop the retry loop immediately.
func (c *Client) call(ctx context.Context, prov Provider, prompt string, opts Options, jsonMode bool) (llm.Response, error) {
	req := llm.Request{
		Prompt:      prompt,
		System:      opts.System,
		Model:       opts.Model,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSONMode:    jsonMode && prov.Descriptor.SupportsStructuredOutput,
	}

	var resp llm.Response
	operation := func() error {
		var err error
		resp, err = prov.Client.Generate(ctx, req)
		if err == nil {
			return nil
		}
		if classifyFailure(err) != failureTransient {
			return backoff.Permanent(err)
		}
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxElapsedTime = 0

	err := backoff.Retry(operation,
		backoff.WithContext(backoff.WithMaxRetries(bo, c.localRetries), ctx))
	return resp, err
}

// handleFailure applies the quota consequence of a failed call
func (c *Client) handleFailure(id string, err error) {
	kind := classifyFailure(err)
	switch kind {
	case failureQuota, failurePermanent:
		c.quota.Zero(id)
	}

	if c.logger != nil {
		c.logger.Warn("provider call failed",
			zap.String("provider", id),
			zap.Int("kind", int(kind)),
			zap.Bool("quota_zeroed", kind == failureQuota || kind == failurePermanent),
			zap.Error(err),
		)
	}
}
