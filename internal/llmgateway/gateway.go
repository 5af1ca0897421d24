// Package llmgateway provides a provider-agnostic chat completion client
// used by the Responder, with a registry of concrete providers (ollama,
// openai, anthropic, bedrock) each protected by a retry policy and circuit
// breaker.
package llmgateway

import (
	"context"
	"fmt"
	"time"

	"github.com/lookatitude/hey-raven/o11y"
	"github.com/lookatitude/hey-raven/resilience"
)

// Message is one turn of conversation history passed to a Provider.
type Message struct {
	Role    string // "system", "user", or "assistant"
	Content string
}

// Request is a single completion request.
type Request struct {
	Messages    []Message
	Temperature float64
	MaxTokens   int
}

// Response is a single completion result.
type Response struct {
	Content      string
	FinishReason string
	// InputTokens/OutputTokens are the usage counts reported by providers
	// that return them (openai, anthropic); zero for those that don't.
	InputTokens  int
	OutputTokens int
}

// Provider generates one chat completion from a provider-specific backend.
type Provider interface {
	Name() string
	Model() string
	Complete(ctx context.Context, req Request) (Response, error)
}

// Gateway wraps a registry of named Providers, dispatching to the active
// one and protecting every call with a retry policy and circuit breaker.
type Gateway struct {
	providers map[string]Provider
	breakers  map[string]*resilience.CircuitBreaker
	policy    resilience.RetryPolicy
	active    string
	exporter  o11y.TraceExporter
}

// Option configures a Gateway at construction time.
type Option func(*Gateway)

// WithRetryPolicy overrides the default retry policy applied to every
// provider call.
func WithRetryPolicy(policy resilience.RetryPolicy) Option {
	return func(g *Gateway) { g.policy = policy }
}

// WithTraceExporter attaches a TraceExporter that records every completion
// call's model, tokens, duration, and outcome for analysis.
func WithTraceExporter(exp o11y.TraceExporter) Option {
	return func(g *Gateway) { g.exporter = exp }
}

// New builds a Gateway with the given providers registered by name, using
// active as the initially selected provider.
func New(active string, providers []Provider, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		providers: make(map[string]Provider, len(providers)),
		breakers:  make(map[string]*resilience.CircuitBreaker, len(providers)),
		policy:    resilience.DefaultRetryPolicy(),
	}
	for _, p := range providers {
		g.providers[p.Name()] = p
		g.breakers[p.Name()] = resilience.NewCircuitBreaker(5, 0)
	}
	for _, opt := range opts {
		opt(g)
	}
	if _, ok := g.providers[active]; !ok {
		return nil, fmt.Errorf("llmgateway: unknown active provider %q", active)
	}
	g.active = active
	return g, nil
}

// SetActive switches the provider used by subsequent Complete calls.
func (g *Gateway) SetActive(name string) error {
	if _, ok := g.providers[name]; !ok {
		return fmt.Errorf("llmgateway: unknown provider %q", name)
	}
	g.active = name
	return nil
}

// Active returns the name of the currently selected provider.
func (g *Gateway) Active() string {
	return g.active
}

// Complete runs req against the active provider, retrying transient
// failures per the configured RetryPolicy and short-circuiting once the
// provider's breaker trips. Each call is traced and recorded via the
// package's GenAI metrics and, if configured, exported through a
// TraceExporter.
func (g *Gateway) Complete(ctx context.Context, req Request) (Response, error) {
	name := g.active
	provider := g.providers[name]
	breaker := g.breakers[name]

	ctx, span := o11y.StartSpan(ctx, "llmgateway.complete", o11y.Attrs{
		o11y.AttrSystem:        name,
		o11y.AttrRequestModel:  provider.Model(),
		o11y.AttrOperationName: "chat",
	})
	defer span.End()

	start := time.Now()
	result, callErr := breaker.Execute(ctx, func(ctx context.Context) (any, error) {
		resp, err := resilience.Retry(ctx, g.policy, func(ctx context.Context) (Response, error) {
			return provider.Complete(ctx, req)
		})
		return resp, err
	})
	duration := time.Since(start)

	resp, _ := result.(Response)
	errMsg := ""
	if callErr != nil {
		errMsg = callErr.Error()
		span.RecordError(callErr)
		span.SetStatus(o11y.StatusError, errMsg)
	} else {
		span.SetAttributes(o11y.Attrs{
			o11y.AttrInputTokens:  resp.InputTokens,
			o11y.AttrOutputTokens: resp.OutputTokens,
		})
		span.SetStatus(o11y.StatusOK, "")
	}

	o11y.TokenUsage(ctx, resp.InputTokens, resp.OutputTokens)
	o11y.OperationDuration(ctx, float64(duration.Milliseconds()))

	if g.exporter != nil {
		messages := make([]map[string]any, 0, len(req.Messages))
		for _, m := range req.Messages {
			messages = append(messages, map[string]any{"role": m.Role, "content": m.Content})
		}
		_ = g.exporter.ExportLLMCall(ctx, o11y.LLMCallData{
			Model:        provider.Model(),
			Provider:     name,
			InputTokens:  resp.InputTokens,
			OutputTokens: resp.OutputTokens,
			Duration:     duration,
			Messages:     messages,
			Response:     map[string]any{"content": resp.Content, "finish_reason": resp.FinishReason},
			Error:        errMsg,
		})
	}

	if callErr != nil {
		return Response{}, fmt.Errorf("llmgateway: %s: %w", name, callErr)
	}
	return resp, nil
}
