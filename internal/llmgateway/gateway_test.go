package llmgateway

import (
	"context"
	"errors"
	"testing"

	"github.com/lookatitude/hey-raven/resilience"
)

type fakeProvider struct {
	name    string
	calls   int
	failN   int
	content string
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Model() string { return f.name }

func (f *fakeProvider) Complete(ctx context.Context, req Request) (Response, error) {
	f.calls++
	if f.calls <= f.failN {
		return Response{}, errors.New("transient failure")
	}
	return Response{Content: f.content}, nil
}

func TestGateway_DispatchesToActiveProvider(t *testing.T) {
	ollama := &fakeProvider{name: "ollama", content: "from ollama"}
	openai := &fakeProvider{name: "openai", content: "from openai"}

	g, err := New("openai", []Provider{ollama, openai})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	resp, err := g.Complete(context.Background(), Request{Messages: []Message{{Role: "user", Content: "hi"}}})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if resp.Content != "from openai" {
		t.Errorf("Content = %q, want from openai", resp.Content)
	}
	if ollama.calls != 0 {
		t.Error("expected inactive provider to not be called")
	}
}

func TestGateway_UnknownActiveProvider(t *testing.T) {
	_, err := New("missing", []Provider{&fakeProvider{name: "ollama"}})
	if err == nil {
		t.Fatal("expected error for unknown active provider")
	}
}

func TestGateway_SetActive(t *testing.T) {
	ollama := &fakeProvider{name: "ollama", content: "from ollama"}
	openai := &fakeProvider{name: "openai", content: "from openai"}
	g, _ := New("ollama", []Provider{ollama, openai})

	if err := g.SetActive("openai"); err != nil {
		t.Fatalf("SetActive() error = %v", err)
	}
	if g.Active() != "openai" {
		t.Errorf("Active() = %q, want openai", g.Active())
	}

	if err := g.SetActive("missing"); err == nil {
		t.Error("expected error switching to unknown provider")
	}
}

func TestGateway_DoesNotRetryPlainErrors(t *testing.T) {
	provider := &fakeProvider{name: "ollama", failN: 2, content: "eventually ok"}
	g, _ := New("ollama", []Provider{provider}, WithRetryPolicy(resilience.RetryPolicy{
		MaxAttempts:     3,
		InitialBackoff:  1,
		BackoffFactor:   1,
		RetryableErrors: nil,
	}))

	// The plain errors.New failures above are not core.Error, so the
	// default retryable() check would reject them; exercise the
	// non-retryable path explicitly instead.
	_, err := g.Complete(context.Background(), Request{})
	if err == nil {
		t.Fatal("expected plain errors to be treated as non-retryable and surfaced")
	}
	if provider.calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on non-core error)", provider.calls)
	}
}

func TestGateway_BreakerTripsAfterRepeatedFailures(t *testing.T) {
	provider := &fakeProvider{name: "ollama", failN: 100}
	g, _ := New("ollama", []Provider{provider})

	for i := 0; i < 5; i++ {
		_, _ = g.Complete(context.Background(), Request{})
	}

	_, err := g.Complete(context.Background(), Request{})
	if !errors.Is(err, resilience.ErrCircuitOpen) {
		t.Errorf("expected breaker to be open after repeated failures, got %v", err)
	}
}
