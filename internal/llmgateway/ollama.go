package llmgateway

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/ollama/ollama/api"
)

// OllamaProvider talks to a local or self-hosted Ollama instance.
type OllamaProvider struct {
	client *api.Client
	model  string
}

// NewOllamaProvider builds an OllamaProvider against host for the given
// model, failing fast if the model cannot be found.
func NewOllamaProvider(ctx context.Context, host, model string) (*OllamaProvider, error) {
	if model == "" {
		return nil, errors.New("llmgateway: ollama model name cannot be empty")
	}
	if host == "" {
		host = "http://127.0.0.1:11434"
	}

	parsed, err := url.Parse(host)
	if err != nil {
		return nil, fmt.Errorf("llmgateway: invalid ollama host %q: %w", host, err)
	}
	client := api.NewClient(parsed, nil)

	if _, err := client.Show(ctx, &api.ShowRequest{Name: model}); err != nil {
		return nil, fmt.Errorf("llmgateway: ollama model %q not available at %s: %w", model, host, err)
	}

	return &OllamaProvider{client: client, model: model}, nil
}

func (p *OllamaProvider) Name() string { return "ollama" }

func (p *OllamaProvider) Model() string { return p.model }

func (p *OllamaProvider) Complete(ctx context.Context, req Request) (Response, error) {
	messages := make([]api.Message, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, api.Message{Role: m.Role, Content: m.Content})
	}

	temp := float32(req.Temperature)
	numPredict := req.MaxTokens
	apiReq := &api.ChatRequest{
		Model:    p.model,
		Messages: messages,
		Options: api.Options{
			Temperature: &temp,
			NumPredict:  &numPredict,
		},
		Stream: boolPtr(false),
	}

	var final api.ChatResponse
	err := p.client.Chat(ctx, apiReq, func(resp api.ChatResponse) error {
		final = resp
		return nil
	})
	if err != nil {
		return Response{}, fmt.Errorf("ollama chat failed: %w", err)
	}

	return Response{
		Content:      final.Message.Content,
		FinishReason: final.DoneReason,
		InputTokens:  final.PromptEvalCount,
		OutputTokens: final.EvalCount,
	}, nil
}

func boolPtr(b bool) *bool { return &b }
