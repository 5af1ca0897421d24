package llmgateway

import (
	"errors"
	"fmt"

	"context"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"
)

// AnthropicProvider talks to the Anthropic Messages API.
type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

// NewAnthropicProvider builds an AnthropicProvider for model.
func NewAnthropicProvider(apiKey, model string) (*AnthropicProvider, error) {
	if apiKey == "" {
		return nil, errors.New("llmgateway: anthropic api key cannot be empty")
	}
	if model == "" {
		model = "claude-3-haiku-20240307"
	}

	client := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &AnthropicProvider{client: &client, model: model}, nil
}

func (p *AnthropicProvider) Name() string { return "anthropic" }

func (p *AnthropicProvider) Model() string { return p.model }

func (p *AnthropicProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var systemPrompt string
	messages := make([]anthropic.BetaMessageParam, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemPrompt += m.Content
			continue
		}
		role := anthropic.BetaMessageParamRoleUser
		if m.Role == "assistant" {
			role = anthropic.BetaMessageParamRoleAssistant
		}
		messages = append(messages, anthropic.BetaMessageParam{
			Role: role,
			Content: []anthropic.BetaContentBlockParamUnion{
				{OfText: &anthropic.BetaTextBlockParam{Text: m.Content, Type: constant.TextBlockTypeText}},
			},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	params := anthropic.BetaMessageNewParams{
		Model:     param.NewOpt(anthropic.BetaMessageNewParamsModelUnion{OfStr: anthropic.String(p.model)}),
		MaxTokens: param.NewOpt[int64](int64(maxTokens)),
		Messages:  messages,
	}
	if systemPrompt != "" {
		params.System = param.NewOpt([]anthropic.BetaTextBlockParam{{Text: systemPrompt, Type: constant.TextBlockTypeText}})
	}

	resp, err := p.client.Beta.Messages.New(ctx, params)
	if err != nil {
		return Response{}, fmt.Errorf("anthropic chat completion failed: %w", err)
	}

	var text string
	for _, block := range resp.Content {
		if b, ok := block.AsAny().(anthropic.BetaTextBlock); ok {
			text += b.Text
		}
	}

	var finishReason string
	if resp.StopReason.IsPresent() {
		finishReason = string(resp.StopReason.Get())
	}

	return Response{
		Content:      text,
		FinishReason: finishReason,
		InputTokens:  int(resp.Usage.InputTokens),
		OutputTokens: int(resp.Usage.OutputTokens),
	}, nil
}
