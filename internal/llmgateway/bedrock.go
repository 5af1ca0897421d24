package llmgateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
)

// bedrockAnthropicRequest is the Bedrock Messages API request body for
// Anthropic-family models, per Amazon's bedrock-runtime InvokeModel
// contract.
type bedrockAnthropicRequest struct {
	AnthropicVersion string                        `json:"anthropic_version"`
	Messages         []bedrockAnthropicMessagePart `json:"messages"`
	System           string                        `json:"system,omitempty"`
	MaxTokens        int                           `json:"max_tokens"`
	Temperature      float64                       `json:"temperature,omitempty"`
}

type bedrockAnthropicMessagePart struct {
	Role    string                     `json:"role"`
	Content []bedrockAnthropicContent `json:"content"`
}

type bedrockAnthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type bedrockAnthropicResponse struct {
	Content    []bedrockAnthropicContent `json:"content"`
	StopReason string                    `json:"stop_reason"`
	Usage      struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// BedrockProvider invokes an Anthropic-family model through AWS Bedrock's
// InvokeModel API.
type BedrockProvider struct {
	client  *bedrockruntime.Client
	modelID string
}

// NewBedrockProvider builds a BedrockProvider for modelID using the
// default AWS credential chain (environment, shared config, or IAM role).
func NewBedrockProvider(ctx context.Context, modelID string) (*BedrockProvider, error) {
	if modelID == "" {
		return nil, errors.New("llmgateway: bedrock model id cannot be empty")
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("llmgateway: loading aws config: %w", err)
	}

	return &BedrockProvider{
		client:  bedrockruntime.NewFromConfig(cfg),
		modelID: modelID,
	}, nil
}

func (p *BedrockProvider) Name() string { return "bedrock" }

func (p *BedrockProvider) Model() string { return p.modelID }

func (p *BedrockProvider) Complete(ctx context.Context, req Request) (Response, error) {
	var systemPrompt string
	parts := make([]bedrockAnthropicMessagePart, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Role == "system" {
			systemPrompt += m.Content
			continue
		}
		parts = append(parts, bedrockAnthropicMessagePart{
			Role:    m.Role,
			Content: []bedrockAnthropicContent{{Type: "text", Text: m.Content}},
		})
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 500
	}

	body, err := json.Marshal(bedrockAnthropicRequest{
		AnthropicVersion: "bedrock-2023-05-31",
		Messages:         parts,
		System:           systemPrompt,
		MaxTokens:        maxTokens,
		Temperature:      req.Temperature,
	})
	if err != nil {
		return Response{}, fmt.Errorf("llmgateway: encoding bedrock request: %w", err)
	}

	out, err := p.client.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     &p.modelID,
		Body:        body,
		ContentType: strPtr("application/json"),
		Accept:      strPtr("application/json"),
	})
	if err != nil {
		return Response{}, fmt.Errorf("bedrock invoke model failed: %w", err)
	}

	var parsed bedrockAnthropicResponse
	if err := json.Unmarshal(out.Body, &parsed); err != nil {
		return Response{}, fmt.Errorf("llmgateway: decoding bedrock response: %w", err)
	}

	var text string
	for _, c := range parsed.Content {
		text += c.Text
	}

	return Response{
		Content:      text,
		FinishReason: parsed.StopReason,
		InputTokens:  parsed.Usage.InputTokens,
		OutputTokens: parsed.Usage.OutputTokens,
	}, nil
}

func strPtr(s string) *string { return &s }
