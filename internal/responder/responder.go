// Package responder turns Command records into Reply records: it builds
// a prompt from a persona preamble, bounded conversation history, and the
// current question, invokes the LLM gateway, and applies the retry/
// permanent-failure/empty-completion policy from spec.md §4.2.
package responder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/lookatitude/hey-raven/core"
	"github.com/lookatitude/hey-raven/guard"
	"github.com/lookatitude/hey-raven/internal/history"
	"github.com/lookatitude/hey-raven/internal/llmgateway"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/o11y"
)

const emptyCompletionFallback = "I don't have an answer for that right now."

// Config holds the Responder's tunables, sourced from environment
// variables in cmd/responder.
type Config struct {
	Persona     string
	Temperature float64
	MaxTokens   int
	HistoryN    int
}

// DefaultConfig returns spec.md §4.2's documented defaults.
func DefaultConfig() Config {
	return Config{
		Persona:     "You are Hey Raven, a concise, helpful meeting assistant.",
		Temperature: 0.7,
		MaxTokens:   500,
		HistoryN:    10,
	}
}

// Responder wires conversation history, prompt assembly, guard
// validation, and the LLM gateway together to answer one Command at a
// time.
type Responder struct {
	cfg     Config
	gateway *llmgateway.Gateway
	history history.Store
	guards  *guard.Pipeline
	log     *o11y.Logger
}

// New builds a Responder. guards may be nil to skip input/output
// validation.
func New(cfg Config, gateway *llmgateway.Gateway, store history.Store, guards *guard.Pipeline, log *o11y.Logger) *Responder {
	if cfg.HistoryN <= 0 {
		cfg.HistoryN = 10
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 500
	}
	return &Responder{cfg: cfg, gateway: gateway, history: store, guards: guards, log: log}
}

// Respond answers cmd, returning the Reply to emit and true, or false if
// the Command was a permanent failure (already logged) that should be
// acknowledged without producing a Reply.
func (r *Responder) Respond(ctx context.Context, cmd streamtypes.Command) (streamtypes.Reply, bool, error) {
	question := cmd.Question
	if r.guards != nil {
		result, err := r.guards.ValidateInput(ctx, question)
		if err != nil {
			return streamtypes.Reply{}, false, fmt.Errorf("responder: input validation: %w", err)
		}
		if !result.Allowed {
			r.log.Warn(ctx, "responder: blocked command by input guard",
				"session_uid", cmd.SessionUID, "guard", result.GuardName, "reason", result.Reason)
			return streamtypes.Reply{}, false, nil
		}
		if result.Modified != "" {
			question = result.Modified
		}
	}

	messages := r.buildMessages(cmd.SessionUID, question)

	resp, err := r.gateway.Complete(ctx, llmgateway.Request{
		Messages:    messages,
		Temperature: r.cfg.Temperature,
		MaxTokens:   r.cfg.MaxTokens,
	})
	if err != nil {
		if isPermanent(err) {
			r.log.Error(ctx, "responder: permanent llm failure, dropping command", "session_uid", cmd.SessionUID, "error", err)
			return streamtypes.Reply{}, false, nil
		}
		return streamtypes.Reply{}, false, fmt.Errorf("responder: llm completion: %w", err)
	}

	answer := resp.Content
	if r.guards != nil && answer != "" {
		result, err := r.guards.ValidateOutput(ctx, answer)
		if err != nil {
			return streamtypes.Reply{}, false, fmt.Errorf("responder: output validation: %w", err)
		}
		if result.Modified != "" {
			answer = result.Modified
		} else if !result.Allowed {
			answer = ""
		}
	}
	if answer == "" {
		answer = emptyCompletionFallback
	}

	r.history.Append(cmd.SessionUID, history.Turn{Question: question, Response: answer})

	return streamtypes.Reply{
		Response:          answer,
		SessionUID:        cmd.SessionUID,
		MeetingID:         cmd.MeetingID,
		OriginalQuestion:  cmd.Question,
		OriginalTimestamp: cmd.Timestamp,
		Timestamp:         time.Now().UTC().Format(time.RFC3339),
		MessageID:         uuid.NewString(),
	}, true, nil
}

// buildMessages assembles the persona preamble, bounded history, and
// current question into the chat turns submitted to the LLM gateway.
func (r *Responder) buildMessages(sessionUID, question string) []llmgateway.Message {
	messages := make([]llmgateway.Message, 0, 1+2*r.cfg.HistoryN+1)
	messages = append(messages, llmgateway.Message{Role: "system", Content: r.cfg.Persona})

	for _, turn := range r.history.Turns(sessionUID) {
		messages = append(messages,
			llmgateway.Message{Role: "user", Content: turn.Question},
			llmgateway.Message{Role: "assistant", Content: turn.Response},
		)
	}

	messages = append(messages, llmgateway.Message{Role: "user", Content: question})
	return messages
}

// isPermanent reports whether err represents a permanent LLM failure
// (client-fault request, unknown model) that must not be retried and
// must not produce a Reply, per spec.md §4.2.
func isPermanent(err error) bool {
	var belugaErr *core.Error
	if errors.As(err, &belugaErr) {
		switch belugaErr.Code {
		case core.ErrValidation, core.ErrInvalidInput, core.ErrAuth:
			return true
		}
	}
	return false
}
