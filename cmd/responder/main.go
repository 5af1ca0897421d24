// Command responder runs the Responder stage: it reads Commands off the
// commands stream, calls the configured LLM provider, and emits Replies.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/hey-raven/guard"
	"github.com/lookatitude/hey-raven/internal/broker"
	"github.com/lookatitude/hey-raven/internal/env"
	"github.com/lookatitude/hey-raven/internal/healthserver"
	"github.com/lookatitude/hey-raven/internal/history"
	"github.com/lookatitude/hey-raven/internal/llmgateway"
	"github.com/lookatitude/hey-raven/internal/responder"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/o11y"
)

func main() {
	log := o11y.NewLogger(o11y.WithJSON())
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = o11y.WithLogger(ctx, log)

	if err := o11y.InitMeter("responder"); err != nil {
		log.Error(ctx, "responder: failed to init meter", "error", err)
	}
	if shutdownTracer, err := o11y.InitTracer("responder"); err != nil {
		log.Error(ctx, "responder: failed to init tracer", "error", err)
	} else {
		defer shutdownTracer()
	}

	rdb := redis.NewClient(&redis.Options{Addr: env.String("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	client := broker.New(rdb)

	gateway, err := buildGateway(ctx, log)
	if err != nil {
		log.Error(ctx, "responder: fatal startup failure building llm gateway", "error", err)
		os.Exit(1)
	}

	store := buildHistoryStore(rdb)

	guards := guard.NewPipeline(
		guard.Input(guard.NewSpotlighting("«»"), guard.NewPromptInjectionDetector()),
		guard.Output(guard.NewPIIRedactor(guard.DefaultPIIPatterns...)),
	)

	cfg := responder.DefaultConfig()
	if persona := env.String("RESPONDER_PERSONA", ""); persona != "" {
		cfg.Persona = persona
	}
	cfg.Temperature = env.Float("RESPONDER_TEMPERATURE", cfg.Temperature)
	cfg.MaxTokens = env.Int("RESPONDER_MAX_TOKENS", cfg.MaxTokens)
	cfg.HistoryN = env.Int("RESPONDER_HISTORY_N", cfg.HistoryN)

	resp := responder.New(cfg, gateway, store, guards, log)

	registry := o11y.NewHealthRegistry()
	registry.Register("broker", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return o11y.HealthResult{Status: o11y.Unhealthy, Message: err.Error()}
		}
		return o11y.HealthResult{Status: o11y.Healthy}
	}))

	var commandsProcessed, repliesEmitted int64
	srv := healthserver.New(env.String("HEALTH_ADDR", ":8081"), registry, func() any {
		return map[string]int64{"commands_processed": commandsProcessed, "replies_emitted": repliesEmitted}
	})
	go func() {
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "responder: health server stopped", "error", err)
		}
	}()

	loopCfg := broker.LoopConfig{
		Stream:    env.String("COMMANDS_STREAM", "hey_raven_commands"),
		Group:     env.String("RESPONDER_GROUP", "responder"),
		Consumer:  env.String("HOSTNAME", "responder-1"),
		StageName: "responder",
	}

	runErr := client.Run(ctx, loopCfg, func(ctx context.Context, entry broker.Entry) (bool, error) {
		var cmd streamtypes.Command
		if err := streamtypes.Decode(entry.Fields, &cmd); err != nil {
			log.Error(ctx, "responder: undecodable command, dropping", "id", entry.ID, "error", err)
			return true, nil
		}
		commandsProcessed++
		o11y.Counter(ctx, "responder.commands_processed", 1)

		reply, ok, err := resp.Respond(ctx, cmd)
		if err != nil {
			return false, fmt.Errorf("responder: %w", err)
		}
		if !ok {
			return true, nil
		}

		fields, err := streamtypes.Encode(streamtypes.TypeReply, reply)
		if err != nil {
			return false, fmt.Errorf("responder: encode reply: %w", err)
		}
		if _, err := client.Append(ctx, env.String("REPLIES_STREAM", "llm_responses"), fields); err != nil {
			return false, fmt.Errorf("responder: append reply: %w", err)
		}
		repliesEmitted++
		o11y.Counter(ctx, "responder.replies_emitted", 1)
		return true, nil
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	if runErr != nil && ctx.Err() == nil {
		log.Error(context.Background(), "responder: loop exited with error", "error", runErr)
		os.Exit(1)
	}
}

func buildGateway(ctx context.Context, log *o11y.Logger) (*llmgateway.Gateway, error) {
	var providers []llmgateway.Provider

	ollamaHost := env.String("OLLAMA_HOST", "http://localhost:11434")
	ollamaModel := env.String("OLLAMA_MODEL", "llama3")
	ollamaTimeout := env.Duration("OLLAMA_API_TIMEOUT", 60*time.Second)
	ollamaCtx, cancel := context.WithTimeout(ctx, ollamaTimeout)
	defer cancel()
	if p, err := llmgateway.NewOllamaProvider(ollamaCtx, ollamaHost, ollamaModel); err == nil {
		providers = append(providers, p)
	}

	if apiKey := env.String("OPENAI_API_KEY", ""); apiKey != "" {
		if p, err := llmgateway.NewOpenAIProvider(apiKey, env.String("OPENAI_BASE_URL", ""), env.String("OPENAI_MODEL", "gpt-4o")); err == nil {
			providers = append(providers, p)
		}
	}

	if apiKey := env.String("ANTHROPIC_API_KEY", ""); apiKey != "" {
		if p, err := llmgateway.NewAnthropicProvider(apiKey, env.String("ANTHROPIC_MODEL", "claude-3-haiku-20240307")); err == nil {
			providers = append(providers, p)
		}
	}

	if modelID := env.String("BEDROCK_MODEL_ID", ""); modelID != "" {
		if p, err := llmgateway.NewBedrockProvider(ctx, modelID); err == nil {
			providers = append(providers, p)
		}
	}

	if len(providers) == 0 {
		return nil, fmt.Errorf("no llm providers configured")
	}

	active := env.String("LLM_ACTIVE_PROVIDER", providers[0].Name())
	return llmgateway.New(active, providers, llmgateway.WithTraceExporter(o11y.NewMultiExporter(o11y.NewLogExporter(log))))
}

func buildHistoryStore(rdb *redis.Client) history.Store {
	if env.String("HISTORY_BACKEND", "memory") != "redis" {
		return history.NewMemoryStore(env.Int("RESPONDER_HISTORY_N", 10))
	}
	store, err := history.NewRedisStore(history.RedisStoreConfig{
		Client:   rdb,
		MaxTurns: env.Int("RESPONDER_HISTORY_N", 10),
	})
	if err != nil {
		return history.NewMemoryStore(env.Int("RESPONDER_HISTORY_N", 10))
	}
	return store
}
