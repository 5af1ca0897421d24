// Command synthesizer runs the Synthesizer stage: it reads Replies off
// the replies stream, synthesizes speech audio, and emits Audio records.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/hey-raven/internal/broker"
	"github.com/lookatitude/hey-raven/internal/env"
	"github.com/lookatitude/hey-raven/internal/healthserver"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/internal/synthesizer"
	"github.com/lookatitude/hey-raven/internal/ttsgateway"
	"github.com/lookatitude/hey-raven/o11y"
)

func main() {
	log := o11y.NewLogger(o11y.WithJSON())
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = o11y.WithLogger(ctx, log)

	if err := o11y.InitMeter("synthesizer"); err != nil {
		log.Error(ctx, "synthesizer: failed to init meter", "error", err)
	}
	if shutdownTracer, err := o11y.InitTracer("synthesizer"); err != nil {
		log.Error(ctx, "synthesizer: failed to init tracer", "error", err)
	} else {
		defer shutdownTracer()
	}

	rdb := redis.NewClient(&redis.Options{Addr: env.String("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	client := broker.New(rdb)

	gateway := ttsgateway.New(ttsgateway.Config{
		Primary:       ttsgateway.NewPiperEngine(env.String("PIPER_URL", "http://localhost:5000"), env.String("PIPER_VOICE", "en_US-amy-medium")),
		Fallback:      ttsgateway.NewEspeakEngine(env.String("ESPEAK_BINARY", "espeak-ng")),
		MaxTextLength: env.Int("MAX_TEXT_LENGTH", 1000),
	})

	synCfg := synthesizer.DefaultConfig()
	synCfg.DefaultLanguage = env.String("SYNTHESIZER_DEFAULT_LANGUAGE", synCfg.DefaultLanguage)
	syn := synthesizer.New(synCfg, gateway, log)

	registry := o11y.NewHealthRegistry()
	registry.Register("broker", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return o11y.HealthResult{Status: o11y.Unhealthy, Message: err.Error()}
		}
		return o11y.HealthResult{Status: o11y.Healthy}
	}))

	var repliesProcessed, audioEmitted int64
	srv := healthserver.New(env.String("HEALTH_ADDR", ":8082"), registry, func() any {
		stats := gateway.Stats()
		return map[string]any{
			"replies_processed": repliesProcessed,
			"audio_emitted":      audioEmitted,
			"engines":            stats,
		}
	})
	go func() {
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "synthesizer: health server stopped", "error", err)
		}
	}()

	loopCfg := broker.LoopConfig{
		Stream:    env.String("REPLIES_STREAM", "llm_responses"),
		Group:     env.String("SYNTHESIZER_GROUP", "synthesizer"),
		Consumer:  env.String("HOSTNAME", "synthesizer-1"),
		StageName: "synthesizer",
	}

	runErr := client.Run(ctx, loopCfg, func(ctx context.Context, entry broker.Entry) (bool, error) {
		var reply streamtypes.Reply
		if err := streamtypes.Decode(entry.Fields, &reply); err != nil {
			log.Error(ctx, "synthesizer: undecodable reply, dropping", "id", entry.ID, "error", err)
			return true, nil
		}
		repliesProcessed++
		o11y.Counter(ctx, "synthesizer.replies_processed", 1)

		audio, ok := syn.Synthesize(ctx, reply)
		if !ok {
			return true, nil
		}

		fields, err := streamtypes.Encode(streamtypes.TypeAudio, audio)
		if err != nil {
			return false, fmt.Errorf("synthesizer: encode audio: %w", err)
		}
		if _, err := client.Append(ctx, env.String("AUDIO_STREAM", "tts_audio_queue"), fields); err != nil {
			return false, fmt.Errorf("synthesizer: append audio: %w", err)
		}
		audioEmitted++
		o11y.Counter(ctx, "synthesizer.audio_emitted", 1)
		return true, nil
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	if runErr != nil && ctx.Err() == nil {
		log.Error(context.Background(), "synthesizer: loop exited with error", "error", runErr)
		os.Exit(1)
	}
}
