// Command wakedetector runs the WakeDetector stage: it reads Segments off
// the transcripts stream, matches wake phrases, and emits Commands.
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
	"github.com/lookatitude/hey-raven/internal/configwatch"
	"github.com/lookatitude/hey-raven/internal/env"
	"github.com/lookatitude/hey-raven/internal/healthserver"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/internal/wakedetector"
	"github.com/lookatitude/hey-raven/o11y"
)

func main() {
	log := o11y.NewLogger(o11y.WithJSON())
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	ctx = o11y.WithLogger(ctx, log)

	if err := o11y.InitMeter("wakedetector"); err != nil {
		log.Error(ctx, "wakedetector: failed to init meter", "error", err)
	}
	if shutdownTracer, err := o11y.InitTracer("wakedetector"); err != nil {
		log.Error(ctx, "wakedetector: failed to init tracer", "error", err)
	} else {
		defer shutdownTracer()
	}

	rdb := redis.NewClient(&redis.Options{Addr: env.String("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	client := broker.New(rdb)

	det := wakedetector.New(loadPatternsOrDefault(log))

	patternsPath := env.String("WAKE_PATTERNS_FILE", "")
	if patternsPath != "" {
		go func() {
			err := configwatch.Watch(ctx, patternsPath, configwatch.DefaultInterval, func(data []byte) {
				cfg, err := wakedetector.ParseConfig(data)
				if err != nil {
					log.Error(ctx, "wakedetector: reload failed, keeping previous config", "error", err)
					return
				}
				det.SetConfig(cfg)
				log.Info(ctx, "wakedetector: reloaded pattern config")
			})
			if err != nil && ctx.Err() == nil {
				log.Error(ctx, "wakedetector: config watch stopped", "error", err)
			}
		}()
	}

	registry := o11y.NewHealthRegistry()
	registry.Register("broker", o11y.HealthCheckerFunc(func(ctx context.Context) o11y.HealthResult {
		if _, err := rdb.Ping(ctx).Result(); err != nil {
			return o11y.HealthResult{Status: o11y.Unhealthy, Message: err.Error()}
		}
		return o11y.HealthResult{Status: o11y.Healthy}
	}))

	var commandsEmitted, segmentsProcessed int64
	srv := healthserver.New(env.String("HEALTH_ADDR", ":8080"), registry, func() any {
		return map[string]int64{"segments_processed": segmentsProcessed, "commands_emitted": commandsEmitted}
	})
	go func() {
		if err := srv.Serve(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "wakedetector: health server stopped", "error", err)
		}
	}()

	loopCfg := broker.LoopConfig{
		Stream:    env.String("TRANSCRIPTS_STREAM", "transcripts"),
		Group:     env.String("WAKE_DETECTOR_GROUP", "wakedetector"),
		Consumer:  env.String("HOSTNAME", "wakedetector-1"),
		StageName: "wakedetector",
	}

	err := client.Run(ctx, loopCfg, func(ctx context.Context, entry broker.Entry) (bool, error) {
		var seg streamtypes.Segment
		if err := streamtypes.Decode(entry.Fields, &seg); err != nil {
			log.Error(ctx, "wakedetector: undecodable segment, dropping", "id", entry.ID, "error", err)
			return true, nil
		}
		segmentsProcessed++
		o11y.Counter(ctx, "wakedetector.segments_processed", 1)

		cmd, ok := det.Detect(seg, time.Now())
		if !ok {
			return true, nil
		}

		fields, err := streamtypes.Encode(streamtypes.TypeCommand, cmd)
		if err != nil {
			return false, fmt.Errorf("wakedetector: encode command: %w", err)
		}
		if _, err := client.Append(ctx, env.String("COMMANDS_STREAM", "hey_raven_commands"), fields); err != nil {
			return false, fmt.Errorf("wakedetector: append command: %w", err)
		}
		commandsEmitted++
		o11y.Counter(ctx, "wakedetector.commands_emitted", 1)
		return true, nil
	})

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	srv.Shutdown(shutdownCtx)

	if err != nil && ctx.Err() == nil {
		log.Error(context.Background(), "wakedetector: loop exited with error", "error", err)
		os.Exit(1)
	}
}

func loadPatternsOrDefault(log *o11y.Logger) wakedetector.Config {
	path := env.String("WAKE_PATTERNS_FILE", "")
	if path == "" {
		return wakedetector.DefaultConfig()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Error(context.Background(), "wakedetector: failed to read pattern file, using defaults", "path", path, "error", err)
		return wakedetector.DefaultConfig()
	}
	cfg, err := wakedetector.ParseConfig(data)
	if err != nil {
		log.Error(context.Background(), "wakedetector: failed to parse pattern file, using defaults", "path", path, "error", err)
		return wakedetector.DefaultConfig()
	}
	return cfg
}
