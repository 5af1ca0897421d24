// Package ttsgateway turns Reply text into synthesized audio: a primary
// networked engine (piper) attempted first, falling back to a local
// engine (espeak) on failure, per spec.md §4.3.
package ttsgateway

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/lookatitude/hey-raven/o11y"
)

// Result is one synthesis call's output: raw audio bytes plus the format
// tag to record on the Audio record's metadata.
type Result struct {
	Audio  []byte
	Format string // "wav" or "mp3"
}

// Engine synthesizes text to audio.
type Engine interface {
	Name() string
	Synthesize(ctx context.Context, text, language string) (Result, error)
}

// EngineStats are the per-engine counters spec.md §4.3 requires for
// observability.
type EngineStats struct {
	Generations   int64
	Successes     int64
	Failures      int64
	AvgDurationMs float64
}

// Gateway selects a primary/fallback Engine pair per language and tracks
// per-engine counters.
type Gateway struct {
	primary         Engine
	fallback        Engine
	maxTextLength   int

	mu    sync.Mutex
	stats map[string]*EngineStats
}

// Config configures a Gateway.
type Config struct {
	Primary       Engine
	Fallback      Engine
	MaxTextLength int // default 1000, per spec.md §4.3.
}

// New builds a Gateway from cfg.
func New(cfg Config) *Gateway {
	maxLen := cfg.MaxTextLength
	if maxLen <= 0 {
		maxLen = 1000
	}
	return &Gateway{
		primary:       cfg.Primary,
		fallback:      cfg.Fallback,
		maxTextLength: maxLen,
		stats:         make(map[string]*EngineStats),
	}
}

// ErrTextTooLong is returned when text exceeds the configured
// MAX_TEXT_LENGTH guard.
type ErrTextTooLong struct {
	Length, Max int
}

func (e ErrTextTooLong) Error() string {
	return fmt.Sprintf("ttsgateway: text length %d exceeds MAX_TEXT_LENGTH %d", e.Length, e.Max)
}

// Synthesize attempts the primary engine, then the fallback engine on
// failure. It returns an error only when both engines fail ("graceful
// silence" at the caller, which must emit no Audio record in that case).
func (g *Gateway) Synthesize(ctx context.Context, text, language string) (Result, string, error) {
	if len(text) > g.maxTextLength {
		return Result{}, "", ErrTextTooLong{Length: len(text), Max: g.maxTextLength}
	}

	if g.primary != nil {
		if res, err := g.run(ctx, g.primary, text, language); err == nil {
			return res, g.primary.Name(), nil
		}
	}
	if g.fallback != nil {
		if res, err := g.run(ctx, g.fallback, text, language); err == nil {
			return res, g.fallback.Name(), nil
		}
	}
	return Result{}, "", fmt.Errorf("ttsgateway: both primary and fallback engines failed")
}

func (g *Gateway) run(ctx context.Context, engine Engine, text, language string) (Result, error) {
	ctx, span := o11y.StartSpan(ctx, "ttsgateway.synthesize", o11y.Attrs{
		o11y.AttrSystem:        engine.Name(),
		o11y.AttrOperationName: "synthesize",
	})
	defer span.End()

	start := time.Now()
	res, err := engine.Synthesize(ctx, text, language)
	elapsedMs := float64(time.Since(start).Milliseconds())

	o11y.Histogram(ctx, fmt.Sprintf("ttsgateway.%s.duration_ms", engine.Name()), elapsedMs)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(o11y.StatusError, err.Error())
		o11y.Counter(ctx, fmt.Sprintf("ttsgateway.%s.failures", engine.Name()), 1)
	} else {
		span.SetStatus(o11y.StatusOK, "")
		o11y.Counter(ctx, fmt.Sprintf("ttsgateway.%s.successes", engine.Name()), 1)
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	stats := g.statsForLocked(engine.Name())
	stats.Generations++
	if stats.Generations == 1 {
		stats.AvgDurationMs = elapsedMs
	} else {
		stats.AvgDurationMs += (elapsedMs - stats.AvgDurationMs) / float64(stats.Generations)
	}
	if err != nil {
		stats.Failures++
		return Result{}, err
	}
	stats.Successes++
	return res, nil
}

func (g *Gateway) statsForLocked(name string) *EngineStats {
	if s, ok := g.stats[name]; ok {
		return s
	}
	s := &EngineStats{}
	g.stats[name] = s
	return s
}

// Stats returns a snapshot of every engine's counters, keyed by engine
// name, for the health/stats surface.
func (g *Gateway) Stats() map[string]EngineStats {
	g.mu.Lock()
	defer g.mu.Unlock()

	out := make(map[string]EngineStats, len(g.stats))
	for name, s := range g.stats {
		out[name] = *s
	}
	return out
}
