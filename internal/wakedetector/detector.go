// Package wakedetector consumes recognizer Segment records, detects wake
// phrases tolerant of speech-recognition noise, extracts the trailing
// question, rate-limits admissions per session, and emits Command records.
package wakedetector

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/lookatitude/hey-raven/internal/streamtypes"
)

// hit is one matched (kind, phrase) pair within a normalized segment.
type hit struct {
	kind       string
	phrase     string
	offset     int
	matchLen   int
	confidence float64
	order      int
}

// Detector holds hot-reloadable pattern configuration and per-session
// rate-limit state for one WakeDetector process.
type Detector struct {
	cfg     atomic.Pointer[Config]
	limiter *sessionRateLimiter
}

// New creates a Detector with the given initial configuration.
func New(cfg Config) *Detector {
	d := &Detector{limiter: newSessionRateLimiter()}
	d.SetConfig(cfg)
	return d
}

// SetConfig atomically swaps the active configuration, so in-flight Detect
// calls never observe a half-updated config.
func (d *Detector) SetConfig(cfg Config) {
	d.cfg.Store(&cfg)
}

// Config returns the currently active configuration.
func (d *Detector) Config() Config {
	return *d.cfg.Load()
}

// Detect runs the full per-segment algorithm from spec.md §4.1: normalize,
// match, select the best hit, extract the question, and rate-limit. It
// returns the emitted Command and true if the segment was admitted.
func (d *Detector) Detect(seg streamtypes.Segment, now time.Time) (streamtypes.Command, bool) {
	cfg := d.Config()
	text := normalize(seg.Text)
	if text == "" {
		return streamtypes.Command{}, false
	}

	hits := matchHits(text, cfg)
	if len(hits) == 0 {
		return streamtypes.Command{}, false
	}

	best := selectBest(hits)

	question, ok := extractQuestion(text, best, cfg.Question)
	if !ok {
		return streamtypes.Command{}, false
	}

	if !d.limiter.Allow(cfg.RateLimit, seg.SessionUID, now) {
		return streamtypes.Command{}, false
	}

	return streamtypes.Command{
		Question:    question,
		SessionUID:  seg.SessionUID,
		MeetingID:   seg.MeetingID,
		Context:     fmt.Sprintf("segment %.2fs-%.2fs", seg.SegmentStartS, seg.SegmentEndS),
		Confidence:  best.confidence,
		PatternKind: best.kind,
		Timestamp:   now.UTC().Format(time.RFC3339),
	}, true
}

// matchHits records every (kind, phrase) hit within text per spec.md §4.1
// step 2: exact substring match for non-fuzzy kinds, edit-distance match
// for the fuzzy kind.
func matchHits(text string, cfg Config) []hit {
	var hits []hit
	order := 0

	for _, group := range cfg.Patterns {
		threshold := cfg.thresholdFor(group.Kind)
		for _, phrase := range group.Phrases {
			if group.Kind == "fuzzy" {
				if !cfg.Fuzzy.Enabled {
					order++
					continue
				}
				if offset, length, _, ok := fuzzyMatch(text, phrase, cfg.Fuzzy.MaxEditDistance); ok {
					hits = append(hits, hit{
						kind: group.Kind, phrase: phrase, offset: offset,
						matchLen: length, confidence: threshold, order: order,
					})
				}
				order++
				continue
			}

			if idx := strings.Index(text, phrase); idx >= 0 {
				hits = append(hits, hit{
					kind: group.Kind, phrase: phrase, offset: len([]rune(text[:idx])),
					matchLen: len([]rune(phrase)), confidence: threshold, order: order,
				})
			}
			order++
		}
	}

	return hits
}

// selectBest picks the highest-confidence hit, breaking ties by earliest
// offset and then by configuration order, per spec.md §4.1 step 3.
func selectBest(hits []hit) hit {
	best := hits[0]
	for _, h := range hits[1:] {
		switch {
		case h.confidence > best.confidence:
			best = h
		case h.confidence == best.confidence && h.offset < best.offset:
			best = h
		case h.confidence == best.confidence && h.offset == best.offset && h.order < best.order:
			best = h
		}
	}
	return best
}

// extractQuestion pulls the substring after the matched phrase up to the
// next strong punctuation boundary or end of text, trims it, and enforces
// the configured length bounds, per spec.md §4.1 step 4.
func extractQuestion(text string, best hit, qcfg QuestionConfig) (string, bool) {
	rt := []rune(text)
	start := best.offset + best.matchLen
	if start > len(rt) {
		start = len(rt)
	}
	tail := string(rt[start:])

	if boundary := strongPunctuationBoundary(tail); boundary >= 0 {
		tail = tail[:boundary]
	}

	question := strings.Trim(strings.TrimSpace(tail), ",? ")
	n := len([]rune(question))
	if n < qcfg.MinChars || n > qcfg.MaxChars {
		return "", false
	}
	return question, true
}
