// Package player implements the in-bot audio coordinator: a strict-FIFO
// playback queue, an Idle/Playing/Draining state machine, session
// gating, and idempotent playback dedup, per spec.md §4.4.
package player

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lookatitude/hey-raven/core"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/o11y"
)

// State is the Player's playback state.
type State string

const (
	StateIdle     State = "idle"
	StatePlaying  State = "playing"
	StateDraining State = "draining"
)

// Bridge is the narrow surface the Player needs from the bot's browser
// context: mute/unmute the bot's microphone, play a decoded blob, and
// report playback completion. internal/bridge implements this over a
// websocket JSON message channel.
type Bridge interface {
	SetMicMuted(ctx context.Context, muted bool) error
	PlayAudio(ctx context.Context, messageID string, blob []byte) error
	AwaitPlaybackComplete(ctx context.Context, messageID string, timeout time.Duration) error
}

// Config holds the Player's tunables.
type Config struct {
	// FallbackTimeoutCap bounds playback wait when audio_metadata.duration_s
	// is zero or implausible.
	FallbackTimeoutCap time.Duration
	// Grace is added atop max(duration_s, FallbackTimeoutCap) per spec.md §4.4.
	Grace time.Duration
	// DedupMaxEntries/DedupTTL bound the idempotent playback dedup cache.
	DedupMaxEntries int
	DedupTTL        time.Duration
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{
		FallbackTimeoutCap: 10 * time.Second,
		Grace:              2 * time.Second,
		DedupMaxEntries:    200,
		DedupTTL:           10 * time.Minute,
	}
}

// Player coordinates strict-FIFO playback of Audio records for one bot
// process. It is single-threaded by construction: Run drains the queue
// sequentially, and Enqueue only ever appends to it.
type Player struct {
	cfg    Config
	bridge Bridge
	log    *o11y.Logger
	dedup  *dedupCache

	mu                   sync.Mutex
	state                State
	queue                []streamtypes.Audio
	recognizerSessionUID string
	connectionID         string
	notify               chan struct{}
}

// New builds a Player bound to bridge.
func New(cfg Config, bridge Bridge, log *o11y.Logger) *Player {
	if cfg.DedupMaxEntries <= 0 {
		cfg.DedupMaxEntries = 200
	}
	if cfg.DedupTTL <= 0 {
		cfg.DedupTTL = 10 * time.Minute
	}
	return &Player{
		cfg:    cfg,
		bridge: bridge,
		log:    log,
		dedup:  newDedupCache(cfg.DedupMaxEntries, cfg.DedupTTL),
		state:  StateIdle,
		notify: make(chan struct{}, 1),
	}
}

// BindSession records the session_uid learned when the bot's in-browser
// recognizer client opens its WebSocket, and the connection_id used as a
// degraded fallback match.
func (p *Player) BindSession(binding streamtypes.SessionBinding) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recognizerSessionUID = binding.RecognizerSessionUID
	p.connectionID = binding.ConnectionID
}

// State returns the Player's current playback state.
func (p *Player) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// QueueLength returns the number of Audio records awaiting playback.
func (p *Player) QueueLength() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue)
}

// ErrSessionMismatch is returned by Enqueue when an Audio record fails
// both the primary and degraded session-gating checks.
var ErrSessionMismatch = errors.New("player: audio session does not match bot session")

// Enqueue admits an Audio record for playback if it passes session
// gating and isn't a dedup hit, appending it to the FIFO queue.
func (p *Player) Enqueue(audio streamtypes.Audio) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == StateDraining {
		return fmt.Errorf("player: not accepting new audio while draining")
	}

	if !audio.Valid() {
		p.log.Warn(context.Background(), "player: dropping audio missing audio_data or message_id",
			"message_id", audio.MessageID)
		return nil
	}

	switch {
	case audio.SessionUID == p.recognizerSessionUID:
		// primary match
	case audio.SessionUID == p.connectionID && p.connectionID != "":
		p.log.Warn(context.Background(), "player: admitted audio via degraded connection_id match",
			"audio_session_uid", audio.SessionUID, "connection_id", p.connectionID)
	default:
		p.log.Warn(context.Background(), "player: dropping audio failing session gating",
			"audio_session_uid", audio.SessionUID,
			"recognizer_session_uid", p.recognizerSessionUID,
			"connection_id", p.connectionID)
		return core.NewError("player.enqueue", core.ErrSessionMismatch, "audio session_uid matched neither recognizer_session_uid nor connection_id", ErrSessionMismatch)
	}

	if p.dedup.SeenBefore(audio.MessageID) {
		p.log.Info(context.Background(), "player: dropping redelivered audio", "message_id", audio.MessageID)
		return nil
	}

	p.queue = append(p.queue, audio)
	select {
	case p.notify <- struct{}{}:
	default:
	}
	return nil
}

// Drain transitions the Player to Draining: no further audio is
// admitted, and Run exits once the current playback (if any) finishes.
func (p *Player) Drain() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = StateDraining
	select {
	case p.notify <- struct{}{}:
	default:
	}
}

// Run processes the queue until ctx is canceled or Drain is called; after
// Drain it finishes the current playback (if any), leaves the rest of the
// queue unplayed, and returns. It is the Player's single playback loop: callers
// must not run more than one Run concurrently.
func (p *Player) Run(ctx context.Context) error {
	for {
		audio, ok := p.dequeue()
		if !ok {
			if p.State() == StateDraining {
				return nil
			}
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-p.notify:
				continue
			}
		}

		p.setState(StatePlaying)
		p.play(ctx, audio)

		if p.State() == StateDraining {
			return nil
		}
		if p.dequeueEmpty() {
			p.setState(StateIdle)
		}
	}
}

func (p *Player) dequeue() (streamtypes.Audio, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return streamtypes.Audio{}, false
	}
	audio := p.queue[0]
	p.queue = p.queue[1:]
	return audio, true
}

func (p *Player) dequeueEmpty() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.queue) == 0
}

func (p *Player) setState(s State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.state = s
}

// play runs the playback protocol from spec.md §4.4 steps 2-6 for one
// Audio record: decode, mute, play, await completion, unmute. Failures
// at any step reset to Idle, unmute, and continue with the next item.
func (p *Player) play(ctx context.Context, audio streamtypes.Audio) {
	o11y.Counter(ctx, "player.playback_count", 1)

	blob, err := base64.StdEncoding.DecodeString(audio.AudioData)
	if err != nil {
		p.log.Error(ctx, "player: failed to decode audio blob", "message_id", audio.MessageID, "error", err)
		return
	}

	if err := p.bridge.SetMicMuted(ctx, true); err != nil {
		p.log.Error(ctx, "player: failed to mute microphone", "message_id", audio.MessageID, "error", err)
		return
	}

	timeout := p.playbackTimeout(audio)
	playCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := p.bridge.PlayAudio(playCtx, audio.MessageID, blob); err != nil {
		p.log.Error(ctx, "player: playback failed", "message_id", audio.MessageID, "error", err)
		_ = p.bridge.SetMicMuted(ctx, false)
		return
	}

	if err := p.bridge.AwaitPlaybackComplete(playCtx, audio.MessageID, timeout); err != nil {
		p.log.Error(ctx, "player: playback did not complete in time", "message_id", audio.MessageID, "error", err)
	}

	if err := p.bridge.SetMicMuted(ctx, false); err != nil {
		p.log.Error(ctx, "player: failed to unmute microphone", "message_id", audio.MessageID, "error", err)
	}
}

// playbackTimeout computes max(duration_s, fallback_cap) + grace per
// spec.md §4.4.
func (p *Player) playbackTimeout(audio streamtypes.Audio) time.Duration {
	duration := time.Duration(audio.AudioMetadata.DurationS * float64(time.Second))
	if duration < p.cfg.FallbackTimeoutCap {
		duration = p.cfg.FallbackTimeoutCap
	}
	return duration + p.cfg.Grace
}
