// Package bridge implements the browser-facing side of the Player: a
// gorilla/websocket JSON message channel between the bot process and the
// headless browser context embedded in the meeting. Grounded on
// hubenschmidt-asr-llm-tts's services/gateway/internal/ws/handler.go
// (mutex-guarded conn.WriteMessage, a dispatch-by-type read loop).
package bridge

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/lookatitude/hey-raven/internal/player"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/o11y"
)

// Kind identifies one of the four message shapes exchanged over the
// bridge channel.
type Kind string

const (
	KindPlayAudio        Kind = "play_audio"
	KindSetMicMuted      Kind = "set_mic_muted"
	KindPlaybackComplete Kind = "playback_complete"
	KindSessionUIDUpdate Kind = "session_uid_update"
)

// message is the wire envelope for every frame exchanged over the
// channel, in either direction.
type message struct {
	Kind       Kind   `json:"kind"`
	MessageID  string `json:"message_id,omitempty"`
	Audio      string `json:"audio,omitempty"`
	Muted      bool   `json:"muted,omitempty"`
	SessionUID string `json:"session_uid,omitempty"`
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  16384,
	WriteBufferSize: 16384,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// Bridge implements player.Bridge over one websocket connection to the
// bot's embedded browser context. One Bridge is created per meeting
// session and handed to exactly one player.Player.
type Bridge struct {
	conn *websocket.Conn
	log  *o11y.Logger

	writeMu sync.Mutex

	mu       sync.Mutex
	waiters  map[string]chan struct{}
}

// New upgrades an HTTP request to a websocket connection and returns a
// Bridge ready to use. Callers must call Run to service incoming frames.
func New(w http.ResponseWriter, r *http.Request, log *o11y.Logger) (*Bridge, error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, fmt.Errorf("bridge: upgrade: %w", err)
	}
	return &Bridge{conn: conn, log: log, waiters: make(map[string]chan struct{})}, nil
}

var _ player.Bridge = (*Bridge)(nil)

// Run reads frames until the connection closes or ctx is canceled,
// dispatching playback_complete acks to any in-flight AwaitPlaybackComplete
// call and session_uid_update frames to onSessionUpdate.
func (b *Bridge) Run(ctx context.Context, onSessionUpdate func(streamtypes.SessionBinding)) error {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = b.conn.Close()
		case <-done:
		}
	}()
	defer close(done)

	for {
		_, data, err := b.conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("bridge: read: %w", err)
		}
		var msg message
		if err := json.Unmarshal(data, &msg); err != nil {
			b.log.Warn(ctx, "bridge: dropping unparseable frame", "error", err)
			continue
		}
		switch msg.Kind {
		case KindPlaybackComplete:
			b.signalComplete(msg.MessageID)
		case KindSessionUIDUpdate:
			if onSessionUpdate != nil {
				onSessionUpdate(streamtypes.SessionBinding{RecognizerSessionUID: msg.SessionUID})
			}
		default:
			b.log.Warn(ctx, "bridge: unexpected frame kind from browser", "kind", msg.Kind)
		}
	}
}

func (b *Bridge) signalComplete(messageID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if ch, ok := b.waiters[messageID]; ok {
		close(ch)
		delete(b.waiters, messageID)
	}
}

func (b *Bridge) send(msg message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("bridge: marshal: %w", err)
	}
	b.writeMu.Lock()
	defer b.writeMu.Unlock()
	if err := b.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("bridge: write: %w", err)
	}
	return nil
}

// SetMicMuted implements player.Bridge.
func (b *Bridge) SetMicMuted(ctx context.Context, muted bool) error {
	return b.send(message{Kind: KindSetMicMuted, Muted: muted})
}

// PlayAudio implements player.Bridge.
func (b *Bridge) PlayAudio(ctx context.Context, messageID string, blob []byte) error {
	b.mu.Lock()
	b.waiters[messageID] = make(chan struct{})
	b.mu.Unlock()

	return b.send(message{Kind: KindPlayAudio, MessageID: messageID, Audio: base64.StdEncoding.EncodeToString(blob)})
}

// AwaitPlaybackComplete implements player.Bridge, blocking until the
// browser acks messageID via a playback_complete frame, ctx is
// canceled, or timeout elapses.
func (b *Bridge) AwaitPlaybackComplete(ctx context.Context, messageID string, timeout time.Duration) error {
	b.mu.Lock()
	ch, ok := b.waiters[messageID]
	if !ok {
		ch = make(chan struct{})
		b.waiters[messageID] = ch
	}
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.waiters, messageID)
		b.mu.Unlock()
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return fmt.Errorf("bridge: timed out waiting for playback_complete for %s", messageID)
	}
}

// Close closes the underlying connection.
func (b *Bridge) Close() error {
	return b.conn.Close()
}
