// Command bot hosts the Player for one meeting session: it serves the
// browser bridge over WebSocket, drains the audio stream into the
// playback queue, and notifies the bot manager on termination.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"

	"github.com/lookatitude/hey-raven/internal/botmanager"
	"github.com/lookatitude/hey-raven/internal/bridge"
	"github.com/lookatitude/hey-raven/internal/broker"
	"github.com/lookatitude/hey-raven/internal/env"
	"github.com/lookatitude/hey-raven/internal/httputil"
	"github.com/lookatitude/hey-raven/internal/player"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/o11y"
)

func main() {
	log := o11y.NewLogger(o11y.WithJSON())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = o11y.WithLogger(ctx, log)

	if err := o11y.InitMeter("bot"); err != nil {
		log.Error(ctx, "bot: failed to init meter", "error", err)
	}
	if shutdownTracer, err := o11y.InitTracer("bot"); err != nil {
		log.Error(ctx, "bot: failed to init tracer", "error", err)
	} else {
		defer shutdownTracer()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	shutdownExit := botmanager.ExitShutdownSIGTERM
	go func() {
		sig := <-sigCh
		if sig == syscall.SIGINT {
			shutdownExit = botmanager.ExitShutdownSIGINT
		}
		cancel()
	}()

	connectionID, err := env.Required("CONNECTION_ID")
	if err != nil {
		log.Error(ctx, "bot: missing CONNECTION_ID, admission failed", "error", err)
		os.Exit(botmanager.ExitAdmissionFailed)
	}
	meetingID := env.String("MEETING_ID", "")
	managerURL, err := env.Required("BOT_MANAGER_CALLBACK_URL")
	if err != nil {
		log.Error(ctx, "bot: missing BOT_MANAGER_CALLBACK_URL, admission failed", "error", err)
		os.Exit(botmanager.ExitAdmissionFailed)
	}
	manager := botmanager.New(managerURL)

	rdb := redis.NewClient(&redis.Options{Addr: env.String("REDIS_ADDR", "localhost:6379")})
	defer rdb.Close()
	client := broker.New(rdb)

	var br *bridge.Bridge
	pl := player.New(player.DefaultConfig(), bridgeWrapper{get: func() *bridge.Bridge { return br }}, log)
	pl.BindSession(streamtypes.SessionBinding{ConnectionID: connectionID, MeetingID: meetingID})

	router := mux.NewRouter()
	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		b, err := bridge.New(w, r, log)
		if err != nil {
			log.Error(ctx, "bot: websocket upgrade failed", "error", err)
			return
		}
		br = b
		err = b.Run(ctx, func(binding streamtypes.SessionBinding) {
			binding.ConnectionID = connectionID
			binding.MeetingID = meetingID
			pl.BindSession(binding)
			log.Info(ctx, "bot: recognizer session bound", "recognizer_session_uid", binding.RecognizerSessionUID)
		})
		if err != nil {
			log.Info(ctx, "bot: bridge connection closed", "error", err)
		}
	}).Methods(http.MethodGet)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"state": string(pl.State())})
	}).Methods(http.MethodGet)
	router.HandleFunc("/stats", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{"state": pl.State(), "queue_length": pl.QueueLength()})
	}).Methods(http.MethodGet)

	var life httputil.ServerLifecycle
	go func() {
		err := life.Serve(ctx, env.String("HEALTH_ADDR", ":8083"), router, 30*time.Second, 30*time.Second, 120*time.Second, "bot")
		if err != nil && ctx.Err() == nil {
			log.Error(ctx, "bot: http server stopped", "error", err)
		}
	}()

	go func() {
		if err := pl.Run(ctx); err != nil && ctx.Err() == nil {
			log.Error(ctx, "bot: player loop exited with error", "error", err)
		}
	}()

	loopCfg := broker.LoopConfig{
		Stream:    env.String("AUDIO_STREAM", "tts_audio_queue"),
		Group:     env.String("BOT_GROUP", "bot-"+connectionID),
		Consumer:  connectionID,
		StageName: "bot",
	}

	runErr := client.Run(ctx, loopCfg, func(ctx context.Context, entry broker.Entry) (bool, error) {
		var audio streamtypes.Audio
		if err := streamtypes.Decode(entry.Fields, &audio); err != nil {
			return true, nil
		}
		if err := pl.Enqueue(audio); err != nil {
			log.Warn(ctx, "bot: dropping audio", "message_id", audio.MessageID, "error", err)
		}
		return true, nil
	})

	exitCode := botmanager.ExitNormal
	reason := "normal completion"
	if runErr != nil {
		if ctx.Err() != nil {
			pl.Drain()
			exitCode = shutdownExit
			reason = "shutdown signal"
		} else {
			exitCode = 1
			reason = fmt.Sprintf("fatal: %v", runErr)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	life.Shutdown(shutdownCtx, "bot")

	notifyCtx, notifyCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer notifyCancel()
	if err := manager.Notify(notifyCtx, botmanager.Callback{ConnectionID: connectionID, ExitCode: exitCode, Reason: reason}); err != nil {
		log.Error(context.Background(), "bot: manager callback failed", "error", err)
	}

	if exitCode != botmanager.ExitNormal && exitCode != botmanager.ExitShutdownSIGINT && exitCode != botmanager.ExitShutdownSIGTERM {
		os.Exit(exitCode)
	}
}

// bridgeWrapper satisfies player.Bridge by deferring to whichever
// *bridge.Bridge the current WebSocket connection established, since the
// Player is constructed before the browser connects.
type bridgeWrapper struct {
	get func() *bridge.Bridge
}

func (w bridgeWrapper) SetMicMuted(ctx context.Context, muted bool) error {
	b := w.get()
	if b == nil {
		return fmt.Errorf("bot: no browser bridge connected yet")
	}
	return b.SetMicMuted(ctx, muted)
}

func (w bridgeWrapper) PlayAudio(ctx context.Context, messageID string, blob []byte) error {
	b := w.get()
	if b == nil {
		return fmt.Errorf("bot: no browser bridge connected yet")
	}
	return b.PlayAudio(ctx, messageID, blob)
}

func (w bridgeWrapper) AwaitPlaybackComplete(ctx context.Context, messageID string, timeout time.Duration) error {
	b := w.get()
	if b == nil {
		return fmt.Errorf("bot: no browser bridge connected yet")
	}
	return b.AwaitPlaybackComplete(ctx, messageID, timeout)
}
