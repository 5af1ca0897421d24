// Package synthesizer turns Reply records into Audio records: language
// detection, primary/fallback TTS engine selection, in-memory WAV
// framing, and base64 encoding, per spec.md §4.3.
package synthesizer

import (
	"context"
	"time"

	"github.com/lookatitude/hey-raven/internal/audio"
	"github.com/lookatitude/hey-raven/internal/streamtypes"
	"github.com/lookatitude/hey-raven/internal/ttsgateway"
	"github.com/lookatitude/hey-raven/o11y"
)

// Config holds the Synthesizer's tunables.
type Config struct {
	DefaultLanguage string
}

// DefaultConfig returns the package defaults.
func DefaultConfig() Config {
	return Config{DefaultLanguage: "en"}
}

// Synthesizer wires the TTS gateway and WAV framing together to answer
// one Reply at a time.
type Synthesizer struct {
	cfg     Config
	gateway *ttsgateway.Gateway
	log     *o11y.Logger
}

// New builds a Synthesizer.
func New(cfg Config, gateway *ttsgateway.Gateway, log *o11y.Logger) *Synthesizer {
	if cfg.DefaultLanguage == "" {
		cfg.DefaultLanguage = "en"
	}
	return &Synthesizer{cfg: cfg, gateway: gateway, log: log}
}

// Synthesize answers reply, returning the Audio record to emit and true,
// or false if both TTS engines failed (graceful silence per spec.md §4.3).
// Text exceeding MAX_TEXT_LENGTH is replaced by a short spoken warning;
// ResponseText still carries the original reply text.
func (s *Synthesizer) Synthesize(ctx context.Context, reply streamtypes.Reply) (streamtypes.Audio, bool) {
	language := ttsgateway.DetectLanguage(reply.Response, s.cfg.DefaultLanguage)

	text := reply.Response
	var tooLong ttsgateway.ErrTextTooLong
	result, engine, err := s.gateway.Synthesize(ctx, text, language)
	if err != nil {
		if isErrTextTooLong(err, &tooLong) {
			text = "The response was too long to speak aloud."
			result, engine, err = s.gateway.Synthesize(ctx, text, language)
		}
		if err != nil {
			s.log.Warn(ctx, "synthesizer: both engines failed, emitting no audio",
				"session_uid", reply.SessionUID, "message_id", reply.MessageID, "error", err)
			return streamtypes.Audio{}, false
		}
	}

	wav := result.Audio
	if result.Format != "wav" {
		wav = audio.EncodeWAV(result.Audio, audio.DefaultHeader())
		result.Format = "wav"
	}

	durationS, _ := audio.DurationSeconds(wav)

	out := streamtypes.Audio{
		AudioData: audio.EncodeBase64(wav),
		AudioMetadata: streamtypes.AudioMetadata{
			Format:    result.Format,
			SizeBytes: len(wav),
			DurationS: durationS,
			Engine:    engine,
		},
		SessionUID:       reply.SessionUID,
		MeetingID:        reply.MeetingID,
		OriginalQuestion: reply.OriginalQuestion,
		ResponseText:     reply.Response,
		MessageID:        reply.MessageID,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}

	if !out.Valid() {
		s.log.Error(ctx, "synthesizer: produced invalid audio record, dropping", "message_id", reply.MessageID)
		return streamtypes.Audio{}, false
	}

	return out, true
}

func isErrTextTooLong(err error, target *ttsgateway.ErrTextTooLong) bool {
	if e, ok := err.(ttsgateway.ErrTextTooLong); ok {
		*target = e
		return true
	}
	return false
}
