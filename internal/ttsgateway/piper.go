package ttsgateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/lookatitude/hey-raven/internal/httpclient"
)

// PiperEngine synthesizes speech via a networked Piper TTS HTTP server,
// the primary engine per spec.md §4.3. Piper has no dedicated Go SDK, so
// requests go through the shared retrying HTTP client.
type PiperEngine struct {
	voice  string
	client *httpclient.Client
}

// NewPiperEngine builds a PiperEngine pointed at baseURL, using voice for
// every request (Piper is typically deployed as one voice per instance).
func NewPiperEngine(baseURL, voice string) *PiperEngine {
	if voice == "" {
		voice = "en_US-lessac-medium"
	}
	return &PiperEngine{
		voice: voice,
		client: httpclient.New(
			httpclient.WithBaseURL(baseURL),
			httpclient.WithTimeout(30*time.Second),
			httpclient.WithRetries(2),
		),
	}
}

type piperRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (e *PiperEngine) Name() string { return "piper" }

func (e *PiperEngine) Synthesize(ctx context.Context, text, language string) (Result, error) {
	resp, err := e.client.Do(ctx, http.MethodPost, "/synthesize", piperRequest{Text: text, Voice: e.voice}, nil)
	if err != nil {
		return Result{}, fmt.Errorf("piper: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("piper: unexpected status %d", resp.StatusCode)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("piper: read response: %w", err)
	}

	return Result{Audio: audio, Format: "wav"}, nil
}
