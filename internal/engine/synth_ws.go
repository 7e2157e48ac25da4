package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/NadaMuhamed/AI-chatbot/internal/audio"
)

// WSSynthesizer talks to a synthesis-model sidecar over a websocket. The
// sidecar streams PCM16LE chunks while the vocoder runs and finishes with a
// final frame carrying the sample rate; the adapter collects the chunks into
// the complete waveform the pipeline expects.
type WSSynthesizer struct {
	url string
}

func NewWSSynthesizer(url string) *WSSynthesizer {
	return &WSSynthesizer{url: strings.TrimSpace(url)}
}

type synthRequest struct {
	Text string `json:"text"`
}

type synthFrame struct {
	Type        string `json:"type"`
	AudioBase64 string `json:"audio_base64,omitempty"`
	SampleRate  int    `json:"sample_rate,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

func (s *WSSynthesizer) Synthesize(ctx context.Context, text string) (int, []float32, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("dial synthesis websocket: %w", err)
	}
	defer conn.Close()

	if err := conn.WriteJSON(synthRequest{Text: text}); err != nil {
		return 0, nil, fmt.Errorf("send synthesis request: %w", err)
	}

	var pcm []byte
	for {
		select {
		case <-ctx.Done():
			return 0, nil, ctx.Err()
		default:
		}

		var frame synthFrame
		if err := conn.ReadJSON(&frame); err != nil {
			return 0, nil, fmt.Errorf("read synthesis frame: %w", err)
		}
		switch frame.Type {
		case "chunk":
			chunk, err := base64.StdEncoding.DecodeString(frame.AudioBase64)
			if err != nil {
				return 0, nil, fmt.Errorf("decode synthesis chunk: %w", err)
			}
			pcm = append(pcm, chunk...)
		case "final":
			sampleRate := frame.SampleRate
			if sampleRate <= 0 {
				sampleRate = 16000
			}
			return sampleRate, audio.PCM16LEToFloat32(pcm), nil
		case "error":
			return 0, nil, fmt.Errorf("synthesis engine: %s", frame.Detail)
		default:
			// Unknown frame types from newer sidecars are skipped.
		}
	}
}
