package engine

import (
	"context"
	"fmt"
	"math"
	"os"

	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
)

// MockEngines is the keyless fallback provider: deterministic replies, a
// canned transcript, and a short sine tone for synthesis. Useful for local
// development and for exercising the orchestration layer in tests.
type MockEngines struct {
	// NoResponse makes the dialog engine yield an empty result, which
	// drives the caller's fallback path.
	NoResponse bool
}

func NewMockEngines() *MockEngines { return &MockEngines{} }

func (m *MockEngines) Reply(_ context.Context, history []conversation.Turn, userText string) (string, error) {
	if m.NoResponse {
		return "", nil
	}
	if len(history) == 0 {
		return fmt.Sprintf("Hello! You said: %s", userText), nil
	}
	return fmt.Sprintf("After %d turns, you said: %s", len(history), userText), nil
}

func (m *MockEngines) Transcribe(_ context.Context, wavPath string) (string, error) {
	if _, err := os.Stat(wavPath); err != nil {
		return "", fmt.Errorf("read utterance: %w", err)
	}
	return "simulated voice input", nil
}

func (m *MockEngines) Synthesize(_ context.Context, text string) (int, []float32, error) {
	const sampleRate = 16000
	// 50ms of 440Hz per rune, capped at one second.
	n := len([]rune(text)) * sampleRate / 20
	if n > sampleRate {
		n = sampleRate
	}
	if n == 0 {
		n = sampleRate / 20
	}
	samples := make([]float32, n)
	for i := range samples {
		samples[i] = 0.3 * float32(math.Sin(2*math.Pi*440*float64(i)/sampleRate))
	}
	return sampleRate, samples, nil
}
