// Package engine defines the boundary to the three external inference
// collaborators: the dialog engine, the speech-recognition engine, and the
// speech-synthesis engine. The service never hosts model weights itself.
package engine

import (
	"context"

	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
)

// Dialog generates the assistant reply for a user message given the full
// prior history, replayed in original order. The engine is stateless per
// call. An empty reply with a nil error means the engine produced no
// response; the caller decides the fallback.
type Dialog interface {
	Reply(ctx context.Context, history []conversation.Turn, userText string) (string, error)
}

// Recognizer transcribes a complete PCM WAV utterance on disk.
type Recognizer interface {
	Transcribe(ctx context.Context, wavPath string) (string, error)
}

// Synthesizer renders text to a mono waveform of normalized float samples.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (sampleRate int, samples []float32, err error)
}

// Set bundles the three engines once warm-up has finished.
type Set struct {
	Dialog      Dialog
	Recognizer  Recognizer
	Synthesizer Synthesizer
}

// Source yields the engine set when, and only when, initialization is done.
type Source interface {
	Engines() (Set, bool)
}
