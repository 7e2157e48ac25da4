// Package pipeline chains the external inference engines against the
// conversation and artifact stores to satisfy each endpoint's contract.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/NadaMuhamed/AI-chatbot/internal/artifact"
	"github.com/NadaMuhamed/AI-chatbot/internal/audio"
	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
	"github.com/NadaMuhamed/AI-chatbot/internal/engine"
	"github.com/NadaMuhamed/AI-chatbot/internal/observability"
)

// FallbackResponse is returned when the dialog engine yields no generated
// response. It is real behavior, not a placeholder.
const FallbackResponse = "I'm not sure how to respond to that."

// Coordinator orchestrates the engines. It never holds a store lock across
// an engine call, and it adds no request-level timeout around engine calls.
type Coordinator struct {
	engines    engine.Source
	store      conversation.Store
	artifacts  *artifact.Store
	scratchDir string
	metrics    *observability.Metrics
}

func New(engines engine.Source, store conversation.Store, artifacts *artifact.Store, scratchDir string, metrics *observability.Metrics) *Coordinator {
	return &Coordinator{
		engines:    engines,
		store:      store,
		artifacts:  artifacts,
		scratchDir: scratchDir,
		metrics:    metrics,
	}
}

// ChatResult is the outcome of one dialog turn.
type ChatResult struct {
	Response       string
	ConversationID string
}

// Chat resolves the conversation, replays its history to the dialog engine
// with the new user text, and appends the user+assistant pair in one call so
// concurrent round-trips on the same conversation cannot interleave pairs.
func (c *Coordinator) Chat(ctx context.Context, message, conversationID string) (ChatResult, error) {
	set, ok := c.engines.Engines()
	if !ok {
		return ChatResult{}, ErrNotReady
	}

	id, history, err := c.store.GetOrCreate(ctx, conversationID)
	if err != nil {
		return ChatResult{}, fmt.Errorf("resolve conversation: %w", err)
	}

	reply, err := set.Dialog.Reply(ctx, history, message)
	if err != nil {
		c.metrics.EngineErrors.WithLabelValues("dialog").Inc()
		return ChatResult{}, &StageError{Stage: StageDialog, Err: err}
	}
	if strings.TrimSpace(reply) == "" {
		reply = FallbackResponse
	}

	err = c.store.Append(ctx, id,
		conversation.Turn{Role: conversation.RoleUser, Content: message},
		conversation.Turn{Role: conversation.RoleAssistant, Content: reply},
	)
	if err != nil {
		return ChatResult{}, fmt.Errorf("append turns: %w", err)
	}
	c.metrics.SessionsActive.Set(float64(c.store.Count()))

	return ChatResult{Response: reply, ConversationID: id}, nil
}

// Transcribe persists the utterance to a transient file, runs recognition,
// and removes the file whether or not recognition succeeded.
func (c *Coordinator) Transcribe(ctx context.Context, wav []byte) (string, error) {
	set, ok := c.engines.Engines()
	if !ok {
		return "", ErrNotReady
	}

	tmp, err := os.CreateTemp(c.scratchDir, "utterance-*.wav")
	if err != nil {
		return "", fmt.Errorf("create transient audio file: %w", err)
	}
	path := tmp.Name()
	defer os.Remove(path)

	if _, err := tmp.Write(wav); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write transient audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close transient audio file: %w", err)
	}

	text, err := set.Recognizer.Transcribe(ctx, path)
	if err != nil {
		c.metrics.EngineErrors.WithLabelValues("recognizer").Inc()
		return "", &StageError{Stage: StageTranscription, Err: err}
	}
	return text, nil
}

// Synthesize renders text to audio and stores the waveform, returning the
// artifact id the audio endpoint serves.
func (c *Coordinator) Synthesize(ctx context.Context, text string) (string, error) {
	set, ok := c.engines.Engines()
	if !ok {
		return "", ErrNotReady
	}

	sampleRate, samples, err := set.Synthesizer.Synthesize(ctx, text)
	if err != nil {
		c.metrics.EngineErrors.WithLabelValues("synthesizer").Inc()
		return "", &StageError{Stage: StageSynthesis, Err: err}
	}

	id, err := c.artifacts.Put(audio.Float32ToPCM16LE(samples), sampleRate)
	if err != nil {
		return "", &StageError{Stage: StageSynthesis, Err: err}
	}
	return id, nil
}

// RoundTripResult is the outcome of a full speech round-trip.
type RoundTripResult struct {
	UserMessage    string
	Response       string
	ConversationID string
	ArtifactID     string
}

// RoundTrip runs transcription, then the dialog turn, then synthesis, in
// strict order. The first failing stage aborts the rest and its error is
// surfaced as-is; only the dialog stage has an internal fallback.
func (c *Coordinator) RoundTrip(ctx context.Context, wav []byte, conversationID string) (RoundTripResult, error) {
	start := time.Now()

	transcript, err := c.Transcribe(ctx, wav)
	if err != nil {
		return RoundTripResult{}, err
	}

	chat, err := c.Chat(ctx, transcript, conversationID)
	if err != nil {
		return RoundTripResult{}, err
	}

	artifactID, err := c.Synthesize(ctx, chat.Response)
	if err != nil {
		return RoundTripResult{}, err
	}

	c.metrics.ObserveRoundTrip(time.Since(start))
	return RoundTripResult{
		UserMessage:    transcript,
		Response:       chat.Response,
		ConversationID: chat.ConversationID,
		ArtifactID:     artifactID,
	}, nil
}
