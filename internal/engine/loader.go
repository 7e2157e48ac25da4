package engine

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"
)

// LoaderConfig selects concrete engine implementations.
type LoaderConfig struct {
	// Provider is mock, remote, or auto (remote when all URLs are set).
	Provider string
	// RecognizerProvider optionally overrides the recognizer only
	// (empty follows Provider; "google" uses Cloud Speech).
	RecognizerProvider string

	DialogURL        string
	RecognizerURL    string
	SynthesizerWSURL string

	// WarmupDelay simulates engine load time for the mock provider.
	WarmupDelay time.Duration
}

// Loader owns the one-shot background warm-up task. Endpoints consult the
// embedded Gate before touching engines, so a request can never dereference
// a half-initialized engine during startup.
type Loader struct {
	Gate
	set Set
}

// StartLoader begins engine initialization in the background and returns
// immediately. The gate flips once every engine is constructed; on failure
// the gate stays down and the failure is logged, leaving gated endpoints
// returning their retry-able not-ready signal.
func StartLoader(ctx context.Context, cfg LoaderConfig) *Loader {
	l := &Loader{}
	go func() {
		start := time.Now()
		set, err := buildEngines(ctx, cfg)
		if err != nil {
			log.Printf("engine warm-up failed: %v", err)
			return
		}
		if cfg.WarmupDelay > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(cfg.WarmupDelay):
			}
		}
		l.set = set
		l.markReady()
		log.Printf("engines ready in %s", time.Since(start).Round(time.Millisecond))
	}()
	return l
}

// Engines returns the loaded set. ok is false until the gate is up.
func (l *Loader) Engines() (Set, bool) {
	if !l.Ready() {
		return Set{}, false
	}
	return l.set, true
}

func buildEngines(ctx context.Context, cfg LoaderConfig) (Set, error) {
	mode := strings.ToLower(strings.TrimSpace(cfg.Provider))
	if mode == "" {
		mode = "auto"
	}
	if mode == "auto" {
		if strings.TrimSpace(cfg.DialogURL) != "" &&
			strings.TrimSpace(cfg.RecognizerURL) != "" &&
			strings.TrimSpace(cfg.SynthesizerWSURL) != "" {
			mode = "remote"
		} else {
			mode = "mock"
		}
	}

	var set Set
	switch mode {
	case "mock":
		m := NewMockEngines()
		set = Set{Dialog: m, Recognizer: m, Synthesizer: m}
		log.Printf("engine provider: mock")
	case "remote":
		if strings.TrimSpace(cfg.DialogURL) == "" {
			return Set{}, fmt.Errorf("DIALOG_ENGINE_URL is required for remote engines")
		}
		if strings.TrimSpace(cfg.RecognizerURL) == "" {
			return Set{}, fmt.Errorf("ASR_ENGINE_URL is required for remote engines")
		}
		if strings.TrimSpace(cfg.SynthesizerWSURL) == "" {
			return Set{}, fmt.Errorf("TTS_ENGINE_WS_URL is required for remote engines")
		}
		set = Set{
			Dialog:      NewRemoteDialog(cfg.DialogURL),
			Recognizer:  NewRemoteRecognizer(cfg.RecognizerURL),
			Synthesizer: NewWSSynthesizer(cfg.SynthesizerWSURL),
		}
		log.Printf("engine provider: remote")
	default:
		return Set{}, fmt.Errorf("invalid engine provider %q (expected auto|remote|mock)", cfg.Provider)
	}

	switch strings.ToLower(strings.TrimSpace(cfg.RecognizerProvider)) {
	case "", mode:
	case "google":
		rec, err := NewGoogleRecognizer(ctx)
		if err != nil {
			return Set{}, fmt.Errorf("google recognizer init: %w", err)
		}
		set.Recognizer = rec
		log.Printf("recognizer provider: google cloud speech")
	case "mock":
		set.Recognizer = NewMockEngines()
	case "remote":
		if strings.TrimSpace(cfg.RecognizerURL) == "" {
			return Set{}, fmt.Errorf("ASR_ENGINE_URL is required for the remote recognizer")
		}
		set.Recognizer = NewRemoteRecognizer(cfg.RecognizerURL)
	default:
		return Set{}, fmt.Errorf("invalid recognizer provider %q (expected google|remote|mock)", cfg.RecognizerProvider)
	}

	return set, nil
}
