package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/NadaMuhamed/AI-chatbot/internal/artifact"
	"github.com/NadaMuhamed/AI-chatbot/internal/config"
	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
	"github.com/NadaMuhamed/AI-chatbot/internal/observability"
	"github.com/NadaMuhamed/AI-chatbot/internal/pipeline"
	"github.com/NadaMuhamed/AI-chatbot/internal/sysinfo"
)

// Pipeline is the coordinator surface the handlers drive.
type Pipeline interface {
	Chat(ctx context.Context, message, conversationID string) (pipeline.ChatResult, error)
	Transcribe(ctx context.Context, wav []byte) (string, error)
	Synthesize(ctx context.Context, text string) (string, error)
	RoundTrip(ctx context.Context, wav []byte, conversationID string) (pipeline.RoundTripResult, error)
}

// Readiness reports whether engine warm-up has completed.
type Readiness interface {
	Ready() bool
}

type Server struct {
	cfg       config.Config
	store     conversation.Store
	artifacts *artifact.Store
	pipeline  Pipeline
	gate      Readiness
	metrics   *observability.Metrics
}

func New(cfg config.Config, store conversation.Store, artifacts *artifact.Store, pl Pipeline, gate Readiness, metrics *observability.Metrics) *Server {
	return &Server{
		cfg:       cfg,
		store:     store,
		artifacts: artifacts,
		pipeline:  pl,
		gate:      gate,
		metrics:   metrics,
	}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Get("/api/status", s.handleStatus)
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		observability.MetricsHandler().ServeHTTP(w, r)
	})

	r.Get("/api/audio/{id}", s.handleGetAudio)
	r.Get("/api/conversations/{id}", s.handleGetConversation)
	r.Delete("/api/conversations/{id}", s.handleDeleteConversation)

	r.Group(func(r chi.Router) {
		r.Use(s.requireModels)
		r.Post("/api/chat", s.handleChat)
		r.Post("/api/speech-to-text", s.handleSpeechToText)
		r.Post("/api/text-to-speech", s.handleTextToSpeech)
		r.Post("/api/conversation-with-audio", s.handleConversationWithAudio)
		r.Post("/api/language-feedback", s.handleLanguageFeedback)
	})

	return r
}

// requireModels rejects inference endpoints until engine warm-up is done.
// The 503 is a retry-able signal, distinct from a processing error.
func (s *Server) requireModels(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.gate.Ready() {
			respondError(w, http.StatusServiceUnavailable, "not_ready", "Models are still loading. Please try again shortly.")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"status":        "operational",
		"models_loaded": s.gate.Ready(),
	}
	if cpu, err := sysinfo.CPUUsage(); err == nil {
		payload["cpu_percent"] = cpu
	}
	if mem, err := sysinfo.MemoryUsage(); err == nil {
		payload["memory_percent"] = mem
	}
	respondJSON(w, http.StatusOK, payload)
}

// respondPipelineError maps the error taxonomy to HTTP codes. Engine errors
// stay in the operator log; the client sees a generic structured failure.
func (s *Server) respondPipelineError(w http.ResponseWriter, endpoint string, err error) {
	s.metrics.ObserveRequest(endpoint, "error")

	var stage *pipeline.StageError
	switch {
	case errors.Is(err, pipeline.ErrNotReady):
		respondError(w, http.StatusServiceUnavailable, "not_ready", "Models are still loading. Please try again shortly.")
	case errors.Is(err, conversation.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Conversation not found")
	case errors.Is(err, artifact.ErrNotFound):
		respondError(w, http.StatusNotFound, "not_found", "Audio file not found")
	case errors.As(err, &stage):
		log.Printf("%s: %v", endpoint, err)
		respondError(w, http.StatusBadGateway, "engine_error", string(stage.Stage)+" failed")
	default:
		log.Printf("%s: %v", endpoint, err)
		respondError(w, http.StatusInternalServerError, "internal_error", "Unexpected error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

var errEmptyBody = errors.New("empty body")

func decodeJSON(r *http.Request, out any) error {
	if r.Body == nil {
		return errEmptyBody
	}
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(out); err != nil {
		// A missing or truncated body reads as no payload; the field-level
		// validation that follows produces the client-facing message.
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return errEmptyBody
		}
		return err
	}
	return nil
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, errorResponse{Error: message, Code: code})
}
