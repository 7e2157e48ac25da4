package httpapi

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NadaMuhamed/AI-chatbot/internal/artifact"
)

func (s *Server) handleSpeechToText(w http.ResponseWriter, r *http.Request) {
	wav, ok := s.readUploadedAudio(w, r)
	if !ok {
		return
	}

	text, err := s.pipeline.Transcribe(r.Context(), wav)
	if err != nil {
		s.respondPipelineError(w, "speech_to_text", err)
		return
	}

	s.metrics.ObserveRequest("speech_to_text", "ok")
	respondJSON(w, http.StatusOK, map[string]string{"text": text})
}

type ttsRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleTextToSpeech(w http.ResponseWriter, r *http.Request) {
	var req ttsRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "No text provided")
		return
	}

	id, err := s.pipeline.Synthesize(r.Context(), req.Text)
	if err != nil {
		s.respondPipelineError(w, "text_to_speech", err)
		return
	}

	s.metrics.ObserveRequest("text_to_speech", "ok")
	respondJSON(w, http.StatusOK, map[string]string{"audio_url": "/api/audio/" + id})
}

type roundTripResponse struct {
	UserMessage    string `json:"user_message"`
	TextResponse   string `json:"text_response"`
	ConversationID string `json:"conversation_id"`
	AudioURL       string `json:"audio_url"`
}

func (s *Server) handleConversationWithAudio(w http.ResponseWriter, r *http.Request) {
	wav, ok := s.readUploadedAudio(w, r)
	if !ok {
		return
	}
	conversationID := strings.TrimSpace(r.FormValue("conversation_id"))

	result, err := s.pipeline.RoundTrip(r.Context(), wav, conversationID)
	if err != nil {
		s.respondPipelineError(w, "conversation_with_audio", err)
		return
	}

	s.metrics.ObserveRequest("conversation_with_audio", "ok")
	respondJSON(w, http.StatusOK, roundTripResponse{
		UserMessage:    result.UserMessage,
		TextResponse:   result.Response,
		ConversationID: result.ConversationID,
		AudioURL:       "/api/audio/" + result.ArtifactID,
	})
}

func (s *Server) handleGetAudio(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	path, mimeType, err := s.artifacts.Get(id)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Audio file not found")
			return
		}
		s.respondPipelineError(w, "get_audio", err)
		return
	}

	w.Header().Set("Content-Type", mimeType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`"`)
	http.ServeFile(w, r, path)
}

// readUploadedAudio extracts the multipart "audio" file, applying the upload
// size cap. On failure the response has already been written.
func (s *Server) readUploadedAudio(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "No audio file provided")
		return nil, false
	}
	file, _, err := r.FormFile("audio")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "No audio file provided")
		return nil, false
	}
	defer file.Close()

	wav, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "could not read audio file")
		return nil, false
	}
	return wav, true
}
