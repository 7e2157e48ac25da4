package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/NadaMuhamed/AI-chatbot/internal/conversation"
)

type chatRequest struct {
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id"`
}

type chatResponse struct {
	Response       string `json:"response"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "No message provided")
		return
	}

	result, err := s.pipeline.Chat(r.Context(), req.Message, strings.TrimSpace(req.ConversationID))
	if err != nil {
		s.respondPipelineError(w, "chat", err)
		return
	}

	s.metrics.ObserveRequest("chat", "ok")
	respondJSON(w, http.StatusOK, chatResponse{
		Response:       result.Response,
		ConversationID: result.ConversationID,
	})
}

type conversationResponse struct {
	ConversationID string              `json:"conversation_id"`
	Messages       []conversation.Turn `json:"messages"`
}

func (s *Server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	turns, err := s.store.Read(r.Context(), id)
	if err != nil {
		if errors.Is(err, conversation.ErrNotFound) {
			respondError(w, http.StatusNotFound, "not_found", "Conversation not found")
			return
		}
		s.respondPipelineError(w, "get_conversation", err)
		return
	}
	respondJSON(w, http.StatusOK, conversationResponse{ConversationID: id, Messages: turns})
}

func (s *Server) handleDeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	// Deleting an unknown conversation is a no-op, not an error.
	if err := s.store.Delete(r.Context(), id); err != nil {
		s.respondPipelineError(w, "delete_conversation", err)
		return
	}
	s.metrics.SessionsActive.Set(float64(s.store.Count()))
	respondJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Conversation deleted",
	})
}
