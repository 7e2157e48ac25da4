package httpapi

import (
	"errors"
	"net/http"
	"strings"
)

type feedbackRequest struct {
	Text string `json:"text"`
}

type feedbackResponse struct {
	GrammarScore    float64  `json:"grammar_score"`
	VocabularyScore float64  `json:"vocabulary_score"`
	FluencyScore    float64  `json:"fluency_score"`
	Suggestions     []string `json:"suggestions"`
	CorrectedText   string   `json:"corrected_text"`
}

// handleLanguageFeedback returns canned scores. The scorer performs no real
// analysis; it exists so clients can build against the response shape.
func (s *Server) handleLanguageFeedback(w http.ResponseWriter, r *http.Request) {
	var req feedbackRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "No text provided")
		return
	}

	s.metrics.ObserveRequest("language_feedback", "ok")
	respondJSON(w, http.StatusOK, feedbackResponse{
		GrammarScore:    8.5,
		VocabularyScore: 7.8,
		FluencyScore:    8.2,
		Suggestions: []string{
			"Consider using more varied sentence structures",
			"Your use of prepositions could be improved in some places",
			"You have good vocabulary, but could use more advanced connectors",
		},
		CorrectedText: req.Text,
	})
}
