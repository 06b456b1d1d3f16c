package suggest

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/framenote/framenote/internal/httputil"
	"github.com/framenote/framenote/internal/timeline"
	"github.com/framenote/framenote/internal/validate"
)

// Generator is what the handler needs from the AI client.
type Generator interface {
	Suggest(ctx context.Context, fullTranscript, selectionTranscript string, selection timeline.Range) ([]Suggestion, error)
}

// Handler serves the suggestions endpoint. A nil generator means the
// feature is switched off and the endpoint answers 404.
type Handler struct {
	generator Generator
}

func NewHandler(generator Generator) *Handler {
	return &Handler{generator: generator}
}

type suggestRequest struct {
	FullTranscript      string         `json:"fullTranscript"`
	SelectionTranscript string         `json:"selectionTranscript"`
	SelectionTimeRange  timeline.Range `json:"selectionTimeRange"`
}

type suggestResponse struct {
	Suggestions []Suggestion `json:"suggestions"`
}

func (h *Handler) Suggest(w http.ResponseWriter, r *http.Request) {
	if h.generator == nil {
		httputil.WriteError(w, http.StatusNotFound, "suggestions are not enabled")
		return
	}

	var req suggestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.SelectionTranscript == "" {
		httputil.WriteError(w, http.StatusBadRequest, "selectionTranscript is required")
		return
	}
	if msg := validate.TimeRange(req.SelectionTimeRange.Start, req.SelectionTimeRange.End); msg != "" {
		httputil.WriteError(w, http.StatusBadRequest, msg)
		return
	}

	suggestions, err := h.generator.Suggest(r.Context(), req.FullTranscript, req.SelectionTranscript, req.SelectionTimeRange)
	if err != nil {
		slog.Error("suggest: generation failed", "error", err)
		httputil.WriteError(w, http.StatusBadGateway, "could not generate suggestions")
		return
	}
	if suggestions == nil {
		suggestions = []Suggestion{}
	}

	httputil.WriteJSON(w, http.StatusOK, suggestResponse{Suggestions: suggestions})
}
