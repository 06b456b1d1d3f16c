// Package suggest turns the transcript around an annotated range into
// creative suggestions from an OpenAI-compatible chat endpoint.
package suggest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/framenote/framenote/internal/timeline"
)

// Category labels one of the three suggestion kinds the prompt asks for.
type Category string

const (
	CategoryMeme         Category = "MEME"
	CategoryAnimation    Category = "ANIMATION"
	CategoryIllustration Category = "ILLUSTRATION"
)

type Suggestion struct {
	Category    Category `json:"category"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
}

type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

const suggestionSystemPrompt = `You are a creative assistant for video editors. Given a video transcript and a selected passage, propose exactly three ways to enrich the selected moment:
- one MEME (a well-known meme format that fits the moment)
- one ANIMATION (a short motion-graphics idea)
- one ILLUSTRATION (a static overlay or drawing idea)

Answer with one line per suggestion, nothing else, in the form:
CATEGORY: title - description

Example:
MEME: Distracted Boyfriend - the speaker keeps glancing at the old footage while praising the new cut.`

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatChoice struct {
	Message chatMessage `json:"message"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
}

// Suggest asks the model for suggestions about the selected passage.
// Missing categories in the reply are tolerated: the caller gets whatever
// parses, which may be fewer than three suggestions.
func (c *Client) Suggest(ctx context.Context, fullTranscript, selectionTranscript string, selection timeline.Range) ([]Suggestion, error) {
	userPrompt := fmt.Sprintf(
		"Full transcript:\n%s\n\nSelected passage (%.1fs to %.1fs):\n%s",
		fullTranscript, selection.Start, selection.End, selectionTranscript,
	)

	reqBody := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: suggestionSystemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("AI API returned status %d: %s", resp.StatusCode, string(respBody))
	}

	var chatResp chatResponse
	if err := json.Unmarshal(respBody, &chatResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(chatResp.Choices) == 0 {
		return nil, fmt.Errorf("AI API returned empty choices")
	}

	return ParseSuggestions(chatResp.Choices[0].Message.Content), nil
}
