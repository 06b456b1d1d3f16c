// Package apiclient is the HTTP client side of the annotation service,
// used by the editor engine. Requests and responses mirror the handler
// payloads in internal/annotation and internal/user.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/framenote/framenote/internal/annotation"
	"github.com/framenote/framenote/internal/suggest"
	"github.com/framenote/framenote/internal/timeline"
)

// ErrNotFound reports a 404 from any endpoint.
var ErrNotFound = errors.New("not found")

// APIError carries a non-2xx response that is not a plain not-found.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// User is the User API payload.
type User struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	CreatedAt   string `json:"createdAt"`
	AccessToken string `json:"accessToken,omitempty"`
}

// CreateAnnotationRequest mirrors POST /api/annotations.
type CreateAnnotationRequest struct {
	VideoID     string                 `json:"videoId"`
	UserID      string                 `json:"userId"`
	Range       timeline.Range         `json:"range"`
	Text        string                 `json:"text"`
	Kind        annotation.Kind        `json:"kind"`
	Drawing     *json.RawMessage       `json:"drawingPayload,omitempty"`
	Attachments []annotation.Attachment `json:"attachments,omitempty"`
	ParentID    string                 `json:"parentId,omitempty"`
}

// UpdateAnnotationRequest mirrors PATCH /api/annotations/{id}. Nil fields
// are left untouched server-side.
type UpdateAnnotationRequest struct {
	Range *timeline.Range `json:"range,omitempty"`
	Text  *string         `json:"text,omitempty"`
}

func (c *Client) CreateUser(ctx context.Context, name string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodPost, "/api/users", map[string]string{"name": name}, &u)
	return u, err
}

func (c *Client) GetUser(ctx context.Context, id string) (User, error) {
	var u User
	err := c.do(ctx, http.MethodGet, "/api/users/"+id, nil, &u)
	return u, err
}

func (c *Client) ListAnnotations(ctx context.Context, videoID string) ([]annotation.Annotation, error) {
	var list []annotation.Annotation
	err := c.do(ctx, http.MethodGet, "/api/annotations/video/"+videoID, nil, &list)
	return list, err
}

func (c *Client) CreateAnnotation(ctx context.Context, req CreateAnnotationRequest) (annotation.Annotation, error) {
	var created annotation.Annotation
	err := c.do(ctx, http.MethodPost, "/api/annotations", req, &created)
	return created, err
}

func (c *Client) UpdateAnnotation(ctx context.Context, id string, req UpdateAnnotationRequest) (annotation.Annotation, error) {
	var updated annotation.Annotation
	err := c.do(ctx, http.MethodPatch, "/api/annotations/"+id, req, &updated)
	return updated, err
}

func (c *Client) DeleteAnnotation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/annotations/"+id, nil, nil)
}

func (c *Client) DeleteVideoAnnotations(ctx context.Context, videoID string) error {
	return c.do(ctx, http.MethodDelete, "/api/annotations/video/"+videoID, nil, nil)
}

func (c *Client) Export(ctx context.Context, videoID string) (annotation.ExportDocument, error) {
	var doc annotation.ExportDocument
	err := c.do(ctx, http.MethodGet, "/api/annotations/video/"+videoID+"/export", nil, &doc)
	return doc, err
}

// Import pushes an export document's entries onto videoHash under userID
// and returns the number of imported annotations.
func (c *Client) Import(ctx context.Context, videoHash, userID string, entries []annotation.ExportAnnotation) (int, error) {
	req := map[string]any{
		"videoHash":   videoHash,
		"userId":      userID,
		"annotations": entries,
	}
	var resp struct {
		Imported int `json:"imported"`
	}
	err := c.do(ctx, http.MethodPost, "/api/annotations/import", req, &resp)
	return resp.Imported, err
}

func (c *Client) Suggest(ctx context.Context, fullTranscript, selectionTranscript string, selection timeline.Range) ([]suggest.Suggestion, error) {
	req := map[string]any{
		"fullTranscript":      fullTranscript,
		"selectionTranscript": selectionTranscript,
		"selectionTimeRange":  selection,
	}
	var resp struct {
		Suggestions []suggest.Suggestion `json:"suggestions"`
	}
	err := c.do(ctx, http.MethodPost, "/api/suggestions", req, &resp)
	return resp.Suggestions, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s %s: %w", method, path, ErrNotFound)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: readErrorMessage(resp.Body)}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, path, err)
	}
	return nil
}

// readErrorMessage pulls the message out of the {"error": "..."} envelope,
// falling back to the raw body.
func readErrorMessage(r io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(r, 4096))
	if err != nil {
		return ""
	}
	var envelope struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &envelope) == nil && envelope.Error != "" {
		return envelope.Error
	}
	return string(bytes.TrimSpace(raw))
}
