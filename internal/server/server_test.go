package server_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/framenote/framenote/internal/server"
	"github.com/framenote/framenote/internal/suggest"
	"github.com/framenote/framenote/internal/timeline"
	"github.com/pashagolub/pgxmock/v4"
)

// --- Mock types ---

type mockPinger struct{ err error }

func (m *mockPinger) Ping(ctx context.Context) error { return m.err }

type mockStorage struct{}

func (m *mockStorage) PutObject(ctx context.Context, key string, body []byte, contentType string) error {
	return nil
}

func (m *mockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	return "https://example.com/" + key, nil
}

type mockSuggester struct{}

func (m *mockSuggester) Suggest(ctx context.Context, fullTranscript, selectionTranscript string, selection timeline.Range) ([]suggest.Suggestion, error) {
	return []suggest.Suggestion{{Category: suggest.CategoryMeme, Title: "stub"}}, nil
}

// --- Helpers ---

func newServerWithoutDB() *server.Server {
	return server.New(server.Config{})
}

func newServerWithDB(t *testing.T) (*server.Server, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	if err != nil {
		t.Fatalf("failed to create pgxmock pool: %v", err)
	}
	t.Cleanup(func() { mock.Close() })

	srv := server.New(server.Config{
		DB:        mock,
		Pinger:    &mockPinger{err: nil},
		Storage:   &mockStorage{},
		JWTSecret: "test-secret",
		BaseURL:   "https://localhost:8080",
		Suggester: &mockSuggester{},
	})
	return srv, mock
}

func executeRequest(srv *server.Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func executeRequestWithBody(srv *server.Server, method, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

// --- Health Endpoint ---

func TestHealthEndpointReturnsOK(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodGet, "/api/health")

	if rec.Code != http.StatusOK {
		t.Errorf("expected status 200, got %d", rec.Code)
	}

	expected := `{"status":"ok"}`
	if rec.Body.String() != expected {
		t.Errorf("expected body %q, got %q", expected, rec.Body.String())
	}
}

func TestHealthEndpointContentType(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodGet, "/api/health")

	contentType := rec.Header().Get("Content-Type")
	if contentType != "application/json" {
		t.Errorf("expected Content-Type %q, got %q", "application/json", contentType)
	}
}

func TestHealthEndpointWithPingFailure(t *testing.T) {
	srv := server.New(server.Config{
		Pinger: &mockPinger{err: errors.New("connection refused")},
	})
	rec := executeRequest(srv, http.MethodGet, "/api/health")

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", rec.Code)
	}

	expected := `{"status":"unhealthy","error":"database unreachable"}`
	if rec.Body.String() != expected {
		t.Errorf("expected body %q, got %q", expected, rec.Body.String())
	}
}

// --- Server with nil DB ---

func TestNilDBUserRoutesNotRegistered(t *testing.T) {
	srv := newServerWithoutDB()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodPost, "/api/users/"},
		{http.MethodGet, "/api/users/some-id"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := executeRequest(srv, route.method, route.path)
			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404 for %s %s without DB, got %d", route.method, route.path, rec.Code)
			}
		})
	}
}

func TestNilDBAnnotationRoutesNotRegistered(t *testing.T) {
	srv := newServerWithoutDB()

	routes := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/annotations/video/abc123"},
		{http.MethodDelete, "/api/annotations/video/abc123"},
		{http.MethodGet, "/api/annotations/video/abc123/export"},
		{http.MethodPost, "/api/annotations/"},
		{http.MethodPatch, "/api/annotations/some-id"},
		{http.MethodDelete, "/api/annotations/some-id"},
		{http.MethodPost, "/api/annotations/import"},
		{http.MethodGet, "/api/archives/some-token"},
	}

	for _, route := range routes {
		t.Run(route.method+" "+route.path, func(t *testing.T) {
			rec := executeRequest(srv, route.method, route.path)
			if rec.Code != http.StatusNotFound {
				t.Errorf("expected 404 for %s %s without DB, got %d", route.method, route.path, rec.Code)
			}
		})
	}
}

func TestNilSuggesterDisablesSuggestions(t *testing.T) {
	srv := newServerWithoutDB()

	rec := executeRequestWithBody(srv, http.MethodPost, "/api/suggestions", "{}")
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 with suggestions disabled, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "not enabled") {
		t.Errorf("expected disabled-feature message, got %q", rec.Body.String())
	}
}

// --- Server with DB: routes registered ---

func TestUserRoutesRegisteredWithDB(t *testing.T) {
	srv, _ := newServerWithDB(t)

	rec := executeRequestWithBody(srv, http.MethodPost, "/api/users/", "{}")
	if rec.Code == http.StatusNotFound {
		t.Errorf("expected /api/users/ to be registered (not 404), got %d", rec.Code)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty user body, got %d", rec.Code)
	}
}

func TestAnnotationCreateRouteRegisteredWithDB(t *testing.T) {
	srv, _ := newServerWithDB(t)

	rec := executeRequestWithBody(srv, http.MethodPost, "/api/annotations/", "{}")
	if rec.Code == http.StatusNotFound {
		t.Errorf("expected /api/annotations/ to be registered (not 404), got %d", rec.Code)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty annotation body, got %d", rec.Code)
	}
}

func TestAnnotationListRouteRegisteredWithDB(t *testing.T) {
	srv, mock := newServerWithDB(t)

	videoHash := strings.Repeat("ab", 32)
	mock.ExpectQuery("SELECT a.id, a.user_id, u.name").
		WithArgs(videoHash).
		WillReturnError(errors.New("boom"))

	rec := executeRequest(srv, http.MethodGet, "/api/annotations/video/"+videoHash)

	// The route is registered if the handler hit the DB mock and returned
	// its own error rather than the router's default 404.
	if rec.Code == http.StatusNotFound {
		t.Errorf("expected route to be registered, got 404")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("route /api/annotations/video/{videoId} not registered: mock expectation unmet: %v", err)
	}
}

func TestArchiveCreateRequiresSession(t *testing.T) {
	srv, _ := newServerWithDB(t)

	videoHash := strings.Repeat("cd", 32)
	rec := executeRequestWithBody(srv, http.MethodPost, "/api/annotations/video/"+videoHash+"/archive", "{}")
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 for unauthenticated archive create, got %d", rec.Code)
	}
}

func TestSuggestionsRouteRegistered(t *testing.T) {
	srv, _ := newServerWithDB(t)

	body := `{"fullTranscript":"hello world","selectionTranscript":"hello","selectionTimeRange":{"start":1,"end":2}}`
	rec := executeRequestWithBody(srv, http.MethodPost, "/api/suggestions", body)
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200 from stub suggester, got %d %q", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "stub") {
		t.Errorf("expected stub suggestion in body, got %q", rec.Body.String())
	}
}

// --- Rate limiting ---

func TestUserRoutesRateLimited(t *testing.T) {
	srv, _ := newServerWithDB(t)

	var lastCode int
	for i := 0; i < 20; i++ {
		rec := executeRequestWithBody(srv, http.MethodPost, "/api/users/", "{}")
		lastCode = rec.Code
		if lastCode == http.StatusTooManyRequests {
			return
		}
	}
	t.Errorf("expected 429 after many rapid requests, last status was %d", lastCode)
}

func TestSuggestionsRateLimited(t *testing.T) {
	srv, _ := newServerWithDB(t)

	var lastCode int
	for i := 0; i < 10; i++ {
		rec := executeRequestWithBody(srv, http.MethodPost, "/api/suggestions", "{}")
		lastCode = rec.Code
		if lastCode == http.StatusTooManyRequests {
			return
		}
	}
	t.Errorf("expected 429 after bursts, last status %d", lastCode)
}

// --- Route registration edges ---

func TestUnknownRouteReturns404(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodGet, "/unknown")

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown route, got %d", rec.Code)
	}
}

func TestHealthEndpointWrongMethodReturnsMethodNotAllowed(t *testing.T) {
	srv := newServerWithoutDB()
	rec := executeRequest(srv, http.MethodPost, "/api/health")

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405 for POST /api/health, got %d", rec.Code)
	}
}
