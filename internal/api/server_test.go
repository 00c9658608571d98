package api

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/google/uuid"
)

func TestNewServer_RequiresAgent(t *testing.T) {
	if _, err := NewServer(ServerConfig{}); err == nil {
		t.Fatal("expected an error when no agent is configured")
	}
}

func TestHealth(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/health")
	if err != nil {
		t.Fatalf("GET /health failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf(`status field = %q, want "ok"`, body["status"])
	}
}

func TestWelcome(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/api/chatbot/")
	if err != nil {
		t.Fatalf("GET /api/chatbot/ failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["message"] != "Welcome to the chat bot" {
		t.Errorf("message = %q, want the greeting", body["message"])
	}
}

func TestWelcome_ExactPathOnly(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/api/chatbot/nonexistent")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("status = %d, want 404 for paths under the chatbot root", resp.StatusCode)
	}
}

func TestReady_NoDatabase(t *testing.T) {
	// A nil pool degrades readiness to a liveness answer.
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/ready")
	if err != nil {
		t.Fatalf("GET /ready failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
}

func TestRequestID_Generated(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	id := resp.Header.Get("X-Request-ID")
	if _, err := uuid.Parse(id); err != nil {
		t.Errorf("X-Request-ID %q is not a UUID: %v", id, err)
	}
}

func TestRequestID_HonorsUpstream(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	upstream := uuid.NewString()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/nonexistent", nil)
	req.Header.Set("X-Request-ID", upstream)

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if got := resp.Header.Get("X-Request-ID"); got != upstream {
		t.Errorf("X-Request-ID = %q, want upstream %q", got, upstream)
	}
}

func TestRequestID_ReplacesInvalidUpstream(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/nonexistent", nil)
	req.Header.Set("X-Request-ID", "not-a-uuid")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	got := resp.Header.Get("X-Request-ID")
	if got == "not-a-uuid" {
		t.Error("invalid upstream request ID was honored")
	}
	if _, err := uuid.Parse(got); err != nil {
		t.Errorf("replacement X-Request-ID %q is not a UUID: %v", got, err)
	}
}

func TestRateLimit(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, func(cfg *ServerConfig) {
		cfg.RateBurst = 2
	})

	get := func() *http.Response {
		t.Helper()
		resp, err := ts.Client().Get(ts.URL + "/nonexistent")
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		io.Copy(io.Discard, resp.Body) //nolint:errcheck
		resp.Body.Close()
		return resp
	}

	for i := 0; i < 2; i++ {
		if resp := get(); resp.StatusCode == http.StatusTooManyRequests {
			t.Fatalf("request %d rate limited within burst", i+1)
		}
	}

	resp := get()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 after burst exhausted", resp.StatusCode)
	}
	if resp.Header.Get("Retry-After") == "" {
		t.Error("429 response missing Retry-After")
	}
}

func TestSecurityHeaders(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, nil)

	resp, err := ts.Client().Get(ts.URL + "/nonexistent")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if got := resp.Header.Get("X-Content-Type-Options"); got != "nosniff" {
		t.Errorf("X-Content-Type-Options = %q, want nosniff", got)
	}
	if got := resp.Header.Get("X-Frame-Options"); got != "DENY" {
		t.Errorf("X-Frame-Options = %q, want DENY", got)
	}
	// Dev mode serves plain HTTP, so no HSTS
	if got := resp.Header.Get("Strict-Transport-Security"); got != "" {
		t.Errorf("unexpected Strict-Transport-Security %q in dev mode", got)
	}
}

func TestCORS(t *testing.T) {
	const origin = "https://chequeatubot.example"
	ts := newTestServer(t, &mockChat{}, func(cfg *ServerConfig) {
		cfg.CORSOrigins = []string{origin}
	})

	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/chatbot/ws", nil)
	req.Header.Set("Origin", origin)

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", resp.StatusCode)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != origin {
		t.Errorf("Access-Control-Allow-Origin = %q, want %q", got, origin)
	}
}

func TestCORS_UnknownOrigin(t *testing.T) {
	ts := newTestServer(t, &mockChat{}, func(cfg *ServerConfig) {
		cfg.CORSOrigins = []string{"https://chequeatubot.example"}
	})

	req, _ := http.NewRequest(http.MethodGet, ts.URL+"/nonexistent", nil)
	req.Header.Set("Origin", "https://evil.example")

	resp, err := ts.Client().Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	io.Copy(io.Discard, resp.Body) //nolint:errcheck
	resp.Body.Close()

	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "" {
		t.Errorf("unexpected Access-Control-Allow-Origin %q for unknown origin", got)
	}
}
