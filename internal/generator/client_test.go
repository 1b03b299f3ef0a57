package generator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vampirenirmal/narratology/internal/core"
)

func testParams() core.GenerationParams {
	return core.GenerationParams{Model: "test-model", Temperature: 0.9, MaxTokens: 256}
}

func newTestClient(url string, provider Provider, retries int) *Client {
	return NewClient("test-key",
		WithProvider(provider),
		WithBaseURL(url),
		WithRetry(retries),
		WithTimeout(5*time.Second),
		WithRateLimit(6000, 100),
	)
}

func TestGenerateOpenAI(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path

		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("bad request body: %v", err)
		}
		if req["model"] != "test-model" {
			t.Errorf("model = %v", req["model"])
		}

		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "the scene prose"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 0)
	text, err := c.Generate(context.Background(), "write scene", testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "the scene prose" {
		t.Errorf("text = %q", text)
	}
	if gotAuth != "Bearer test-key" {
		t.Errorf("auth header = %q", gotAuth)
	}
	if gotPath != "/chat/completions" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestGenerateAnthropic(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") != "test-key" {
			t.Errorf("missing api key header")
		}
		if r.Header.Get("anthropic-version") == "" {
			t.Errorf("missing version header")
		}
		if r.URL.Path != "/messages" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"text": "prose from the other shape"}},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderAnthropic, 0)
	text, err := c.Generate(context.Background(), "write scene", testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "prose from the other shape" {
		t.Errorf("text = %q", text)
	}
}

func TestGenerateClassifiesServerErrorAndRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			http.Error(w, "overloaded", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"content": "recovered"}},
			},
		})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 2)
	text, err := c.Generate(context.Background(), "p", testParams())
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if text != "recovered" {
		t.Errorf("text = %q", text)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want 2", calls.Load())
	}
}

func TestGenerateExhaustsRetriesOnUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 1)
	_, err := c.Generate(context.Background(), "p", testParams())
	if !core.IsUnavailable(err) {
		t.Fatalf("err = %v, want unavailable", err)
	}
	if calls.Load() != 2 {
		t.Errorf("server saw %d calls, want initial + 1 retry", calls.Load())
	}
}

func TestGenerateClassifiesRejection(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"content policy"}`, http.StatusBadRequest)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 3)
	_, err := c.Generate(context.Background(), "p", testParams())
	if !core.IsRejected(err) {
		t.Fatalf("err = %v, want rejected", err)
	}
	if calls.Load() != 1 {
		t.Errorf("rejection was retried: %d calls", calls.Load())
	}
}

func TestGenerateRateLimitClassifiedUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "slow down", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 0)
	_, err := c.Generate(context.Background(), "p", testParams())
	if !core.IsUnavailable(err) {
		t.Fatalf("err = %v, want unavailable for 429", err)
	}
}

func TestGenerateEmptyChoicesRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	c := newTestClient(srv.URL, ProviderOpenAI, 0)
	_, err := c.Generate(context.Background(), "p", testParams())
	if !core.IsRejected(err) {
		t.Fatalf("err = %v, want rejected for empty choices", err)
	}
}

func TestGenerateCancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(50 * time.Millisecond)
		json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := newTestClient(srv.URL, ProviderOpenAI, 0)
	_, err := c.Generate(ctx, "p", testParams())
	if err == nil {
		t.Fatal("expected error from cancelled context")
	}
	if core.IsRecoverable(err) {
		t.Errorf("cancellation must not be recoverable: %v", err)
	}
}

func TestMockGenerator(t *testing.T) {
	m := &Mock{Responses: []string{"one", "two"}, Fallback: "more"}
	ctx := context.Background()
	for _, want := range []string{"one", "two", "more", "more"} {
		got, err := m.Generate(ctx, "p", testParams())
		if err != nil || got != want {
			t.Fatalf("Generate = %q, %v; want %q", got, err, want)
		}
	}
	if m.Calls != 4 || len(m.Prompts) != 4 {
		t.Errorf("Calls = %d, Prompts = %d", m.Calls, len(m.Prompts))
	}
}
